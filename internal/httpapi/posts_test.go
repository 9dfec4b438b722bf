package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/usrssssx/cannibal-ai/internal/db"
)

func newParamContext(path, paramName, paramValue string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramName)
	c.SetParamValues(paramValue)
	return c, rec
}

func TestListPostsParsesFilters(t *testing.T) {
	t.Parallel()

	store := newFakeDataStore()
	store.posts = []db.PostRecord{{PostID: 1, SourceName: "Tech", MessageID: 5, Text: "пост"}}
	server := newTestServer(store, nil, Options{})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/posts?source=Tech&processed=true&duplicate=false&limit=10", "")
	if err := server.handleListPosts(c); err != nil {
		t.Fatalf("handleListPosts() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if store.listOpts == nil {
		t.Fatalf("store never queried")
	}
	if store.listOpts.SourceName != "Tech" {
		t.Fatalf("source filter = %q, want Tech", store.listOpts.SourceName)
	}
	if store.listOpts.Processed == nil || !*store.listOpts.Processed {
		t.Fatalf("processed filter = %v, want true", store.listOpts.Processed)
	}
	if store.listOpts.Duplicate == nil || *store.listOpts.Duplicate {
		t.Fatalf("duplicate filter = %v, want false", store.listOpts.Duplicate)
	}
	if store.listOpts.Limit != 10 {
		t.Fatalf("limit = %d, want 10", store.listOpts.Limit)
	}
}

func TestListPostsRejectsBadFilters(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeDataStore(), nil, Options{})

	for _, query := range []string{"processed=maybe", "duplicate=2", "limit=0", "limit=9999"} {
		c, rec := newJSONContext(http.MethodGet, "/api/v1/posts?"+query, "")
		if err := server.handleListPosts(c); err != nil {
			t.Fatalf("%s: handleListPosts() error = %v", query, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want %d", query, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestPostDetail(t *testing.T) {
	t.Parallel()

	store := newFakeDataStore()
	store.postsByUUID["11111111-1111-1111-1111-111111111111"] = &db.PostRecord{
		PostID:     3,
		PostUUID:   "11111111-1111-1111-1111-111111111111",
		SourceName: "Tech",
		MessageID:  9,
		Text:       "текст поста",
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	server := newTestServer(store, nil, Options{})

	c, rec := newParamContext("/api/v1/posts/11111111-1111-1111-1111-111111111111", "post_uuid", "11111111-1111-1111-1111-111111111111")
	if err := server.handlePostDetail(c); err != nil {
		t.Fatalf("handlePostDetail() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	envelope := decodeJSend(t, rec)
	var record db.PostRecord
	if err := json.Unmarshal(envelope.Data, &record); err != nil {
		t.Fatalf("decode post record: %v", err)
	}
	if record.PostUUID != "11111111-1111-1111-1111-111111111111" || record.Text != "текст поста" {
		t.Fatalf("record = %+v", record)
	}
}

func TestPostDetailNotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeDataStore(), nil, Options{})

	c, rec := newParamContext("/api/v1/posts/22222222-2222-2222-2222-222222222222", "post_uuid", "22222222-2222-2222-2222-222222222222")
	if err := server.handlePostDetail(c); err != nil {
		t.Fatalf("handlePostDetail() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestLinkPreviewUsesPostTextWithoutLink(t *testing.T) {
	t.Parallel()

	store := newFakeDataStore()
	store.postsByUUID["33333333-3333-3333-3333-333333333333"] = &db.PostRecord{
		PostUUID:   "33333333-3333-3333-3333-333333333333",
		SourceName: "Tech",
		MessageID:  12,
		Text:       "Пост без ссылок, просто текст.",
	}
	server := newTestServer(store, nil, Options{})

	c, rec := newParamContext("/api/v1/posts/33333333-3333-3333-3333-333333333333/link-preview", "post_uuid", "33333333-3333-3333-3333-333333333333")
	if err := server.handleLinkPreview(c); err != nil {
		t.Fatalf("handleLinkPreview() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	envelope := decodeJSend(t, rec)
	var preview linkPreviewResponse
	if err := json.Unmarshal(envelope.Data, &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.Source != "post_text" {
		t.Fatalf("preview source = %q, want post_text", preview.Source)
	}
	if preview.PreviewText != "Пост без ссылок, просто текст." {
		t.Fatalf("preview text = %q", preview.PreviewText)
	}
	if preview.URL != nil {
		t.Fatalf("preview url = %v, want none", *preview.URL)
	}
}

func TestLinkPreviewFetchesLinkedPage(t *testing.T) {
	t.Parallel()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Текст статьи по ссылке."))
	}))
	defer page.Close()

	store := newFakeDataStore()
	store.postsByUUID["44444444-4444-4444-4444-444444444444"] = &db.PostRecord{
		PostUUID:   "44444444-4444-4444-4444-444444444444",
		SourceName: "Tech",
		MessageID:  13,
		Text:       "Подробности: " + page.URL,
	}
	server := newTestServer(store, nil, Options{})

	c, rec := newParamContext("/api/v1/posts/44444444-4444-4444-4444-444444444444/link-preview", "post_uuid", "44444444-4444-4444-4444-444444444444")
	if err := server.handleLinkPreview(c); err != nil {
		t.Fatalf("handleLinkPreview() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	envelope := decodeJSend(t, rec)
	var preview linkPreviewResponse
	if err := json.Unmarshal(envelope.Data, &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.Source != "reader" {
		t.Fatalf("preview source = %q, want reader", preview.Source)
	}
	if preview.PreviewText != "Текст статьи по ссылке." {
		t.Fatalf("preview text = %q", preview.PreviewText)
	}
	if preview.URL == nil || *preview.URL != page.URL {
		t.Fatalf("preview url = %v, want %q", preview.URL, page.URL)
	}
	if preview.PreviewError != nil {
		t.Fatalf("preview error = %q, want none", *preview.PreviewError)
	}
}

func TestLinkPreviewFallsBackWhenFetchFails(t *testing.T) {
	t.Parallel()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer page.Close()

	store := newFakeDataStore()
	store.postsByUUID["55555555-5555-5555-5555-555555555555"] = &db.PostRecord{
		PostUUID:   "55555555-5555-5555-5555-555555555555",
		SourceName: "Tech",
		MessageID:  14,
		Text:       "Смотрите " + page.URL,
	}
	server := newTestServer(store, nil, Options{})

	c, rec := newParamContext("/api/v1/posts/55555555-5555-5555-5555-555555555555/link-preview", "post_uuid", "55555555-5555-5555-5555-555555555555")
	if err := server.handleLinkPreview(c); err != nil {
		t.Fatalf("handleLinkPreview() error = %v", err)
	}

	envelope := decodeJSend(t, rec)
	var preview linkPreviewResponse
	if err := json.Unmarshal(envelope.Data, &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.Source != "post_text" {
		t.Fatalf("preview source = %q, want the post body fallback", preview.Source)
	}
	if preview.PreviewError == nil {
		t.Fatalf("expected a recorded preview error")
	}
}

func TestLinkPreviewMaxCharsValidation(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeDataStore(), nil, Options{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts/x/link-preview?max_chars=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("post_uuid")
	c.SetParamValues("66666666-6666-6666-6666-666666666666")

	if err := server.handleLinkPreview(c); err != nil {
		t.Fatalf("handleLinkPreview() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
