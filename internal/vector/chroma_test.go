package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, queryBody string) (*httptest.Server, *atomic.Int64, *atomic.Int64) {
	t.Helper()

	var createCalls, upsertCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nanosecond heartbeat": 1}`))
	})
	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		createCalls.Add(1)

		var req createCollectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode create collection request: %v", err)
		}
		if !req.GetOrCreate {
			t.Errorf("expected get_or_create=true")
		}
		if req.Metadata["hnsw:space"] != "cosine" {
			t.Errorf("expected cosine space metadata, got %v", req.Metadata)
		}
		_, _ = w.Write([]byte(`{"id":"col-1","name":"` + req.Name + `"}`))
	})
	mux.HandleFunc("/api/v1/collections/col-1/upsert", func(w http.ResponseWriter, r *http.Request) {
		upsertCalls.Add(1)

		var req upsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode upsert request: %v", err)
		}
		if len(req.IDs) != 1 || len(req.Embeddings) != 1 || len(req.Metadatas) != 1 {
			t.Errorf("expected single-document upsert, got %+v", req)
		}
		_, _ = w.Write([]byte(`true`))
	})
	mux.HandleFunc("/api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode query request: %v", err)
		}
		where, ok := req.Where["created_at"].(map[string]any)
		if !ok {
			t.Errorf("expected created_at filter, got %v", req.Where)
		} else if _, ok := where["$gte"]; !ok {
			t.Errorf("expected $gte filter, got %v", where)
		}
		_, _ = w.Write([]byte(queryBody))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &createCalls, &upsertCalls
}

func newTestClient(server *httptest.Server) *Client {
	return New(Options{BaseURL: server.URL, Collection: "cannibal_posts"})
}

func TestClientReadyCreatesCollection(t *testing.T) {
	t.Parallel()

	server, createCalls, _ := newTestServer(t, `{"ids":[[]],"distances":[[]]}`)
	client := newTestClient(server)

	if err := client.Ready(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createCalls.Load() != 1 {
		t.Fatalf("expected 1 create call, got %d", createCalls.Load())
	}
}

func TestClientUpsertAndQueryShareCollection(t *testing.T) {
	t.Parallel()

	server, createCalls, upsertCalls := newTestServer(t, `{"ids":[["a:1","b:2"]],"distances":[[0.1,0.4]]}`)
	client := newTestClient(server)

	metadata := DocumentMetadata{Channel: "Tech Daily", MessageID: 42, CreatedAt: 1700000000}
	if err := client.Upsert(context.Background(), "a:1", []float64{0.1, 0.2}, "body", metadata); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	if upsertCalls.Load() != 1 {
		t.Fatalf("expected 1 upsert call, got %d", upsertCalls.Load())
	}

	since := time.Now().Add(-24 * time.Hour)
	matches, err := client.QuerySimilar(context.Background(), []float64{0.1, 0.2}, since, 5)
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a:1" || matches[0].Distance != 0.1 {
		t.Fatalf("unexpected first match: %+v", matches[0])
	}

	if createCalls.Load() != 1 {
		t.Fatalf("expected collection created once, got %d", createCalls.Load())
	}
}

func TestClientQuerySimilarEmptyResult(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t, `{"ids":[[]],"distances":[[]]}`)
	client := newTestClient(server)

	matches, err := client.QuerySimilar(context.Background(), []float64{0.3}, time.Now(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
}

func TestClientQuerySimilarServerError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"col-1","name":"cannibal_posts"}`))
	})
	mux.HandleFunc("/api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newTestClient(server)
	if _, err := client.QuerySimilar(context.Background(), []float64{0.3}, time.Now(), 5); err == nil {
		t.Fatalf("expected error from failing index")
	}
}

func TestClientUpsertRequiresEmbedding(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t, `{}`)
	client := newTestClient(server)

	if err := client.Upsert(context.Background(), "a:1", nil, "body", DocumentMetadata{}); err == nil {
		t.Fatalf("expected error for missing embedding")
	}
}
