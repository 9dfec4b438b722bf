package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/dedup"
	"github.com/usrssssx/cannibal-ai/internal/llm"
	"github.com/usrssssx/cannibal-ai/internal/styleprofile"
	"github.com/usrssssx/cannibal-ai/internal/vector"
)

var errStubFailure = errors.New("stub failure")

type stubStore struct {
	mu         sync.Mutex
	records    map[string]*db.PostRecord
	outcomes   map[int64]db.PostOutcome
	nextID     int64
	storeErr   error
	outcomeErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		records:  make(map[string]*db.PostRecord),
		outcomes: make(map[int64]db.PostOutcome),
	}
}

func (s *stubStore) StoreOrFetch(_ context.Context, sourceName string, platformID *int64, messageID int64, text string) (*db.PostRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, false, s.storeErr
	}

	key := fmt.Sprintf("%s:%d", sourceName, messageID)
	if existing, ok := s.records[key]; ok {
		record := *existing
		return &record, false, nil
	}

	s.nextID++
	stored := &db.PostRecord{
		PostID:     s.nextID,
		SourceID:   s.nextID,
		SourceName: sourceName,
		PlatformID: platformID,
		MessageID:  messageID,
		Text:       text,
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	s.records[key] = stored
	record := *stored
	return &record, true, nil
}

func (s *stubStore) UpdateOutcome(_ context.Context, postID int64, outcome db.PostOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcomeErr != nil {
		return s.outcomeErr
	}

	s.outcomes[postID] = outcome
	for _, record := range s.records {
		if record.PostID != postID {
			continue
		}
		processedAt := outcome.ProcessedAt
		isDuplicate := outcome.IsDuplicate
		record.RewrittenText = outcome.RewrittenText
		record.IsDuplicate = &isDuplicate
		record.Similarity = outcome.Similarity
		record.DuplicateOf = outcome.DuplicateOf
		record.ProcessedAt = &processedAt
	}
	return nil
}

func (s *stubStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *stubStore) outcomeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

func (s *stubStore) outcomeFor(postID int64) (db.PostOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[postID]
	return outcome, ok
}

func (s *stubStore) record(sourceName string, messageID int64) *db.PostRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[fmt.Sprintf("%s:%d", sourceName, messageID)]
	if !ok {
		return nil
	}
	record := *stored
	return &record
}

type stubChecker struct {
	mu       sync.Mutex
	decision dedup.Decision
	err      error
	failText string
	calls    int
	lastText string
}

func (c *stubChecker) Check(_ context.Context, text string) (dedup.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastText = text
	if c.err != nil {
		return dedup.Decision{}, c.err
	}
	if c.failText != "" && text == c.failText {
		return dedup.Decision{}, errStubFailure
	}
	return c.decision, nil
}

func (c *stubChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stubRewriter struct {
	mu           sync.Mutex
	err          error
	calls        int
	lastText     string
	lastExamples []string
	lastProfile  string
}

func (r *stubRewriter) Rewrite(_ context.Context, text string, styleExamples []string, styleProfile string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastText = text
	r.lastExamples = styleExamples
	r.lastProfile = styleProfile
	if r.err != nil {
		return "", r.err
	}
	return "rewritten: " + text, nil
}

func (r *stubRewriter) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type upsertCall struct {
	docID     string
	embedding []float64
	document  string
	metadata  vector.DocumentMetadata
}

type stubIndex struct {
	mu    sync.Mutex
	err   error
	calls []upsertCall
}

func (i *stubIndex) Upsert(_ context.Context, docID string, embedding []float64, document string, metadata vector.DocumentMetadata) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, upsertCall{docID: docID, embedding: embedding, document: document, metadata: metadata})
	return i.err
}

func (i *stubIndex) callCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.calls)
}

type appendCall struct {
	timestamp  time.Time
	sourceName string
	messageID  int64
	rewritten  string
}

type stubSink struct {
	mu    sync.Mutex
	err   error
	calls []appendCall
}

func (s *stubSink) Append(timestamp time.Time, sourceName string, messageID int64, rewritten string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, appendCall{timestamp: timestamp, sourceName: sourceName, messageID: messageID, rewritten: rewritten})
	return nil
}

func (s *stubSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type testPipeline struct {
	store    *stubStore
	checker  *stubChecker
	rewriter *stubRewriter
	index    *stubIndex
	sink     *stubSink
	service  *Service
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()

	p := &testPipeline{
		store:    newStubStore(),
		checker:  &stubChecker{decision: uniqueDecision(0.4)},
		rewriter: &stubRewriter{},
		index:    &stubIndex{},
		sink:     &stubSink{},
	}
	service, err := NewService(ServiceOptions{
		Store:         p.store,
		Checker:       p.checker,
		Rewriter:      p.rewriter,
		Index:         p.index,
		Sink:          p.sink,
		FilteredTerms: []string{"промокод", " Реклама "},
		MaxChars:      100,
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	p.service = service
	return p
}

func uniqueDecision(similarity float64) dedup.Decision {
	return dedup.Decision{
		Similarity: &similarity,
		Embedding:  []float64{0.1, 0.2, 0.3},
	}
}

func duplicateDecision(similarity float64, matchedID string) dedup.Decision {
	return dedup.Decision{
		IsDuplicate: true,
		Similarity:  &similarity,
		MatchedID:   &matchedID,
		Embedding:   []float64{0.1, 0.2, 0.3},
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	checker := &stubChecker{}
	rewriter := &stubRewriter{}
	index := &stubIndex{}
	sink := &stubSink{}

	tests := []struct {
		name string
		opts ServiceOptions
	}{
		{"missing store", ServiceOptions{Checker: checker, Rewriter: rewriter, Index: index, Sink: sink}},
		{"missing checker", ServiceOptions{Store: store, Rewriter: rewriter, Index: index, Sink: sink}},
		{"missing rewriter", ServiceOptions{Store: store, Checker: checker, Index: index, Sink: sink}},
		{"missing index", ServiceOptions{Store: store, Checker: checker, Rewriter: rewriter, Sink: sink}},
		{"missing sink", ServiceOptions{Store: store, Checker: checker, Rewriter: rewriter, Index: index}},
	}
	for _, tt := range tests {
		if _, err := NewService(tt.opts); err == nil {
			t.Fatalf("NewService() with %s expected error", tt.name)
		}
	}
}

func TestAcceptDropsBlankPosts(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		if _, ok := p.service.Accept(Event{SourceName: "Tech", MessageID: 1, Text: text}); ok {
			t.Fatalf("Accept(%q) expected drop", text)
		}
	}
}

func TestAcceptDropsFilteredPosts(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	tests := []struct {
		text string
		want bool
	}{
		{"Свежие новости без рекламы нет", true},
		{"Лови ПРОМОКОД на скидку", false},
		{"Это реклама нового сервиса", false},
		{"Обычный пост о технологиях", true},
	}
	for _, tt := range tests {
		if _, ok := p.service.Accept(Event{SourceName: "Tech", MessageID: 1, Text: tt.text}); ok != tt.want {
			t.Fatalf("Accept(%q) = %v, want %v", tt.text, ok, tt.want)
		}
	}
}

func TestAcceptTruncatesLongPosts(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	long := strings.Repeat("д", 150)
	event, ok := p.service.Accept(Event{SourceName: "Tech", MessageID: 1, Text: long})
	if !ok {
		t.Fatalf("Accept() expected the post to pass")
	}
	if got := len([]rune(event.Text)); got != 100 {
		t.Fatalf("Accept() truncated to %d runes, want 100", got)
	}

	short := "короткий пост"
	event, ok = p.service.Accept(Event{SourceName: "Tech", MessageID: 2, Text: short})
	if !ok || event.Text != short {
		t.Fatalf("Accept(%q) = (%q, %v), want unchanged text", short, event.Text, ok)
	}
}

func TestHandleEventRewritesUniquePost(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	text := "A fresh update on the release schedule."
	event := Event{SourceName: "Tech Daily", MessageID: 42, Text: text}

	if err := p.service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if got := p.checker.callCount(); got != 1 {
		t.Fatalf("checker called %d times, want 1", got)
	}
	if p.checker.lastText != text {
		t.Fatalf("checker received %q, want %q", p.checker.lastText, text)
	}

	if got := p.index.callCount(); got != 1 {
		t.Fatalf("index upserted %d times, want 1", got)
	}
	upsert := p.index.calls[0]
	if upsert.docID != "Tech Daily:42" {
		t.Fatalf("upsert doc id = %q, want %q", upsert.docID, "Tech Daily:42")
	}
	if len(upsert.embedding) != 3 || upsert.embedding[0] != 0.1 {
		t.Fatalf("upsert embedding = %v, want the checker's embedding", upsert.embedding)
	}
	if upsert.document != text {
		t.Fatalf("upsert document = %q, want %q", upsert.document, text)
	}
	if upsert.metadata.Channel != "Tech Daily" || upsert.metadata.MessageID != 42 {
		t.Fatalf("upsert metadata = %+v", upsert.metadata)
	}
	record := p.store.record("Tech Daily", 42)
	if record == nil {
		t.Fatalf("expected a stored record")
	}
	if want := vector.UnixSeconds(record.CreatedAt); upsert.metadata.CreatedAt != want {
		t.Fatalf("upsert metadata created_at = %v, want %v", upsert.metadata.CreatedAt, want)
	}

	if got := p.rewriter.callCount(); got != 1 {
		t.Fatalf("rewriter called %d times, want 1", got)
	}
	wantExamples := llm.ExamplesForText(text)
	if len(p.rewriter.lastExamples) != len(wantExamples) || p.rewriter.lastExamples[0] != wantExamples[0] {
		t.Fatalf("rewriter examples = %d entries, want the English set", len(p.rewriter.lastExamples))
	}
	if p.rewriter.lastProfile != "" {
		t.Fatalf("rewriter profile = %q, want empty without a lookup", p.rewriter.lastProfile)
	}

	if got := p.sink.callCount(); got != 1 {
		t.Fatalf("sink appended %d times, want 1", got)
	}
	appended := p.sink.calls[0]
	if appended.sourceName != "Tech Daily" || appended.messageID != 42 {
		t.Fatalf("sink append = %+v", appended)
	}
	if appended.rewritten != "rewritten: "+text {
		t.Fatalf("sink rewritten = %q", appended.rewritten)
	}
	if appended.timestamp.IsZero() {
		t.Fatalf("sink timestamp is zero")
	}

	outcome, ok := p.store.outcomeFor(record.PostID)
	if !ok {
		t.Fatalf("expected an outcome for post %d", record.PostID)
	}
	if outcome.IsDuplicate {
		t.Fatalf("outcome marked duplicate")
	}
	if outcome.RewrittenText == nil || *outcome.RewrittenText != "rewritten: "+text {
		t.Fatalf("outcome rewritten text = %v", outcome.RewrittenText)
	}
	if outcome.Similarity == nil || *outcome.Similarity != 0.4 {
		t.Fatalf("outcome similarity = %v, want 0.4", outcome.Similarity)
	}
	if outcome.ProcessedAt.IsZero() {
		t.Fatalf("outcome processed_at is zero")
	}
}

func TestHandleEventRecordsDuplicate(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.checker.decision = duplicateDecision(0.95, "7:99")

	event := Event{SourceName: "Tech Daily", MessageID: 43, Text: "A fresh update on the release schedule."}
	if err := p.service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if got := p.index.callCount(); got != 0 {
		t.Fatalf("index upserted %d times for a duplicate, want 0", got)
	}
	if got := p.rewriter.callCount(); got != 0 {
		t.Fatalf("rewriter called %d times for a duplicate, want 0", got)
	}
	if got := p.sink.callCount(); got != 0 {
		t.Fatalf("sink appended %d times for a duplicate, want 0", got)
	}

	record := p.store.record("Tech Daily", 43)
	outcome, ok := p.store.outcomeFor(record.PostID)
	if !ok {
		t.Fatalf("expected a duplicate outcome")
	}
	if !outcome.IsDuplicate {
		t.Fatalf("outcome not marked duplicate")
	}
	if outcome.Similarity == nil || *outcome.Similarity != 0.95 {
		t.Fatalf("outcome similarity = %v, want 0.95", outcome.Similarity)
	}
	if outcome.DuplicateOf == nil || *outcome.DuplicateOf != "7:99" {
		t.Fatalf("outcome duplicate_of = %v, want 7:99", outcome.DuplicateOf)
	}
	if outcome.RewrittenText != nil {
		t.Fatalf("duplicate outcome carries rewritten text %q", *outcome.RewrittenText)
	}
}

func TestHandleEventIsIdempotent(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	event := Event{SourceName: "Tech Daily", MessageID: 44, Text: "Shipping the beta next week."}

	for i := 0; i < 3; i++ {
		if err := p.service.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("HandleEvent() attempt %d error = %v", i+1, err)
		}
	}

	if got := p.store.recordCount(); got != 1 {
		t.Fatalf("stored %d records, want 1", got)
	}
	if got := p.checker.callCount(); got != 1 {
		t.Fatalf("checker called %d times across redeliveries, want 1", got)
	}
	if got := p.rewriter.callCount(); got != 1 {
		t.Fatalf("rewriter called %d times across redeliveries, want 1", got)
	}
	if got := p.sink.callCount(); got != 1 {
		t.Fatalf("sink appended %d times across redeliveries, want 1", got)
	}
	if got := p.store.outcomeCount(); got != 1 {
		t.Fatalf("recorded %d outcomes, want 1", got)
	}
}

func TestHandleEventRetriesAfterDedupFailure(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.checker.err = errStubFailure
	event := Event{SourceName: "Tech Daily", MessageID: 45, Text: "Incident report for the outage."}

	err := p.service.HandleEvent(context.Background(), event)
	if !errors.Is(err, errStubFailure) {
		t.Fatalf("HandleEvent() error = %v, want the checker failure", err)
	}
	if got := p.rewriter.callCount(); got != 0 {
		t.Fatalf("rewriter called %d times after a failed check, want 0", got)
	}
	if got := p.store.outcomeCount(); got != 0 {
		t.Fatalf("recorded %d outcomes after a failed check, want 0", got)
	}
	record := p.store.record("Tech Daily", 45)
	if record == nil || record.ProcessedAt != nil {
		t.Fatalf("record = %+v, want stored and unprocessed", record)
	}

	// Redelivery picks the same record up once the checker recovers.
	p.checker.err = nil
	if err := p.service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() redelivery error = %v", err)
	}
	if got := p.store.recordCount(); got != 1 {
		t.Fatalf("stored %d records after redelivery, want 1", got)
	}
	if got := p.sink.callCount(); got != 1 {
		t.Fatalf("sink appended %d times after redelivery, want 1", got)
	}
	record = p.store.record("Tech Daily", 45)
	if record.ProcessedAt == nil {
		t.Fatalf("record still unprocessed after redelivery")
	}
}

func TestHandleEventContinuesWhenUpsertFails(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.index.err = errStubFailure
	event := Event{SourceName: "Tech Daily", MessageID: 46, Text: "Roadmap review notes."}

	if err := p.service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v, want upsert failures swallowed", err)
	}
	if got := p.rewriter.callCount(); got != 1 {
		t.Fatalf("rewriter called %d times, want 1", got)
	}
	if got := p.sink.callCount(); got != 1 {
		t.Fatalf("sink appended %d times, want 1", got)
	}
	if got := p.store.outcomeCount(); got != 1 {
		t.Fatalf("recorded %d outcomes, want 1", got)
	}
}

func TestHandleEventRewriteFailureLeavesRecordUnprocessed(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.rewriter.err = errStubFailure
	event := Event{SourceName: "Tech Daily", MessageID: 47, Text: "Planning update."}

	err := p.service.HandleEvent(context.Background(), event)
	if !errors.Is(err, errStubFailure) {
		t.Fatalf("HandleEvent() error = %v, want the rewrite failure", err)
	}
	if got := p.sink.callCount(); got != 0 {
		t.Fatalf("sink appended %d times after a failed rewrite, want 0", got)
	}
	if got := p.store.outcomeCount(); got != 0 {
		t.Fatalf("recorded %d outcomes after a failed rewrite, want 0", got)
	}
	if record := p.store.record("Tech Daily", 47); record.ProcessedAt != nil {
		t.Fatalf("record marked processed after a failed rewrite")
	}
}

func TestHandleEventSinkFailureLeavesRecordUnprocessed(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.sink.err = errStubFailure
	event := Event{SourceName: "Tech Daily", MessageID: 48, Text: "Metrics digest."}

	err := p.service.HandleEvent(context.Background(), event)
	if !errors.Is(err, errStubFailure) {
		t.Fatalf("HandleEvent() error = %v, want the sink failure", err)
	}
	if got := p.store.outcomeCount(); got != 0 {
		t.Fatalf("recorded %d outcomes after a failed append, want 0", got)
	}
	if record := p.store.record("Tech Daily", 48); record.ProcessedAt != nil {
		t.Fatalf("record marked processed after a failed append")
	}
}

func TestHandleEventStoreFailure(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.store.storeErr = errStubFailure

	err := p.service.HandleEvent(context.Background(), Event{SourceName: "Tech Daily", MessageID: 49, Text: "x"})
	if !errors.Is(err, errStubFailure) {
		t.Fatalf("HandleEvent() error = %v, want the store failure", err)
	}
	if got := p.checker.callCount(); got != 0 {
		t.Fatalf("checker called %d times after a failed store, want 0", got)
	}
}

func TestHandleEventUsesStyleProfile(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.service.SetProfiles(styleprofile.NewLookup(
		map[int64]string{7: "platform profile"},
		map[string]string{"Tech Daily": "name profile"},
	))

	platformID := int64(7)
	event := Event{SourceName: "Tech Daily", PlatformID: &platformID, MessageID: 50, Text: "Release notes draft."}
	if err := p.service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if p.rewriter.lastProfile != "platform profile" {
		t.Fatalf("rewriter profile = %q, want the platform entry", p.rewriter.lastProfile)
	}
	if got := p.index.calls[0].docID; got != "7:50" {
		t.Fatalf("upsert doc id = %q, want %q", got, "7:50")
	}

	event = Event{SourceName: "Tech Daily", MessageID: 51, Text: "Release notes, second draft."}
	if err := p.service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if p.rewriter.lastProfile != "name profile" {
		t.Fatalf("rewriter profile = %q, want the name fallback", p.rewriter.lastProfile)
	}

	event = Event{SourceName: "Unknown Channel", MessageID: 52, Text: "Unrelated post."}
	if err := p.service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if p.rewriter.lastProfile != "" {
		t.Fatalf("rewriter profile = %q, want empty for an unknown source", p.rewriter.lastProfile)
	}
}

func TestHandleEventConcurrentDeliveriesStoreOnce(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	event := Event{SourceName: "Tech Daily", MessageID: 53, Text: "Breaking: the launch is live."}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.service.HandleEvent(context.Background(), event); err != nil {
				t.Errorf("HandleEvent() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := p.store.recordCount(); got != 1 {
		t.Fatalf("stored %d records for one message, want 1", got)
	}
	record := p.store.record("Tech Daily", 53)
	if record.ProcessedAt == nil {
		t.Fatalf("record left unprocessed")
	}
	if got := p.sink.callCount(); got < 1 {
		t.Fatalf("sink never appended")
	}
}

func TestDocumentID(t *testing.T) {
	t.Parallel()

	platformID := int64(123)
	withPlatform := &db.PostRecord{SourceName: "Tech", PlatformID: &platformID, MessageID: 9}
	if got := DocumentID(withPlatform); got != "123:9" {
		t.Fatalf("DocumentID() = %q, want %q", got, "123:9")
	}

	byName := &db.PostRecord{SourceName: "Tech", MessageID: 9}
	if got := DocumentID(byName); got != "Tech:9" {
		t.Fatalf("DocumentID() = %q, want %q", got, "Tech:9")
	}
}

func TestMatchFilter(t *testing.T) {
	t.Parallel()

	filters := NormalizeFilters([]string{" Промокод ", "", "реклама"})
	if len(filters) != 2 {
		t.Fatalf("NormalizeFilters returned %d terms, want 2", len(filters))
	}

	if term, ok := MatchFilter("Ловите ПРОМОКОД на скидку", filters); !ok || term != "промокод" {
		t.Fatalf("MatchFilter() = %q, %t, want %q, true", term, ok, "промокод")
	}
	if term, ok := MatchFilter("Обычный пост", filters); ok {
		t.Fatalf("MatchFilter() matched %q on clean text", term)
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		maxChars int
		want     string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"привет", 4, "прив"},
		{"hello", 0, "hello"},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.text, tt.maxChars); got != tt.want {
			t.Fatalf("TruncateRunes(%q, %d) = %q, want %q", tt.text, tt.maxChars, got, tt.want)
		}
	}
}
