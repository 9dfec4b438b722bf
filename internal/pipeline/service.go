// Package pipeline runs the per-event workflow: store the raw post exactly
// once, check it against the similarity window, and either mark it a
// duplicate or rewrite it and append the result to the output sink.
//
// Every step after the idempotent insert can fail without corrupting state:
// processed_at stays unset until the workflow finishes, so a redelivered
// event picks up where the failed one left off.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/dedup"
	"github.com/usrssssx/cannibal-ai/internal/globaltime"
	"github.com/usrssssx/cannibal-ai/internal/llm"
	"github.com/usrssssx/cannibal-ai/internal/styleprofile"
	"github.com/usrssssx/cannibal-ai/internal/vector"
)

const (
	DefaultMaxChars  = 4000
	DefaultQueueSize = 100
	DefaultWorkers   = 4
)

// Event is one inbound post. PlatformID is the numeric source id when the
// upstream knows it; name-only sources leave it nil.
type Event struct {
	SourceName string
	PlatformID *int64
	MessageID  int64
	Text       string
}

type Store interface {
	StoreOrFetch(ctx context.Context, sourceName string, platformID *int64, messageID int64, text string) (*db.PostRecord, bool, error)
	UpdateOutcome(ctx context.Context, postID int64, outcome db.PostOutcome) error
}

type DedupChecker interface {
	Check(ctx context.Context, text string) (dedup.Decision, error)
}

type Rewriter interface {
	Rewrite(ctx context.Context, text string, styleExamples []string, styleProfile string) (string, error)
}

type Index interface {
	Upsert(ctx context.Context, docID string, embedding []float64, document string, metadata vector.DocumentMetadata) error
}

type OutputSink interface {
	Append(timestamp time.Time, sourceName string, messageID int64, rewritten string) error
}

type ServiceOptions struct {
	Store         Store
	Checker       DedupChecker
	Rewriter      Rewriter
	Index         Index
	Sink          OutputSink
	FilteredTerms []string
	MaxChars      int
	Logger        zerolog.Logger
}

type Service struct {
	store    Store
	checker  DedupChecker
	rewriter Rewriter
	index    Index
	sink     OutputSink
	filters  []string
	maxChars int
	logger   zerolog.Logger

	profiles atomic.Pointer[styleprofile.Lookup]
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline store is required")
	}
	if opts.Checker == nil {
		return nil, fmt.Errorf("pipeline dedup checker is required")
	}
	if opts.Rewriter == nil {
		return nil, fmt.Errorf("pipeline rewriter is required")
	}
	if opts.Index == nil {
		return nil, fmt.Errorf("pipeline index is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("pipeline output sink is required")
	}

	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	return &Service{
		store:    opts.Store,
		checker:  opts.Checker,
		rewriter: opts.Rewriter,
		index:    opts.Index,
		sink:     opts.Sink,
		filters:  NormalizeFilters(opts.FilteredTerms),
		maxChars: maxChars,
		logger:   opts.Logger,
	}, nil
}

// SetProfiles swaps in a freshly built profile lookup. Workers read the
// current pointer per event, so a rebuild never blocks processing.
func (s *Service) SetProfiles(lookup *styleprofile.Lookup) {
	s.profiles.Store(lookup)
}

// Accept screens an event before it enters the queue. Blank or ad-like
// posts are dropped silently; accepted posts come back truncated to the
// configured length.
func (s *Service) Accept(event Event) (Event, bool) {
	if strings.TrimSpace(event.Text) == "" {
		s.logger.Debug().
			Str("source", event.SourceName).
			Int64("message_id", event.MessageID).
			Msg("dropping empty post")
		return Event{}, false
	}

	if term, ok := MatchFilter(event.Text, s.filters); ok {
		s.logger.Debug().
			Str("source", event.SourceName).
			Int64("message_id", event.MessageID).
			Str("term", term).
			Msg("dropping filtered post")
		return Event{}, false
	}

	event.Text = TruncateRunes(event.Text, s.maxChars)
	return event, true
}

// HandleEvent runs the workflow for one event. Returned errors left the
// record unprocessed; the caller logs them and relies on redelivery.
func (s *Service) HandleEvent(ctx context.Context, event Event) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("pipeline service is not initialized")
	}

	record, created, err := s.store.StoreOrFetch(ctx, event.SourceName, event.PlatformID, event.MessageID, event.Text)
	if err != nil {
		return fmt.Errorf("store post: %w", err)
	}
	if !created && record.ProcessedAt != nil {
		s.logger.Debug().
			Str("source", record.SourceName).
			Int64("message_id", record.MessageID).
			Msg("post already processed, skipping")
		return nil
	}
	if created {
		s.logger.Info().
			Str("source", record.SourceName).
			Int64("message_id", record.MessageID).
			Msg("new post detected")
	}

	decision, err := s.checker.Check(ctx, record.Text)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}

	if decision.IsDuplicate {
		outcome := db.PostOutcome{
			IsDuplicate: true,
			Similarity:  decision.Similarity,
			DuplicateOf: decision.MatchedID,
			ProcessedAt: globaltime.UTC(),
		}
		if err := s.store.UpdateOutcome(ctx, record.PostID, outcome); err != nil {
			return fmt.Errorf("record duplicate outcome: %w", err)
		}
		s.logger.Info().
			Str("source", record.SourceName).
			Int64("message_id", record.MessageID).
			Msg("skipping duplicate post")
		return nil
	}

	metadata := vector.DocumentMetadata{
		Channel:   record.SourceName,
		MessageID: record.MessageID,
		CreatedAt: vector.UnixSeconds(record.CreatedAt),
	}
	if err := s.index.Upsert(ctx, DocumentID(record), decision.Embedding, record.Text, metadata); err != nil {
		// A missed index write only weakens future dedup; the event goes on.
		s.logger.Warn().
			Err(err).
			Str("source", record.SourceName).
			Int64("message_id", record.MessageID).
			Msg("vector upsert failed")
	}

	profile, _ := s.profiles.Load().Get(record.PlatformID, record.SourceName)
	rewritten, err := s.rewriter.Rewrite(ctx, record.Text, llm.ExamplesForText(record.Text), profile)
	if err != nil {
		return fmt.Errorf("rewrite post: %w", err)
	}

	if err := s.sink.Append(globaltime.UTC(), record.SourceName, record.MessageID, rewritten); err != nil {
		return fmt.Errorf("append output record: %w", err)
	}

	outcome := db.PostOutcome{
		RewrittenText: &rewritten,
		IsDuplicate:   false,
		Similarity:    decision.Similarity,
		DuplicateOf:   decision.MatchedID,
		ProcessedAt:   globaltime.UTC(),
	}
	if err := s.store.UpdateOutcome(ctx, record.PostID, outcome); err != nil {
		return fmt.Errorf("record rewrite outcome: %w", err)
	}

	s.logger.Info().
		Str("source", record.SourceName).
		Int64("message_id", record.MessageID).
		Msg("post rewritten")
	return nil
}

// DocumentID keys index documents by the platform id when known, matching
// how redelivered events resolve the same source. The backfill loader uses
// the same keying so historical posts land under the ids live traffic
// would claim.
func DocumentID(record *db.PostRecord) string {
	if record.PlatformID != nil {
		return fmt.Sprintf("%d:%d", *record.PlatformID, record.MessageID)
	}
	return fmt.Sprintf("%s:%d", record.SourceName, record.MessageID)
}

// NormalizeFilters lowercases and trims filter terms, dropping blanks.
func NormalizeFilters(terms []string) []string {
	filters := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			filters = append(filters, term)
		}
	}
	return filters
}

// MatchFilter reports the first normalized term contained in text.
func MatchFilter(text string, filters []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, term := range filters {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

// TruncateRunes clips text to maxChars runes without splitting one.
func TruncateRunes(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
