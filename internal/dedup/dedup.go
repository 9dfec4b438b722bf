// Package dedup decides whether a post is a semantic duplicate of anything
// seen in the trailing window. The embedding computed for the check is
// returned so the caller can reuse it for the index upsert.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/usrssssx/cannibal-ai/internal/globaltime"
	"github.com/usrssssx/cannibal-ai/internal/vector"
)

const (
	DefaultThreshold = 0.85
	DefaultWindow    = 24 * time.Hour
	DefaultTopK      = 5
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Index interface {
	QuerySimilar(ctx context.Context, embedding []float64, since time.Time, topK int) ([]vector.Match, error)
}

// Decision carries the dedup verdict. Similarity and MatchedID are nil when
// the index returned no candidates.
type Decision struct {
	IsDuplicate bool
	Similarity  *float64
	MatchedID   *string
	Embedding   []float64
}

type Options struct {
	Threshold float64
	Window    time.Duration
	TopK      int
}

type Checker struct {
	embedder  Embedder
	index     Index
	threshold float64
	window    time.Duration
	topK      int
	logger    zerolog.Logger
}

func New(embedder Embedder, index Index, opts Options, logger zerolog.Logger) *Checker {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Checker{
		embedder:  embedder,
		index:     index,
		threshold: threshold,
		window:    window,
		topK:      topK,
		logger:    logger,
	}
}

// Check embeds text and compares it against the index. An index failure
// degrades to "unique"; an embedding failure is returned to the caller.
func (c *Checker) Check(ctx context.Context, text string) (Decision, error) {
	if c == nil || c.embedder == nil || c.index == nil {
		return Decision{}, fmt.Errorf("dedup checker is not initialized")
	}

	embedding, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return Decision{}, fmt.Errorf("embed post: %w", err)
	}

	since := globaltime.UTC().Add(-c.window)
	matches, err := c.index.QuerySimilar(ctx, embedding, since, c.topK)
	if err != nil {
		c.logger.Warn().Err(err).Msg("similarity query failed, treating post as unique")
		matches = nil
	}

	decision := Decision{Embedding: embedding}
	if len(matches) > 0 {
		best := matches[0]
		similarity := 1 - best.Distance
		decision.Similarity = &similarity
		if best.ID != "" {
			matchedID := best.ID
			decision.MatchedID = &matchedID
		}
		decision.IsDuplicate = similarity >= c.threshold
	}

	if decision.IsDuplicate {
		c.logger.Info().Float64("similarity", *decision.Similarity).Msg("duplicate detected")
	} else {
		c.logger.Debug().Msg("post is unique")
	}
	return decision, nil
}
