package styleprofile

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/usrssssx/cannibal-ai/internal/db"
)

// DefaultSampleLimit caps how many recent posts feed one source's profile.
const DefaultSampleLimit = 50

// MinSamples is the per-source floor below which no profile is built.
// Thin history produces misleading profiles, so those sources fall back to
// generic examples instead.
func MinSamples(sampleLimit int) int {
	minSamples := sampleLimit / 3
	if minSamples < 10 {
		minSamples = 10
	}
	return minSamples
}

// Lookup resolves a source to its rendered profile. Built once, read-only
// afterwards, safe for concurrent readers.
type Lookup struct {
	byPlatformID map[int64]string
	byName       map[string]string
}

func NewLookup(byPlatformID map[int64]string, byName map[string]string) *Lookup {
	if byPlatformID == nil {
		byPlatformID = make(map[int64]string)
	}
	if byName == nil {
		byName = make(map[string]string)
	}
	return &Lookup{byPlatformID: byPlatformID, byName: byName}
}

// Get prefers the platform id key and falls back to the display name.
func (l *Lookup) Get(platformID *int64, name string) (string, bool) {
	if l == nil {
		return "", false
	}
	if platformID != nil {
		if profile, ok := l.byPlatformID[*platformID]; ok {
			return profile, true
		}
	}
	if name != "" {
		if profile, ok := l.byName[name]; ok {
			return profile, true
		}
	}
	return "", false
}

// Len reports how many sources have a profile.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.byName)
}

// Entry is one profiled source as the CLI reports it.
type Entry struct {
	Name    string `json:"source"`
	Profile string `json:"profile"`
}

// Entries lists the profiles sorted by source name.
func (l *Lookup) Entries() []Entry {
	if l == nil {
		return nil
	}
	entries := make([]Entry, 0, len(l.byName))
	for name, profile := range l.byName {
		entries = append(entries, Entry{Name: name, Profile: profile})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Store is the slice of the post store the builder reads from.
type Store interface {
	ListProfileSources(ctx context.Context, names []string) ([]db.Source, error)
	FetchRecentPosts(ctx context.Context, sourceID int64, limit int) ([]string, error)
}

type Builder struct {
	store  Store
	logger zerolog.Logger
}

func NewBuilder(store Store, logger zerolog.Logger) *Builder {
	return &Builder{store: store, logger: logger}
}

// Build profiles every known source (or just sourceNames when given) from
// its most recent posts. Runs out-of-band, never inside the event workflow.
func (b *Builder) Build(ctx context.Context, sourceNames []string, sampleLimit int) (*Lookup, error) {
	if b == nil || b.store == nil {
		return nil, fmt.Errorf("profile builder is not initialized")
	}
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	minSamples := MinSamples(sampleLimit)

	sources, err := b.store.ListProfileSources(ctx, sourceNames)
	if err != nil {
		return nil, fmt.Errorf("list sources for profiling: %w", err)
	}

	lookup := NewLookup(nil, nil)
	for _, source := range sources {
		texts, err := b.store.FetchRecentPosts(ctx, source.SourceID, sampleLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch posts for profiling %s: %w", source.Name, err)
		}
		if len(texts) < minSamples {
			b.logger.Debug().
				Str("source", source.Name).
				Int("have", len(texts)).
				Int("need", minSamples).
				Msg("not enough posts for style profile")
			continue
		}

		rendered := Build(texts).Render()
		if rendered == "" {
			continue
		}
		if source.PlatformID != nil {
			lookup.byPlatformID[*source.PlatformID] = rendered
		}
		lookup.byName[source.Name] = rendered
	}

	b.logger.Info().Int("profiles", lookup.Len()).Msg("style profiles built")
	return lookup, nil
}
