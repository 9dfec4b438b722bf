package db

import (
	"context"
	"fmt"
	"time"

	"github.com/usrssssx/cannibal-ai/internal/globaltime"
)

// SourceSummary is the read model for the sources CLI/API listing.
type SourceSummary struct {
	SourceID   int64      `json:"source_id"`
	Name       string     `json:"name"`
	PlatformID *int64     `json:"platform_id,omitempty"`
	PostCount  int64      `json:"post_count"`
	LastPostAt *time.Time `json:"last_post_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ensureSourceTx resolves the source row for an event inside tx, creating it
// on first sight. Lookup prefers the platform id; a name-keyed row created
// before the platform id was known gets the id backfilled once.
func ensureSourceTx(ctx context.Context, tx Tx, name string, platformID *int64) (*Source, error) {
	if platformID != nil {
		const byPlatform = `
SELECT source_id, name, platform_id, created_at
FROM cannibal.sources
WHERE platform_id = $1
`
		var src Source
		err := tx.QueryRow(ctx, byPlatform, *platformID).Scan(
			&src.SourceID,
			&src.Name,
			&src.PlatformID,
			&src.CreatedAt,
		)
		if err == nil {
			return &src, nil
		}
		if !IsNoRows(err) {
			return nil, fmt.Errorf("select source by platform id=%d: %w", *platformID, err)
		}
	}

	const byName = `
SELECT source_id, name, platform_id, created_at
FROM cannibal.sources
WHERE name = $1
`
	var src Source
	err := tx.QueryRow(ctx, byName, name).Scan(
		&src.SourceID,
		&src.Name,
		&src.PlatformID,
		&src.CreatedAt,
	)
	if err == nil {
		if platformID != nil && src.PlatformID == nil {
			const backfill = `
UPDATE cannibal.sources
SET platform_id = $2
WHERE source_id = $1 AND platform_id IS NULL
`
			if _, err := tx.Exec(ctx, backfill, src.SourceID, *platformID); err != nil {
				return nil, fmt.Errorf("backfill source platform id: %w", err)
			}
			src.PlatformID = platformID
		}
		return &src, nil
	}
	if !IsNoRows(err) {
		return nil, fmt.Errorf("select source by name=%q: %w", name, err)
	}

	const insert = `
INSERT INTO cannibal.sources (name, platform_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO NOTHING
RETURNING source_id, created_at
`
	now := globaltime.UTC()
	src = Source{Name: name, PlatformID: platformID}
	err = tx.QueryRow(ctx, insert, name, platformID, now).Scan(&src.SourceID, &src.CreatedAt)
	if err == nil {
		return &src, nil
	}
	if !IsNoRows(err) {
		return nil, fmt.Errorf("insert source %q: %w", name, err)
	}

	// Lost the insert race; the committed row is visible now.
	err = tx.QueryRow(ctx, byName, name).Scan(
		&src.SourceID,
		&src.Name,
		&src.PlatformID,
		&src.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("re-select source %q after conflict: %w", name, err)
	}
	return &src, nil
}

// ListSources returns every source with post counts, newest first.
func (p *Pool) ListSources(ctx context.Context) ([]SourceSummary, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	const q = `
SELECT
	s.source_id,
	s.name,
	s.platform_id,
	COUNT(p.post_id)::BIGINT AS post_count,
	MAX(p.created_at) AS last_post_at,
	s.created_at
FROM cannibal.sources s
LEFT JOIN cannibal.posts p ON p.source_id = s.source_id
GROUP BY s.source_id, s.name, s.platform_id, s.created_at
ORDER BY s.created_at DESC, s.source_id DESC
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	items := make([]SourceSummary, 0, 16)
	for rows.Next() {
		var row SourceSummary
		if err := rows.Scan(
			&row.SourceID,
			&row.Name,
			&row.PlatformID,
			&row.PostCount,
			&row.LastPostAt,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}

	return items, nil
}

// ListProfileSources returns the sources eligible for style profiling,
// optionally restricted by name.
func (p *Pool) ListProfileSources(ctx context.Context, names []string) ([]Source, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	nameFilter := make(map[string]struct{}, len(names))
	for _, name := range names {
		nameFilter[name] = struct{}{}
	}

	const q = `
SELECT source_id, name, platform_id, created_at
FROM cannibal.sources
ORDER BY source_id
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query profile sources: %w", err)
	}
	defer rows.Close()

	items := make([]Source, 0, 16)
	for rows.Next() {
		var row Source
		if err := rows.Scan(&row.SourceID, &row.Name, &row.PlatformID, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile source row: %w", err)
		}
		if len(nameFilter) > 0 {
			if _, wanted := nameFilter[row.Name]; !wanted {
				continue
			}
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile source rows: %w", err)
	}

	return items, nil
}
