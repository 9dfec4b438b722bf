package db

import (
	"context"
	"fmt"
	"time"

	"github.com/usrssssx/cannibal-ai/internal/globaltime"
)

// PostRecord is the read model the pipeline and the API work with.
type PostRecord struct {
	PostID        int64      `json:"post_id"`
	PostUUID      string     `json:"post_uuid"`
	SourceID      int64      `json:"source_id"`
	SourceName    string     `json:"source_name"`
	PlatformID    *int64     `json:"platform_id,omitempty"`
	MessageID     int64      `json:"message_id"`
	Text          string     `json:"text"`
	RewrittenText *string    `json:"rewritten_text,omitempty"`
	IsDuplicate   *bool      `json:"is_duplicate,omitempty"`
	Similarity    *float64   `json:"similarity,omitempty"`
	DuplicateOf   *string    `json:"duplicate_of,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PostOutcome carries the terminal fields written once per post.
type PostOutcome struct {
	RewrittenText *string
	IsDuplicate   bool
	Similarity    *float64
	DuplicateOf   *string
	ProcessedAt   time.Time
}

// PostListOptions controls the posts listing query.
type PostListOptions struct {
	SourceName string
	Processed  *bool
	Duplicate  *bool
	Limit      int
}

const selectPostColumns = `
SELECT
	p.post_id,
	p.post_uuid::text,
	p.source_id,
	s.name,
	s.platform_id,
	p.message_id,
	p.text,
	p.rewritten_text,
	p.is_duplicate,
	p.similarity,
	p.duplicate_of,
	p.processed_at,
	p.created_at
FROM cannibal.posts p
JOIN cannibal.sources s ON s.source_id = p.source_id
`

func scanPostRecord(scan func(dest ...any) error) (*PostRecord, error) {
	var rec PostRecord
	err := scan(
		&rec.PostID,
		&rec.PostUUID,
		&rec.SourceID,
		&rec.SourceName,
		&rec.PlatformID,
		&rec.MessageID,
		&rec.Text,
		&rec.RewrittenText,
		&rec.IsDuplicate,
		&rec.Similarity,
		&rec.DuplicateOf,
		&rec.ProcessedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// StoreOrFetch inserts the post for (source, messageID), creating the source
// row on first sight. On a conflict with an existing post the stored row is
// fetched and returned with created=false. Exactly one caller ever observes
// created=true for a given key, however many deliveries race.
func (p *Pool) StoreOrFetch(ctx context.Context, sourceName string, platformID *int64, messageID int64, text string) (*PostRecord, bool, error) {
	if p == nil || p.gdb == nil {
		return nil, false, fmt.Errorf("database pool is not initialized")
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("begin store tx: %w", err)
	}

	rec, created, err := storeOrFetchTx(ctx, tx, sourceName, platformID, messageID, text)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return nil, false, fmt.Errorf("commit store tx: %w", err)
	}
	return rec, created, nil
}

func storeOrFetchTx(ctx context.Context, tx Tx, sourceName string, platformID *int64, messageID int64, text string) (*PostRecord, bool, error) {
	src, err := ensureSourceTx(ctx, tx, sourceName, platformID)
	if err != nil {
		return nil, false, err
	}

	const insert = `
INSERT INTO cannibal.posts (source_id, message_id, text, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (source_id, message_id) DO NOTHING
RETURNING post_id, post_uuid::text, created_at
`
	now := globaltime.UTC()
	rec := PostRecord{
		SourceID:   src.SourceID,
		SourceName: src.Name,
		PlatformID: src.PlatformID,
		MessageID:  messageID,
		Text:       text,
	}
	err = tx.QueryRow(ctx, insert, src.SourceID, messageID, text, now).Scan(
		&rec.PostID,
		&rec.PostUUID,
		&rec.CreatedAt,
	)
	if err == nil {
		return &rec, true, nil
	}
	if !IsNoRows(err) {
		return nil, false, fmt.Errorf("insert post source_id=%d message_id=%d: %w", src.SourceID, messageID, err)
	}

	const fetch = selectPostColumns + `
WHERE p.source_id = $1 AND p.message_id = $2
`
	existing, err := scanPostRecord(tx.QueryRow(ctx, fetch, src.SourceID, messageID).Scan)
	if err != nil {
		return nil, false, fmt.Errorf("fetch existing post source_id=%d message_id=%d: %w", src.SourceID, messageID, err)
	}
	return existing, false, nil
}

// UpdateOutcome stamps the processed fields for one post. Safe to call twice
// with the same terminal values.
func (p *Pool) UpdateOutcome(ctx context.Context, postID int64, outcome PostOutcome) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	const q = `
UPDATE cannibal.posts
SET
	rewritten_text = $2,
	is_duplicate = $3,
	similarity = $4,
	duplicate_of = $5,
	processed_at = $6
WHERE post_id = $1
`
	tag, err := p.Exec(ctx, q, postID, outcome.RewrittenText, outcome.IsDuplicate, outcome.Similarity, outcome.DuplicateOf, outcome.ProcessedAt.UTC())
	if err != nil {
		return fmt.Errorf("update post outcome post_id=%d: %w", postID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update post outcome post_id=%d: %w", postID, ErrNoRows)
	}
	return nil
}

// FetchRecentPosts returns up to limit texts for one source, newest first.
// Feeds the style profiler.
func (p *Pool) FetchRecentPosts(ctx context.Context, sourceID int64, limit int) ([]string, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT p.text
FROM cannibal.posts p
WHERE p.source_id = $1
ORDER BY p.created_at DESC, p.post_id DESC
LIMIT $2
`

	rows, err := p.Query(ctx, q, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent posts source_id=%d: %w", sourceID, err)
	}
	defer rows.Close()

	texts := make([]string, 0, limit)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan recent post row: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent post rows: %w", err)
	}

	return texts, nil
}

// ListPosts lists posts newest first with optional source/processed/duplicate
// filters.
func (p *Pool) ListPosts(ctx context.Context, opts PostListOptions) ([]PostRecord, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = selectPostColumns + `
WHERE ($1 = '' OR s.name = $1)
  AND ($2 = -1 OR (p.processed_at IS NOT NULL) = ($2 = 1))
  AND ($3 = -1 OR COALESCE(p.is_duplicate, FALSE) = ($3 = 1))
ORDER BY p.created_at DESC, p.post_id DESC
LIMIT $4
`

	rows, err := p.Query(ctx, q, opts.SourceName, triStateArg(opts.Processed), triStateArg(opts.Duplicate), opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	items := make([]PostRecord, 0, opts.Limit)
	for rows.Next() {
		rec, err := scanPostRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}

	return items, nil
}

// GetPostByUUID fetches one post by its public uuid.
func (p *Pool) GetPostByUUID(ctx context.Context, postUUID string) (*PostRecord, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	const q = selectPostColumns + `
WHERE p.post_uuid = $1::uuid
`
	rec, err := scanPostRecord(p.QueryRow(ctx, q, postUUID).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query post by uuid %q: %w", postUUID, err)
	}
	return rec, nil
}

func triStateArg(value *bool) int {
	if value == nil {
		return -1
	}
	if *value {
		return 1
	}
	return 0
}
