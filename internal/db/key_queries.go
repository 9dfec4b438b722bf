package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type IngestKeyRecord struct {
	KeyID      int64      `json:"key_id"`
	Name       string     `json:"name"`
	SecretHash string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (p *Pool) CreateIngestKey(ctx context.Context, name, secretHash string) (*IngestKeyRecord, error) {
	const q = `
INSERT INTO cannibal.ingest_keys (
	name,
	secret_hash,
	created_at
)
VALUES ($1, $2, now())
RETURNING
	key_id,
	name,
	secret_hash,
	created_at,
	last_used_at
`

	var row IngestKeyRecord
	if err := p.QueryRow(ctx, q, strings.TrimSpace(name), strings.TrimSpace(secretHash)).Scan(
		&row.KeyID,
		&row.Name,
		&row.SecretHash,
		&row.CreatedAt,
		&row.LastUsedAt,
	); err != nil {
		return nil, fmt.Errorf("insert ingest key: %w", err)
	}

	return &row, nil
}

func (p *Pool) GetIngestKeyByID(ctx context.Context, keyID int64) (*IngestKeyRecord, error) {
	const q = `
SELECT
	key_id,
	name,
	secret_hash,
	created_at,
	last_used_at
FROM cannibal.ingest_keys
WHERE key_id = $1
LIMIT 1
`

	var row IngestKeyRecord
	if err := p.QueryRow(ctx, q, keyID).Scan(
		&row.KeyID,
		&row.Name,
		&row.SecretHash,
		&row.CreatedAt,
		&row.LastUsedAt,
	); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query ingest key: %w", err)
	}
	return &row, nil
}

func (p *Pool) ListIngestKeys(ctx context.Context) ([]IngestKeyRecord, error) {
	const q = `
SELECT
	key_id,
	name,
	secret_hash,
	created_at,
	last_used_at
FROM cannibal.ingest_keys
ORDER BY key_id
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query ingest keys: %w", err)
	}
	defer rows.Close()

	var out []IngestKeyRecord
	for rows.Next() {
		var row IngestKeyRecord
		if err := rows.Scan(
			&row.KeyID,
			&row.Name,
			&row.SecretHash,
			&row.CreatedAt,
			&row.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ingest key: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest keys: %w", err)
	}
	return out, nil
}

func (p *Pool) DeleteIngestKey(ctx context.Context, keyID int64) error {
	const q = `DELETE FROM cannibal.ingest_keys WHERE key_id = $1`

	tag, err := p.Exec(ctx, q, keyID)
	if err != nil {
		return fmt.Errorf("delete ingest key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete ingest key: %w", ErrNoRows)
	}
	return nil
}

// TouchIngestKey records a successful authentication. Best effort; callers
// log the error and keep serving the request.
func (p *Pool) TouchIngestKey(ctx context.Context, keyID int64) error {
	const q = `UPDATE cannibal.ingest_keys SET last_used_at = now() WHERE key_id = $1`

	if _, err := p.Exec(ctx, q, keyID); err != nil {
		return fmt.Errorf("touch ingest key: %w", err)
	}
	return nil
}
