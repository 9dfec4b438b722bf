package db

import (
	"context"
	"fmt"
	"time"
)

// StatsSourceCount stores per-source pipeline counts.
type StatsSourceCount struct {
	Source     string `json:"source"`
	Posts      int64  `json:"posts"`
	Duplicates int64  `json:"duplicates"`
	Rewritten  int64  `json:"rewritten"`
	Pending    int64  `json:"pending"`
}

// StatsTotals stores totals across sources.
type StatsTotals struct {
	Posts      int64 `json:"posts"`
	Duplicates int64 `json:"duplicates"`
	Rewritten  int64 `json:"rewritten"`
	Pending    int64 `json:"pending"`
}

// PipelineThroughput stores throughput/pending counters.
type PipelineThroughput struct {
	PostsIngestedToday  int64 `json:"posts_ingested_today"`
	DuplicatesToday     int64 `json:"duplicates_today"`
	PostsRewrittenToday int64 `json:"posts_rewritten_today"`
	PendingUnprocessed  int64 `json:"pending_unprocessed"`
}

// PipelineStats is the read model returned by the stats command.
type PipelineStats struct {
	Day        string             `json:"day"`
	Sources    []StatsSourceCount `json:"sources"`
	Totals     StatsTotals        `json:"totals"`
	Throughput PipelineThroughput `json:"throughput"`
}

// QueryPipelineStats returns per-source and total counts plus daily throughput.
// Pending counts posts whose processing never finished; those rows are picked
// up again on redelivery.
func (p *Pool) QueryPipelineStats(ctx context.Context, dayStart, dayEnd time.Time) (*PipelineStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &PipelineStats{
		Day:     startUTC.Format("2006-01-02"),
		Sources: make([]StatsSourceCount, 0, 16),
	}

	const countsQuery = `
SELECT
	s.name AS source,
	COUNT(p.post_id)::BIGINT AS posts,
	COUNT(*) FILTER (WHERE p.is_duplicate)::BIGINT AS duplicates,
	COUNT(*) FILTER (WHERE p.rewritten_text IS NOT NULL)::BIGINT AS rewritten,
	COUNT(*) FILTER (WHERE p.post_id IS NOT NULL AND p.processed_at IS NULL)::BIGINT AS pending
FROM cannibal.sources s
LEFT JOIN cannibal.posts p
	ON p.source_id = s.source_id
GROUP BY s.name
ORDER BY 1
`

	rows, err := p.Query(ctx, countsQuery)
	if err != nil {
		return nil, fmt.Errorf("query stats source counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row StatsSourceCount
		if err := rows.Scan(&row.Source, &row.Posts, &row.Duplicates, &row.Rewritten, &row.Pending); err != nil {
			return nil, fmt.Errorf("scan stats source row: %w", err)
		}
		stats.Sources = append(stats.Sources, row)
		stats.Totals.Posts += row.Posts
		stats.Totals.Duplicates += row.Duplicates
		stats.Totals.Rewritten += row.Rewritten
		stats.Totals.Pending += row.Pending
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats source rows: %w", err)
	}

	const throughputQuery = `
SELECT
	(SELECT COUNT(*) FROM cannibal.posts p WHERE p.created_at >= $1 AND p.created_at < $2) AS posts_ingested_today,
	(SELECT COUNT(*) FROM cannibal.posts p WHERE p.created_at >= $1 AND p.created_at < $2 AND p.is_duplicate) AS duplicates_today,
	(SELECT COUNT(*) FROM cannibal.posts p WHERE p.created_at >= $1 AND p.created_at < $2 AND p.rewritten_text IS NOT NULL) AS posts_rewritten_today,
	(SELECT COUNT(*) FROM cannibal.posts p WHERE p.processed_at IS NULL) AS pending_unprocessed
`

	if err := p.QueryRow(ctx, throughputQuery, startUTC, endUTC).Scan(
		&stats.Throughput.PostsIngestedToday,
		&stats.Throughput.DuplicatesToday,
		&stats.Throughput.PostsRewrittenToday,
		&stats.Throughput.PendingUnprocessed,
	); err != nil {
		return nil, fmt.Errorf("query stats throughput: %w", err)
	}

	return stats, nil
}
