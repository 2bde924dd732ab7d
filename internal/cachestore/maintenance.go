package cachestore

import (
	"context"
	"fmt"
	"time"

	"gamesort/internal/games"
)

// Stats summarizes cache contents.
type Stats struct {
	Total        int            `json:"total"`
	Negatives    int            `json:"negatives"`
	Stale        int            `json:"stale"`
	TagMappings  int            `json:"tag_mappings"`
	ByPlatform   map[string]int `json:"by_platform"`
	ByPrimaryTag map[string]int `json:"by_primary_tag"`
	ByErrorKind  map[string]int `json:"by_error_kind"`
}

// Stats counts records grouped by platform, primary tag, and error kind.
// Records fetched at or before now-ttl count as stale.
func (s *Store) Stats(ctx context.Context, now time.Time, ttl time.Duration) (Stats, error) {
	ctx = ensureContext(ctx)
	if ttl <= 0 {
		ttl = games.DefaultTTL
	}
	stats := Stats{
		ByPlatform:   make(map[string]int),
		ByPrimaryTag: make(map[string]int),
		ByErrorKind:  make(map[string]int),
	}
	cutoff := now.Add(-ttl).UnixMilli()

	rows, err := s.db.QueryContext(ctx, `SELECT platform, primary_tag, error_kind,
		COUNT(1), SUM(CASE WHEN fetched_at <= ? THEN 1 ELSE 0 END)
		FROM games GROUP BY platform, primary_tag, error_kind`, cutoff)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			platform   string
			primaryTag string
			errorKind  string
			count      int
			stale      int
		)
		if err := rows.Scan(&platform, &primaryTag, &errorKind, &count, &stale); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		stats.Stale += stale
		stats.ByPlatform[platform] += count
		if errorKind != "" {
			stats.Negatives += count
			stats.ByErrorKind[errorKind] += count
			continue
		}
		stats.ByPrimaryTag[primaryTag] += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM tag_mappings").Scan(&stats.TagMappings); err != nil {
		return Stats{}, fmt.Errorf("count tag mappings: %w", err)
	}
	return stats, nil
}

// Purge deletes records matching filter and returns the number removed.
// An empty filter clears the whole cache.
func (s *Store) Purge(ctx context.Context, filter Filter) (int64, error) {
	where, args := filter.where()
	res, err := s.execWithRetry(ctx, "DELETE FROM games"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("purge records: %w", err)
	}
	return res.RowsAffected()
}
