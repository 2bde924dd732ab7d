package cachestore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gamesort/internal/textutil"
)

// minTitleScore filters out matches that only share a stray token.
const minTitleScore = 0.2

// Match is a search hit with its similarity score.
type Match struct {
	Entry
	Score float64 `json:"score"`
}

// SearchTitle ranks cached records by title similarity to query. Source and
// translated titles both participate; the better score wins.
func (s *Store) SearchTitle(ctx context.Context, query string, limit int) ([]Match, error) {
	queryFP := textutil.NewFingerprint(query)
	if queryFP == nil {
		return nil, nil
	}
	entries, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	corpus := textutil.NewCorpus()
	type candidate struct {
		entry Entry
		fps   []*textutil.Fingerprint
	}
	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.Record.IsNegative() {
			continue
		}
		c := candidate{entry: entry}
		for _, title := range titlesOf(entry) {
			if fp := textutil.NewFingerprint(title); fp != nil {
				corpus.Add(fp)
				c.fps = append(c.fps, fp)
			}
		}
		if len(c.fps) > 0 {
			candidates = append(candidates, c)
		}
	}

	idf := corpus.IDF()
	weightedQuery := queryFP.WithIDF(idf)
	var matches []Match
	for _, c := range candidates {
		best := 0.0
		for _, fp := range c.fps {
			if score := weightedQuery.Similarity(fp.WithIDF(idf)); score > best {
				best = score
			}
		}
		if best >= minTitleScore {
			matches = append(matches, Match{Entry: c.entry, Score: best})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func titlesOf(entry Entry) []string {
	titles := []string{entry.Record.TitleSource}
	if entry.Record.TitleTarget != nil && *entry.Record.TitleTarget != entry.Record.TitleSource {
		titles = append(titles, *entry.Record.TitleTarget)
	}
	return titles
}

// SearchByTag returns records carrying tag as a source tag, translated tag, or
// primary tag. Matching is exact after trimming.
func (s *Store) SearchByTag(ctx context.Context, tag string, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, nil
	}
	query := `SELECT ` + recordColumns + ` FROM games
		WHERE primary_tag = ?
			OR EXISTS (SELECT 1 FROM json_each(games.tags_source) WHERE json_each.value = ?)
			OR EXISTS (SELECT 1 FROM json_each(games.tags_target) WHERE json_each.value = ?)
		ORDER BY fetched_at DESC, identifier`
	args := []any{tag, tag, tag}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search by tag: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
