package cachestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gamesort/internal/tags"
)

// LookupTags returns stored mappings for the given source tags, keyed by source.
func (s *Store) LookupTags(ctx context.Context, sources []string) (map[string]tags.Mapping, error) {
	ctx = ensureContext(ctx)
	found := make(map[string]tags.Mapping, len(sources))
	if len(sources) == 0 {
		return found, nil
	}
	args := make([]any, len(sources))
	for i, source := range sources {
		args[i] = source
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_tag, target_tag, priority, updated_at FROM tag_mappings WHERE source_tag IN ("+makePlaceholders(len(sources))+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag mapping: %w", err)
		}
		found[mapping.SourceTag] = mapping
	}
	return found, rows.Err()
}

// UpsertTag records or replaces a mapping.
func (s *Store) UpsertTag(ctx context.Context, mapping tags.Mapping) error {
	updated := mapping.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err := s.execWithRetry(ctx, `INSERT INTO tag_mappings (source_tag, target_tag, priority, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_tag) DO UPDATE SET
			target_tag = excluded.target_tag,
			priority = excluded.priority,
			updated_at = excluded.updated_at`,
		mapping.SourceTag, mapping.TargetTag, mapping.Priority, updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert tag mapping: %w", err)
	}
	return nil
}

// ListTags returns every mapping ordered by descending priority then source tag.
func (s *Store) ListTags(ctx context.Context) ([]tags.Mapping, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_tag, target_tag, priority, updated_at FROM tag_mappings ORDER BY priority DESC, source_tag")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var mappings []tags.Mapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

// DeleteTag removes a mapping and reports whether it existed.
func (s *Store) DeleteTag(ctx context.Context, source string) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM tag_mappings WHERE source_tag = ?", source)
	if err != nil {
		return false, fmt.Errorf("delete tag mapping: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteTagsContaining removes every mapping whose source or target contains
// substr and returns the number removed.
func (s *Store) DeleteTagsContaining(ctx context.Context, substr string) (int64, error) {
	if strings.TrimSpace(substr) == "" {
		return 0, fmt.Errorf("delete tags: substring is empty")
	}
	res, err := s.execWithRetry(ctx,
		"DELETE FROM tag_mappings WHERE instr(source_tag, ?) > 0 OR instr(target_tag, ?) > 0",
		substr, substr,
	)
	if err != nil {
		return 0, fmt.Errorf("delete tag mappings: %w", err)
	}
	return res.RowsAffected()
}

func scanMapping(scanner interface{ Scan(dest ...any) error }) (tags.Mapping, error) {
	var (
		mapping    tags.Mapping
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&mapping.SourceTag, &mapping.TargetTag, &mapping.Priority, &updatedRaw); err != nil {
		return tags.Mapping{}, err
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw.String); err == nil {
		mapping.UpdatedAt = updated
	}
	return mapping, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
