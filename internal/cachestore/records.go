package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamesort/internal/games"
	"gamesort/internal/keys"
	"gamesort/internal/logging"
)

const recordColumns = "platform, identifier, code, title_source, title_target, tags_source, tags_target, primary_tag, release_date, thumbnail_url, rating, maker, link, fetched_at, error_kind, updated_at"

// Entry is a stored record together with its cache key.
type Entry struct {
	Platform   string           `json:"platform"`
	Identifier string           `json:"identifier"`
	Record     games.GameRecord `json:"record"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Filter narrows List and Purge. Zero values match everything. StaleBefore
// matches records fetched before the given instant.
type Filter struct {
	Platform      string
	NegativesOnly bool
	StaleBefore   time.Time
	PrimaryTag    string
	Limit         int
}

func (f Filter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if platform := strings.TrimSpace(f.Platform); platform != "" {
		clauses = append(clauses, "platform = ?")
		args = append(args, normalizePlatform(platform))
	}
	if f.NegativesOnly {
		clauses = append(clauses, "error_kind <> ''")
	}
	if !f.StaleBefore.IsZero() {
		clauses = append(clauses, "fetched_at < ?")
		args = append(args, f.StaleBefore.UnixMilli())
	}
	if tag := strings.TrimSpace(f.PrimaryTag); tag != "" {
		clauses = append(clauses, "primary_tag = ?")
		args = append(args, tag)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Get returns the stored record for platform and identifier. Storage faults are
// logged and reported as a miss.
func (s *Store) Get(ctx context.Context, platform, identifier string) (games.GameRecord, bool) {
	entry, err := s.Find(ctx, platform, identifier)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "cache read failed; treating as miss", "cache_read_failed",
				logging.String("document_id", DocumentID(platform, identifier)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the cache database with gamesort status"),
				logging.String(logging.FieldImpact, "item will be fetched again"),
			)
		}
		return games.GameRecord{}, false
	}
	return entry.Record, true
}

// Find returns the stored entry or sql.ErrNoRows when none exists.
func (s *Store) Find(ctx context.Context, platform, identifier string) (Entry, error) {
	ctx = ensureContext(ctx)
	var entry Entry
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			"SELECT "+recordColumns+" FROM games WHERE platform = ? AND identifier = ?",
			normalizePlatform(platform), keys.NormalizeIdentifier(identifier),
		)
		var scanErr error
		entry, scanErr = scanEntry(row)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("find record: %w", err)
	}
	return entry, nil
}

// Put upserts rec under platform and identifier. The last write wins. Failures
// are logged and reported as false.
func (s *Store) Put(ctx context.Context, platform, identifier string, rec games.GameRecord) bool {
	if err := s.Upsert(ctx, platform, identifier, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "cache write failed", "cache_write_failed",
			logging.String("document_id", DocumentID(platform, identifier)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check disk space and database permissions"),
			logging.String(logging.FieldImpact, "record will be fetched again next run"),
		)
		return false
	}
	return true
}

// Upsert writes rec and returns any storage error.
func (s *Store) Upsert(ctx context.Context, platform, identifier string, rec games.GameRecord) error {
	platform = normalizePlatform(platform)
	identifier = keys.NormalizeIdentifier(identifier)
	if identifier == "" {
		return errors.New("record identifier is empty")
	}
	tagsSource, err := encodeTags(rec.TagsSource)
	if err != nil {
		return err
	}
	tagsTarget, err := encodeTags(rec.TagsTarget)
	if err != nil {
		return err
	}
	fetched := rec.FetchedAt
	if fetched.IsZero() {
		fetched = s.now()
	}
	_, err = s.execWithRetry(ctx, `INSERT INTO games (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, identifier) DO UPDATE SET
			code = excluded.code,
			title_source = excluded.title_source,
			title_target = excluded.title_target,
			tags_source = excluded.tags_source,
			tags_target = excluded.tags_target,
			primary_tag = excluded.primary_tag,
			release_date = excluded.release_date,
			thumbnail_url = excluded.thumbnail_url,
			rating = excluded.rating,
			maker = excluded.maker,
			link = excluded.link,
			fetched_at = excluded.fetched_at,
			error_kind = excluded.error_kind,
			updated_at = excluded.updated_at`,
		platform,
		identifier,
		nullableStringPtr(rec.Code),
		rec.TitleSource,
		nullableStringPtr(rec.TitleTarget),
		tagsSource,
		tagsTarget,
		rec.PrimaryTag,
		rec.ReleaseDate,
		rec.ThumbnailURL,
		rec.Rating,
		rec.Maker,
		rec.Link,
		fetched.UnixMilli(),
		string(rec.ErrorKind),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Delete removes one record. It reports whether a row existed.
func (s *Store) Delete(ctx context.Context, platform, identifier string) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM games WHERE platform = ? AND identifier = ?",
		normalizePlatform(platform), keys.NormalizeIdentifier(identifier))
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns entries matching filter, most recently fetched first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	ctx = ensureContext(ctx)
	where, args := filter.where()
	query := "SELECT " + recordColumns + " FROM games" + where + " ORDER BY fetched_at DESC, identifier"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
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

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		platform     string
		identifier   string
		code         sql.NullString
		titleSource  string
		titleTarget  sql.NullString
		tagsSource   string
		tagsTarget   string
		primaryTag   string
		releaseDate  string
		thumbnailURL string
		rating       float64
		maker        string
		link         string
		fetchedAt    int64
		errorKind    string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&platform,
		&identifier,
		&code,
		&titleSource,
		&titleTarget,
		&tagsSource,
		&tagsTarget,
		&primaryTag,
		&releaseDate,
		&thumbnailURL,
		&rating,
		&maker,
		&link,
		&fetchedAt,
		&errorKind,
		&updatedRaw,
	); err != nil {
		return Entry{}, err
	}

	rec := games.GameRecord{
		Platform:     platform,
		TitleSource:  titleSource,
		PrimaryTag:   primaryTag,
		ReleaseDate:  releaseDate,
		ThumbnailURL: thumbnailURL,
		Rating:       rating,
		Maker:        maker,
		Link:         link,
		FetchedAt:    time.UnixMilli(fetchedAt).UTC(),
		ErrorKind:    games.ErrorKind(errorKind),
	}
	if code.Valid {
		rec.Code = games.StringPtr(code.String)
	}
	if titleTarget.Valid {
		rec.TitleTarget = games.StringPtr(titleTarget.String)
	}
	var err error
	if rec.TagsSource, err = decodeTags(tagsSource); err != nil {
		return Entry{}, err
	}
	if rec.TagsTarget, err = decodeTags(tagsTarget); err != nil {
		return Entry{}, err
	}

	entry := Entry{Platform: platform, Identifier: identifier, Record: rec}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func nullableStringPtr(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
