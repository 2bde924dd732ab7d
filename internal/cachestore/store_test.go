package cachestore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gamesort/internal/cachestore"
	"gamesort/internal/games"
	"gamesort/internal/logging"
	"gamesort/internal/tags"
	"gamesort/internal/testsupport"
)

func TestPutThenGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	fetched := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := testsupport.SampleRecord("RJ01234567", fetched)
	if !store.Put(ctx, "dlsite", "RJ01234567", rec) {
		t.Fatal("expected Put to succeed")
	}

	got, ok := store.Get(ctx, "dlsite", "rj-01234567")
	if !ok {
		t.Fatal("expected hit for normalized identifier")
	}
	if got.Code == nil || *got.Code != "RJ01234567" {
		t.Fatalf("unexpected code: %v", got.Code)
	}
	if got.TitleTarget == nil || *got.TitleTarget != "샘플 게임" {
		t.Fatalf("unexpected title target: %v", got.TitleTarget)
	}
	if len(got.TagsTarget) != 2 || got.TagsTarget[0] != "판타지" {
		t.Fatalf("unexpected tags target: %v", got.TagsTarget)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Fatalf("fetched_at = %v, want %v", got.FetchedAt, fetched)
	}
	if got.Rating != 4.5 {
		t.Fatalf("rating = %v", got.Rating)
	}
}

func TestGetMissAndPlatformNamespace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	if _, ok := store.Get(ctx, "dlsite", "RJ00000001"); ok {
		t.Fatal("expected miss on empty store")
	}
	testsupport.PutRecord(t, store, testsupport.SampleRecord("RJ00000001", time.Now()))
	if _, ok := store.Get(ctx, "steam", "RJ00000001"); ok {
		t.Fatal("records must not leak across platforms")
	}
	if _, err := store.Find(ctx, "steam", "RJ00000001"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestPutIsLastWriteWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	first := testsupport.SampleRecord("RJ00000002", time.Now())
	second := first.Clone()
	second.PrimaryTag = "RPG"
	second.TitleTarget = nil

	store.Put(ctx, "dlsite", "RJ00000002", first)
	store.Put(ctx, "dlsite", "RJ00000002", second)

	got, ok := store.Get(ctx, "dlsite", "RJ00000002")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.PrimaryTag != "RPG" || got.TitleTarget != nil {
		t.Fatalf("expected second write to win, got %+v", got)
	}
	entries, err := store.List(ctx, cachestore.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one row after upsert, got %d", len(entries))
	}
}

func TestNegativeEntryPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	neg := games.GameRecord{
		Code:       games.StringPtr("RJ09999999"),
		Platform:   "dlsite",
		TagsSource: []string{},
		TagsTarget: []string{},
		PrimaryTag: "uncategorized",
		FetchedAt:  time.Now(),
		ErrorKind:  games.KindNotFound,
	}
	store.Put(ctx, "dlsite", "RJ09999999", neg)

	got, ok := store.Get(ctx, "dlsite", "RJ09999999")
	if !ok || !got.IsNegative() {
		t.Fatalf("expected negative entry, got %+v ok=%v", got, ok)
	}
	if got.ErrorKind != games.KindNotFound {
		t.Fatalf("error kind = %q", got.ErrorKind)
	}
}

func TestStatsAndPurge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	now := time.Now()
	old := now.Add(-10 * 24 * time.Hour)
	testsupport.PutRecord(t, store, testsupport.SampleRecord("RJ00000010", now))
	testsupport.PutRecord(t, store, testsupport.SampleRecord("RJ00000011", old))
	store.Put(ctx, "dlsite", "RJ00000012", games.GameRecord{
		Code:      games.StringPtr("RJ00000012"),
		Platform:  "dlsite",
		FetchedAt: now,
		ErrorKind: games.KindNotFound,
	})
	store.Put(ctx, "steam", "Some Title", games.GameRecord{
		Platform:    "steam",
		TitleSource: "Some Title",
		TitleTarget: games.StringPtr("Some Title"),
		PrimaryTag:  "uncategorized",
		FetchedAt:   now,
	})

	stats, err := store.Stats(ctx, now, games.DefaultTTL)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 || stats.Negatives != 1 || stats.Stale != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ByPlatform["dlsite"] != 3 || stats.ByPlatform["steam"] != 1 {
		t.Fatalf("unexpected platform counts: %+v", stats.ByPlatform)
	}
	if stats.ByPrimaryTag["판타지"] != 2 {
		t.Fatalf("unexpected primary tag counts: %+v", stats.ByPrimaryTag)
	}

	removed, err := store.Purge(ctx, cachestore.Filter{NegativesOnly: true})
	if err != nil || removed != 1 {
		t.Fatalf("purge negatives: removed=%d err=%v", removed, err)
	}
	removed, err = store.Purge(ctx, cachestore.Filter{StaleBefore: now.Add(-games.DefaultTTL)})
	if err != nil || removed != 1 {
		t.Fatalf("purge stale: removed=%d err=%v", removed, err)
	}
	removed, err = store.Purge(ctx, cachestore.Filter{Platform: "steam"})
	if err != nil || removed != 1 {
		t.Fatalf("purge platform: removed=%d err=%v", removed, err)
	}
	entries, err := store.List(ctx, cachestore.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Identifier != "RJ00000010" {
		t.Fatalf("unexpected survivors: %+v", entries)
	}
}

func TestDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	testsupport.PutRecord(t, store, testsupport.SampleRecord("RJ00000020", time.Now()))
	removed, err := store.Delete(ctx, "dlsite", "RJ00000020")
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "dlsite", "RJ00000020")
	if err != nil || removed {
		t.Fatalf("second Delete: removed=%v err=%v", removed, err)
	}
}

func TestSearchTitleAndTag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	a := testsupport.SampleRecord("RJ00000030", time.Now())
	a.TitleSource = "魔法少女の冒険"
	a.TitleTarget = games.StringPtr("Magical Girl Adventure")
	b := testsupport.SampleRecord("RJ00000031", time.Now())
	b.TitleSource = "ダンジョン探索"
	b.TitleTarget = games.StringPtr("Dungeon Crawl")
	b.TagsSource = []string{"ホラー"}
	b.TagsTarget = []string{"호러"}
	b.PrimaryTag = "호러"
	testsupport.PutRecord(t, store, a)
	testsupport.PutRecord(t, store, b)

	matches, err := store.SearchTitle(ctx, "magical adventure", 5)
	if err != nil {
		t.Fatalf("SearchTitle: %v", err)
	}
	if len(matches) == 0 || matches[0].Identifier != "RJ00000030" {
		t.Fatalf("unexpected title matches: %+v", matches)
	}

	matches, err = store.SearchTitle(ctx, "魔法少女", 5)
	if err != nil {
		t.Fatalf("SearchTitle: %v", err)
	}
	if len(matches) == 0 || matches[0].Identifier != "RJ00000030" {
		t.Fatalf("unexpected Japanese title matches: %+v", matches)
	}

	byTag, err := store.SearchByTag(ctx, "ホラー", 0)
	if err != nil {
		t.Fatalf("SearchByTag: %v", err)
	}
	if len(byTag) != 1 || byTag[0].Identifier != "RJ00000031" {
		t.Fatalf("unexpected tag matches: %+v", byTag)
	}
}

func TestTagMappings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	for _, m := range []tags.Mapping{
		{SourceTag: "ファンタジー", TargetTag: "판타지", Priority: 10},
		{SourceTag: "ホラー", TargetTag: "호러", Priority: 20},
		{SourceTag: "男性/女性", TargetTag: "남성/여성", Priority: 10},
	} {
		if err := store.UpsertTag(ctx, m); err != nil {
			t.Fatalf("UpsertTag: %v", err)
		}
	}

	found, err := store.LookupTags(ctx, []string{"ファンタジー", "unknown"})
	if err != nil {
		t.Fatalf("LookupTags: %v", err)
	}
	if len(found) != 1 || found["ファンタジー"].TargetTag != "판타지" {
		t.Fatalf("unexpected lookup: %+v", found)
	}

	all, err := store.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(all) != 3 || all[0].SourceTag != "ホラー" {
		t.Fatalf("expected priority ordering, got %+v", all)
	}

	pruned, err := store.DeleteTagsContaining(ctx, "/")
	if err != nil || pruned != 1 {
		t.Fatalf("DeleteTagsContaining: pruned=%d err=%v", pruned, err)
	}
	removed, err := store.DeleteTag(ctx, "ホラー")
	if err != nil || !removed {
		t.Fatalf("DeleteTag: removed=%v err=%v", removed, err)
	}
}

func TestExportWritesDocumentLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	testsupport.PutRecord(t, store, testsupport.SampleRecord("RJ01234567", time.Now()))
	dir := t.TempDir()
	written, err := store.Export(ctx, dir, cachestore.Filter{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if written != 1 {
		t.Fatalf("written = %d", written)
	}
	want := filepath.Join(dir, "dlsite", "01", "RJ01234567.json")
	matches, _ := filepath.Glob(filepath.Join(dir, "dlsite", "*", "*.json"))
	if len(matches) != 1 || matches[0] != want {
		t.Fatalf("unexpected export files: %v", matches)
	}
}

func TestBackupCopiesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	testsupport.PutRecord(t, store, testsupport.SampleRecord("RJ01234567", time.Now()))
	dest := filepath.Join(t.TempDir(), "backups", "cache.db")
	if err := store.Backup(ctx, dest); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := store.Backup(ctx, cfg.Paths.CacheDB); err == nil {
		t.Fatal("expected backup onto the live database to fail")
	}

	copyStore, err := cachestore.OpenPath(dest, logging.NewNop())
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer copyStore.Close()
	if _, ok := copyStore.Get(ctx, "dlsite", "RJ01234567"); !ok {
		t.Fatal("backup is missing the record")
	}
}

func TestDocumentPath(t *testing.T) {
	cases := []struct {
		platform   string
		identifier string
		want       string
	}{
		{"dlsite", "RJ01234567", "dlsite/01/RJ01234567.json"},
		{"DLsite", "rj_298765", "dlsite/29/RJ298765.json"},
		{"steam", "My Cool Game", "steam/titles/my_cool_game-911c8f36.json"},
		{"steam", "A:B", "steam/titles/a_b-6783a31e.json"},
		{"steam", "A B", "steam/titles/a_b-c8687a08.json"},
	}
	for _, tc := range cases {
		if got := cachestore.DocumentPath(tc.platform, tc.identifier); got != tc.want {
			t.Errorf("DocumentPath(%q, %q) = %q, want %q", tc.platform, tc.identifier, got, tc.want)
		}
	}
	if got := cachestore.DocumentID("dlsite", "RJ-01234567"); got != "dlsite:RJ01234567" {
		t.Errorf("DocumentID = %q", got)
	}
}

func TestReopenChecksSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := cachestore.OpenPath(path, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := cachestore.OpenPath(path, logging.NewNop()); !errors.Is(err, cachestore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReopenMigratesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := cachestore.OpenPath(path, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("DROP INDEX idx_tag_mappings_priority; UPDATE schema_version SET version = 1"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}

	store, err = cachestore.OpenPath(path, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	store.Close()

	var version, indexes int
	if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(1) FROM sqlite_master WHERE type = 'index' AND name = 'idx_tag_mappings_priority'").Scan(&indexes); err != nil {
		t.Fatalf("read index: %v", err)
	}
	if version != 2 || indexes != 1 {
		t.Fatalf("version=%d indexes=%d, want 2 and 1", version, indexes)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.Exists || !health.Readable || !health.IntegrityOK {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestLocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db.lock")

	shared, err := cachestore.LockShared(path)
	if err != nil {
		t.Fatalf("LockShared: %v", err)
	}
	if _, err := cachestore.LockExclusive(path); !errors.Is(err, cachestore.ErrLocked) {
		t.Fatalf("expected ErrLocked while shared lock held, got %v", err)
	}
	if err := shared.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	exclusive, err := cachestore.LockExclusive(path)
	if err != nil {
		t.Fatalf("LockExclusive after release: %v", err)
	}
	exclusive.Release()
}
