package testsupport

import (
	"context"
	"testing"
	"time"

	"gamesort/internal/cachestore"
	"gamesort/internal/config"
	"gamesort/internal/games"
	"gamesort/internal/logging"
)

// MustOpenCache opens a cachestore.Store for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *cachestore.Store {
	t.Helper()

	store, err := cachestore.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("cachestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// PutRecord stores rec under its own platform and identifier.
func PutRecord(t testing.TB, store *cachestore.Store, rec games.GameRecord) {
	t.Helper()

	if err := store.Upsert(context.Background(), rec.Platform, rec.Identifier(), rec); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
}

// SampleRecord returns a complete positive record for code fetched at fetchedAt.
func SampleRecord(code string, fetchedAt time.Time) games.GameRecord {
	return games.GameRecord{
		Code:         games.StringPtr(code),
		Platform:     "dlsite",
		TitleSource:  "サンプルゲーム",
		TitleTarget:  games.StringPtr("샘플 게임"),
		TagsSource:   []string{"ファンタジー", "RPG"},
		TagsTarget:   []string{"판타지", "RPG"},
		PrimaryTag:   "판타지",
		ReleaseDate:  "2024年01月15日",
		ThumbnailURL: "https://img.dlsite.jp/" + code + ".jpg",
		Rating:       4.5,
		Maker:        "Sample Circle",
		Link:         "https://www.dlsite.com/maniax/work/=/product_id/" + code + ".html",
		FetchedAt:    fetchedAt,
	}
}
