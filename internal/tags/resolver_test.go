package tags_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"gamesort/internal/games"
	"gamesort/internal/logging"
	"gamesort/internal/tags"
)

type memoryStore struct {
	mu       sync.Mutex
	mappings map[string]tags.Mapping
	lookups  int
	failWith error
}

func newMemoryStore(mappings ...tags.Mapping) *memoryStore {
	s := &memoryStore{mappings: make(map[string]tags.Mapping)}
	for _, m := range mappings {
		s.mappings[m.SourceTag] = m
	}
	return s
}

func (s *memoryStore) LookupTags(_ context.Context, sources []string) (map[string]tags.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := make(map[string]tags.Mapping)
	for _, source := range sources {
		if m, ok := s.mappings[source]; ok {
			out[source] = m
		}
	}
	return out, nil
}

func (s *memoryStore) UpsertTag(_ context.Context, m tags.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.mappings[m.SourceTag] = m
	return nil
}

func TestPrimaryTagTieBreak(t *testing.T) {
	cases := []struct {
		name       string
		candidates []tags.Resolved
		want       string
	}{
		{
			name: "highest priority wins",
			candidates: []tags.Resolved{
				{Source: "a", Target: "A", Priority: 10},
				{Source: "b", Target: "B", Priority: 10},
				{Source: "c", Target: "C", Priority: 20},
			},
			want: "C",
		},
		{
			name: "tie goes to first",
			candidates: []tags.Resolved{
				{Source: "a", Target: "A", Priority: 10},
				{Source: "b", Target: "B", Priority: 10},
			},
			want: "A",
		},
		{
			name: "empty yields fallback",
			want: "uncategorized",
		},
		{
			name: "source used when target blank",
			candidates: []tags.Resolved{
				{Source: "ホラー", Priority: 10},
			},
			want: "ホラー",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tags.PrimaryTag(tc.candidates, "uncategorized"); got != tc.want {
				t.Fatalf("PrimaryTag = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveBatchSplitsAndPreservesOrder(t *testing.T) {
	store := newMemoryStore(
		tags.Mapping{SourceTag: "ホラー", TargetTag: "호러", Priority: 10},
		tags.Mapping{SourceTag: "RPG", TargetTag: "RPG", Priority: 15},
	)
	r := tags.NewResolver(store, tags.Options{}, logging.NewNop())

	resolved, unresolved := r.ResolveBatch(context.Background(), []string{"RPG", "ファンタジー", "ホラー", "純愛"})
	wantResolved := []tags.Resolved{
		{Source: "RPG", Target: "RPG", Priority: 15},
		{Source: "ホラー", Target: "호러", Priority: 10},
	}
	if !reflect.DeepEqual(resolved, wantResolved) {
		t.Fatalf("resolved = %+v", resolved)
	}
	if !reflect.DeepEqual(unresolved, []string{"ファンタジー", "純愛"}) {
		t.Fatalf("unresolved = %v", unresolved)
	}
}

func TestResolveBatchStoreFaultLeavesAllUnresolved(t *testing.T) {
	store := newMemoryStore(tags.Mapping{SourceTag: "ホラー", TargetTag: "호러", Priority: 10})
	store.failWith = errors.New("disk on fire")
	r := tags.NewResolver(store, tags.Options{}, logging.NewNop())

	resolved, unresolved := r.ResolveBatch(context.Background(), []string{"ホラー"})
	if len(resolved) != 0 || !reflect.DeepEqual(unresolved, []string{"ホラー"}) {
		t.Fatalf("resolved=%v unresolved=%v", resolved, unresolved)
	}
}

func TestRecordTranslationAppliesCuratedPriority(t *testing.T) {
	store := newMemoryStore()
	r := tags.NewResolver(store, tags.Options{Curated: map[string]int{"호러": 50}}, logging.NewNop())
	ctx := context.Background()

	got := r.RecordTranslation(ctx, "ホラー", "호러", 0)
	if got.Priority != 50 {
		t.Fatalf("priority = %d, want curated 50", got.Priority)
	}
	plain := r.RecordTranslation(ctx, "ファンタジー", "판타지", 0)
	if plain.Priority != tags.DefaultPriority {
		t.Fatalf("priority = %d, want default", plain.Priority)
	}

	resolved, unresolved := r.ResolveBatch(ctx, []string{"ファンタジー", "ホラー"})
	if len(unresolved) != 0 || len(resolved) != 2 {
		t.Fatalf("expected recorded tags to resolve, got %v / %v", resolved, unresolved)
	}
	if r.PrimaryTag(resolved) != "호러" {
		t.Fatalf("primary = %q", r.PrimaryTag(resolved))
	}
}

func TestRecordTranslationStoreFaultStillReturns(t *testing.T) {
	store := newMemoryStore()
	store.failWith = errors.New("read-only")
	r := tags.NewResolver(store, tags.Options{DefaultPriority: 7}, logging.NewNop())

	got := r.RecordTranslation(context.Background(), "a", "b", 0)
	if got.Target != "b" || got.Priority != 7 {
		t.Fatalf("unexpected resolved value: %+v", got)
	}
}

func TestNormalize(t *testing.T) {
	got := tags.Normalize([]string{" ﾎﾗｰ ", "[Error]", "", "ホラー", "RPG", "純愛", "ファンタジー"}, 3)
	want := []string{"ホラー", "RPG", "純愛"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestReapplyUsesCurrentDictionary(t *testing.T) {
	store := newMemoryStore(
		tags.Mapping{SourceTag: "ホラー", TargetTag: "공포", Priority: 30},
	)
	r := tags.NewResolver(store, tags.Options{}, logging.NewNop())

	rec := games.GameRecord{
		Platform:   "dlsite",
		TagsSource: []string{"ファンタジー", "ホラー"},
		TagsTarget: []string{"판타지", "호러"},
		PrimaryTag: "판타지",
	}
	out, changed := r.Reapply(context.Background(), rec)
	if !changed {
		t.Fatal("expected change")
	}
	if !reflect.DeepEqual(out.TagsTarget, []string{"판타지", "공포"}) {
		t.Fatalf("tags target = %v", out.TagsTarget)
	}
	if out.PrimaryTag != "공포" {
		t.Fatalf("primary = %q", out.PrimaryTag)
	}
	if rec.TagsTarget[1] != "호러" {
		t.Fatal("input record must not be mutated")
	}

	untouched := games.GameRecord{
		Platform:   "dlsite",
		TagsSource: []string{"ファンタジー", "ホラー"},
		TagsTarget: []string{"ファンタジー", "호러"},
	}
	out, _ = r.Reapply(context.Background(), untouched)
	if !reflect.DeepEqual(out.TagsTarget, []string{"ファンタジー", "공포"}) || out.PrimaryTag != "공포" {
		t.Fatalf("untranslated tag must keep source text and lose to a translation: %+v", out)
	}
	untouched.TagsSource = []string{"ファンタジー"}
	untouched.TagsTarget = []string{"ファンタジー"}
	out, _ = r.Reapply(context.Background(), untouched)
	if out.PrimaryTag != tags.DefaultFallback {
		t.Fatalf("primary = %q, want fallback when nothing is translated", out.PrimaryTag)
	}

	neg := games.GameRecord{ErrorKind: games.KindNotFound}
	if _, changed := r.Reapply(context.Background(), neg); changed {
		t.Fatal("negative records must not change")
	}
}
