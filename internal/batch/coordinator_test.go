package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"gamesort/internal/config"
	"gamesort/internal/games"
	"gamesort/internal/logging"
	"gamesort/internal/scraper"
	"gamesort/internal/services"
)

type reconcileFunc func(ctx context.Context, raw string) (games.GameRecord, error)

func (f reconcileFunc) Reconcile(ctx context.Context, raw string) (games.GameRecord, error) {
	return f(ctx, raw)
}

func recordFor(raw string) games.GameRecord {
	return games.GameRecord{
		Code:        games.StringPtr(raw),
		Platform:    "dlsite",
		TitleSource: "title " + raw,
		TitleTarget: games.StringPtr("title " + raw),
		TagsSource:  []string{},
		TagsTarget:  []string{},
		PrimaryTag:  "uncategorized",
	}
}

func inputs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("RJ%08d", i+1)
	}
	return out
}

func TestReconcileAllPreservesOrderUnderRandomDelays(t *testing.T) {
	rec := reconcileFunc(func(ctx context.Context, raw string) (games.GameRecord, error) {
		time.Sleep(time.Duration(rand.IntN(15)) * time.Millisecond)
		return recordFor(raw), nil
	})
	raws := inputs(37)
	coordinator := New(rec, Options{Workers: 8, ChunkSize: 10}, logging.NewNop())

	resp := coordinator.ReconcileAll(context.Background(), raws)
	if len(resp.Results) != len(raws) {
		t.Fatalf("expected %d results, got %d", len(raws), len(resp.Results))
	}
	for i, res := range resp.Results {
		if !res.OK() {
			t.Fatalf("item %d failed: %v", i, res.Err)
		}
		if res.Index != i || res.Input != raws[i] || *res.Record.Code != raws[i] {
			t.Fatalf("slot %d holds %+v", i, res)
		}
	}
}

func TestReconcileAllIsolatesFailures(t *testing.T) {
	rec := reconcileFunc(func(ctx context.Context, raw string) (games.GameRecord, error) {
		if raw == "RJ00000002" {
			return games.GameRecord{}, games.NewItemError(raw, fmt.Errorf("fetch: %w", scraper.ErrTransient))
		}
		return recordFor(raw), nil
	})
	coordinator := New(rec, Options{Workers: 3}, logging.NewNop())

	resp := coordinator.ReconcileAll(context.Background(), inputs(3))
	if !resp.Results[0].OK() || !resp.Results[2].OK() {
		t.Fatalf("siblings of a failed item must succeed: %+v", resp.Results)
	}
	failed := resp.Results[1]
	if failed.OK() || failed.Err.Kind != games.KindTransientFailure || failed.Err.Index != 1 {
		t.Fatalf("unexpected failure slot: %+v", failed.Err)
	}
	if summary := resp.Summary(); summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestReconcileAllDeadlineTimesOutUnfinishedItems(t *testing.T) {
	rec := reconcileFunc(func(ctx context.Context, raw string) (games.GameRecord, error) {
		if raw == "RJ00000001" {
			return recordFor(raw), nil
		}
		<-ctx.Done()
		return games.GameRecord{}, ctx.Err()
	})
	coordinator := New(rec, Options{Workers: 1, ChunkSize: 2, Timeout: 50 * time.Millisecond}, logging.NewNop())

	resp := coordinator.ReconcileAll(context.Background(), inputs(5))
	if len(resp.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(resp.Results))
	}
	if !resp.Results[0].OK() {
		t.Fatalf("finished item must keep its result: %+v", resp.Results[0])
	}
	for i := 1; i < 5; i++ {
		if resp.Results[i].Err == nil || resp.Results[i].Err.Kind != games.KindTimeout {
			t.Fatalf("item %d should time out, got %+v", i, resp.Results[i])
		}
	}
}

func TestReconcileAllBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	rec := reconcileFunc(func(ctx context.Context, raw string) (games.GameRecord, error) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return recordFor(raw), nil
	})
	coordinator := New(rec, Options{Workers: 2, ChunkSize: 10}, logging.NewNop())

	coordinator.ReconcileAll(context.Background(), inputs(12))
	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent items, saw %d", got)
	}
}

func TestNewClampsWorkers(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, defaultWorkers},
		{-3, defaultWorkers},
		{1, 1},
		{16, 16},
		{64, maxWorkers},
	}
	for _, tc := range cases {
		if got := New(nil, Options{Workers: tc.in}, nil).workers; got != tc.want {
			t.Fatalf("workers %d clamped to %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNewFromConfigAppliesOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Batch.Workers = 3
	cfg.Batch.ChunkSize = 7
	cfg.Batch.TimeoutSeconds = 30

	c := NewFromConfig(&cfg, nil, nil)
	if c.workers != 3 || c.chunkSize != 7 || c.timeout != 30*time.Second {
		t.Fatalf("config not applied: workers=%d chunk=%d timeout=%s", c.workers, c.chunkSize, c.timeout)
	}

	c = NewFromConfig(&cfg, nil, nil,
		func(o *Options) { o.Workers = 9 },
		func(o *Options) { o.Timeout = 0 },
	)
	if c.workers != 9 || c.chunkSize != 7 || c.timeout != 0 {
		t.Fatalf("overrides not applied: workers=%d chunk=%d timeout=%s", c.workers, c.chunkSize, c.timeout)
	}
}

func TestReconcileAllTaskID(t *testing.T) {
	rec := reconcileFunc(func(ctx context.Context, raw string) (games.GameRecord, error) {
		if id, _ := services.RequestIDFromContext(ctx); id == "" {
			return games.GameRecord{}, errors.New("missing correlation id")
		}
		return recordFor(raw), nil
	})
	coordinator := New(rec, Options{}, logging.NewNop())

	ctx := services.WithRequestID(context.Background(), "req-42")
	if resp := coordinator.ReconcileAll(ctx, inputs(1)); resp.TaskID != "req-42" || !resp.Results[0].OK() {
		t.Fatalf("expected caller correlation id, got %+v", resp)
	}

	resp := coordinator.ReconcileAll(context.Background(), inputs(1))
	if _, err := uuid.Parse(resp.TaskID); err != nil {
		t.Fatalf("generated task id %q is not a uuid: %v", resp.TaskID, err)
	}
	if !resp.Results[0].OK() {
		t.Fatalf("generated id not propagated: %+v", resp.Results[0].Err)
	}
}

func TestReconcileAllReportsProgress(t *testing.T) {
	rec := reconcileFunc(func(ctx context.Context, raw string) (games.GameRecord, error) {
		return recordFor(raw), nil
	})
	var (
		mu    sync.Mutex
		seen  []int
		total int
	)
	coordinator := New(rec, Options{Workers: 4, ChunkSize: 3, Progress: func(done, n int, _ Result) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, done)
		total = n
	}}, logging.NewNop())

	coordinator.ReconcileAll(context.Background(), inputs(7))
	if total != 7 || len(seen) != 7 {
		t.Fatalf("expected 7 progress calls of total 7, got %v (total %d)", seen, total)
	}
	for i, done := range seen {
		if done != i+1 {
			t.Fatalf("progress counts out of sequence: %v", seen)
		}
	}
}

func TestReconcileAllRecoversPanics(t *testing.T) {
	rec := reconcileFunc(func(ctx context.Context, raw string) (games.GameRecord, error) {
		if raw == "RJ00000001" {
			panic("boom")
		}
		return recordFor(raw), nil
	})
	resp := New(rec, Options{}, logging.NewNop()).ReconcileAll(context.Background(), inputs(2))
	if resp.Results[0].Err == nil || resp.Results[0].Err.Kind != games.KindTransientFailure {
		t.Fatalf("panic should become a transient item error: %+v", resp.Results[0])
	}
	if !resp.Results[1].OK() {
		t.Fatalf("sibling of panicking item failed: %+v", resp.Results[1].Err)
	}
}

func TestResponseJSONShape(t *testing.T) {
	rec := recordFor("RJ00000001")
	resp := Response{
		TaskID: "task-1",
		Results: []Result{
			{Index: 0, Input: "RJ00000001", Record: &rec},
			{Index: 1, Input: "", Err: &games.ItemError{Index: 1, Kind: games.KindInvalidInput, Message: "empty input"}},
		},
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Results []map[string]any `json:"results"`
		TaskID  string           `json:"task_id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.TaskID != "task-1" || len(decoded.Results) != 2 {
		t.Fatalf("unexpected envelope: %s", raw)
	}
	if decoded.Results[0]["primary_tag"] != "uncategorized" {
		t.Fatalf("record not inlined: %s", raw)
	}
	if decoded.Results[1]["error_kind"] != "invalid_input" || !strings.Contains(string(raw), `"message":"empty input"`) {
		t.Fatalf("item error not inlined: %s", raw)
	}
}
