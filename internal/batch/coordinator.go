package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gamesort/internal/config"
	"gamesort/internal/games"
	"gamesort/internal/logging"
	"gamesort/internal/services"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 16
	defaultChunkSize = 10
)

// Reconciler resolves a single raw input.
type Reconciler interface {
	Reconcile(ctx context.Context, raw string) (games.GameRecord, error)
}

// ProgressFunc is called once per finished item, serialized, with the number
// of items done so far.
type ProgressFunc func(done, total int, result Result)

// Options tune a Coordinator. Zero values fall back to defaults.
type Options struct {
	Workers   int
	ChunkSize int
	// Timeout bounds the whole batch; zero leaves only the caller's deadline.
	Timeout  time.Duration
	Progress ProgressFunc
}

// Coordinator fans a batch out over a Reconciler.
type Coordinator struct {
	reconciler Reconciler
	workers    int
	chunkSize  int
	timeout    time.Duration
	progress   ProgressFunc
	logger     *slog.Logger
}

// New builds a coordinator. Workers are clamped to 1..16.
func New(reconciler Reconciler, opts Options, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		reconciler: reconciler,
		workers:    opts.Workers,
		chunkSize:  opts.ChunkSize,
		timeout:    opts.Timeout,
		progress:   opts.Progress,
		logger:     logging.NewComponentLogger(logger, "batch"),
	}
	switch {
	case c.workers <= 0:
		c.workers = defaultWorkers
	case c.workers > maxWorkers:
		c.workers = maxWorkers
	}
	if c.chunkSize <= 0 {
		c.chunkSize = defaultChunkSize
	}
	if c.timeout < 0 {
		c.timeout = 0
	}
	return c
}

// NewFromConfig builds a coordinator from the [batch] section. Overrides run
// in order on the derived Options, so command flags win over the file.
func NewFromConfig(cfg *config.Config, reconciler Reconciler, logger *slog.Logger, overrides ...func(*Options)) *Coordinator {
	opts := Options{
		Workers:   cfg.Batch.Workers,
		ChunkSize: cfg.Batch.ChunkSize,
		Timeout:   cfg.BatchTimeout(),
	}
	for _, override := range overrides {
		override(&opts)
	}
	return New(reconciler, opts, logger)
}

// ReconcileAll reconciles raws and always returns one result per input in
// request order. The task id is the context's correlation id when present.
func (c *Coordinator) ReconcileAll(ctx context.Context, raws []string) Response {
	taskID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		taskID = uuid.NewString()
		ctx = services.WithRequestID(ctx, taskID)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	resp := Response{Results: make([]Result, len(raws)), TaskID: taskID}
	tracker := &progressTracker{
		total:    len(raws),
		callback: c.progress,
		sampler:  logging.NewProgressSampler(10),
		logger:   logger,
	}

	logger.Info("batch started",
		logging.Int("items", len(raws)),
		logging.Int("workers", c.workers),
		logging.Int("chunk_size", c.chunkSize))

	for start := 0; start < len(raws); start += c.chunkSize {
		end := min(start+c.chunkSize, len(raws))
		var g errgroup.Group
		g.SetLimit(c.workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				resp.Results[i] = c.runItem(ctx, i, raws[i])
				tracker.finish(resp.Results[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	summary := resp.Summary()
	logger.Info("batch finished",
		logging.Int("items", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("negative", summary.Negative),
		logging.Int("failed", summary.Failed),
		logging.Int("timed_out", summary.TimedOut),
		logging.Duration("elapsed", time.Since(started)))
	return resp
}

type outcome struct {
	record games.GameRecord
	err    error
}

// runItem runs one reconcile and gives up on it when ctx ends. An abandoned
// call keeps running until its own context-aware calls return.
func (c *Coordinator) runItem(ctx context.Context, index int, raw string) Result {
	if ctx.Err() != nil {
		return timeoutResult(index, raw)
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.ErrorWithContext(c.logger, "reconcile panicked", "item_panic",
					logging.String("input", raw),
					logging.Any("panic", r),
					logging.String(logging.FieldErrorHint, "report this input; it crashes the reconcile pipeline"),
				)
				done <- outcome{err: services.Wrap(services.ErrTransient, "batch", "reconcile", raw, fmt.Errorf("panic: %v", r))}
			}
		}()
		rec, err := c.reconciler.Reconcile(ctx, raw)
		done <- outcome{record: rec, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			itemErr := games.NewItemError(raw, out.err)
			itemErr.Index = index
			return Result{Index: index, Input: raw, Err: itemErr}
		}
		rec := out.record
		return Result{Index: index, Input: raw, Record: &rec}
	case <-ctx.Done():
		return timeoutResult(index, raw)
	}
}

func timeoutResult(index int, raw string) Result {
	return Result{
		Index: index,
		Input: raw,
		Err: &games.ItemError{
			Index:   index,
			Input:   raw,
			Kind:    games.KindTimeout,
			Message: "batch deadline passed before the item finished",
		},
	}
}

type progressTracker struct {
	mu       sync.Mutex
	done     int
	total    int
	callback ProgressFunc
	sampler  *logging.ProgressSampler
	logger   *slog.Logger
}

func (p *progressTracker) finish(result Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.callback != nil {
		p.callback(p.done, p.total, result)
	}
	if p.sampler.ShouldLog(p.done, p.total) {
		p.logger.Debug("batch progress",
			logging.Int("done", p.done),
			logging.Int("total", p.total))
	}
}
