package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gamesort/internal/logging"
	"gamesort/internal/services"
)

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the catalog's tolerance: three attempts,
// exponential backoff from 2s capped at 15s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 15 * time.Second}
}

// Delay returns the wait before the attempt following attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Retrying retries transient failures of an inner Scraper.
type Retrying struct {
	inner  Scraper
	policy RetryPolicy
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// RetryOption customizes Retrying.
type RetryOption func(*Retrying)

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(context.Context, time.Duration) error) RetryOption {
	return func(r *Retrying) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRetrying wraps inner with policy.
func NewRetrying(inner Scraper, policy RetryPolicy, logger *slog.Logger, opts ...RetryOption) *Retrying {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	r := &Retrying{
		inner:  inner,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "scraper"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch calls the inner scraper until it succeeds, reports not found, or the
// attempts run out.
func (r *Retrying) Fetch(ctx context.Context, code string) (Metadata, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		meta, err := r.inner.Fetch(ctx, code)
		if err == nil {
			return meta, nil
		}
		lastErr = err
		if !services.IsRetryable(err) || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return Metadata{}, err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}
		delay := r.policy.Delay(attempt)
		logging.WithContext(ctx, r.logger).Debug("catalog fetch failed; retrying",
			logging.String("code", code),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			return Metadata{}, services.Wrap(services.ErrTimeout, "scrape", "retry", code, err)
		}
	}
	return Metadata{}, lastErr
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
