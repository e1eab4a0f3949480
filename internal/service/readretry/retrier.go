// Package readretry retries idempotent reads that failed with a transient storage error.
package readretry

import (
	"context"
	"errors"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/logx"
)

type counter interface {
	Inc()
}

// Config describes the retry behaviour.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Retrier re-runs read operations on apperr.ErrUnavailable with exponential backoff.
// Writes are never routed through it.
type Retrier struct {
	cfg     Config
	logger  logx.Logger
	retries counter
	wait    func(context.Context, time.Duration) bool
}

// New creates a Retrier. MaxAttempts below one is treated as one.
func New(cfg Config, logger logx.Logger, retries counter) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Retrier{cfg: cfg, logger: logger, retries: retries, wait: sleepWithContext}
}

// Do runs fn until it succeeds, fails permanently or attempts run out. A nil Retrier runs fn once.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func(context.Context) (T, error)) (T, error) {
	if r == nil {
		return fn(ctx)
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == r.cfg.MaxAttempts || !isRetryable(err) {
			break
		}

		delay := backoff(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt)
		if r.retries != nil {
			r.retries.Inc()
		}
		r.logger.Warn("read retry",
			logx.String("op", op),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !r.wait(ctx, delay) {
			break
		}
	}
	return zero, lastErr
}

func isRetryable(err error) bool {
	return errors.Is(err, apperr.ErrUnavailable)
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
