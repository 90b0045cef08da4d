// Package ratelimit throttles per-user form submissions with a sliding
// window. The limiter fails open: a broken backing store must never block a
// registration.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Result is the outcome of one limiter check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// BucketStore persists sliding-window counters.
type BucketStore interface {
	// Allow records one event against key and reports whether it fits
	// inside limit events per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)

	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

// Limiter applies a single limit/window policy over a BucketStore.
type Limiter struct {
	store  BucketStore
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewLimiter constructs a Limiter. A nil store or non-positive limit
// disables throttling entirely.
func NewLimiter(store BucketStore, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{store: store, limit: limit, window: window, logger: logger}
}

// Allow reports whether one more event for key is within the policy. Store
// errors are logged and treated as allowed.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	if l.store == nil || l.limit <= 0 {
		return Result{Allowed: true, Limit: l.limit}
	}
	result, err := l.store.Allow(ctx, key, l.limit, l.window)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit check failed, allowing request",
			"key", key,
			"error", err,
		)
		return Result{Allowed: true, Limit: l.limit}
	}
	return *result
}

func retryAfter(allowed bool, resetAt, now time.Time) time.Duration {
	if allowed {
		return 0
	}
	d := resetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
