// Package drain runs the background retry pass over the recorder's queue.
package drain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"promoreg/internal/registration/service"
)

// Recorder exposes the drain pass of the registration recorder.
type Recorder interface {
	DrainOnce(ctx context.Context) (service.DrainResult, error)
}

// Worker periodically retries queued store appends, one record per tick, so
// retries never compete with live traffic for the store's throughput budget.
type Worker struct {
	recorder Recorder
	interval time.Duration
	logger   *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

// WithInterval overrides the drain interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New constructs a Worker.
func New(recorder Recorder, opts ...Option) (*Worker, error) {
	if recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	w := &Worker{
		recorder: recorder,
		interval: 15 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start runs drain passes until ctx is cancelled. Individual retry failures
// are expected and logged at debug; the loop itself never stops on them.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := w.recorder.DrainOnce(ctx)
			if err != nil {
				w.logger.Debug("drain retry failed",
					"requeued", res.Requeued,
					"abandoned", res.Abandoned,
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
