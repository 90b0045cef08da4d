// Package http assembles the public HTTP surface: the tracked redirect, the
// statistics endpoint, health checks, and Prometheus metrics.
package http

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"promoreg/internal/platform/health"
	"promoreg/internal/platform/middleware"
)

// RouterConfig carries the handlers mounted on the router.
type RouterConfig struct {
	Redirect *RedirectHandler
	Stats    *StatsHandler
	Health   *health.Handler
	Logger   *slog.Logger

	// RequestTimeout applies to every route except the redirect, which
	// answers immediately.
	RequestTimeout time.Duration
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	if cfg.Redirect != nil {
		r.Method("GET", "/go", cfg.Redirect)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		if cfg.Stats != nil {
			r.Method("GET", "/stats", cfg.Stats)
		}
		if cfg.Health != nil {
			cfg.Health.Register(r)
		}
		r.Handle("/metrics", promhttp.Handler())
	})

	return r
}
