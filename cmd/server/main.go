package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"promoreg/internal/app"
	"promoreg/internal/platform/config"
	"promoreg/internal/platform/health"
	"promoreg/internal/platform/logger"
	trackingmetrics "promoreg/internal/tracking/metrics"
	trackingservice "promoreg/internal/tracking/service"
	httptransport "promoreg/internal/transport/http"
)

// main wires the redirect/stats server: store, click tracker, HTTP router.
// Registration intake runs in cmd/bot; both processes share the store.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing promoreg server",
		"addr", cfg.Server.Addr,
		"store_backend", cfg.Store.Backend,
		"environment", cfg.Environment,
	)

	loc := app.LoadTimezone(cfg.Timezone, log)
	dests := app.LoadDestinations(cfg.Destinations, log)

	recordStore, storeHealth, err := app.BuildStore(cfg, loc, log)
	if err != nil {
		log.Error("store initialization failed", "error", err)
		os.Exit(1)
	}

	auditPublisher, auditCleanup, err := app.BuildAuditPublisher(cfg, log)
	if err != nil {
		log.Error("audit initialization failed", "error", err)
		os.Exit(1)
	}
	defer auditCleanup()

	trackMetrics := trackingmetrics.New(prometheus.DefaultRegisterer)

	tracker, err := trackingservice.New(recordStore,
		trackingservice.WithLogger(log),
		trackingservice.WithTimezone(loc),
		trackingservice.WithMetrics(trackMetrics),
		trackingservice.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		log.Error("tracker initialization failed", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(cfg.Environment)
	if storeHealth != nil {
		healthHandler.RegisterCheck("store", storeHealth)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Redirect: httptransport.NewRedirectHandler(dests, tracker, trackMetrics, log),
		Stats:    httptransport.NewStatsHandler(recordStore, nil, log),
		Health:   healthHandler,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
