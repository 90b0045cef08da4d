package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"promoreg/internal/app"
	"promoreg/internal/chat"
	"promoreg/internal/membership"
	"promoreg/internal/platform/config"
	"promoreg/internal/platform/logger"
	"promoreg/internal/platform/redis"
	"promoreg/internal/ratelimit"
	"promoreg/internal/registration/metrics"
	"promoreg/internal/registration/queue"
	"promoreg/internal/registration/service"
	"promoreg/internal/registration/workers/drain"
)

// main wires the Telegram intake process: dispatcher, recorder with its
// retry pipeline, membership checker, and the drain worker.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing promoreg bot",
		"store_backend", cfg.Store.Backend,
		"environment", cfg.Environment,
	)

	loc := app.LoadTimezone(cfg.Timezone, log)
	dests := app.LoadDestinations(cfg.Destinations, log)

	recordStore, _, err := app.BuildStore(cfg, loc, log)
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

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("telegram bot initialization failed", "error", err)
		os.Exit(1)
	}
	log.Info("telegram bot authorized", "username", bot.Self.UserName)

	checker := membership.NewTelegramChecker(bot, cfg.Telegram.GroupID, log)
	regMetrics := metrics.New(prometheus.DefaultRegisterer)

	recorder, err := service.New(recordStore, checker, service.Config{
		QueueCapacity:  cfg.Recorder.QueueCapacity,
		FailedCapacity: cfg.Recorder.FailedCapacity,
		MaxAttempts:    cfg.Recorder.MaxAttempts,
		RetryBackoff:   cfg.Recorder.RetryBackoff,
		AppendTimeout:  cfg.Recorder.AppendTimeout,
	},
		service.WithLogger(log),
		service.WithMetrics(regMetrics),
		service.WithTimezone(loc),
		service.WithAuditPublisher(auditPublisher),
		service.WithBackupWriter(queue.NewBackupWriter(cfg.Recorder.BackupPath)),
	)
	if err != nil {
		log.Error("recorder initialization failed", "error", err)
		os.Exit(1)
	}

	limiter := buildLimiter(cfg, log)

	dispatcher, err := chat.New(bot, recorder, dests, cfg.Server.PublicBaseURL,
		chat.WithLogger(log),
		chat.WithLimiter(limiter),
		chat.WithMetrics(regMetrics),
	)
	if err != nil {
		log.Error("dispatcher initialization failed", "error", err)
		os.Exit(1)
	}

	drainWorker, err := drain.New(recorder,
		drain.WithInterval(cfg.Recorder.DrainInterval),
		drain.WithLogger(log),
	)
	if err != nil {
		log.Error("drain worker initialization failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := bot.GetUpdatesChan(updateConfig)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return drainWorker.Start(ctx) })
	g.Go(func() error { return dispatcher.Run(ctx, updates) })
	g.Go(func() error { return serveMetrics(ctx, cfg, log) })

	log.Info("bot started, waiting for updates")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}

	bot.StopReceivingUpdates()
	log.Info("bot stopped")
}

// serveMetrics exposes the registration pipeline metrics on a dedicated
// listener; the bot has no other HTTP surface to mount them on.
func serveMetrics(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting metrics listener", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics listener shutdown", "error", err)
		}
		return ctx.Err()
	}
}

// buildLimiter picks the rate-limit bucket store: Redis when configured,
// otherwise in process memory.
func buildLimiter(cfg config.Config, log *slog.Logger) *ratelimit.Limiter {
	var bucketStore ratelimit.BucketStore

	redisClient, err := redis.New(cfg.RateLimit.RedisURL)
	switch {
	case err != nil:
		log.Warn("redis unavailable, using in-memory rate limiting", "error", err)
		bucketStore = ratelimit.NewInMemoryBucketStore()
	case redisClient != nil:
		bucketStore = ratelimit.NewRedisBucketStore(redisClient.Client)
	default:
		bucketStore = ratelimit.NewInMemoryBucketStore()
	}

	return ratelimit.NewLimiter(bucketStore, cfg.RateLimit.Limit, cfg.RateLimit.Window, log)
}
