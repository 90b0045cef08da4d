// Package app shares the dependency wiring between the bot and the redirect
// server: both processes select the same store backend and audit stream from
// the same configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"promoreg/internal/audit"
	"promoreg/internal/platform/config"
	"promoreg/internal/platform/database"
	"promoreg/internal/platform/health"
	"promoreg/internal/platform/kafka/producer"
	"promoreg/internal/registration/store"
	"promoreg/internal/tracking/destinations"
)

func LoadTimezone(name string, log *slog.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn("unknown timezone, falling back to UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

func LoadDestinations(override string, log *slog.Logger) destinations.Map {
	if override == "" {
		return destinations.Default()
	}
	dests, err := destinations.Parse(override)
	if err != nil {
		log.Warn("invalid destination override, using defaults", "error", err)
		return destinations.Default()
	}
	return dests
}

// BuildStore selects the record store backend. The returned CheckFunc is nil
// for backends without a meaningful connectivity probe.
func BuildStore(cfg config.Config, loc *time.Location, log *slog.Logger) (store.Store, health.CheckFunc, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewInMemory(), nil, nil

	case "postgres":
		pool, err := database.New(database.DefaultConfig(cfg.Store.PostgresURL))
		if err != nil {
			return nil, nil, fmt.Errorf("postgres backend: %w", err)
		}
		if pool == nil {
			return nil, nil, fmt.Errorf("postgres backend requires PROMOREG_POSTGRES_URL")
		}
		pgStore := store.NewPostgres(pool.DB(), loc)
		return pgStore, pgStore.HealthCheck, nil

	case "sheets":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sheetsStore, err := store.NewSheets(ctx, store.SheetsConfig{
			CredentialsB64:  cfg.Store.SheetsCredentialsB64,
			SpreadsheetID:   cfg.Store.SpreadsheetID,
			WorksheetPrefix: cfg.Store.WorksheetPrefix,
			MaxRows:         cfg.Store.MaxRowsPerWorksheet,
			IdleRefresh:     10 * time.Minute,
		}, loc, log)
		if err != nil {
			return nil, nil, fmt.Errorf("sheets backend: %w", err)
		}
		return sheetsStore, sheetsStore.HealthCheck, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// BuildAuditPublisher wires the audit stream. Without Kafka brokers the
// events stay in process memory, which is enough for local runs.
func BuildAuditPublisher(cfg config.Config, log *slog.Logger) (*audit.Publisher, func(), error) {
	if cfg.Audit.KafkaBrokers == "" {
		publisher := audit.NewPublisher(audit.NewMemorySink(), audit.WithLogger(log))
		return publisher, func() { publisher.Close() }, nil
	}

	kafkaProducer, err := producer.New(producer.Config{Brokers: cfg.Audit.KafkaBrokers}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	publisher := audit.NewPublisher(
		audit.NewKafkaSink(kafkaProducer, cfg.Audit.KafkaTopic),
		audit.WithLogger(log),
		audit.WithAsyncBuffer(256),
	)
	cleanup := func() {
		publisher.Close()
		kafkaProducer.Close()
	}
	return publisher, cleanup, nil
}
