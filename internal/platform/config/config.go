// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"time"

	"promoreg/pkg/secrets"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration

	// PublicBaseURL is the externally reachable origin for tracked
	// redirect links handed out in chat.
	PublicBaseURL string

	// MetricsAddr is where the bot process exposes /metrics. The redirect
	// server serves /metrics on its main listener instead.
	MetricsAddr string
}

// Telegram captures the chat transport configuration.
type Telegram struct {
	BotToken string
	// GroupID is the chat whose membership gates the campaign. Zero disables
	// membership checks (every lookup reports unknown).
	GroupID int64
}

// Store selects and configures the registration record store backend.
type Store struct {
	// Backend is one of "memory", "postgres", "sheets".
	Backend string

	PostgresURL string

	// SheetsCredentialsB64 is the base64-encoded service account JSON,
	// matching how the campaign has always shipped credentials.
	SheetsCredentialsB64 string
	SpreadsheetID        string
	WorksheetPrefix      string
	MaxRowsPerWorksheet  int
}

// Recorder configures the append retry pipeline.
type Recorder struct {
	QueueCapacity  int
	MaxAttempts    int
	RetryBackoff   time.Duration
	DrainInterval  time.Duration
	BackupPath     string
	AppendTimeout  time.Duration
	FailedCapacity int
}

// RateLimit configures the per-user inbound message limiter.
type RateLimit struct {
	RedisURL string
	Limit    int
	Window   time.Duration
}

// Audit configures the event stream sink.
type Audit struct {
	KafkaBrokers string
	KafkaTopic   string
}

// Config is the root configuration for both the bot and the redirect server.
type Config struct {
	Server    Server
	Telegram  Telegram
	Store     Store
	Recorder  Recorder
	RateLimit RateLimit
	Audit     Audit

	// Timezone is the campaign-local timezone used for submitted_at stamps.
	Timezone string

	// Destinations overrides the built-in destination map when set, as a
	// comma-separated list of CODE=URL pairs.
	Destinations string

	Environment string
}

// FromEnv builds a Config from environment variables, applying defaults
// suitable for local development.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("PROMOREG_HTTP_ADDR", ":8000"),
			ShutdownTimeout: envDuration("PROMOREG_SHUTDOWN_TIMEOUT", 10*time.Second),
			PublicBaseURL:   envString("PROMOREG_PUBLIC_BASE_URL", "http://localhost:8000"),
			MetricsAddr:     envString("PROMOREG_BOT_METRICS_ADDR", ":9100"),
		},
		Telegram: Telegram{
			BotToken: secrets.Lookup("TELEGRAM_BOT_TOKEN"),
			GroupID:  envInt64("PROMOREG_GROUP_ID", 0),
		},
		Store: Store{
			Backend:              envString("PROMOREG_STORE", "memory"),
			PostgresURL:          secrets.Lookup("DATABASE_URL"),
			SheetsCredentialsB64: secrets.Lookup("GOOGLE_CREDS_JSON"),
			SpreadsheetID:        os.Getenv("PROMOREG_SPREADSHEET_ID"),
			WorksheetPrefix:      envString("PROMOREG_WORKSHEET_PREFIX", "registrations"),
			MaxRowsPerWorksheet:  envInt("PROMOREG_MAX_ROWS_PER_WORKSHEET", 50000),
		},
		Recorder: Recorder{
			QueueCapacity:  envInt("PROMOREG_RETRY_QUEUE_CAPACITY", 500),
			MaxAttempts:    envInt("PROMOREG_RETRY_MAX_ATTEMPTS", 5),
			RetryBackoff:   envDuration("PROMOREG_RETRY_BACKOFF", 2*time.Second),
			DrainInterval:  envDuration("PROMOREG_DRAIN_INTERVAL", 15*time.Second),
			BackupPath:     envString("PROMOREG_BACKUP_PATH", "failed_registrations.jsonl"),
			AppendTimeout:  envDuration("PROMOREG_APPEND_TIMEOUT", 10*time.Second),
			FailedCapacity: envInt("PROMOREG_FAILED_QUEUE_CAPACITY", 200),
		},
		RateLimit: RateLimit{
			RedisURL: secrets.Lookup("REDIS_URL"),
			Limit:    envInt("PROMOREG_MESSAGE_LIMIT", 20),
			Window:   envDuration("PROMOREG_MESSAGE_WINDOW", time.Minute),
		},
		Audit: Audit{
			KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
			KafkaTopic:   envString("KAFKA_AUDIT_TOPIC", "promoreg.events"),
		},
		Timezone:     envString("PROMOREG_TIMEZONE", "Asia/Bangkok"),
		Destinations: os.Getenv("PROMOREG_DESTINATIONS"),
		Environment:  envString("PROMOREG_ENV", "development"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
