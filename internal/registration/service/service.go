// Package service implements the registration recorder: it turns a validated
// form submission into a stored record, with a bounded best-effort retry
// pipeline in front of the external store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"promoreg/internal/audit"
	"promoreg/internal/platform/privacy"
	"promoreg/internal/registration/form"
	"promoreg/internal/registration/metrics"
	"promoreg/internal/registration/models"
	"promoreg/internal/registration/queue"
	"promoreg/internal/registration/store"
	"promoreg/pkg/platform/circuit"
)

// Identity is the transport-supplied identity of the submitting user.
type Identity struct {
	UserID   int64
	Username string
}

// Outcome describes how a submission reached (or failed to reach) the store.
type Outcome int

const (
	// OutcomeRecorded means the record was appended on the first try.
	OutcomeRecorded Outcome = iota
	// OutcomeQueued means the append failed with a retryable error and the
	// record sits on the retry queue.
	OutcomeQueued
	// OutcomeFailed means the append failed fast; the record went to the
	// failed queue and the backup file.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeQueued:
		return "queued"
	default:
		return "failed"
	}
}

// QueuedAppend is one record waiting for a retry.
type QueuedAppend struct {
	Record      *models.Record
	Attempts    int
	NextAttempt time.Time
	Reason      string
}

// Config tunes the retry pipeline.
type Config struct {
	QueueCapacity  int
	FailedCapacity int
	MaxAttempts    int
	RetryBackoff   time.Duration
	AppendTimeout  time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:  500,
		FailedCapacity: 200,
		MaxAttempts:    5,
		RetryBackoff:   2 * time.Second,
		AppendTimeout:  10 * time.Second,
	}
}

// Service is the registration recorder.
type Service struct {
	store   RecordStore
	checker MembershipChecker
	cfg     Config

	breaker *circuit.Breaker
	pending *queue.Bounded[*QueuedAppend]
	failed  *queue.Bounded[*QueuedAppend]
	backup  *queue.BackupWriter

	metrics *metrics.Metrics
	logger  *slog.Logger
	auditor AuditPublisher
	loc     *time.Location
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditPublisher attaches an audit publisher.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithBackupWriter attaches the last-resort JSONL backup writer.
func WithBackupWriter(w *queue.BackupWriter) Option {
	return func(s *Service) { s.backup = w }
}

// WithTimezone sets the campaign-local timezone for submitted_at stamps.
func WithTimezone(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCircuitBreaker overrides the store circuit breaker.
func WithCircuitBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

// WithMetrics overrides the metrics set, for tests with a private registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New constructs a Service. The retry queues are owned by the service and
// sized from cfg.
func New(recordStore RecordStore, checker MembershipChecker, cfg Config, opts ...Option) (*Service, error) {
	if recordStore == nil || checker == nil {
		return nil, fmt.Errorf("store and membership checker are required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	s := &Service{
		store:   recordStore,
		checker: checker,
		cfg:     cfg,
		breaker: circuit.New("record-store"),
		pending: queue.NewBounded[*QueuedAppend](cfg.QueueCapacity),
		failed:  queue.NewBounded[*QueuedAppend](cfg.FailedCapacity),
		logger:  slog.Default(),
		loc:     time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s, nil
}

// Register records a complete, validated submission. The returned outcome is
// informational: a queued or failed append is still a successful registration
// from the user's point of view, because delivery is best-effort.
func (s *Service) Register(ctx context.Context, fields form.Fields, ident Identity) (*models.Record, Outcome, error) {
	if err := form.Validate(fields); err != nil {
		s.metrics.ValidationFailures.Inc()
		return nil, OutcomeFailed, err
	}
	if err := form.ValidateLimits(fields); err != nil {
		s.metrics.ValidationFailures.Inc()
		return nil, OutcomeFailed, err
	}

	status := s.checker.Check(ctx, ident.UserID)
	s.metrics.MembershipResults.WithLabelValues(string(status)).Inc()

	record := &models.Record{
		ID:                  uuid.New(),
		FullName:            fields[models.FieldFullName],
		Phone:               fields[models.FieldPhone],
		Bank:                fields[models.FieldBank],
		AccountNumber:       fields[models.FieldAccountNumber],
		Email:               fields[models.FieldEmail],
		ChatDisplayName:     fields[models.FieldChatDisplayName],
		ChatHandle:          fields[models.FieldChatHandle],
		PlatformUsername:    ident.Username,
		PlatformUserID:      strconv.FormatInt(ident.UserID, 10),
		MembershipStatus:    status,
		SubmittedAt:         s.now().In(s.loc),
		AssignedDestination: models.PendingDestination,
	}

	outcome := s.submit(ctx, record)

	s.logAudit(ctx, outcomeAction(outcome), record.PlatformUserID, outcome.String())
	return record, outcome, nil
}

func outcomeAction(o Outcome) audit.Action {
	switch o {
	case OutcomeRecorded:
		return audit.ActionRegistrationRecorded
	case OutcomeQueued:
		return audit.ActionRegistrationQueued
	default:
		return audit.ActionRegistrationFailed
	}
}

// submit tries the store once, then routes the record by error class:
// rate-limit-class failures go to the retry queue, everything else fails
// fast to the failed queue and the backup file.
func (s *Service) submit(ctx context.Context, record *models.Record) Outcome {
	if s.breaker.IsOpen() {
		s.enqueue(&QueuedAppend{Record: record, Attempts: 0, Reason: "circuit open"})
		return OutcomeQueued
	}

	appendCtx, cancel := context.WithTimeout(ctx, s.cfg.AppendTimeout)
	defer cancel()

	err := s.store.Append(appendCtx, record)
	if err == nil {
		if closed := s.breaker.RecordSuccess(); closed {
			s.logger.Info("record store circuit closed")
		}
		s.metrics.RegistrationsRecorded.Inc()
		return OutcomeRecorded
	}

	if opened := s.breaker.RecordFailure(); opened {
		s.logger.Error("record store circuit opened", "error", err)
	}

	switch store.KindOf(err) {
	case store.KindRateLimited:
		s.logger.Warn("store append rate limited, queueing for retry",
			"user_id", record.PlatformUserID,
			"error", err,
		)
		s.enqueue(&QueuedAppend{Record: record, Attempts: 1, Reason: err.Error()})
		return OutcomeQueued
	default:
		s.logger.Error("store append failed",
			"user_id", record.PlatformUserID,
			"phone", privacy.MaskDigits(record.Phone),
			"error", err,
		)
		s.moveToFailed(&QueuedAppend{Record: record, Attempts: 1, Reason: err.Error()})
		return OutcomeFailed
	}
}

func (s *Service) enqueue(item *QueuedAppend) {
	if oldest, evicted := s.pending.Push(item); evicted {
		s.metrics.QueueEvictions.Inc()
		s.writeBackup(oldest, "evicted from retry queue")
	}
	s.metrics.RegistrationsQueued.Inc()
	s.metrics.QueueDepth.Set(float64(s.pending.Len()))
}

func (s *Service) moveToFailed(item *QueuedAppend) {
	if _, evicted := s.failed.Push(item); evicted {
		s.metrics.QueueEvictions.Inc()
	}
	s.metrics.RegistrationsFailed.Inc()
	s.metrics.FailedQueueDepth.Set(float64(s.failed.Len()))
	s.writeBackup(item, item.Reason)
}

func (s *Service) writeBackup(item *QueuedAppend, reason string) {
	if s.backup == nil {
		return
	}
	if err := s.backup.Append(item.Record, reason, item.Attempts); err != nil {
		s.logger.Error("backup write failed",
			"user_id", item.Record.PlatformUserID,
			"error", err,
		)
		return
	}
	s.metrics.BackupWrites.Inc()
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Retried   int
	Recorded  int
	Requeued  int
	Abandoned int
}

// DrainOnce retries at most one queued append. The drain worker calls it on a
// fixed low-rate ticker to respect the store's throughput limits.
func (s *Service) DrainOnce(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	item, ok := s.pending.Pop()
	if !ok {
		return res, nil
	}

	if s.now().Before(item.NextAttempt) {
		// Not due yet; all queued items share the same backoff progression,
		// so pushing to the tail keeps rough arrival order.
		s.pending.Push(item)
		s.metrics.QueueDepth.Set(float64(s.pending.Len()))
		return res, nil
	}

	res.Retried = 1
	s.metrics.RetryAttempts.Inc()

	appendCtx, cancel := context.WithTimeout(ctx, s.cfg.AppendTimeout)
	defer cancel()

	err := s.store.Append(appendCtx, item.Record)
	if err == nil {
		if closed := s.breaker.RecordSuccess(); closed {
			s.logger.Info("record store circuit closed")
		}
		s.metrics.RegistrationsRecorded.Inc()
		s.metrics.QueueDepth.Set(float64(s.pending.Len()))
		res.Recorded = 1
		return res, nil
	}

	if opened := s.breaker.RecordFailure(); opened {
		s.logger.Error("record store circuit opened", "error", err)
	}

	item.Attempts++
	item.Reason = err.Error()

	if store.KindOf(err) == store.KindRateLimited && item.Attempts < s.cfg.MaxAttempts {
		// Linear backoff: wait attempts*backoff before the next try.
		item.NextAttempt = s.now().Add(time.Duration(item.Attempts) * s.cfg.RetryBackoff)
		if oldest, evicted := s.pending.Push(item); evicted {
			s.metrics.QueueEvictions.Inc()
			s.writeBackup(oldest, "evicted from retry queue")
		}
		s.metrics.QueueDepth.Set(float64(s.pending.Len()))
		res.Requeued = 1
		return res, err
	}

	s.moveToFailed(item)
	s.metrics.QueueDepth.Set(float64(s.pending.Len()))
	res.Abandoned = 1
	return res, err
}

// QueueDepths reports the retry and failed queue depths for the stats surface.
func (s *Service) QueueDepths() (pending, failed int) {
	return s.pending.Len(), s.failed.Len()
}

// FailedRecords returns the failed queue contents for operator inspection.
func (s *Service) FailedRecords() []*QueuedAppend {
	return s.failed.Snapshot()
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, userID, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action: action,
		UserID: userID,
		Detail: detail,
	}); err != nil {
		s.logger.Error("failed to emit audit event", "action", action, "error", err)
	}
}
