// Package service implements the click/assignment tracker: the state machine
// that moves a user's latest registration record from PENDING to an assigned
// destination and accumulates their destination history.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"promoreg/internal/audit"
	"promoreg/internal/registration/models"
	"promoreg/internal/registration/store"
	"promoreg/internal/tracking/destinations"
	"promoreg/internal/tracking/metrics"
	domainerrors "promoreg/pkg/domain-errors"
	pstrings "promoreg/pkg/platform/strings"
	psync "promoreg/pkg/platform/sync"
)

// TrackerStore is the slice of the store contract the tracker needs.
type TrackerStore interface {
	FindLatestByUserID(ctx context.Context, userID string) (*store.Row, error)
	UpdateAssignment(ctx context.Context, row *store.Row) error
	Append(ctx context.Context, record *models.Record) error
}

// AuditPublisher receives selection lifecycle events. Optional.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service handles destination selection events. Events for the same user id
// are serialized through a sharded per-key lock: the read-then-write against
// the store must not interleave with a concurrent event for the same user.
type Service struct {
	store   TrackerStore
	locks   *psync.ShardedMutex
	metrics *metrics.Metrics
	logger  *slog.Logger
	auditor AuditPublisher
	tracer  trace.Tracer
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
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

// WithTimezone sets the campaign-local timezone for refreshed timestamps.
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

// WithMetrics overrides the metrics set, for tests with a private registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithStoreTimeout bounds each store call made during a selection event.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New constructs a Service.
func New(trackerStore TrackerStore, opts ...Option) (*Service, error) {
	if trackerStore == nil {
		return nil, fmt.Errorf("store is required")
	}
	s := &Service{
		store:   trackerStore,
		locks:   psync.NewShardedMutex(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("promoreg/tracking"),
		loc:     time.UTC,
		now:     time.Now,
		timeout: 10 * time.Second,
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

// Select applies one destination selection event for userID.
//
// The latest record for the user is the active one. A PENDING active record
// is assigned in place. An already-assigned record is never reverted:
// instead a new record is appended, cloning the user-supplied fields with a
// fresh timestamp, carrying the accumulated destination history plus the new
// selection. The history is de-duplicated and preserves first-seen order.
//
// Errors are informational for the caller: the user-facing redirect has
// already been decided and must not depend on the result.
func (s *Service) Select(ctx context.Context, userID string, dest destinations.Destination) error {
	ctx, span := s.tracer.Start(ctx, "tracking.select", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("destination", dest.Code),
	))
	start := s.now()
	err := s.selectLocked(ctx, userID, dest)
	s.metrics.SelectionLatency.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return err
}

func (s *Service) selectLocked(ctx context.Context, userID string, dest destinations.Destination) error {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	findCtx, cancel := context.WithTimeout(ctx, s.timeout)
	row, err := s.store.FindLatestByUserID(findCtx, userID)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.drop(ctx, userID, dest.Code, "user_not_found")
			return domainerrors.Wrap(err, domainerrors.CodeUserNotFound, "no registration for user")
		}
		s.drop(ctx, userID, dest.Code, "store_read_failed")
		return domainerrors.Wrap(err, domainerrors.CodeStoreWriteFailed, "locate active record")
	}

	active := row.Record

	if active.AssignedDestination == models.PendingDestination || active.AssignedDestination == "" {
		return s.assign(ctx, userID, row, dest)
	}
	return s.reassign(ctx, userID, active, dest)
}

// assign mutates the active record in place: PENDING -> ASSIGNED(dest).
func (s *Service) assign(ctx context.Context, userID string, row *store.Row, dest destinations.Destination) error {
	row.Record.AssignedDestination = dest.Code
	row.Record.DestinationHistory = []string{dest.Code}

	updateCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.UpdateAssignment(updateCtx, row); err != nil {
		s.drop(ctx, userID, dest.Code, "store_write_failed")
		return domainerrors.Wrap(err, domainerrors.CodeStoreWriteFailed, "assign destination")
	}

	s.metrics.SelectionsAssigned.WithLabelValues(dest.Code).Inc()
	s.logAudit(ctx, audit.ActionClickAssigned, userID, dest.Code, "")
	return nil
}

// reassign appends a new record for an already-assigned user, carrying the
// union of all destinations ever selected.
func (s *Service) reassign(ctx context.Context, userID string, active *models.Record, dest destinations.Destination) error {
	history := mergeHistory(active.DestinationHistory, active.AssignedDestination, dest.Code)

	record := active.Clone(s.now().In(s.loc))
	record.AssignedDestination = dest.Code
	record.DestinationHistory = history

	appendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.Append(appendCtx, record); err != nil {
		s.drop(ctx, userID, dest.Code, "store_write_failed")
		return domainerrors.Wrap(err, domainerrors.CodeStoreWriteFailed, "append reassignment record")
	}

	s.metrics.SelectionsReassigned.WithLabelValues(dest.Code).Inc()
	s.logAudit(ctx, audit.ActionClickReassigned, userID, dest.Code, "")
	return nil
}

// mergeHistory unions the existing history, the currently assigned
// destination, and the new selection, de-duplicated in first-seen order.
// PENDING never appears in a history.
func mergeHistory(existing []string, current, next string) []string {
	union := make([]string, 0, len(existing)+2)
	union = append(union, existing...)
	union = append(union, current, next)

	merged := pstrings.DedupeAndTrim(union)
	filtered := merged[:0]
	for _, code := range merged {
		if code != models.PendingDestination {
			filtered = append(filtered, code)
		}
	}
	return filtered
}

// drop logs and audits a selection event that produced no store mutation.
func (s *Service) drop(ctx context.Context, userID, destination, reason string) {
	s.metrics.SelectionsDropped.WithLabelValues(reason).Inc()
	s.logger.WarnContext(ctx, "selection event dropped",
		"user_id", userID,
		"destination", destination,
		"reason", reason,
	)
	s.logAudit(ctx, audit.ActionClickDropped, userID, destination, reason)
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, userID, destination, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:      action,
		UserID:      userID,
		Destination: destination,
		Detail:      detail,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}
