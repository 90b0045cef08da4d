package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoreg/internal/audit"
	"promoreg/internal/registration/form"
	"promoreg/internal/registration/models"
	"promoreg/internal/registration/store"
	domainerrors "promoreg/pkg/domain-errors"
	"promoreg/pkg/platform/circuit"
)

type scriptedStore struct {
	errs    []error // consumed one per Append; nil means success
	records []*models.Record
}

func (s *scriptedStore) Append(_ context.Context, record *models.Record) error {
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	if err != nil {
		return err
	}
	s.records = append(s.records, record)
	return nil
}

type staticChecker struct {
	status models.MembershipStatus
}

func (c staticChecker) Check(context.Context, int64) models.MembershipStatus {
	return c.status
}

func completeFields() form.Fields {
	return form.Fields{
		models.FieldFullName:        "สมชาย ใจดี",
		models.FieldPhone:           "0812345678",
		models.FieldBank:            "กสิกรไทย",
		models.FieldAccountNumber:   "1234567890",
		models.FieldEmail:           "somchai@example.com",
		models.FieldChatDisplayName: "Somchai J.",
		models.FieldChatHandle:      "@somchai",
	}
}

func newService(t *testing.T, st RecordStore, opts ...Option) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{
		QueueCapacity:  10,
		FailedCapacity: 10,
		MaxAttempts:    3,
		RetryBackoff:   time.Second,
		AppendTimeout:  time.Second,
	}
	opts = append([]Option{WithLogger(logger)}, opts...)
	svc, err := New(st, staticChecker{status: models.MembershipInGroup}, cfg, opts...)
	require.NoError(t, err)
	return svc
}

func TestRegister_RecordsPendingRecord(t *testing.T) {
	st := &scriptedStore{}
	svc := newService(t, st)

	record, outcome, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 6456789012, Username: "somchai"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeRecorded, outcome)
	require.Len(t, st.records, 1)
	assert.Equal(t, models.PendingDestination, record.AssignedDestination)
	assert.Empty(t, record.DestinationHistory)
	assert.Equal(t, "6456789012", record.PlatformUserID)
	assert.Equal(t, "somchai", record.PlatformUsername)
	assert.Equal(t, models.MembershipInGroup, record.MembershipStatus)
}

func TestRegister_RejectsIncompleteFields(t *testing.T) {
	st := &scriptedStore{}
	svc := newService(t, st)

	fields := completeFields()
	fields[models.FieldEmail] = ""

	_, _, err := svc.Register(context.Background(), fields, Identity{UserID: 1})
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeIncomplete))
	assert.Empty(t, st.records, "no record may be created for an incomplete submission")
}

func TestRegister_RateLimitedGoesToRetryQueue(t *testing.T) {
	st := &scriptedStore{errs: []error{
		store.NewWriteError(store.KindRateLimited, errors.New("quota exceeded")),
	}}
	svc := newService(t, st)

	_, outcome, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)

	pending, failed := svc.QueueDepths()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, failed)
}

func TestRegister_UnavailableFailsFast(t *testing.T) {
	st := &scriptedStore{errs: []error{
		store.NewWriteError(store.KindUnavailable, errors.New("connection reset")),
	}}
	svc := newService(t, st)

	_, outcome, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	pending, failed := svc.QueueDepths()
	assert.Equal(t, 0, pending, "non-rate-limit errors skip the retry queue")
	assert.Equal(t, 1, failed)
}

func TestRegister_OpenCircuitQueuesWithoutTouchingStore(t *testing.T) {
	breaker := circuit.New("store", circuit.WithFailureThreshold(1))
	breaker.RecordFailure()

	st := &scriptedStore{}
	svc := newService(t, st, WithCircuitBreaker(breaker))

	_, outcome, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.Empty(t, st.records)
}

func TestDrainOnce_RetriesAndRecords(t *testing.T) {
	st := &scriptedStore{errs: []error{
		store.NewWriteError(store.KindRateLimited, errors.New("quota exceeded")),
	}}
	svc := newService(t, st)

	_, outcome, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 1})
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, outcome)

	res, err := svc.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, 1, res.Recorded)
	assert.Len(t, st.records, 1)

	pending, _ := svc.QueueDepths()
	assert.Equal(t, 0, pending)
}

func TestDrainOnce_HonorsLinearBackoff(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	st := &scriptedStore{errs: []error{
		store.NewWriteError(store.KindRateLimited, errors.New("quota exceeded")),
		store.NewWriteError(store.KindRateLimited, errors.New("quota exceeded")),
	}}
	svc := newService(t, st, WithClock(func() time.Time { return *clock }))

	_, _, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 1})
	require.NoError(t, err)

	// First retry fails rate-limited and requeues with a one-backoff delay.
	res, err := svc.DrainOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, res.Requeued)

	// Immediately after, the item is not yet due: no retry happens.
	res, err = svc.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Retried)

	// After the backoff has elapsed, the retry runs and succeeds.
	*clock = now.Add(5 * time.Second)
	res, err = svc.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recorded)
}

func TestDrainOnce_ExhaustedRetriesMoveToFailedQueue(t *testing.T) {
	rateLimited := store.NewWriteError(store.KindRateLimited, errors.New("quota exceeded"))
	st := &scriptedStore{errs: []error{rateLimited, rateLimited, rateLimited, rateLimited}}

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc := newService(t, st, WithClock(func() time.Time { return *clock }))

	_, _, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 1})
	require.NoError(t, err)

	// MaxAttempts is 3; the initial try counted as attempt 1.
	for i := 0; i < 2; i++ {
		*clock = clock.Add(time.Minute)
		_, err = svc.DrainOnce(context.Background())
		require.Error(t, err)
	}

	pending, failed := svc.QueueDepths()
	assert.Equal(t, 0, pending)
	assert.Equal(t, 1, failed)

	records := svc.FailedRecords()
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Attempts)
}

func TestRegister_EmitsAuditEvents(t *testing.T) {
	sink := audit.NewMemorySink()
	st := &scriptedStore{}
	svc := newService(t, st, WithAuditPublisher(audit.NewPublisher(sink)))

	_, _, err := svc.Register(context.Background(), completeFields(), Identity{UserID: 77})
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionRegistrationRecorded, events[0].Action)
	assert.Equal(t, "77", events[0].UserID)
}
