package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"promoreg/internal/registration/models"
)

// PostgresStore persists registration records in PostgreSQL. The schema lives
// in migrations/0001_registrations.sql.
type PostgresStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewPostgres constructs a PostgreSQL-backed record store. loc is the
// campaign timezone used when scanning timestamps.
func NewPostgres(db *sql.DB, loc *time.Location) *PostgresStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{db: db, loc: loc}
}

const insertRecord = `
INSERT INTO registrations (
	id, full_name, phone, bank, account_number, email,
	chat_display_name, chat_handle, platform_username, platform_user_id,
	membership_status, submitted_at, assigned_destination, destination_history
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// Append inserts the record. Failures come back as *WriteError.
func (s *PostgresStore) Append(ctx context.Context, record *models.Record) error {
	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID,
		record.FullName,
		record.Phone,
		record.Bank,
		record.AccountNumber,
		record.Email,
		record.ChatDisplayName,
		record.ChatHandle,
		record.PlatformUsername,
		record.PlatformUserID,
		string(record.MembershipStatus),
		record.SubmittedAt,
		record.AssignedDestination,
		record.HistoryColumn(),
	)
	if err != nil {
		return NewWriteError(classifyPgError(err), fmt.Errorf("insert registration: %w", err))
	}
	return nil
}

const selectLatest = `
SELECT position, id, full_name, phone, bank, account_number, email,
	chat_display_name, chat_handle, platform_username, platform_user_id,
	membership_status, submitted_at, assigned_destination, destination_history
FROM registrations
WHERE platform_user_id = $1
ORDER BY position DESC
LIMIT 1`

// FindLatestByUserID returns the most recently inserted row for the user id.
func (s *PostgresStore) FindLatestByUserID(ctx context.Context, userID string) (*Row, error) {
	var (
		position    int64
		rec         models.Record
		status      string
		submittedAt time.Time
		history     string
	)
	err := s.db.QueryRowContext(ctx, selectLatest, userID).Scan(
		&position,
		&rec.ID,
		&rec.FullName,
		&rec.Phone,
		&rec.Bank,
		&rec.AccountNumber,
		&rec.Email,
		&rec.ChatDisplayName,
		&rec.ChatHandle,
		&rec.PlatformUsername,
		&rec.PlatformUserID,
		&status,
		&submittedAt,
		&rec.AssignedDestination,
		&history,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("find latest registration: %w", err)
	}

	rec.MembershipStatus = models.MembershipStatus(status)
	rec.SubmittedAt = submittedAt.In(s.loc)
	rec.DestinationHistory = models.ParseHistory(history)
	return &Row{Record: &rec, Position: position}, nil
}

const updateAssignment = `
UPDATE registrations
SET assigned_destination = $1, destination_history = $2
WHERE position = $3`

// UpdateAssignment rewrites the two assignment columns of the located row.
func (s *PostgresStore) UpdateAssignment(ctx context.Context, row *Row) error {
	res, err := s.db.ExecContext(ctx, updateAssignment,
		row.Record.AssignedDestination,
		row.Record.HistoryColumn(),
		row.Position,
	)
	if err != nil {
		return NewWriteError(classifyPgError(err), fmt.Errorf("update assignment: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("position %d: %w", row.Position, ErrNotFound)
	}
	return nil
}

// Stats reports the total row count.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM registrations`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	return &Stats{Backend: "postgres", TotalRecords: total}, nil
}

// HealthCheck pings the database with a short timeout.
func (s *PostgresStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// classifyPgError maps PostgreSQL error classes onto retry semantics.
// Class 53 (insufficient resources) and 57 (operator intervention, including
// query cancellation under load) count as rate-limit-class; classes 22/23/42
// are payload problems the backend will never accept.
func classifyPgError(err error) ErrorKind {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return KindUnavailable
	}
	switch {
	case strings.HasPrefix(pgErr.Code, "53"), strings.HasPrefix(pgErr.Code, "57"):
		return KindRateLimited
	case strings.HasPrefix(pgErr.Code, "22"),
		strings.HasPrefix(pgErr.Code, "23"),
		strings.HasPrefix(pgErr.Code, "42"):
		return KindInvalid
	default:
		return KindUnavailable
	}
}
