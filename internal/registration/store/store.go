// Package store persists registration records against an append-only tabular
// backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"promoreg/internal/registration/models"
)

// ErrNotFound is returned when no record exists for the requested user id.
var ErrNotFound = errors.New("record not found")

// ErrorKind classifies a write failure so the retry pipeline can decide
// between retrying and failing fast to the backup path.
type ErrorKind int

const (
	// KindUnavailable covers timeouts, connectivity, and any unclassified
	// failure. Not retried; the record goes straight to the failed queue.
	KindUnavailable ErrorKind = iota
	// KindRateLimited marks backend throughput rejections. Retried with
	// linear backoff up to the attempt budget.
	KindRateLimited
	// KindInvalid marks rejections the backend will never accept (schema or
	// payload problems). Never retried.
	KindInvalid
)

// WriteError is the typed result of a failed store write. Store
// implementations never let raw client errors cross the package boundary.
type WriteError struct {
	Kind ErrorKind
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store write failed (%s): %v", e.kindString(), e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) kindString() string {
	switch e.Kind {
	case KindRateLimited:
		return "rate_limited"
	case KindInvalid:
		return "invalid"
	default:
		return "unavailable"
	}
}

// NewWriteError wraps a backend error with a classification.
func NewWriteError(kind ErrorKind, err error) error {
	return &WriteError{Kind: kind, Err: err}
}

// KindOf extracts the classification from an error chain, defaulting to
// KindUnavailable for anything unclassified.
func KindOf(err error) ErrorKind {
	var we *WriteError
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindUnavailable
}

// Row is a located record: the record itself plus where the backend keeps it,
// so a later mutation can target the same row.
type Row struct {
	Record *models.Record

	// Worksheet is the containing worksheet title for spreadsheet backends,
	// empty otherwise.
	Worksheet string

	// Position orders rows by creation within the store. For spreadsheet
	// backends it is the 1-based row number within Worksheet.
	Position int64
}

// WorksheetStats reports usage of one worksheet of a spreadsheet backend.
type WorksheetStats struct {
	Name        string  `json:"name"`
	Rows        int     `json:"rows"`
	CapacityPct float64 `json:"capacity_pct"`
}

// Stats summarizes store usage for the operator surface.
type Stats struct {
	Backend          string           `json:"backend"`
	TotalRecords     int              `json:"total_records"`
	CurrentWorksheet string           `json:"current_worksheet,omitempty"`
	Worksheets       []WorksheetStats `json:"worksheets,omitempty"`
}

// Store is the contract shared by all record backends.
//
// Append adds a record; it is append-only, records are never deleted.
// FindLatestByUserID locates the most recently created record for a platform
// user id (a user may submit multiple times, producing multiple rows).
// UpdateAssignment rewrites only the assignment columns of a located row.
type Store interface {
	Append(ctx context.Context, record *models.Record) error
	FindLatestByUserID(ctx context.Context, userID string) (*Row, error)
	UpdateAssignment(ctx context.Context, row *Row) error
	Stats(ctx context.Context) (*Stats, error)
}
