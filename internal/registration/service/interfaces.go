package service

import (
	"context"

	"promoreg/internal/audit"
	"promoreg/internal/registration/models"
)

// RecordStore is the slice of the store contract the recorder needs.
type RecordStore interface {
	Append(ctx context.Context, record *models.Record) error
}

// MembershipChecker reports whether a platform user belongs to the campaign
// group. Implementations collapse every transport error to
// MembershipUnknown; the registration pipeline never blocks or fails because
// membership cannot be determined.
type MembershipChecker interface {
	Check(ctx context.Context, userID int64) models.MembershipStatus
}

// AuditPublisher receives registration lifecycle events. Optional.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
