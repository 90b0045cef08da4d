// Package models defines the registration record and its field vocabulary.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MembershipStatus is the tri-state result of the group membership check.
type MembershipStatus string

const (
	MembershipInGroup    MembershipStatus = "IN_GROUP"
	MembershipNotInGroup MembershipStatus = "NOT_IN_GROUP"
	MembershipUnknown    MembershipStatus = "UNKNOWN"
)

// PendingDestination is the sentinel assignment for a record that has been
// submitted but whose user has not yet selected a destination.
const PendingDestination = "PENDING"

// TimeLayout is the campaign's timestamp format, kept byte-compatible with
// the historical spreadsheet rows.
const TimeLayout = "2006-01-02 15:04:05"

// FieldKey names one of the canonical form fields.
type FieldKey string

const (
	FieldFullName        FieldKey = "full_name"
	FieldPhone           FieldKey = "phone"
	FieldBank            FieldKey = "bank"
	FieldAccountNumber   FieldKey = "account_number"
	FieldEmail           FieldKey = "email"
	FieldChatDisplayName FieldKey = "chat_display_name"
	FieldChatHandle      FieldKey = "chat_handle"
)

// FieldOrder is the fixed positional order of the 7-line form template.
var FieldOrder = []FieldKey{
	FieldFullName,
	FieldPhone,
	FieldBank,
	FieldAccountNumber,
	FieldEmail,
	FieldChatDisplayName,
	FieldChatHandle,
}

// Record is one registration row. A record is immutable once written except
// for AssignedDestination and DestinationHistory, which only the click
// tracker touches.
type Record struct {
	ID uuid.UUID

	FullName        string
	Phone           string
	Bank            string
	AccountNumber   string
	Email           string
	ChatDisplayName string
	ChatHandle      string

	// Transport-supplied identity, never user-typed. PlatformUserID is the
	// join key between a submission and later click events.
	PlatformUsername string
	PlatformUserID   string

	MembershipStatus MembershipStatus
	SubmittedAt      time.Time

	AssignedDestination string
	DestinationHistory  []string
}

// Field returns the user-typed value for a canonical field key.
func (r *Record) Field(key FieldKey) string {
	switch key {
	case FieldFullName:
		return r.FullName
	case FieldPhone:
		return r.Phone
	case FieldBank:
		return r.Bank
	case FieldAccountNumber:
		return r.AccountNumber
	case FieldEmail:
		return r.Email
	case FieldChatDisplayName:
		return r.ChatDisplayName
	case FieldChatHandle:
		return r.ChatHandle
	}
	return ""
}

// Clone duplicates the user-supplied and identity fields into a brand-new
// record with a fresh ID and timestamp. Assignment fields are left zeroed for
// the caller to fill.
func (r *Record) Clone(now time.Time) *Record {
	return &Record{
		ID:               uuid.New(),
		FullName:         r.FullName,
		Phone:            r.Phone,
		Bank:             r.Bank,
		AccountNumber:    r.AccountNumber,
		Email:            r.Email,
		ChatDisplayName:  r.ChatDisplayName,
		ChatHandle:       r.ChatHandle,
		PlatformUsername: r.PlatformUsername,
		PlatformUserID:   r.PlatformUserID,
		MembershipStatus: r.MembershipStatus,
		SubmittedAt:      now,
	}
}

// HistoryColumn renders DestinationHistory in the comma-joined column format.
func (r *Record) HistoryColumn() string {
	return strings.Join(r.DestinationHistory, ",")
}

// ParseHistory parses a comma-joined history column.
func ParseHistory(column string) []string {
	if column == "" {
		return nil
	}
	parts := strings.Split(column, ",")
	history := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			history = append(history, p)
		}
	}
	return history
}

// Columns renders the record in the store's fixed column order.
func (r *Record) Columns() []string {
	return []string{
		r.FullName,
		r.Phone,
		r.Bank,
		r.AccountNumber,
		r.Email,
		r.ChatDisplayName,
		r.ChatHandle,
		r.PlatformUsername,
		r.PlatformUserID,
		string(r.MembershipStatus),
		r.SubmittedAt.Format(TimeLayout),
		r.AssignedDestination,
		r.HistoryColumn(),
	}
}

// ColumnHeader is the header row matching Columns.
var ColumnHeader = []string{
	"full_name",
	"phone",
	"bank",
	"account_number",
	"email",
	"chat_display_name",
	"chat_handle",
	"platform_username",
	"platform_user_id",
	"membership_status",
	"submitted_at",
	"assigned_destination",
	"destination_history",
}

// UserIDColumn is the zero-based index of platform_user_id in the column order.
const UserIDColumn = 8

// FromColumns rebuilds a record from a stored row. Timestamps that fail to
// parse are zeroed rather than rejected, since historical rows predate this
// code.
func FromColumns(cols []string, loc *time.Location) *Record {
	get := func(i int) string {
		if i < len(cols) {
			return cols[i]
		}
		return ""
	}
	submittedAt, _ := time.ParseInLocation(TimeLayout, get(10), loc)
	return &Record{
		FullName:            get(0),
		Phone:               get(1),
		Bank:                get(2),
		AccountNumber:       get(3),
		Email:               get(4),
		ChatDisplayName:     get(5),
		ChatHandle:          get(6),
		PlatformUsername:    get(7),
		PlatformUserID:      get(8),
		MembershipStatus:    MembershipStatus(get(9)),
		SubmittedAt:         submittedAt,
		AssignedDestination: get(11),
		DestinationHistory:  ParseHistory(get(12)),
	}
}
