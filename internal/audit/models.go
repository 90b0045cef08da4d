// Package audit captures lifecycle events from domain logic and fans them out
// to pluggable sinks.
package audit

import "time"

// Action names one auditable event.
type Action string

const (
	ActionRegistrationRecorded Action = "registration_recorded"
	ActionRegistrationQueued   Action = "registration_queued"
	ActionRegistrationFailed   Action = "registration_failed"
	ActionClickAssigned        Action = "click_assigned"
	ActionClickReassigned      Action = "click_reassigned"
	ActionClickDropped         Action = "click_dropped"
)

// Event is emitted from domain logic. Keep it transport-agnostic so sinks can
// fan out without knowing where it came from.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      Action    `json:"action"`
	UserID      string    `json:"user_id"`
	Destination string    `json:"destination,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}
