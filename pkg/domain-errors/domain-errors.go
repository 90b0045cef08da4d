package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeMalformedInput          Code = "malformed_input"
	CodeIncomplete              Code = "incomplete"
	CodeUserNotFound            Code = "user_not_found"
	CodeDestinationUnrecognized Code = "destination_unrecognized"
	CodeStoreWriteFailed        Code = "store_write_failed"
	CodeRateLimited             Code = "rate_limited"
	CodeTimeout                 Code = "timeout"
	CodeInternal                Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// Fields carries the affected field names for CodeIncomplete errors so the
	// caller can name them when re-prompting.
	Fields []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewIncomplete creates an incomplete-submission error carrying the missing field names.
func NewIncomplete(msg string, fields []string) error {
	return &Error{Code: CodeIncomplete, Message: msg, Fields: fields}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err, Fields: existing.Fields}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// MissingFields returns the field names attached to an incomplete error, or nil.
func MissingFields(err error) []string {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeIncomplete {
		return e.Fields
	}
	return nil
}
