package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is absent, or exists but is
	// not owned by the caller (the two are deliberately indistinguishable).
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUser is returned when registering an already-taken
	// normalized username.
	ErrDuplicateUser = errors.New("username already exists")
	// ErrInvalidCredential is returned when a PIN does not match.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrStoreUnavailable is returned when the store cannot be opened or
	// is used before Open.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports a malformed or missing input field. It is
// always recoverable locally; the message is field-specific.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// WriteError wraps a failed or aborted durable commit. It is surfaced
// as-is; retrying is the caller's decision since only the caller knows
// whether re-submission would duplicate a logical operation.
type WriteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
