package storage

import (
	"errors"
	"fmt"
)

// Error kinds reported by drivers. Match them with errors.Is.
var (
	ErrConnectionFailure   = errors.New("connection failure")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrRowNotFound is reported when a keyed update or delete affects no row.
	ErrRowNotFound = errors.New("row not found")
)

// Error attaches a kind to a driver error.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap returns err tagged with kind, or nil when err is nil.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind carried by err, or nil when it carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrConnectionFailure, ErrConstraintViolation, ErrConcurrencyConflict, ErrRowNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName is the metric and log label for the kind carried by err.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrConnectionFailure:
		return "connection_failure"
	case ErrConstraintViolation:
		return "constraint_violation"
	case ErrConcurrencyConflict:
		return "concurrency_conflict"
	case ErrRowNotFound:
		return "row_not_found"
	default:
		return "unknown"
	}
}
