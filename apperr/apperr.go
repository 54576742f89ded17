// Package apperr holds the failure kinds shared by the scheduling packages.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrSlotConflict        = errors.New("time slot is no longer available")
	ErrHasReservations     = errors.New("provider has reservations and cannot be deleted")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrForbidden           = errors.New("forbidden: insufficient permissions")
	ErrUnauthenticated     = errors.New("authentication required")
)

// ValidationError reports missing or malformed input fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Validation returns nil when no field problems were collected.
func Validation(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Upstream tags err as a failed call to the data store or identity provider.
func Upstream(op string, err error) error {
	return &upstreamError{op: op, err: err}
}

type upstreamError struct {
	op  string
	err error
}

func (e *upstreamError) Error() string { return e.op + ": " + e.err.Error() }

func (e *upstreamError) Unwrap() []error { return []error{ErrUpstreamUnavailable, e.err} }

// Message returns the text shown to a user for err.
func Message(err error) string {
	var v *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &v):
		return "Please check the highlighted fields: " + strings.Join(v.Fields, ", ")
	case errors.Is(err, ErrSlotConflict):
		return "That time was just booked by someone else. Please pick another time."
	case errors.Is(err, ErrHasReservations):
		return "This provider still has reservations and cannot be removed."
	case errors.Is(err, ErrNotFound):
		return "The requested item no longer exists. Please refresh."
	case errors.Is(err, ErrUpstreamUnavailable):
		return "The service is temporarily unavailable. Please try again."
	case errors.Is(err, ErrUnauthenticated):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to perform this action."
	default:
		return "Something went wrong. Please try again."
	}
}
