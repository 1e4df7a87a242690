// Package apperror defines the error taxonomy shared by the job board services.
// Every failure surfaced to a caller carries a Kind and a human-readable reason.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for callers and for HTTP mapping.
type Kind string

const (
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindSecurityViolation Kind = "SECURITY_VIOLATION"
	KindIOFailure         Kind = "IO_FAILURE"
)

// Sentinel errors, one per kind. Use with errors.Is.
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrSecurityViolation = &Error{Kind: KindSecurityViolation}
	ErrIOFailure         = &Error{Kind: KindIOFailure}
)

// Error is a classified failure with a reason safe to show to the caller.
type Error struct {
	Kind   Kind
	Reason string
	// Err is the underlying cause, if any. It is never shown to callers.
	Err error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This lets errors.Is(err, ErrNotFound) match any NotFound error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap creates an Error of the given kind around an underlying cause.
func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// InvalidInput creates an InvalidInput error.
func InvalidInput(reason string) *Error { return New(KindInvalidInput, reason) }

// Unauthenticated creates an Unauthenticated error.
func Unauthenticated(reason string) *Error { return New(KindUnauthenticated, reason) }

// Forbidden creates a Forbidden error.
func Forbidden(reason string) *Error { return New(KindForbidden, reason) }

// NotFound creates a NotFound error.
func NotFound(reason string) *Error { return New(KindNotFound, reason) }

// Conflict creates a Conflict error.
func Conflict(reason string) *Error { return New(KindConflict, reason) }

// KindOf returns the kind of err, or "" if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the caller-facing reason of err, or "" if err is not classified.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// HTTPStatus maps an error kind to the HTTP status class callers observe.
// Unclassified errors map to 500.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
