// Package fault defines the error taxonomy shared by the domain services:
// validation, not-found, conflict, forbidden and dependency failures, plus
// their HTTP status mapping for the handlers.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// Unknown covers errors produced outside the taxonomy.
	Unknown Kind = iota
	// Validation is bad input shape or format.
	Validation
	// NotFound is a missing referenced entity.
	NotFound
	// Conflict is a state collision: overlap, double booking, deleting a
	// booked slot.
	Conflict
	// Forbidden is an actor not entitled to the mutation.
	Forbidden
	// Dependency is a store, mailer or push failure.
	Dependency
)

// Error carries a kind alongside the message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error { return newf(Validation, format, args...) }
func NotFoundf(format string, args ...any) error   { return newf(NotFound, format, args...) }
func Conflictf(format string, args ...any) error   { return newf(Conflict, format, args...) }
func Forbiddenf(format string, args ...any) error  { return newf(Forbidden, format, args...) }

// Dependencyf wraps a lower-level failure as a dependency error.
func Dependencyf(err error, format string, args ...any) error {
	return &Error{Kind: Dependency, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the taxonomy kind from err, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps the error's kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Expected reports whether err is a normal caller-facing outcome that
// should not be logged as an incident.
func Expected(err error) bool {
	switch KindOf(err) {
	case Validation, NotFound, Conflict, Forbidden:
		return true
	}
	return false
}
