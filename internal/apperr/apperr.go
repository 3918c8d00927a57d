// Package apperr defines the error taxonomy shared by the entity stores and
// the HTTP layer.
//
// Go Pattern: Errors are values. Instead of an exception hierarchy we use one
// struct with a Kind, and the handlers map each Kind to an HTTP status. Callers
// test for a kind with errors.Is against the exported sentinels:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies an application error.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is the single error type returned by the stores for expected failures.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds field-level messages for validation errors, keyed by the
	// JSON field path (e.g. "invitees.0.email").
	Fields map[string][]string
	Err    error
}

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msg += " (" + strings.Join(keys, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Fields == nil
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation failed"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected error"
	}
}

// NotFound returns a not-found error with a client-facing message.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Forbidden returns an authorization error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Unauthorized returns an authentication error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Conflict returns a conflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Validation returns a validation error carrying field-level messages.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// Field is shorthand for a validation error on a single field.
func Field(field, message string) *Error {
	return Validation(map[string][]string{field: {message}})
}

// KindOf returns the Kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Fields collects field errors and turns them into a single validation
// error. Create it with make(apperr.Fields).
type Fields map[string][]string

// Add records a message for field.
func (f Fields) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Err returns nil when no field errors were recorded.
func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(map[string][]string(f))
}
