package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure so transport layers can map it
// to a user-facing response.
type ErrorKind string

const (
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
	KindNotFound     ErrorKind = "not_found"
	KindForbidden    ErrorKind = "forbidden"
	KindValidation   ErrorKind = "validation"
)

// Error is a domain error with a kind and a message suitable for callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Conflictf builds a Conflict error (duplicate tax ID, duplicate pending
// request, double signature).
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidStatef builds an InvalidState error (mutation attempted outside
// the states that permit it).
func InvalidStatef(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a Forbidden error (actor lacks the role or ownership
// the operation requires).
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a ValidationError for malformed input.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the domain kind of err, or "" if err is not a domain error.
func KindOf(err error) ErrorKind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given domain kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
