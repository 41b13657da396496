// Package apperrors defines the error kinds the domain managers surface to callers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for callers deciding how to react.
type Kind string

const (
	// KindValidation marks a rejected operation, e.g. a duplicate inscription
	// or an attempt to mutate an owner permission.
	KindValidation Kind = "VALIDATION"
	// KindNotFound marks a lookup of a record that does not exist.
	KindNotFound Kind = "NOT_FOUND"
	// KindForbidden marks an actor lacking the event role for an operation.
	KindForbidden Kind = "FORBIDDEN"
)

// Error is the domain error type with a human-readable message.
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	// ErrValidation matches any validation error through errors.Is.
	ErrValidation = &Error{Kind: KindValidation}
	// ErrNotFound matches any not-found error through errors.Is.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrForbidden matches any forbidden error through errors.Is.
	ErrForbidden = &Error{Kind: KindForbidden}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// WithMetadata attaches key/value context, e.g. the conflicting INEP.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Wrap creates a domain error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
