package catalog

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of a service failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindStore      Kind = "store"
)

// Sentinels for errors.Is checks; they match any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "invalid book"}
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "Book not found"}
	ErrStore      = &Error{Kind: KindStore, Message: "store failure"}
)

// Error is the tagged failure returned by every Service operation.
type Error struct {
	Kind    Kind
	Field   string // set for validation failures
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on kind so callers can write errors.Is(err, catalog.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func notFound() *Error {
	return &Error{Kind: KindNotFound, Message: ErrNotFound.Message}
}

func storeError(op string, cause error) *Error {
	return &Error{Kind: KindStore, Message: op + " failed", cause: cause}
}

// KindOf reports the kind of err. Errors that did not come from this package
// are treated as store failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}
