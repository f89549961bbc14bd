package pipeline

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error category surfaced to callers.
type Kind string

const (
	KindInvalidParameter   Kind = "InvalidParameter"
	KindInvalidColorSpec   Kind = "InvalidColorSpec"
	KindDocumentUnreadable Kind = "DocumentUnreadable"
	KindNoPagesMatched     Kind = "NoPagesMatched"
	KindEmptyInput         Kind = "EmptyInput"
	KindSessionNotFound    Kind = "SessionNotFound"
	KindNotFound           Kind = "NotFound"
	KindInvalidState       Kind = "InvalidState"
)

// Error carries a taxonomy kind plus a human message identifying the
// offending field or entry.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a pipeline error for the given kind.
func New(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a pipeline error so callers can still
// inspect the underlying failure with errors.Is/As.
func Wrap(kind Kind, field string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the taxonomy kind from err, or "" if err is not a
// pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
