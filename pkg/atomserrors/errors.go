// Package atomserrors implements the tagged-union error kinds of spec §7,
// layered over stdlib errors so callers can still use errors.Is/As and
// %w-wrapping the way the rest of atomstore does.
package atomserrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories of spec §7.
type Kind string

const (
	NotFound               Kind = "not_found"
	Unauthorized           Kind = "unauthorized"
	InvalidSignature       Kind = "invalid_signature"
	InvalidTimestamp       Kind = "invalid_timestamp"
	PreviousCommitMismatch Kind = "previous_commit_mismatch"
	SchemaViolation        Kind = "schema_violation"
	ParseError             Kind = "parse_error"
	OutOfBounds            Kind = "out_of_bounds"
	Other                  Kind = "other"
)

// Error is an error tagged with one of the §7 kinds.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped error to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a Kind-tagged error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs a Kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind, preserving it as the cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err if it (or something it wraps) is an
// *Error, and Other otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Is reports whether err's Kind equals kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
