// Package apperror defines the error kinds shared by the repository
// engine and the HTTP surface that sits in front of it.
package apperror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an engine error so that callers at the HTTP boundary
// can map it to a status code without inspecting error strings.
type Kind int

const (
	// Internal covers unexpected I/O failures, malformed on-disk state,
	// and recovered panics.
	Internal Kind = iota
	// NotFound is returned when a packet id or file hash is absent.
	NotFound
	// InvalidInput covers malformed ids/hashes, bad JSON bodies, failed
	// server-config checks, invalid query strings, and ingestion
	// preconditions (missing files or dependencies).
	InvalidInput
	// HashMismatch is a specialisation of InvalidInput carrying both the
	// claimed and the computed digest.
	HashMismatch
	// AlreadyExists is returned when a write would overwrite an
	// immutable artefact with different content.
	AlreadyExists
	// UnexpectedEOF is returned when a request body is truncated.
	UnexpectedEOF
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NOT_FOUND"
	case InvalidInput:
		return "INVALID_INPUT"
	case HashMismatch:
		return "HASH_MISMATCH"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case UnexpectedEOF:
		return "UNEXPECTED_EOF"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the engine's error type. It carries a Kind for status-code
// mapping, a human-readable detail message, and an optional wrapped
// cause for logging.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds an Error of the given kind with a formatted detail message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind, preserving cause for logging
// while keeping detail as the message shown to clients.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// NotFoundf is a convenience constructor for the common NotFound case.
func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, format, args...)
}

// InvalidInputf is a convenience constructor for the common InvalidInput case.
func InvalidInputf(format string, args ...interface{}) *Error {
	return New(InvalidInput, format, args...)
}

// AlreadyExistsf is a convenience constructor for the common AlreadyExists case.
func AlreadyExistsf(format string, args ...interface{}) *Error {
	return New(AlreadyExists, format, args...)
}

// Internalf is a convenience constructor for the common Internal case.
func Internalf(format string, args ...interface{}) *Error {
	return New(Internal, format, args...)
}

// As extracts an *Error from err, returning (nil, false) if err is not
// (or does not wrap) one.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is an *Error, or Internal
// otherwise — any error that escapes the engine without being
// classified is treated as an internal failure.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}
