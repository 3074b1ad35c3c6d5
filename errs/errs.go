// Package errs defines the error kinds shared by every vectable package.
//
// Each kind is a sentinel. Errors produced by this module wrap a sentinel so
// callers classify them with errors.Is:
//
//	if errors.Is(err, errs.ErrInvalidInput) {
//	    // bad configuration or request
//	}
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or unsupported user-supplied configuration:
	// unknown index kinds, unsupported languages, bad distance types, malformed
	// URLs, non-ASCII header values and 4xx HTTP responses.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRuntime marks unexpected failures surfaced from storage or transport,
	// including non-4xx HTTP failures.
	ErrRuntime = errors.New("runtime error")

	// ErrNotFound is returned when a table, index or blob does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating something that exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotSupported is returned for operations a backend does not offer.
	ErrNotSupported = errors.New("not supported")

	// ErrConflict is returned when a commit lost against a concurrent writer
	// and could not be retried.
	ErrConflict = errors.New("commit conflict")

	// ErrBuilderSpent is returned when a merge-insert builder is used after
	// Execute consumed it.
	ErrBuilderSpent = &Error{Kind: ErrInvalidInput, Message: "merge insert builder already executed"}
)

// Error is a classified error with an optional underlying cause.
type Error struct {
	// Kind is one of the sentinel errors of this package.
	Kind    error
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.cause }

// New returns an error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind caused by err.
// It returns nil if err is nil.
func Wrap(kind error, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: err}
}

// InvalidInput returns an ErrInvalidInput error.
func InvalidInput(format string, args ...any) *Error {
	return New(ErrInvalidInput, format, args...)
}

// Runtime returns an ErrRuntime error.
func Runtime(format string, args ...any) *Error {
	return New(ErrRuntime, format, args...)
}

// NotFound returns an ErrNotFound error.
func NotFound(format string, args ...any) *Error {
	return New(ErrNotFound, format, args...)
}

// NotSupported returns an ErrNotSupported error.
func NotSupported(format string, args ...any) *Error {
	return New(ErrNotSupported, format, args...)
}

// KindOf returns the sentinel kind of err, or nil if err carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrRuntime, ErrNotFound, ErrAlreadyExists, ErrNotSupported, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
