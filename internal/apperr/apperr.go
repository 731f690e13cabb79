// Package apperr carries the error taxonomy shared by the domain packages
// and the HTTP layer: Validation, NotFound, Store and Internal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for status-code mapping.
type Kind int

const (
	// KindInternal is an unexpected or programmer error.
	KindInternal Kind = iota
	// KindValidation is missing or malformed input.
	KindValidation
	// KindNotFound is a referenced object that does not exist.
	KindNotFound
	// KindStore is an underlying data-store failure.
	KindStore
)

// Error is a kinded error that may wrap a cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation error.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Validationf builds a formatted validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found error.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Store wraps a data-store failure.
func Store(msg string, err error) error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

// Internal wraps an unexpected failure.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf walks the error chain and returns the outermost kind.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsValidation reports whether err carries KindValidation.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}
