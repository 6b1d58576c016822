// Package apperrors defines the error taxonomy shared by every mutating
// operation. Callers branch on the stable Kind discriminant; only the
// transport layer turns kinds into user-facing text or status codes.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"    // malformed input, rejected before any store call
	KindOverlap       Kind = "overlap"       // candidate slot conflicts with existing slots
	KindConcurrency   Kind = "concurrency"   // transaction retries exhausted under contention
	KindPersistence   Kind = "persistence"   // store/network failure unrelated to contention
	KindAuthorization Kind = "authorization" // session lacks ownership of the target resource
)

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

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Overlap(format string, args ...any) *Error {
	return New(KindOverlap, format, args...)
}

func Concurrency(err error, format string, args ...any) *Error {
	return Wrap(KindConcurrency, err, format, args...)
}

func Persistence(err error, format string, args ...any) *Error {
	return Wrap(KindPersistence, err, format, args...)
}

func Authorization(format string, args ...any) *Error {
	return New(KindAuthorization, format, args...)
}

// KindOf returns the taxonomy kind of err, or "" for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the whole operation is safe to re-run as-is.
// Only contention failures qualify: nothing was committed.
func Retryable(err error) bool {
	return KindOf(err) == KindConcurrency
}
