// Package apierr defines the error kinds surfaced to API callers.
package apierr

import (
	"errors"
	"fmt"

	"github.com/jacentio/fundraiser/store"
)

// Kind is the category reported to the caller as the GraphQL errorType.
type Kind string

const (
	Validation        Kind = "ValidationException"
	BadRequest        Kind = "BadRequest"
	Unauthorized      Kind = "Unauthorized"
	Forbidden         Kind = "Forbidden"
	NotFound          Kind = "NotFound"
	Conflict          Kind = "ConflictException"
	RateLimitExceeded Kind = "RateLimitExceeded"
	CatalogInUse      Kind = "CatalogInUse"
	Internal          Kind = "InternalServerError"
)

// Error is a categorized, caller-visible error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: NotFound}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error   { return New(Validation, format, args...) }
func BadRequestf(format string, args ...any) *Error   { return New(BadRequest, format, args...) }
func Unauthorizedf(format string, args ...any) *Error { return New(Unauthorized, format, args...) }
func Forbiddenf(format string, args ...any) *Error    { return New(Forbidden, format, args...) }
func NotFoundf(format string, args ...any) *Error     { return New(NotFound, format, args...) }
func Conflictf(format string, args ...any) *Error     { return New(Conflict, format, args...) }
func Internalf(format string, args ...any) *Error     { return New(Internal, format, args...) }

// KindOf returns the kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromCondition translates a failed storage precondition into a domain error
// of the given kind. Every other error passes through unchanged.
func FromCondition(err error, kind Kind, format string, args ...any) error {
	if errors.Is(err, store.ErrConditionFailed) {
		return New(kind, format, args...)
	}
	return err
}
