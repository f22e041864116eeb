package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown asset, dag, or marker reference.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidation indicates a rejected ordering/filter attribute or a
	// malformed payload.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeConflict indicates a concurrent marker consumption race: the
	// compare-and-delete clear observed an already-absent marker. Resolved
	// inside the scheduler; never surfaced to callers.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeStorage indicates a persistence failure, propagated as-is.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Error is a structured engine error with a code and optional field detail.
type Error struct {
	Code    ErrorCode
	Message string
	Field   string
	Err     error // wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFoundf creates a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrorf creates a Validation error tied to a field.
func ValidationErrorf(field, format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Conflictf creates a Conflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a persistence failure.
func StorageError(err error) *Error {
	return &Error{Code: ErrCodeStorage, Message: err.Error(), Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NotFound error. Handles wrapping.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidation reports whether err is a Validation error. Handles wrapping.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsConflict reports whether err is a Conflict error. Handles wrapping.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }
