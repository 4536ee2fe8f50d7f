package errors

import (
	"fmt"
)

// Error is the structured error type for searchlab.
// It carries a stable code so callers can classify failures without
// string matching, and an optional cause for error chain support.
type Error struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_ARGUMENT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Provider, ...).
	Category Category

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with *Error values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// The category is derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new Error with a formatted message and no cause.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message. Returns nil for a nil err.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// InvalidArgument creates a validation error for an out-of-range or
// otherwise unusable argument.
func InvalidArgument(format string, args ...any) *Error {
	return Newf(ErrCodeInvalidArgument, format, args...)
}

// ZeroNorm creates a validation error for a vector that cannot be
// unit-normalized.
func ZeroNorm(format string, args ...any) *Error {
	return Newf(ErrCodeZeroNormVector, format, args...)
}

// Upstream wraps a search provider failure. The cause is preserved
// unchanged so callers can inspect the original error.
func Upstream(err error) *Error {
	return Wrap(ErrCodeUpstream, err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreError creates an index/payload store error.
func StoreError(message string, cause error) *Error {
	return New(ErrCodeStoreIO, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsInvalidArgument reports whether err carries a validation code.
func IsInvalidArgument(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidArgument, ErrCodeDimensionMismatch, ErrCodeZeroNormVector:
		return true
	}
	return false
}

// GetCode extracts the error code from an *Error anywhere in the chain.
// Returns empty string if no *Error is found.
func GetCode(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// GetCategory extracts the category from an *Error anywhere in the chain.
// Returns empty string if no *Error is found.
func GetCategory(err error) Category {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Category
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
