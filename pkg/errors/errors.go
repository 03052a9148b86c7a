// Package errors provides structured error types for modscan.
//
// Discovery and resolution collect most failures as diagnostics instead of
// returning them, but every diagnostic still carries one of the codes below
// so callers can classify it without string matching.
//
// # Error Codes
//
//   - INVALID_*: metadata or input that failed validation
//   - MISSING_METADATA: an archive without a metadata file
//   - NESTING_TOO_DEEP: nested archive expansion hit the depth guard
//   - FINDER_FAILED: a candidate finder failed (fatal for the run)
//   - RESOLUTION_CONFLICT: a candidate was rejected during resolution
//   - CYCLE: an attempt to make a candidate (transitively) contain itself
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidMetadata, "mod id %q is invalid", id)
//	if errors.Is(err, errors.ErrCodeInvalidMetadata) {
//	    // route the candidate to the non-conforming set
//	}
//
//	err := errors.Wrap(errors.ErrCodeFinderFailed, origErr, "finder %d", i)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidMetadata Code = "INVALID_METADATA"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Discovery errors
	ErrCodeMissingMetadata Code = "MISSING_METADATA"
	ErrCodeNestingTooDeep  Code = "NESTING_TOO_DEEP"
	ErrCodeFinderFailed    Code = "FINDER_FAILED"
	ErrCodeArchive         Code = "ARCHIVE_ERROR"
	ErrCodeCycle           Code = "CYCLE"

	// Resolution errors
	ErrCodeResolutionConflict Code = "RESOLUTION_CONFLICT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code,
// so an outer error with a different code does not hide an inner match.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
