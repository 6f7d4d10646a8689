// Package errors provides structured error types for pathminer.
//
// Errors carry a machine-readable [Code] so that the CLI, the HTTP API and
// library callers can react to a failure category without string matching.
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: configuration or input validation failures
//   - NOT_FOUND: unknown runs, vertices or datasets
//   - CANCELLED: a solve was stopped on request (informational, not a failure)
//   - INTERNAL_ERROR: invariant violations recovered at the dispatcher
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "K must be >= 0, got %d", k)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // report to the user
//	}
//
//	err = errors.Wrap(errors.ErrCodeInvalidGraph, cause, "load %s", path)
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
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidFormula  Code = "INVALID_FORMULA"
	ErrCodeInvalidGraph    Code = "INVALID_GRAPH"
	ErrCodeInvalidStrategy Code = "INVALID_STRATEGY"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Run lifecycle
	ErrCodeCancelled Code = "CANCELLED"

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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
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

// PanicError wraps a value recovered from a panic inside a solver so it can
// travel through ordinary error returns.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("solver panic: %v", e.Value)
}

// Code returns the error code for this error type.
func (e *PanicError) Code() Code {
	return ErrCodeInternal
}

// FromPanic converts a recovered value into an *Error with ErrCodeInternal.
func FromPanic(v any) *Error {
	return &Error{
		Code:    ErrCodeInternal,
		Message: "solve aborted",
		Cause:   &PanicError{Value: v},
	}
}
