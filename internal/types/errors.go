package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for dcaf errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Graph backend error codes
const (
	GRAPH_CONNECTION_FAILED ErrorCode = "GRAPH_CONNECTION_FAILED"
	GRAPH_QUERY_FAILED      ErrorCode = "GRAPH_QUERY_FAILED"
	GRAPH_SESSION_EXPIRED   ErrorCode = "GRAPH_SESSION_EXPIRED"
	GRAPH_READ_ONLY         ErrorCode = "GRAPH_READ_ONLY"
	GRAPH_INVALID_CONFIG    ErrorCode = "GRAPH_INVALID_CONFIG"
)

// Vector index error codes
const (
	INDEX_UNAVAILABLE    ErrorCode = "INDEX_UNAVAILABLE"
	INDEX_SEARCH_FAILED  ErrorCode = "INDEX_SEARCH_FAILED"
	INDEX_INVALID_CONFIG ErrorCode = "INDEX_INVALID_CONFIG"
)

// Security guard error codes
const (
	GUARD_ACCESS_DENIED    ErrorCode = "GUARD_ACCESS_DENIED"
	GUARD_MISSING_TENANT   ErrorCode = "GUARD_MISSING_TENANT"
	GUARD_UNSCOPABLE_QUERY ErrorCode = "GUARD_UNSCOPABLE_QUERY"
)

// Orchestration error codes
const (
	CONTEXT_EXTRACTION_FAILED ErrorCode = "CONTEXT_EXTRACTION_FAILED"
	AGENT_RUN_FAILED          ErrorCode = "AGENT_RUN_FAILED"
)

// DcafError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type DcafError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *DcafError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *DcafError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a DcafError with the same Code.
func (e *DcafError) Is(target error) bool {
	var dcafErr *DcafError
	if errors.As(target, &dcafErr) {
		return e.Code == dcafErr.Code
	}
	return false
}

// NewError creates a new non-retryable DcafError with the given code and message.
func NewError(code ErrorCode, message string) *DcafError {
	return &DcafError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable DcafError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *DcafError {
	return &DcafError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable DcafError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *DcafError {
	return &DcafError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// WrapRetryableError creates a retryable DcafError that wraps an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *DcafError {
	return &DcafError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// IsRetryable reports whether err is a DcafError marked as retryable.
// Non-DcafError values are treated as non-retryable for safety.
func IsRetryable(err error) bool {
	var dcafErr *DcafError
	if errors.As(err, &dcafErr) {
		return dcafErr.Retryable
	}
	return false
}
