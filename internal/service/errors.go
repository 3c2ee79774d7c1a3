package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in HistoryServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrGenerationNotFound indicates that no history entry exists for a task.
	// API layer should map this to HTTP 404 Not Found.
	ErrGenerationNotFound = errors.New("generation not found")
)

// HistoryServiceError wraps errors from the history service with context.
type HistoryServiceError struct {
	// Operation is the operation that failed (e.g., "record", "list")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface.
func (e *HistoryServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("history service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("history service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *HistoryServiceError) Unwrap() error {
	return e.Err
}

// NewHistoryServiceError creates a new HistoryServiceError.
func NewHistoryServiceError(operation, message string, err error) *HistoryServiceError {
	return &HistoryServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
