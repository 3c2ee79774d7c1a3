package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when caller-supplied input fails validation.
	// Input that fails validation is never sent upstream.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidAspectRatio is returned when an aspect ratio is not one of
	// the supported values.
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")
)

// ValidationError describes a single invalid field of a request. Message is
// safe to show to end users.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrValidation) to match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
