package generation

import (
	"errors"
	"fmt"

	"github.com/phrazzld/imagegen-api/internal/domain"
)

// Common errors returned by generation adapters. Every failure an adapter
// reports wraps exactly one of these.
var (
	// ErrValidation is returned when caller-supplied input is invalid.
	// Such input is never sent upstream.
	ErrValidation = domain.ErrValidation

	// ErrConfiguration is returned when the upstream credential is missing
	// or rejected.
	ErrConfiguration = errors.New("invalid generator configuration")

	// ErrMissingCredential is returned when no credential was configured at
	// all. It wraps ErrConfiguration.
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrConfiguration)

	// ErrInvalidCredential is returned when the upstream rejects the
	// credential. It wraps ErrConfiguration.
	ErrInvalidCredential = fmt.Errorf("%w: invalid credentials", ErrConfiguration)

	// ErrQuota is returned when the upstream account has insufficient balance.
	ErrQuota = errors.New("insufficient upstream balance")

	// ErrThrottled is returned when the upstream rate limits the caller.
	ErrThrottled = errors.New("rate limited by upstream")

	// ErrUpstream is returned for any other non-success or malformed
	// upstream response. Use errors.As with *UpstreamError for details.
	ErrUpstream = errors.New("upstream error")

	// ErrConnectivity is returned for transport-level failures, including
	// response bodies that cannot be decoded.
	ErrConnectivity = errors.New("upstream unreachable")

	// ErrTimeoutPolicy is returned when the local attempt budget is exhausted
	// while the task is still in progress.
	ErrTimeoutPolicy = errors.New("generation timed out")

	// ErrTaskFailed is wrapped by TaskFailure when the upstream reports the
	// task itself as failed.
	ErrTaskFailed = errors.New("generation task failed")
)

// TaskFailure is the terminal error of a run whose task the upstream
// reported as Failed. Reason is the TaskState reason.
type TaskFailure struct {
	Reason string
}

// Error implements the error interface.
func (e *TaskFailure) Error() string {
	if e.Reason == "" {
		return ErrTaskFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrTaskFailed, e.Reason)
}

// Unwrap allows errors.Is(err, ErrTaskFailed) to match.
func (e *TaskFailure) Unwrap() error {
	return ErrTaskFailed
}

// Operation names used on UpstreamError.
const (
	OpSubmit = "submit"
	OpStatus = "status"
)

// UpstreamError carries the details of a non-success upstream response.
type UpstreamError struct {
	// Op is OpSubmit or OpStatus.
	Op string
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Code is the numeric code embedded in the response body, if any.
	Code int
	// Message is a short internal description. It is never shown to users.
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s failed (http %d, code %d): %s",
			ErrUpstream, e.Op, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s failed (http %d): %s", ErrUpstream, e.Op, e.StatusCode, e.Message)
}

// Unwrap allows errors.Is(err, ErrUpstream) to match.
func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// TimeoutMessage is shown when the attempt budget runs out.
const TimeoutMessage = "Generation is taking longer than expected. Please try again."

// UserMessage returns the single human-readable message for err. It never
// includes upstream bodies, credentials, or internal details.
func UserMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var vErr *domain.ValidationError
	var upErr *UpstreamError
	var taskErr *TaskFailure

	switch {
	case errors.As(err, &taskErr):
		return FailureMessage(taskErr.Reason)
	case errors.As(err, &vErr):
		return vErr.Message
	case errors.Is(err, ErrValidation):
		return "Invalid request"
	case errors.Is(err, ErrConfiguration):
		return "Invalid API key. Please check configuration."
	case errors.Is(err, ErrQuota):
		return "Insufficient credits. Please add funds to your account."
	case errors.Is(err, ErrThrottled):
		return "Rate limit reached. Please wait a moment and try again."
	case errors.As(err, &upErr):
		if upErr.Op == OpStatus {
			return "Failed to check status. Please try again."
		}
		return "Failed to generate image. Please try again."
	case errors.Is(err, ErrUpstream):
		return "Failed to generate image. Please try again."
	case errors.Is(err, ErrConnectivity):
		return "Failed to connect. Please try again."
	case errors.Is(err, ErrTimeoutPolicy):
		return TimeoutMessage
	default:
		return "An unexpected error occurred"
	}
}
