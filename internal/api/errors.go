package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/imagegen-api/internal/api/shared"
	"github.com/phrazzld/imagegen-api/internal/generation"
	"github.com/phrazzld/imagegen-api/internal/service"
	"github.com/phrazzld/imagegen-api/internal/store"
	"github.com/phrazzld/imagegen-api/internal/task"
)

// ErrSessionNotFound is returned when a session id is unknown or its
// session has been pruned.
var ErrSessionNotFound = errors.New("session not found")

// ErrHistoryDisabled is returned by history endpoints when no database is
// configured.
var ErrHistoryDisabled = errors.New("generation history is not enabled")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. Upstream HTTP failures keep the upstream status,
// matching what the relay endpoints have always returned.
func MapErrorToStatusCode(err error) int {
	var upErr *generation.UpstreamError

	switch {
	case err == nil:
		return http.StatusOK

	// Bad request errors
	case errors.Is(err, generation.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// A missing key is our misconfiguration, a rejected one is the caller's.
	case errors.Is(err, generation.ErrMissingCredential):
		return http.StatusInternalServerError
	case errors.Is(err, generation.ErrConfiguration):
		return http.StatusUnauthorized

	case errors.Is(err, generation.ErrQuota):
		return http.StatusPaymentRequired
	case errors.Is(err, generation.ErrThrottled):
		return http.StatusTooManyRequests

	case errors.As(err, &upErr):
		if upErr.StatusCode >= 400 {
			return upErr.StatusCode
		}
		return http.StatusInternalServerError

	case errors.Is(err, generation.ErrTimeoutPolicy):
		return http.StatusGatewayTimeout
	case errors.Is(err, generation.ErrTaskFailed):
		return http.StatusBadGateway

	// Not found errors
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, service.ErrGenerationNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Superseded runs
	case errors.Is(err, task.ErrAbandoned),
		errors.Is(err, task.ErrClosed):
		return http.StatusConflict

	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, service.ErrGenerationNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Generation not found"
	case errors.Is(err, task.ErrAbandoned),
		errors.Is(err, task.ErrClosed):
		return "Generation was cancelled"
	case errors.Is(err, ErrHistoryDisabled):
		return "Generation history is not enabled"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	default:
		return generation.UserMessage(err)
	}
}

// respondWithMappedError writes the status and safe message for err.
// Credential and quota failures are logged at WARN since an operator
// must act on them.
func respondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)

	if errors.Is(err, generation.ErrConfiguration) || errors.Is(err, generation.ErrQuota) {
		shared.RespondWithErrorAndLog(w, r, status, msg, err, shared.WithElevatedLogLevel())
		return
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}
