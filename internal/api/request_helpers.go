package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/imagegen-api/internal/domain"
)

// getPathUUID extracts a UUID from the URL path parameters.
//
// Returns:
//   - (uuid.UUID, nil): The parsed UUID if valid
//   - (uuid.Nil, error): a *domain.ValidationError if the parameter is missing or invalid
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, &domain.ValidationError{Field: paramName, Message: "Missing " + paramName + " parameter"}
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: paramName, Message: "Invalid " + paramName + " format"}
	}

	return id, nil
}

// getLimitParam reads the optional "limit" query parameter. An absent value
// returns 0, which callers treat as "use the default".
func getLimitParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, &domain.ValidationError{Field: "limit", Message: "limit must be a positive integer"}
	}
	return limit, nil
}

// newGenerationRequest converts a decoded body into a validated domain
// request. Aspect ratio problems are reported the same way as prompt
// problems.
func newGenerationRequest(body GenerateRequest) (domain.GenerationRequest, error) {
	return domain.NewGenerationRequest(body.Prompt, domain.AspectRatio(strings.TrimSpace(body.AspectRatio)))
}
