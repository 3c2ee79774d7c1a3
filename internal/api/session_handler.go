package api

import (
	"net/http"

	"github.com/phrazzld/imagegen-api/internal/api/shared"
)

// SessionHandler serves the server-side session endpoints.
type SessionHandler struct {
	registry *SessionRegistry
}

// NewSessionHandler creates a SessionHandler over registry.
func NewSessionHandler(registry *SessionRegistry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// Create handles POST /api/sessions. The session's first status query is
// already scheduled when the 202 response is written.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if err := shared.DecodeJSON(r, &body); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	req, err := newGenerationRequest(body)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	sess, err := h.registry.Start(r.Context(), req)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/sessions/"+sess.ID.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, newSessionResponse(sess))
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	sess, err := h.registry.Get(id)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newSessionResponse(sess))
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	if err := h.registry.Remove(id); err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
