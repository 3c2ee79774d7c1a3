package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/imagegen-api/internal/api/shared"
	"github.com/phrazzld/imagegen-api/internal/service"
)

// HistoryHandler serves recorded generations. A nil service means history
// is disabled and every endpoint answers 503.
type HistoryHandler struct {
	history *service.HistoryService
}

// NewHistoryHandler creates a HistoryHandler. history may be nil.
func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List handles GET /api/history?limit=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondWithMappedError(w, r, ErrHistoryDisabled)
		return
	}

	limit, err := getLimitParam(r)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	resp := HistoryResponse{Success: true, Generations: make([]HistoryEntry, 0, len(records))}
	for _, rec := range records {
		resp.Generations = append(resp.Generations, newHistoryEntry(rec))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/history/{task_id}.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondWithMappedError(w, r, ErrHistoryDisabled)
		return
	}

	taskID := strings.TrimSpace(chi.URLParam(r, "task_id"))
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing task_id parameter")
		return
	}

	rec, err := h.history.Get(r.Context(), taskID)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newHistoryEntry(rec))
}
