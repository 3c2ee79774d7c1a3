package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/imagegen-api/internal/api/shared"
	"github.com/phrazzld/imagegen-api/internal/generation"
	"github.com/phrazzld/imagegen-api/internal/platform/logger"
)

// RelayHandler exposes the remote task API to browsers without handing out
// the upstream credential. Each request maps to exactly one upstream call.
type RelayHandler struct {
	gateway generation.Gateway
	logger  *slog.Logger
}

// NewRelayHandler creates a RelayHandler over gateway.
func NewRelayHandler(gateway generation.Gateway, logger *slog.Logger) *RelayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayHandler{
		gateway: gateway,
		logger:  logger.With("component", "relay_handler"),
	}
}

// Generate handles POST /api/generate.
func (h *RelayHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

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

	handle, err := h.gateway.Submit(r.Context(), req)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	log.Info("generation submitted",
		slog.String("task_id", handle.String()),
		slog.String("aspect_ratio", string(req.AspectRatio)))

	shared.RespondWithJSON(w, r, http.StatusOK, GenerateResponse{
		Success: true,
		TaskID:  handle.String(),
		Status:  generation.StatusInProgress.String(),
	})
}

// Status handles GET /api/status?task_id=.
func (h *RelayHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.URL.Query().Get("task_id"))
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing task_id parameter")
		return
	}

	state, err := h.gateway.Status(r.Context(), generation.TaskHandle(taskID))
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newStatusResponse(state))
}

func newStatusResponse(state generation.TaskState) StatusResponse {
	resp := StatusResponse{
		Success: true,
		Status:  state.Status.String(),
		TaskID:  state.Handle.String(),
	}

	switch state.Status {
	case generation.StatusFailed:
		resp.Error = generation.FailureMessage(state.Reason)
	case generation.StatusSucceeded:
		if state.Result != nil {
			resp.ImageURL = state.Result.ImageURL
			resp.Prompt = state.Result.Prompt
			resp.AspectRatio = string(state.Result.AspectRatio)
		}
	}
	return resp
}
