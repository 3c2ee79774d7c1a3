package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/imagegen-api/internal/store"
	"github.com/phrazzld/imagegen-api/internal/task"
)

// GenerateRequest is the body of POST /api/generate and POST /api/sessions.
type GenerateRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

// GenerateResponse is the successful body of POST /api/generate.
type GenerateResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
}

// StatusResponse is the body of GET /api/status. Upstream task failures are
// reported with Success true and Status FAILED; Error then holds the
// user-facing reason.
type StatusResponse struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	TaskID      string `json:"task_id"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SessionResponse describes a server-side generation session.
type SessionResponse struct {
	Success        bool       `json:"success"`
	SessionID      uuid.UUID  `json:"session_id"`
	TaskID         string     `json:"task_id,omitempty"`
	Phase          task.Phase `json:"phase"`
	Prompt         string     `json:"prompt"`
	AspectRatio    string     `json:"aspect_ratio"`
	Attempt        int        `json:"attempt"`
	Label          string     `json:"label,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	ImageCount     int        `json:"image_count,omitempty"`
	Message        string     `json:"message,omitempty"`
	ErrorStatus    int        `json:"error_status,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
}

func newSessionResponse(s *Session) SessionResponse {
	snap := s.Snapshot()
	resp := SessionResponse{
		Success:        true,
		SessionID:      s.ID,
		TaskID:         snap.Handle.String(),
		Phase:          snap.Phase,
		Prompt:         snap.Request.Prompt,
		AspectRatio:    string(snap.Request.AspectRatio),
		Attempt:        snap.Attempt,
		Label:          snap.Label,
		ElapsedSeconds: snap.ElapsedSeconds(),
		Message:        snap.Message,
		StartedAt:      snap.StartedAt,
	}
	if snap.Err != nil {
		resp.ErrorStatus = MapErrorToStatusCode(snap.Err)
	}
	if snap.Result != nil {
		resp.ImageURL = snap.Result.ImageURL
		resp.ImageCount = snap.Result.Total
	}
	return resp
}

// HistoryEntry is one settled generation as listed by /api/history.
type HistoryEntry struct {
	TaskID         string    `json:"task_id,omitempty"`
	Prompt         string    `json:"prompt"`
	AspectRatio    string    `json:"aspect_ratio"`
	Outcome        string    `json:"outcome"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	ImageCount     int       `json:"image_count"`
	Message        string    `json:"message,omitempty"`
	Attempts       int       `json:"attempts"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}

func newHistoryEntry(r *store.GenerationRecord) HistoryEntry {
	return HistoryEntry{
		TaskID:         r.TaskID,
		Prompt:         r.Prompt,
		AspectRatio:    string(r.AspectRatio),
		Outcome:        string(r.Outcome),
		ImageURL:       r.ImageURL,
		ImageCount:     r.ImageCount,
		Message:        r.Message,
		Attempts:       r.Attempts,
		ElapsedSeconds: int(r.Elapsed / time.Second),
		CreatedAt:      r.CreatedAt,
	}
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Success     bool           `json:"success"`
	Generations []HistoryEntry `json:"generations"`
}
