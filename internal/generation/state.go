package generation

import "github.com/phrazzld/imagegen-api/internal/domain"

// Status is the closed set of task states reported by the remote API.
type Status int

// Possible task status values.
const (
	StatusInProgress Status = iota + 1
	StatusSucceeded
	StatusFailed
)

// String returns the upstream spelling of the status.
func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusSucceeded:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Failure reasons produced while normalizing a success payload.
const (
	ReasonGenerationFailed = "image generation failed"
	ReasonInvalidResult    = "invalid result format"
	ReasonNoResult         = "no result produced"
)

// Result is the canonical outcome of a successful task. Only the first image
// of a multi-image response is kept; Total records how many were returned.
type Result struct {
	ImageURL    string             `json:"image_url"`
	Prompt      string             `json:"prompt,omitempty"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio,omitempty"`
	Total       int                `json:"total"`
}

// TaskState is the normalized view of one status query.
type TaskState struct {
	Status Status
	Handle TaskHandle
	// Result is set only when Status is StatusSucceeded.
	Result *Result
	// Reason is set only when Status is StatusFailed.
	Reason string
}

// InProgress returns a non-terminal state.
func InProgress(handle TaskHandle) TaskState {
	return TaskState{Status: StatusInProgress, Handle: handle}
}

// Succeeded returns a terminal success state carrying result.
func Succeeded(handle TaskHandle, result Result) TaskState {
	return TaskState{Status: StatusSucceeded, Handle: handle, Result: &result}
}

// Failed returns a terminal failure state. An empty reason is replaced with
// ReasonGenerationFailed.
func Failed(handle TaskHandle, reason string) TaskState {
	if reason == "" {
		reason = ReasonGenerationFailed
	}
	return TaskState{Status: StatusFailed, Handle: handle, Reason: reason}
}

// IsTerminal reports whether no further polling is needed.
func (s TaskState) IsTerminal() bool {
	return s.Status == StatusSucceeded || s.Status == StatusFailed
}

// FailureMessage returns the user-facing text for a Failed state's reason.
// Reasons reported by the upstream are shown as-is.
func FailureMessage(reason string) string {
	switch reason {
	case "", ReasonGenerationFailed:
		return "Image generation failed. Please try again."
	case ReasonInvalidResult:
		return "Invalid image URL format received."
	case ReasonNoResult:
		return "No image was generated. Please try again."
	default:
		return reason
	}
}
