package task

import (
	"time"

	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/generation"
)

// Phase is the lifecycle position of a Controller's current run.
type Phase int

// Lifecycle phases.
const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhasePolling
	PhaseResolved
	PhaseFailed
	PhaseTimedOut
	PhaseCancelled
)

var phaseNames = map[Phase]string{
	PhaseIdle:       "idle",
	PhaseSubmitting: "submitting",
	PhasePolling:    "polling",
	PhaseResolved:   "resolved",
	PhaseFailed:     "failed",
	PhaseTimedOut:   "timed_out",
	PhaseCancelled:  "cancelled",
}

// String returns the phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// IsTerminal reports whether the phase ends a run.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseResolved, PhaseFailed, PhaseTimedOut, PhaseCancelled:
		return true
	default:
		return false
	}
}

// Snapshot is a point-in-time view of a Controller.
type Snapshot struct {
	Phase     Phase                    `json:"phase"`
	Handle    generation.TaskHandle    `json:"task_id,omitempty"`
	Request   domain.GenerationRequest `json:"request"`
	Attempt   int                      `json:"attempt"`
	Label     string                   `json:"label,omitempty"`
	Elapsed   time.Duration            `json:"-"`
	StartedAt time.Time                `json:"started_at,omitempty"`
	Result    *generation.Result       `json:"result,omitempty"`
	Message   string                   `json:"message,omitempty"`
	Err       error                    `json:"-"`
}

// ElapsedSeconds returns Elapsed truncated to whole seconds.
func (s Snapshot) ElapsedSeconds() int {
	return int(s.Elapsed / time.Second)
}
