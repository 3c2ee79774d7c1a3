package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/generation"
)

// Kind identifies the transition a StateEvent describes.
type Kind string

// Event kinds. Only KindInProgress may repeat within a run; every other kind
// is terminal and is emitted at most once.
const (
	KindInProgress Kind = "in_progress"
	KindSucceeded  Kind = "succeeded"
	KindFailed     Kind = "failed"
	KindTimedOut   Kind = "timed_out"
)

// IsTerminal reports whether no further events follow for the same run.
func (k Kind) IsTerminal() bool {
	return k == KindSucceeded || k == KindFailed || k == KindTimedOut
}

// StateEvent describes one observable transition of a generation run.
type StateEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Kind indicates which transition occurred
	Kind Kind `json:"kind"`

	// Handle is the remote task handle. Empty when submission itself failed.
	Handle generation.TaskHandle `json:"task_id,omitempty"`

	// Request is the request the run was started with
	Request domain.GenerationRequest `json:"request"`

	// Attempt is the number of InProgress responses observed so far
	Attempt int `json:"attempt"`

	// Label is the progress text for InProgress events
	Label string `json:"label,omitempty"`

	// Elapsed is the time since the run was submitted
	Elapsed time.Duration `json:"elapsed"`

	// Result is set only for KindSucceeded
	Result *generation.Result `json:"result,omitempty"`

	// Message is the user-facing text for KindFailed and KindTimedOut
	Message string `json:"message,omitempty"`

	// Err is the cause of a KindFailed or KindTimedOut event. A timeout wraps
	// generation.ErrTimeoutPolicy.
	Err error `json:"-"`

	// OccurredAt is the timestamp when the transition was observed
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStateEvent creates a StateEvent of the given kind with a fresh ID.
func NewStateEvent(kind Kind, handle generation.TaskHandle, req domain.GenerationRequest, at time.Time) *StateEvent {
	return &StateEvent{
		ID:         uuid.New(),
		Kind:       kind,
		Handle:     handle,
		Request:    req,
		OccurredAt: at,
	}
}

// ElapsedSeconds returns Elapsed truncated to whole seconds, as displayed.
func (e *StateEvent) ElapsedSeconds() int {
	return int(e.Elapsed / time.Second)
}

// EventHandler defines an interface for components that can handle events.
// Handlers are invoked synchronously by the emitter and must not call back
// into the component that emitted the event.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *StateEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *StateEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *StateEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the controller to publish transitions without direct knowledge
// of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *StateEvent) error
}
