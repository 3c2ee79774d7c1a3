package generation

import (
	"context"

	"github.com/phrazzld/imagegen-api/internal/domain"
)

// TaskHandle is the opaque identifier the remote API assigns to a submitted
// generation task.
type TaskHandle string

// String returns the handle as a plain string.
func (h TaskHandle) String() string {
	return string(h)
}

// Submitter defines the interface for starting a remote generation task.
// This interface serves as a boundary between the application core and
// the external image generation service.
type Submitter interface {
	// Submit validates the request and issues exactly one outbound call.
	// Invalid requests fail with ErrValidation before any network activity.
	Submit(ctx context.Context, req domain.GenerationRequest) (TaskHandle, error)
}

// StatusChecker defines the interface for querying a remote generation task.
type StatusChecker interface {
	// Status issues one status query and returns the normalized task state.
	// Upstream task failures are reported as a Failed state, not an error;
	// errors are reserved for transport, auth, and protocol problems.
	Status(ctx context.Context, handle TaskHandle) (TaskState, error)
}

// Gateway combines both halves of the remote task API.
type Gateway interface {
	Submitter
	StatusChecker
}
