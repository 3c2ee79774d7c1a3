package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/imagegen-api/internal/domain"
)

// Outcome is how a generation run ended.
type Outcome string

// Recorded outcomes.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSucceeded, OutcomeFailed, OutcomeTimedOut:
		return true
	default:
		return false
	}
}

// GenerationRecord is one settled generation run.
type GenerationRecord struct {
	ID          uuid.UUID          `json:"id"`
	TaskID      string             `json:"task_id,omitempty"`
	Prompt      string             `json:"prompt"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	Outcome     Outcome            `json:"outcome"`
	ImageURL    string             `json:"image_url,omitempty"`
	ImageCount  int                `json:"image_count"`
	Message     string             `json:"message,omitempty"`
	Attempts    int                `json:"attempts"`
	Elapsed     time.Duration      `json:"-"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Validate checks the record before it is persisted.
func (r *GenerationRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.Prompt) == "":
		return fmt.Errorf("%w: prompt is required", ErrInvalidEntity)
	case !r.Outcome.IsValid():
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidEntity, r.Outcome)
	case r.Outcome == OutcomeSucceeded && r.ImageURL == "":
		return fmt.Errorf("%w: succeeded record without image url", ErrInvalidEntity)
	case r.Attempts < 0:
		return fmt.Errorf("%w: attempts cannot be negative", ErrInvalidEntity)
	case r.Elapsed < 0:
		return fmt.Errorf("%w: elapsed cannot be negative", ErrInvalidEntity)
	}
	return nil
}

// GenerationStore defines the interface for generation history persistence.
type GenerationStore interface {
	// Create saves a new record. A second record for the same non-empty task
	// id returns ErrDuplicate.
	Create(ctx context.Context, record *GenerationRecord) error

	// GetByTaskID retrieves the record for a remote task id.
	// Returns ErrGenerationNotFound if none exists.
	GetByTaskID(ctx context.Context, taskID string) (*GenerationRecord, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*GenerationRecord, error)
}
