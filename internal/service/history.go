package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/imagegen-api/internal/events"
	"github.com/phrazzld/imagegen-api/internal/redact"
	"github.com/phrazzld/imagegen-api/internal/store"
)

// History list bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	// DefaultBacklog is how many settled runs may wait for their write.
	DefaultBacklog = 256

	recordTimeout = 5 * time.Second
)

// Errors returned by HandleEvent when a settled run cannot be queued. The
// run is not recorded.
var (
	ErrBacklogFull   = errors.New("history backlog full")
	ErrHistoryClosed = errors.New("history service closed")
)

// HistoryService records settled generation runs and lists them. It is
// registered as a state-change handler on task controllers. Writes happen on
// a background worker so handlers return without touching the store.
type HistoryService struct {
	store  store.GenerationStore
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *store.GenerationRecord
	done   chan struct{}
}

// Compile-time check that HistoryService can be registered as a handler.
var _ events.EventHandler = (*HistoryService)(nil)

// NewHistoryService creates a HistoryService backed by s and starts its
// writer. Call Close to flush pending writes.
func NewHistoryService(s store.GenerationStore, logger *slog.Logger) (*HistoryService, error) {
	if s == nil {
		return nil, errors.New("generation store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &HistoryService{
		store:  s,
		logger: logger.With("component", "history_service"),
		queue:  make(chan *store.GenerationRecord, DefaultBacklog),
		done:   make(chan struct{}),
	}
	go h.run()
	return h, nil
}

// HandleEvent queues terminal events for recording and ignores progress
// events. It never blocks on the store.
func (s *HistoryService) HandleEvent(_ context.Context, event *events.StateEvent) error {
	if event == nil || !event.Kind.IsTerminal() {
		return nil
	}

	record := recordFromEvent(event)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("history closed, dropping generation", "task_id", record.TaskID)
		return ErrHistoryClosed
	}
	select {
	case s.queue <- record:
		return nil
	default:
		s.logger.Warn("history backlog full, dropping generation",
			"task_id", record.TaskID,
			"outcome", record.Outcome)
		return ErrBacklogFull
	}
}

// Record writes one record synchronously. Duplicates are ignored. Failures
// are logged and returned.
func (s *HistoryService) Record(ctx context.Context, record *store.GenerationRecord) error {
	writeCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := s.store.Create(writeCtx, record); err != nil {
		if store.IsDuplicateError(err) {
			s.logger.Debug("generation already recorded", "task_id", record.TaskID)
			return nil
		}
		s.logger.Error("failed to record generation",
			"task_id", record.TaskID,
			"outcome", record.Outcome,
			"error", redact.Error(err))
		return NewHistoryServiceError("record", "failed to save generation", err)
	}

	s.logger.Debug("generation recorded",
		"task_id", record.TaskID,
		"outcome", record.Outcome)
	return nil
}

// Close stops accepting events and waits for queued writes to finish.
// Close is idempotent.
func (s *HistoryService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *HistoryService) run() {
	defer close(s.done)
	for record := range s.queue {
		// Record logs its own failures.
		_ = s.Record(context.Background(), record)
	}
}

// Recent returns up to limit records, newest first. A non-positive limit
// selects DefaultHistoryLimit; larger limits are capped at MaxHistoryLimit.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]*store.GenerationRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	records, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, NewHistoryServiceError("list", "failed to list generations", err)
	}
	return records, nil
}

// Get returns the record for taskID.
func (s *HistoryService) Get(ctx context.Context, taskID string) (*store.GenerationRecord, error) {
	record, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrGenerationNotFound
		}
		return nil, NewHistoryServiceError("get", "failed to get generation", err)
	}
	return record, nil
}

func recordFromEvent(event *events.StateEvent) *store.GenerationRecord {
	record := &store.GenerationRecord{
		ID:          event.ID,
		TaskID:      event.Handle.String(),
		Prompt:      event.Request.Prompt,
		AspectRatio: event.Request.AspectRatio,
		Message:     event.Message,
		Attempts:    event.Attempt,
		Elapsed:     event.Elapsed,
		CreatedAt:   event.OccurredAt.UTC(),
	}

	switch event.Kind {
	case events.KindSucceeded:
		record.Outcome = store.OutcomeSucceeded
		if event.Result != nil {
			record.ImageURL = event.Result.ImageURL
			record.ImageCount = event.Result.Total
		}
	case events.KindTimedOut:
		record.Outcome = store.OutcomeTimedOut
	default:
		record.Outcome = store.OutcomeFailed
	}
	return record
}
