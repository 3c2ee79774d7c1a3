package api

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/events"
	"github.com/phrazzld/imagegen-api/internal/task"
)

// ControllerFactory builds a fresh controller for one session, with any
// shared listeners already registered.
type ControllerFactory func() *task.Controller

// Session is one server-side generation run owned by the registry.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	controller *task.Controller
	// settledAt is the UnixNano time of the terminal event, or 0.
	settledAt atomic.Int64
}

// Snapshot returns the session's controller state.
func (s *Session) Snapshot() task.Snapshot {
	return s.controller.Snapshot()
}

func (s *Session) settledBefore(cutoff time.Time) bool {
	at := s.settledAt.Load()
	return at != 0 && at < cutoff.UnixNano()
}

// SessionRegistry keeps one controller per session so HTTP clients can start
// a generation and read its progress without polling upstream themselves.
// Settled sessions are pruned once they are older than the retention period;
// a non-positive retention keeps them until they are deleted.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool

	factory   ControllerFactory
	retention time.Duration
	clock     task.Clock
	logger    *slog.Logger
}

// NewSessionRegistry creates an empty registry. A nil clock uses wall time.
func NewSessionRegistry(
	factory ControllerFactory,
	retention time.Duration,
	clock task.Clock,
	logger *slog.Logger,
) *SessionRegistry {
	if clock == nil {
		clock = task.SystemScheduler{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		sessions:  make(map[uuid.UUID]*Session),
		factory:   factory,
		retention: retention,
		clock:     clock,
		logger:    logger.With("component", "session_registry"),
	}
}

// Start submits req on a new session's controller. ctx bounds only the
// submission. On error the session is discarded and never becomes visible.
func (reg *SessionRegistry) Start(ctx context.Context, req domain.GenerationRequest) (*Session, error) {
	reg.Prune()

	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return nil, task.ErrClosed
	}
	reg.mu.Unlock()

	sess := &Session{
		ID:         uuid.New(),
		CreatedAt:  reg.clock.Now(),
		controller: reg.factory(),
	}
	sess.controller.OnStateChange(events.HandlerFunc(func(_ context.Context, ev *events.StateEvent) error {
		if ev.Kind.IsTerminal() {
			sess.settledAt.Store(ev.OccurredAt.UnixNano())
		}
		return nil
	}))

	handle, err := sess.controller.Submit(ctx, req)
	if err != nil {
		sess.controller.Close()
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.closed {
		sess.controller.Close()
		return nil, task.ErrClosed
	}
	reg.sessions[sess.ID] = sess

	reg.logger.Info("session started",
		"session_id", sess.ID,
		"task_id", handle)
	return sess, nil
}

// Get returns the session with id.
func (reg *SessionRegistry) Get(id uuid.UUID) (*Session, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	sess, ok := reg.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove closes the session's controller and forgets it. Polling stops and
// no further events are delivered for it.
func (reg *SessionRegistry) Remove(id uuid.UUID) error {
	reg.mu.Lock()
	sess, ok := reg.sessions[id]
	delete(reg.sessions, id)
	reg.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.controller.Close()
	reg.logger.Info("session removed", "session_id", id)
	return nil
}

// Prune drops settled sessions older than the retention period and returns
// how many were dropped.
func (reg *SessionRegistry) Prune() int {
	if reg.retention <= 0 {
		return 0
	}
	cutoff := reg.clock.Now().Add(-reg.retention)

	reg.mu.Lock()
	var expired []*Session
	for id, sess := range reg.sessions {
		if sess.settledBefore(cutoff) {
			expired = append(expired, sess)
			delete(reg.sessions, id)
		}
	}
	reg.mu.Unlock()

	for _, sess := range expired {
		sess.controller.Close()
	}
	if len(expired) > 0 {
		reg.logger.Debug("pruned settled sessions", "count", len(expired))
	}
	return len(expired)
}

// Len returns the number of sessions currently held.
func (reg *SessionRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}

// Close closes every session and rejects further starts. It is idempotent.
func (reg *SessionRegistry) Close() {
	reg.mu.Lock()
	reg.closed = true
	sessions := reg.sessions
	reg.sessions = make(map[uuid.UUID]*Session)
	reg.mu.Unlock()

	for _, sess := range sessions {
		sess.controller.Close()
	}
}
