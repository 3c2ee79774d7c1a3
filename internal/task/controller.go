package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/events"
	"github.com/phrazzld/imagegen-api/internal/generation"
	"github.com/sethvargo/go-retry"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("task controller closed")

	// ErrAbandoned is returned by Submit when the run was replaced or
	// cancelled while its submission was in flight.
	ErrAbandoned = errors.New("task run abandoned")
)

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy sets the polling schedule.
func WithPolicy(p Policy) Option {
	return func(c *Controller) {
		c.policy = p.withDefaults()
	}
}

// WithScheduler sets the scheduler used for poll timers.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithClock sets the clock used for elapsed time.
func WithClock(clk Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// run is the state of one submission. A run is current while it is the
// Controller's current pointer and its context is live; every callback and
// every returning network call checks both before touching state.
type run struct {
	ctx       context.Context
	cancel    context.CancelFunc
	req       domain.GenerationRequest
	handle    generation.TaskHandle
	attempts  int
	startedAt time.Time
	backoff   retry.Backoff
	timer     Timer
}

// Controller drives one generation at a time: submit, poll on a fixed
// interval, and settle on Resolved, Failed, or TimedOut. Starting a new
// submission abandons the previous one.
//
// State-change handlers are invoked while the controller's lock is held, in
// order. They must not call back into the Controller.
type Controller struct {
	submitter generation.Submitter
	checker   generation.StatusChecker
	policy    Policy
	scheduler Scheduler
	clock     Clock
	emitter   *events.InMemoryEventEmitter
	logger    *slog.Logger

	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	closed   bool
	current  *run
	snapshot Snapshot
}

// NewController creates a Controller over the given gateway halves.
func NewController(submitter generation.Submitter, checker generation.StatusChecker, opts ...Option) *Controller {
	base, stop := context.WithCancel(context.Background())

	c := &Controller{
		submitter: submitter,
		checker:   checker,
		policy:    DefaultPolicy(),
		scheduler: SystemScheduler{},
		clock:     SystemScheduler{},
		logger:    slog.Default(),
		base:      base,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.emitter = events.NewInMemoryEventEmitter(c.logger)
	c.logger = c.logger.With("component", "task_controller")
	return c
}

// OnStateChange registers a handler for every transition of every run.
func (c *Controller) OnStateChange(h events.EventHandler) {
	c.emitter.RegisterHandler(h)
}

// Policy returns the polling schedule in effect.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Submit abandons any live run and starts a new one for req. ctx bounds only
// the submission call; polling continues in the background until the run
// settles, is replaced, or the Controller is cancelled or closed.
//
// On success the first status query is scheduled immediately and the task
// handle is returned. On failure a Failed event is emitted and the error is
// returned.
func (c *Controller) Submit(ctx context.Context, req domain.GenerationRequest) (generation.TaskHandle, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.current != nil {
		c.logger.Info("replacing live run", "task_id", c.current.handle)
		c.abandonLocked()
	}

	runCtx, cancel := context.WithCancel(c.base)
	r := &run{
		ctx:       runCtx,
		cancel:    cancel,
		req:       req,
		startedAt: c.clock.Now(),
		backoff:   c.policy.backoff(),
	}
	c.current = r
	c.snapshot = Snapshot{
		Phase:     PhaseSubmitting,
		Request:   req,
		StartedAt: r.startedAt,
	}
	c.mu.Unlock()

	stopAfter := context.AfterFunc(ctx, cancel)
	handle, err := c.submitter.Submit(runCtx, req)
	stopAfter()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != r {
		if c.closed {
			return "", ErrClosed
		}
		return "", ErrAbandoned
	}
	if r.ctx.Err() != nil {
		// Only the caller's context can cancel a run that is still current.
		c.abandonLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrAbandoned, ctxErr)
		}
		return "", ErrAbandoned
	}

	if err != nil {
		c.logger.Warn("submission failed", "error", err)
		c.finishLocked(r, events.KindFailed, nil, err)
		return "", err
	}

	r.handle = handle
	c.snapshot.Phase = PhasePolling
	c.snapshot.Handle = handle
	c.logger.Info("task submitted", "task_id", handle)

	r.timer = c.scheduler.AfterFunc(0, func() { c.poll(r) })
	return handle, nil
}

// poll performs one status query for r and decides what happens next.
func (c *Controller) poll(r *run) {
	c.mu.Lock()
	if !c.isCurrentLocked(r) {
		c.mu.Unlock()
		return
	}
	r.timer = nil
	handle := r.handle
	c.mu.Unlock()

	state, err := c.checker.Status(r.ctx, handle)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrentLocked(r) {
		c.logger.Debug("discarding stale status response", "task_id", handle)
		return
	}

	if err != nil {
		c.logger.Warn("status query failed", "task_id", handle, "attempt", r.attempts, "error", err)
		c.finishLocked(r, events.KindFailed, nil, err)
		return
	}

	switch state.Status {
	case generation.StatusInProgress:
		r.attempts++
		if r.attempts >= c.policy.MaxAttempts {
			c.finishLocked(r, events.KindTimedOut, nil, c.timeoutError(r))
			return
		}
		delay, stop := r.backoff.Next()
		if stop {
			c.finishLocked(r, events.KindTimedOut, nil, c.timeoutError(r))
			return
		}

		label := Label(r.attempts)
		c.snapshot.Attempt = r.attempts
		c.snapshot.Label = label

		ev := c.newEventLocked(r, events.KindInProgress)
		ev.Label = label
		c.emitLocked(r, ev)

		r.timer = c.scheduler.AfterFunc(delay, func() { c.poll(r) })

	case generation.StatusSucceeded:
		c.finishLocked(r, events.KindSucceeded, state.Result, nil)

	case generation.StatusFailed:
		c.finishLocked(r, events.KindFailed, nil, &generation.TaskFailure{Reason: state.Reason})

	default:
		c.finishLocked(r, events.KindFailed, nil, &generation.TaskFailure{})
	}
}

// Cancel abandons the live run, if any, without closing the Controller. It
// reports whether a run was cancelled. No events are emitted for the
// abandoned run.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return false
	}
	c.abandonLocked()
	return true
}

// Close tears the Controller down. The live run is abandoned and no further
// events are emitted once Close returns. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.current != nil {
		c.abandonLocked()
	}
	c.stop()
}

// Snapshot returns the current state. While polling, Elapsed is measured
// against the clock at call time.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.snapshot
	if c.current != nil {
		s.Elapsed = c.clock.Now().Sub(c.current.startedAt)
	}
	return s
}

func (c *Controller) isCurrentLocked(r *run) bool {
	return c.current == r && r.ctx.Err() == nil
}

// abandonLocked cancels the current run and its pending timer.
func (c *Controller) abandonLocked() {
	r := c.current
	if r == nil {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.cancel()
	c.current = nil

	c.snapshot.Phase = PhaseCancelled
	c.snapshot.Elapsed = c.clock.Now().Sub(r.startedAt)
}

// timeoutError describes r running out of attempts.
func (c *Controller) timeoutError(r *run) error {
	return fmt.Errorf("%w: %d attempts over %s", generation.ErrTimeoutPolicy, r.attempts, c.policy.Budget())
}

// finishLocked settles r with a terminal event and releases it. cause is nil
// only for a successful run; the user-facing message is derived from it.
func (c *Controller) finishLocked(r *run, kind events.Kind, result *generation.Result, cause error) {
	message := ""
	if cause != nil {
		message = generation.UserMessage(cause)
	}

	ev := c.newEventLocked(r, kind)
	ev.Result = result
	ev.Message = message
	ev.Err = cause

	switch kind {
	case events.KindSucceeded:
		c.snapshot.Phase = PhaseResolved
	case events.KindTimedOut:
		c.snapshot.Phase = PhaseTimedOut
	default:
		c.snapshot.Phase = PhaseFailed
	}
	c.snapshot.Attempt = r.attempts
	c.snapshot.Label = ""
	c.snapshot.Result = result
	c.snapshot.Message = message
	c.snapshot.Err = cause
	c.snapshot.Elapsed = ev.Elapsed

	c.logger.Info("run settled",
		"task_id", r.handle,
		"outcome", kind,
		"attempts", r.attempts,
		"elapsed", ev.Elapsed)

	c.emitLocked(r, ev)

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	c.current = nil
	r.cancel()
}

func (c *Controller) newEventLocked(r *run, kind events.Kind) *events.StateEvent {
	now := c.clock.Now()
	ev := events.NewStateEvent(kind, r.handle, r.req, now)
	ev.Attempt = r.attempts
	ev.Elapsed = now.Sub(r.startedAt)
	return ev
}

func (c *Controller) emitLocked(r *run, ev *events.StateEvent) {
	// Handler errors are logged by the emitter and do not affect the run.
	_ = c.emitter.EmitEvent(r.ctx, ev)
}
