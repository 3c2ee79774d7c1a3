package task

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler and Clock driven explicitly by Advance.
// Callbacks run synchronously on the goroutine calling Advance or RunNext,
// in deadline order, with the clock set to each callback's deadline.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s   *ManualScheduler
	at  time.Time
	seq int
	f   func()
}

// NewManualScheduler returns a ManualScheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now implements Clock.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &manualTimer{s: s, at: s.now.Add(d), seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Stop implements Timer.
func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.removeLocked(t)
}

func (s *ManualScheduler) removeLocked(t *manualTimer) bool {
	for i, pending := range s.timers {
		if pending == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Advance moves the clock forward by d, firing every timer that comes due,
// including timers scheduled by callbacks during the advance. It returns the
// number of callbacks run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	fired := 0
	for {
		t := s.popDue(target)
		if t == nil {
			break
		}
		t.f()
		fired++
	}

	s.mu.Lock()
	if target.After(s.now) {
		s.now = target
	}
	s.mu.Unlock()
	return fired
}

// RunNext moves the clock to the earliest pending timer and fires it. It
// reports false when nothing is pending.
func (s *ManualScheduler) RunNext() bool {
	t := s.popDue(time.Time{})
	if t == nil {
		return false
	}
	t.f()
	return true
}

// popDue removes and returns the earliest timer due at or before target. A
// zero target matches any pending timer.
func (s *ManualScheduler) popDue(target time.Time) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.timers) == 0 {
		return nil
	}
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})

	next := s.timers[0]
	if !target.IsZero() && next.at.After(target) {
		return nil
	}
	s.timers = s.timers[1:]
	if next.at.After(s.now) {
		s.now = next.at
	}
	return next
}
