package task

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer.
	Stop() bool
}

// Scheduler arranges for callbacks to run after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// SystemScheduler schedules with time.AfterFunc and reads the wall clock.
type SystemScheduler struct{}

// AfterFunc implements Scheduler.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Now implements Clock.
func (SystemScheduler) Now() time.Time {
	return time.Now()
}
