// Package task implements the asynchronous generation lifecycle: submit a
// request to the remote task API, poll its status on a fixed interval, and
// settle on a result, a failure, or a timeout.
//
// A Controller owns at most one live run. Submitting again abandons the
// previous run, and every timer callback or returning network call checks
// that its run is still current before it touches state, so late responses
// from an abandoned run are discarded. Status queries are strictly
// sequential: the next one is scheduled only after the previous response has
// been handled.
//
// Timers come from an injectable Scheduler. Production code uses
// SystemScheduler; tests drive a ManualScheduler without wall-clock delay.
package task
