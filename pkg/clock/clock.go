// Package clock provides an injectable clock abstraction so components that
// schedule timers (batch flushing, session expiry) can be tested
// deterministically without real sleeps.
//
// In production code use clock.Real(); in tests use clock.NewMock() and
// advance time manually with Advance().
package clock

import "time"

// Clock mimics the subset of the standard library time package that the
// pipeline depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// AfterFunc waits for the duration to elapse and then calls f in its
	// own goroutine. The returned Timer can cancel the call via Stop.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled call that can be cancelled.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call was
	// stopped before it ran.
	Stop() bool
}

// Real returns a Clock backed by the standard library.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time                   { return time.Now() }
func (realClock) Since(t time.Time) time.Duration  { return time.Since(t) }
func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

type realTimer struct {
	t *time.Timer
}

func (rt realTimer) Stop() bool { return rt.t.Stop() }
