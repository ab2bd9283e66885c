// Package clock abstracts the time source used by seat holds and payment
// intents so that TTL behavior can be driven deterministically in tests.
//
// Production code uses Real(). Tests use Fake(start) and move time with
// Advance, which fires every due AfterFunc callback synchronously.
package clock

import "time"

// Clock is the subset of the time package the reservation engine needs.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer can stop
	// or re-arm the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped a pending timer.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	return t.stopFunc()
}

// Reset re-arms the timer to fire after d. It reports whether the timer
// was still pending.
func (t *Timer) Reset(d time.Duration) bool {
	if t == nil {
		return false
	}
	return t.resetFunc(d)
}

// Real returns a Clock backed by the standard library.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{
		stopFunc:  timer.Stop,
		resetFunc: timer.Reset,
	}
}
