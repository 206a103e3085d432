// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations the coordinator performs so
// expiry behavior is testable. Production code injects Real(); tests
// inject Fake() and advance it explicitly.
//
// Any function that would call time.Now, time.After, time.NewTicker,
// or time.Sleep takes a Clock (or is a method on a struct carrying
// one) instead of calling the time package directly. Gate expiry in
// particular must be deterministic under test: a request with a zero
// TTL is expired on the very next sweep, never "shortly after".
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks on C every d.
	// Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Ticker delivers periodic ticks on C. The channel has capacity 1;
// if the consumer falls behind, ticks are dropped rather than
// queued, matching time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop turns off the ticker. No more ticks arrive on C after Stop
// returns. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset changes the interval and restarts the tick cycle; the next
// tick arrives after the new duration.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }
