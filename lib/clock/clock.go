// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time interface consumed by the retry engine, the
// credential manager, and the orchestrator. Production code must not
// call time.Now, time.After, time.AfterFunc, or time.Sleep directly;
// it takes a Clock (usually as a struct field) so tests can substitute
// Fake().
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc schedules f to run after d. The returned Timer can
	// cancel the pending call with Stop. If d <= 0, f runs
	// immediately: in a new goroutine for the real clock,
	// synchronously for the fake.
	AfterFunc(d time.Duration, f func()) *Timer

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Timer is a scheduled AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop cancels the pending call. It reports whether the call was
// stopped before firing.
func (t *Timer) Stop() bool { return t.stop() }
