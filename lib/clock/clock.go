// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations used by capture samplers and the
// recorder. Any code that would call time.Now, time.After, or
// time.NewTicker takes a Clock instead.
type Clock interface {
	// Now returns the current local time, including a monotonic
	// reading when the implementation provides one.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if
	// d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. C has capacity 1: a consumer
// that falls behind loses ticks rather than queueing them, which is
// what a sampler wants (a late sample is not worth two samples).
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns the ticker off. No ticks are sent after Stop returns. C
// is not closed.
func (t *Ticker) Stop() { t.stopFunc() }
