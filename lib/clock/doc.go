// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the scheduling clock injected into every component
// that waits: rate-based capture samplers, the recorder's flush loop,
// and retry backoff.
//
// Production code receives Real(). Tests receive Fake() and drive time
// explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	buffer := capture.NewGyroscopeBuffer(sensors, capture.Dependencies{Clock: fake, ...})
//	buffer.StartCapture()
//	fake.WaitForTimers(1)            // sampler registered its ticker
//	fake.Advance(50 * time.Millisecond) // one tick, deterministically
//
// This package answers "when should I wake up". The question "what
// time is it on the collection service" belongs to lib/timesync, which
// builds on a Clock.
package clock
