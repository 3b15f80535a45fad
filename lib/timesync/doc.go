// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package timesync provides a network-corrected clock for stamping
// captured frames.
//
// Frames from several devices end up in one recording, so their
// capture times must share a time base. A [Service] starts out
// returning local time. [Service.Synchronize] performs one round trip
// with a [Source], estimates the server's time at the moment the
// response arrived as serverTime + rtt/2, and anchors that estimate
// to the monotonic time elapsed since the service was created. Every
// later Now adds the monotonic time elapsed since the anchor, with no
// further network traffic, so wall-clock steps on the device do not
// leak into frame timestamps.
//
// Now never decreases. A resync that lands behind the last reading
// holds Now at that reading until corrected time catches up, so a
// buffer that rejects out-of-order samples never sees one. Callers
// that can should Synchronize before stamping anything and then run
// [Service.Resync], so the first correction is a step rather than a
// hold.
//
// Two sources exist: [NTPSource] queries an NTP server, and the
// session client's ServerTime method asks the collection service
// directly. Both satisfy [Source].
package timesync
