// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireClosed], and [RequireNoReceive] wrap the
// select-with-timeout safety valve so that tests driven by
// lib/clock.FakeClock never call time.After themselves.
//
// [SocketDir] returns a short temporary directory for Unix sockets,
// whose paths are limited to 108 bytes. [Logger] routes slog output
// through t.Log so it appears only for failing or verbose tests.
// [UniqueName] generates distinct device and session names across
// tests in one binary.
//
// Helpers fail the test with t.Fatalf rather than returning errors.
package testutil
