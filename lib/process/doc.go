// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the ARCollect
// binaries: fatal error reporting before the structured logger exists,
// and the signal-scoped root context.
package process
