// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder moves captured frames from modality buffers to a
// collector session.
//
// A [Recorder] owns the capture lifecycle of its buffers. On every
// flush tick it drains them, converts the raw frames to wire form, and
// uploads the queue in batches of bounded size. A failed upload leaves
// the batch queued and retries with exponential backoff; frames keep
// accumulating meanwhile, up to an optional queue bound beyond which
// the oldest are dropped. On shutdown capture stops and one final
// drain is attempted with a short timeout.
//
// A lost connection (an error wrapping [rpc.ErrClosed]) ends Run: no
// retry can succeed on a closed client.
package recorder
