// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package session defines the recording session model and the client a
// capture device uses to drive the collection service.
//
// A [Session] is a server-side recording identified by a [SessionID]
// and joined by one or more [Device]s. [Client] exposes the session
// lifecycle (create, get, list, join, leave, delete) and the two
// data-plane operations, RegisterIntrinsics and SaveARFrames, over one
// long-lived rpc connection. A new Client is the unit of reconnect:
// when [Client.Done] closes, dial again.
//
// Every call yields exactly one terminal error: a context error, an
// error wrapping rpc.ErrClosed for connection loss, or *rpc.RemoteError
// when the service rejected the request. The client never retries.
//
// The client tracks which sessions it believes are active. Create and
// Join make a session [StateActive]; Leave and Delete return it to
// [StateUnknown]. DeleteSession refuses to send a request for a session
// the client does not believe is active.
package session
