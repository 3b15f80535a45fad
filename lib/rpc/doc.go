// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc implements the request/response protocol spoken between a
// capture device and the collection service over one long-lived stream
// connection.
//
// Every message is a CBOR envelope in a length-prefixed frame: a 4-byte
// big-endian body length followed by the body. A [Request] names an
// action and carries its parameters; the [Response] with the same ID
// reports success with optional data, or failure with a message.
//
// [Client] multiplexes concurrent calls over a single connection. Writes
// are serialized and responses are matched to callers by request ID, so
// a slow call never blocks a fast one on the read side. Cancelling a
// call's context abandons only that call; its late response is dropped.
// A server rejection surfaces as *[RemoteError]. Loss of the connection
// fails every pending and future call with an error wrapping
// [ErrClosed].
//
// [Server] dispatches requests to registered [ActionFunc] handlers,
// running each request on its own goroutine. It implements
// transport.ConnHandler, so any transport.Listener can serve it.
package rpc
