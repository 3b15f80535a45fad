// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"errors"
	"fmt"

	"github.com/arcollect/arcollect/lib/codec"
)

// Request is the wire envelope of one call.
type Request struct {
	ID     uint64           `cbor:"id"`
	Action string           `cbor:"action"`
	Params codec.RawMessage `cbor:"params,omitempty"`
}

// Response is the wire envelope answering the Request with the same ID.
// Data is present only when OK is true and the handler returned a
// value. Code is set when the handler's error carried one.
type Response struct {
	ID    uint64           `cbor:"id"`
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Code  string           `cbor:"code,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// ErrClosed is wrapped by every error caused by the connection going
// away, whether closed locally or lost.
var ErrClosed = errors.New("rpc: connection closed")

// RemoteError reports a request the server processed and rejected.
// Code is empty unless the handler returned a *CodedError.
type RemoteError struct {
	Action  string
	Message string
	Code    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Action, e.Message)
}

// CodedError tags a handler error with a code the caller can branch
// on. The code travels in Response.Code and arrives as
// RemoteError.Code.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }

func (e *CodedError) Unwrap() error { return e.Err }

// Limits bounds the size of frame bodies. Zero fields take the
// defaults.
type Limits struct {
	// MaxRequestSize bounds an encoded Request. Frame batches with
	// full-resolution color images are the largest requests.
	MaxRequestSize int

	// MaxResponseSize bounds an encoded Response.
	MaxResponseSize int
}

const (
	DefaultMaxRequestSize  = 64 << 20
	DefaultMaxResponseSize = 4 << 20
)

func (l Limits) withDefaults() Limits {
	if l.MaxRequestSize <= 0 {
		l.MaxRequestSize = DefaultMaxRequestSize
	}
	if l.MaxResponseSize <= 0 {
		l.MaxResponseSize = DefaultMaxResponseSize
	}
	return l
}
