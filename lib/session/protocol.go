// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "github.com/arcollect/arcollect/lib/frame"

// Action names, one per client operation.
const (
	ActionCreateSession      = "create-session"
	ActionGetSession         = "get-session"
	ActionListSessions       = "list-sessions"
	ActionDeleteSession      = "delete-session"
	ActionJoinSession        = "join-session"
	ActionLeaveSession       = "leave-session"
	ActionRegisterIntrinsics = "register-intrinsics"
	ActionSaveFrames         = "save-frames"
	ActionServerTime         = "server-time"
)

// CodeSessionGone marks a rejection because the session was deleted or
// the device is no longer a member. Retrying cannot succeed.
const CodeSessionGone = "session-gone"

// CreateSessionRequest is the create-session parameter set.
type CreateSessionRequest struct {
	Metadata Metadata `cbor:"metadata"`
	Device   Device   `cbor:"device"`
}

// SessionRequest addresses one session without device attribution
// (get-session).
type SessionRequest struct {
	SessionID SessionID `cbor:"session_id"`
}

// MembershipRequest carries join-session, leave-session, and
// delete-session parameters.
type MembershipRequest struct {
	SessionID SessionID `cbor:"session_id"`
	Device    Device    `cbor:"device"`
}

// RegisterIntrinsicsRequest is the register-intrinsics parameter set.
type RegisterIntrinsicsRequest struct {
	SessionID       SessionID        `cbor:"session_id"`
	Device          Device           `cbor:"device"`
	DeviceTimestamp int64            `cbor:"device_timestamp"`
	Intrinsics      frame.Intrinsics `cbor:"intrinsics"`
}

// SaveFramesRequest is the save-frames parameter set. The service
// accepts or rejects the batch as a whole.
type SaveFramesRequest struct {
	SessionID SessionID       `cbor:"session_id"`
	Device    Device          `cbor:"device"`
	Frames    []frame.ARFrame `cbor:"frames"`
}

// SaveFramesResult reports how many frames the service stored.
type SaveFramesResult struct {
	Accepted int `cbor:"accepted"`
}

// ListSessionsResult is the list-sessions response.
type ListSessionsResult struct {
	Sessions []Session `cbor:"sessions"`
}

// ServerTimeResult is the server-time response: the service clock in
// nanoseconds since the Unix epoch when the request was handled.
type ServerTimeResult struct {
	UnixNano int64 `cbor:"unix_nano"`
}
