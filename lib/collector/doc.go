// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector is an in-memory collection service implementing
// every session action. It backs local development and end-to-end
// tests of the capture pipeline; it keeps sessions, membership, camera
// intrinsics, and per-modality frame counts, not the frames
// themselves.
//
// [Service] holds the state and exposes each action as a Go method.
// [Service.Register] binds the actions to an rpc.Server. Data-plane
// and destructive actions require the calling device to be a member of
// the session; unknown or malformed session ids are rejected.
//
// [RegisterSignaling] and [SignalingClient] relay WebRTC offers and
// answers over the same rpc protocol, so a device can reach a collector
// behind NAT after first contacting its signaling endpoint over TCP.
package collector
