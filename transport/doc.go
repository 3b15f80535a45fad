// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries the stream connection between a capture
// device and the collection service.
//
// [Listener] accepts inbound connections and hands each one to a
// [ConnHandler]. [Dialer] opens outbound connections. Three
// implementations exist: [TCPListener]/[TCPDialer] for direct LAN
// reachability, [UnixListener]/[UnixDialer] for same-host deployments
// and tests, and [WebRTCTransport], which implements both interfaces
// over pion/webrtc data channels for devices behind NAT.
//
// Each pair of WebRTC peers shares one PeerConnection. Every
// DialContext call opens a new ordered, reliable data channel on it,
// detached and wrapped as a [DataChannelConn]. Signaling is vanilla ICE
// through the [Signaler] interface: candidates are gathered before the
// SDP is published, so one offer/answer exchange establishes the
// connection. [MemorySignaler] serves tests and same-process setups;
// the collection service exposes the same operations over its RPC
// connection for remote devices.
//
// When two peers dial each other simultaneously, the peer with the
// lexicographically smaller name becomes the offerer and the other
// drops its redundant PeerConnection.
package transport
