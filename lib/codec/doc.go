// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration shared by everything
// that puts bytes on the wire: RPC envelopes (lib/rpc), session
// protocol messages (lib/session), and ARFrame payloads (lib/frame).
//
// Encoding is deterministic, so the same frame always produces the same
// bytes. That keeps batch sizes predictable and lets tests compare
// encoded output directly.
//
// For buffers:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For connections:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Wire types carry `cbor` struct tags with snake_case keys. Large
// binary payloads (image planes, compressed meshes) are []byte and
// encode as CBOR byte strings, not arrays.
package codec
