// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package meshcodec compresses reconstructed meshes for transport.
//
// A platform mesh is one vertex array shared by several sub-meshes
// (triangle index lists, typically one per surface classification).
// Each sub-mesh is re-indexed against only the vertices it uses,
// serialized as little-endian float32 positions (and normals when
// present) followed by uint32 indices, and compressed: vertices with
// ByteGrouping4 + LZ4, indices with zstd. Sections that do not shrink
// are stored uncompressed. The result is a frame.CompressedMesh
// carrying the counts, the uncompressed size, and a BLAKE3 keyed
// digest of the uncompressed bytes.
//
// [Encoder.EncodeBatch] runs every sub-mesh of a batch concurrently
// under one errgroup and joins before returning. A sub-mesh failure
// drops its whole mesh with a warning; the rest of the batch is
// unaffected. Cancelling the context abandons the batch.
package meshcodec
