// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package meshcodec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arcollect/arcollect/lib/frame"
)

// Mesh is one reconstructed mesh as the platform reports it.
type Mesh struct {
	// FilterID identifies the mesh across change events.
	FilterID uint64

	Vertices []frame.Vector3

	// Normals is either nil or parallel to Vertices.
	Normals []frame.Vector3

	// SubMeshes are triangle lists indexing into Vertices.
	SubMeshes [][]uint32
}

// Validate checks array shapes. Index ranges are checked during
// encoding.
func (m Mesh) Validate() error {
	if len(m.SubMeshes) == 0 {
		return fmt.Errorf("mesh %d has no sub-meshes", m.FilterID)
	}
	if m.Normals != nil && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("mesh %d: %d normals for %d vertices", m.FilterID, len(m.Normals), len(m.Vertices))
	}
	return nil
}

// SubMesh is the decoded contents of one CompressedMesh. Vertices are
// only those the sub-mesh references, in first-use order.
type SubMesh struct {
	Vertices []frame.Vector3
	Normals  []frame.Vector3
	Indices  []uint32
}

// Blob layout: a fixed header followed by the vertex section and the
// index section.
//
//	[0:4]   vertex section stored length (uint32 LE)
//	[4]     vertex section compression tag
//	[5]     index section compression tag
//	[6]     flags
//	[7]     reserved, zero
const (
	headerSize      = 8
	flagHasNormals  = 1 << 0
	bytesPerVector3 = 12
)

// EncodeSubMesh re-indexes one sub-mesh of m and compresses it.
func EncodeSubMesh(m Mesh, subMeshIndex int) (frame.CompressedMesh, error) {
	if subMeshIndex < 0 || subMeshIndex >= len(m.SubMeshes) {
		return frame.CompressedMesh{}, fmt.Errorf("mesh %d: sub-mesh %d out of range", m.FilterID, subMeshIndex)
	}
	indices := m.SubMeshes[subMeshIndex]
	if len(indices) == 0 || len(indices)%3 != 0 {
		return frame.CompressedMesh{}, fmt.Errorf("mesh %d sub-mesh %d: %d indices is not a triangle list",
			m.FilterID, subMeshIndex, len(indices))
	}

	hasNormals := m.Normals != nil
	remap := make(map[uint32]uint32)
	var vertexBytes, normalBytes []byte
	localIndices := make([]byte, 0, len(indices)*4)
	for _, index := range indices {
		if int(index) >= len(m.Vertices) {
			return frame.CompressedMesh{}, fmt.Errorf("mesh %d sub-mesh %d: index %d out of range (%d vertices)",
				m.FilterID, subMeshIndex, index, len(m.Vertices))
		}
		local, seen := remap[index]
		if !seen {
			local = uint32(len(remap))
			remap[index] = local
			vertexBytes = appendVector3(vertexBytes, m.Vertices[index])
			if hasNormals {
				normalBytes = appendVector3(normalBytes, m.Normals[index])
			}
		}
		localIndices = binary.LittleEndian.AppendUint32(localIndices, local)
	}
	vertexSection := append(vertexBytes, normalBytes...)

	storedVertices, vertexTag, err := compressOrStore(vertexSection, CompressionBG4LZ4)
	if err != nil {
		return frame.CompressedMesh{}, fmt.Errorf("compressing vertices: %w", err)
	}
	storedIndices, indexTag, err := compressOrStore(localIndices, CompressionZstd)
	if err != nil {
		return frame.CompressedMesh{}, fmt.Errorf("compressing indices: %w", err)
	}

	data := make([]byte, headerSize, headerSize+len(storedVertices)+len(storedIndices))
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(storedVertices)))
	data[4] = byte(vertexTag)
	data[5] = byte(indexTag)
	if hasNormals {
		data[6] = flagHasNormals
	}
	data = append(data, storedVertices...)
	data = append(data, storedIndices...)

	return frame.CompressedMesh{
		Compression:      vertexTag.String() + "+" + indexTag.String(),
		VertexCount:      len(remap),
		IndexCount:       len(indices),
		UncompressedSize: len(vertexSection) + len(localIndices),
		Digest:           Digest(vertexSection, localIndices),
		Data:             data,
	}, nil
}

// DecodeSubMesh reverses EncodeSubMesh and verifies the digest.
func DecodeSubMesh(encoded frame.CompressedMesh) (SubMesh, error) {
	data := encoded.Data
	if len(data) < headerSize {
		return SubMesh{}, fmt.Errorf("sub-mesh blob too short: %d bytes", len(data))
	}
	storedVertexLength := int(binary.LittleEndian.Uint32(data[0:4]))
	vertexTag := CompressionTag(data[4])
	indexTag := CompressionTag(data[5])
	hasNormals := data[6]&flagHasNormals != 0
	if headerSize+storedVertexLength > len(data) {
		return SubMesh{}, fmt.Errorf("sub-mesh blob: vertex section of %d bytes overruns %d byte blob",
			storedVertexLength, len(data))
	}

	vectorsPerVertex := 1
	if hasNormals {
		vectorsPerVertex = 2
	}
	vertexSize := encoded.VertexCount * vectorsPerVertex * bytesPerVector3
	indexSize := encoded.IndexCount * 4
	if vertexSize+indexSize != encoded.UncompressedSize {
		return SubMesh{}, fmt.Errorf("sub-mesh blob: counts imply %d bytes, header says %d",
			vertexSize+indexSize, encoded.UncompressedSize)
	}

	vertexSection, err := decompress(data[headerSize:headerSize+storedVertexLength], vertexTag, vertexSize)
	if err != nil {
		return SubMesh{}, fmt.Errorf("decompressing vertices: %w", err)
	}
	indexSection, err := decompress(data[headerSize+storedVertexLength:], indexTag, indexSize)
	if err != nil {
		return SubMesh{}, fmt.Errorf("decompressing indices: %w", err)
	}
	if Digest(vertexSection, indexSection) != encoded.Digest {
		return SubMesh{}, fmt.Errorf("sub-mesh digest mismatch")
	}

	positionBytes := encoded.VertexCount * bytesPerVector3
	result := SubMesh{
		Vertices: readVector3s(vertexSection[:positionBytes]),
		Indices:  make([]uint32, encoded.IndexCount),
	}
	if hasNormals {
		result.Normals = readVector3s(vertexSection[positionBytes:])
	}
	for i := range result.Indices {
		result.Indices[i] = binary.LittleEndian.Uint32(indexSection[i*4:])
	}
	return result, nil
}

func appendVector3(buffer []byte, v frame.Vector3) []byte {
	buffer = binary.LittleEndian.AppendUint32(buffer, math.Float32bits(v.X))
	buffer = binary.LittleEndian.AppendUint32(buffer, math.Float32bits(v.Y))
	return binary.LittleEndian.AppendUint32(buffer, math.Float32bits(v.Z))
}

func readVector3s(data []byte) []frame.Vector3 {
	vectors := make([]frame.Vector3, len(data)/bytesPerVector3)
	for i := range vectors {
		offset := i * bytesPerVector3
		vectors[i] = frame.Vector3{
			X: math.Float32frombits(binary.LittleEndian.Uint32(data[offset:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(data[offset+4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(data[offset+8:])),
		}
	}
	return vectors
}
