// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"encoding/binary"
	"math"
)

// AffineSize is the packed size of a 3×4 affine block: twelve
// little-endian float32 values.
const AffineSize = 12 * 4

// PackAffine packs the upper three rows of m, row-major, into 48
// bytes. The projective row is dropped unconditionally; a matrix with
// a non-trivial bottom row loses that information.
func PackAffine(m Matrix4x4) [AffineSize]byte {
	var packed [AffineSize]byte
	for i := 0; i < 12; i++ {
		binary.LittleEndian.PutUint32(packed[i*4:], math.Float32bits(m[i]))
	}
	return packed
}

// UnpackAffine is the inverse of PackAffine. The bottom row of the
// result is (0, 0, 0, 1).
func UnpackAffine(packed [AffineSize]byte) Matrix4x4 {
	var m Matrix4x4
	for i := 0; i < 12; i++ {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(packed[i*4:]))
	}
	m[15] = 1
	return m
}
