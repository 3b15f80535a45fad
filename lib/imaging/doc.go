// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package imaging holds the pixel-level conversions applied to camera
// and depth images before they are sent: nearest-neighbor resampling
// of YCbCr 4:2:0 images into NV12, tight repacking of strided planes,
// and confidence-based depth filtering.
//
// Every function is pure and allocates its output; inputs are never
// modified. Malformed input (planes too short for the declared
// geometry) yields an error rather than a panic, since the caller
// treats a bad image as one dropped frame.
package imaging
