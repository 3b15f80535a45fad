// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame defines the data model that flows through the capture
// pipeline and the conversion between its two representations.
//
// Raw frames (ColorFrame, DepthFrame, GyroscopeFrame, ...) are what
// capture buffers store: owned copies of one sample of one modality,
// stamped with the clock-corrected capture time. They implement the
// sealed Raw interface.
//
// ARFrame is the wire envelope: a tagged union with a Kind
// discriminator and exactly one populated payload. The only way to
// build one is Converter.Convert, which is total over Raw. Scalar
// fields (vector and quaternion components, identifiers, lifecycle
// states, timestamps) are carried without loss; pixel data goes
// through lib/imaging on the way.
//
// Trackable modalities (planes, point clouds, meshes) carry a
// lifecycle State. A StateRemoved frame identifies the trackable and
// its last pose but never carries geometry.
package frame
