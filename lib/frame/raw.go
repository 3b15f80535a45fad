// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"time"

	"github.com/arcollect/arcollect/lib/imaging"
)

// Raw is one captured sample of one modality. The interface is sealed:
// only the frame types in this package implement it, which is what
// makes Converter.Convert total.
type Raw interface {
	Modality() Modality
	CapturedAt() time.Time
	isRaw()
}

// ImagePlane is one plane of a captured image.
type ImagePlane = imaging.Plane

// ColorFrame is an owned copy of one camera image.
type ColorFrame struct {
	Timestamp time.Time
	Width     int
	Height    int
	Format    PixelFormat

	// Planes holds Y, Cb, Cr for PixelFormatYCbCr420.
	Planes []ImagePlane
}

// DepthFrame is an owned copy of one depth image and, when the
// platform provides one, its confidence image. Both planes must come
// from the same acquisition instant; nothing checks this.
type DepthFrame struct {
	Timestamp time.Time
	Width     int
	Height    int
	Format    DepthFormat
	Depth     ImagePlane

	// Confidence is one byte per pixel, nil when unavailable.
	Confidence *ImagePlane
}

// TransformFrame is the device's world transform packed as the upper
// 3×4 block of a 4×4 matrix (see PackAffine).
type TransformFrame struct {
	Timestamp time.Time
	Matrix    [AffineSize]byte
}

// PoseFrame is the device pose with its basis vectors.
type PoseFrame struct {
	Timestamp time.Time
	Position  Vector3
	Rotation  Quaternion
	Forward   Vector3
	Right     Vector3
	Up        Vector3
}

// GyroscopeFrame is one motion-sensor reading. Sensors that are absent
// on the device contribute zero values.
type GyroscopeFrame struct {
	Timestamp    time.Time
	Attitude     Quaternion
	RotationRate Vector3
	Gravity      Vector3
	Acceleration Vector3
}

// AudioFrame is one microphone callback's worth of interleaved samples.
type AudioFrame struct {
	Timestamp  time.Time
	SampleRate int
	Channels   int
	Samples    []float32
}

// PlaneDetectionFrame is one detected plane's change event.
type PlaneDetectionFrame struct {
	Timestamp      time.Time
	State          State
	TrackableID    uint64
	SubsumedByID   uint64
	Position       Vector3
	Rotation       Quaternion
	Alignment      PlaneAlignment
	Classification uint32

	// Center, Normal, Size, and Boundary describe the plane's extent.
	// All are zero when Removed.
	Center   Vector3
	Normal   Vector3
	Size     Vector2
	Boundary []Vector2
}

// PointCloudDetectionFrame is one point cloud's change event.
type PointCloudDetectionFrame struct {
	Timestamp   time.Time
	State       State
	TrackableID uint64
	Position    Vector3
	Rotation    Quaternion

	// Identifiers, Positions and Confidences are parallel. All nil
	// when Removed. Confidences may be nil on platforms without them.
	Identifiers []uint64
	Positions   []Vector3
	Confidences []float32
}

// MeshDetectionFrame is one compressed sub-mesh of a reconstructed
// mesh, or, when Removed, the removal of the mesh as a whole.
type MeshDetectionFrame struct {
	Timestamp    time.Time
	State        State
	MeshFilterID uint64
	SubMeshIndex int

	// Mesh is nil when Removed.
	Mesh *CompressedMesh
}

// CompressedMesh is an opaque encoded sub-mesh produced by
// lib/meshcodec.
type CompressedMesh struct {
	Compression      string   `cbor:"compression"`
	VertexCount      int      `cbor:"vertex_count"`
	IndexCount       int      `cbor:"index_count"`
	UncompressedSize int      `cbor:"uncompressed_size"`
	Digest           [32]byte `cbor:"digest"`
	Data             []byte   `cbor:"data"`
}

// SynchronizedFrame is a composition of the latest sample of every
// modality, stamped with the time the composition was taken. A nil
// field means that modality had no sample.
type SynchronizedFrame struct {
	Timestamp           time.Time
	Color               *ColorFrame
	Depth               *DepthFrame
	Transform           *TransformFrame
	Pose                *PoseFrame
	Gyroscope           *GyroscopeFrame
	Audio               *AudioFrame
	PlaneDetection      *PlaneDetectionFrame
	PointCloudDetection *PointCloudDetectionFrame
	MeshDetection       *MeshDetectionFrame
}

// Children returns the populated modality samples in protocol order.
func (s SynchronizedFrame) Children() []Raw {
	var children []Raw
	if s.Color != nil {
		children = append(children, s.Color)
	}
	if s.Depth != nil {
		children = append(children, s.Depth)
	}
	if s.Transform != nil {
		children = append(children, s.Transform)
	}
	if s.Pose != nil {
		children = append(children, s.Pose)
	}
	if s.Gyroscope != nil {
		children = append(children, s.Gyroscope)
	}
	if s.Audio != nil {
		children = append(children, s.Audio)
	}
	if s.PlaneDetection != nil {
		children = append(children, s.PlaneDetection)
	}
	if s.PointCloudDetection != nil {
		children = append(children, s.PointCloudDetection)
	}
	if s.MeshDetection != nil {
		children = append(children, s.MeshDetection)
	}
	return children
}

func (*ColorFrame) Modality() Modality               { return ModalityColor }
func (*DepthFrame) Modality() Modality               { return ModalityDepth }
func (*TransformFrame) Modality() Modality           { return ModalityTransform }
func (*PoseFrame) Modality() Modality                { return ModalityPose }
func (*GyroscopeFrame) Modality() Modality           { return ModalityGyroscope }
func (*AudioFrame) Modality() Modality               { return ModalityAudio }
func (*PlaneDetectionFrame) Modality() Modality      { return ModalityPlaneDetection }
func (*PointCloudDetectionFrame) Modality() Modality { return ModalityPointCloudDetection }
func (*MeshDetectionFrame) Modality() Modality       { return ModalityMeshDetection }

func (f *ColorFrame) CapturedAt() time.Time               { return f.Timestamp }
func (f *DepthFrame) CapturedAt() time.Time               { return f.Timestamp }
func (f *TransformFrame) CapturedAt() time.Time           { return f.Timestamp }
func (f *PoseFrame) CapturedAt() time.Time                { return f.Timestamp }
func (f *GyroscopeFrame) CapturedAt() time.Time           { return f.Timestamp }
func (f *AudioFrame) CapturedAt() time.Time               { return f.Timestamp }
func (f *PlaneDetectionFrame) CapturedAt() time.Time      { return f.Timestamp }
func (f *PointCloudDetectionFrame) CapturedAt() time.Time { return f.Timestamp }
func (f *MeshDetectionFrame) CapturedAt() time.Time       { return f.Timestamp }

func (*ColorFrame) isRaw()               {}
func (*DepthFrame) isRaw()               {}
func (*TransformFrame) isRaw()           {}
func (*PoseFrame) isRaw()                {}
func (*GyroscopeFrame) isRaw()           {}
func (*AudioFrame) isRaw()               {}
func (*PlaneDetectionFrame) isRaw()      {}
func (*PointCloudDetectionFrame) isRaw() {}
func (*MeshDetectionFrame) isRaw()       {}
