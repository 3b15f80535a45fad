// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"fmt"
	"time"
)

// ARFrame is the wire envelope for one converted sample. Exactly one
// payload field is non-nil and Kind names it.
type ARFrame struct {
	Kind Modality `cbor:"kind"`

	Color               *ColorPayload               `cbor:"color,omitempty"`
	Depth               *DepthPayload               `cbor:"depth,omitempty"`
	Transform           *TransformPayload           `cbor:"transform,omitempty"`
	Pose                *PosePayload                `cbor:"pose,omitempty"`
	Gyroscope           *GyroscopePayload           `cbor:"gyroscope,omitempty"`
	Audio               *AudioPayload               `cbor:"audio,omitempty"`
	PlaneDetection      *PlaneDetectionPayload      `cbor:"plane_detection,omitempty"`
	PointCloudDetection *PointCloudDetectionPayload `cbor:"point_cloud_detection,omitempty"`
	MeshDetection       *MeshDetectionPayload       `cbor:"mesh_detection,omitempty"`
}

// ColorPayload is an NV12 image.
type ColorPayload struct {
	DeviceTimestamp int64       `cbor:"device_timestamp"`
	Width           int         `cbor:"width"`
	Height          int         `cbor:"height"`
	Format          PixelFormat `cbor:"format"`
	Data            []byte      `cbor:"data"`
}

// DepthPayload is a tightly packed depth image. Samples whose
// confidence was below the converter's threshold are zero.
type DepthPayload struct {
	DeviceTimestamp int64       `cbor:"device_timestamp"`
	Width           int         `cbor:"width"`
	Height          int         `cbor:"height"`
	Format          DepthFormat `cbor:"format"`
	Data            []byte      `cbor:"data"`

	// ConfidenceFiltered is true when a confidence image was applied.
	ConfidenceFiltered bool `cbor:"confidence_filtered,omitempty"`
}

type TransformPayload struct {
	DeviceTimestamp int64  `cbor:"device_timestamp"`
	Matrix          []byte `cbor:"matrix"`
}

type PosePayload struct {
	DeviceTimestamp int64      `cbor:"device_timestamp"`
	Position        Vector3    `cbor:"position"`
	Rotation        Quaternion `cbor:"rotation"`
	Forward         Vector3    `cbor:"forward"`
	Right           Vector3    `cbor:"right"`
	Up              Vector3    `cbor:"up"`
}

type GyroscopePayload struct {
	DeviceTimestamp int64      `cbor:"device_timestamp"`
	Attitude        Quaternion `cbor:"attitude"`
	RotationRate    Vector3    `cbor:"rotation_rate"`
	Gravity         Vector3    `cbor:"gravity"`
	Acceleration    Vector3    `cbor:"acceleration"`
}

type AudioPayload struct {
	DeviceTimestamp int64     `cbor:"device_timestamp"`
	SampleRate      int       `cbor:"sample_rate"`
	Channels        int       `cbor:"channels"`
	Samples         []float32 `cbor:"samples"`
}

type PlaneDetectionPayload struct {
	DeviceTimestamp int64          `cbor:"device_timestamp"`
	State           State          `cbor:"state"`
	TrackableID     uint64         `cbor:"trackable_id"`
	SubsumedByID    uint64         `cbor:"subsumed_by_id,omitempty"`
	Position        Vector3        `cbor:"position"`
	Rotation        Quaternion     `cbor:"rotation"`
	Center          Vector3        `cbor:"center"`
	Normal          Vector3        `cbor:"normal"`
	Size            Vector2        `cbor:"size"`
	Alignment       PlaneAlignment `cbor:"alignment"`
	Classification  uint32         `cbor:"classification"`
	Boundary        []Vector2      `cbor:"boundary,omitempty"`
}

type PointCloudDetectionPayload struct {
	DeviceTimestamp int64      `cbor:"device_timestamp"`
	State           State      `cbor:"state"`
	TrackableID     uint64     `cbor:"trackable_id"`
	Position        Vector3    `cbor:"position"`
	Rotation        Quaternion `cbor:"rotation"`
	Identifiers     []uint64   `cbor:"identifiers,omitempty"`
	Positions       []Vector3  `cbor:"positions,omitempty"`
	Confidences     []float32  `cbor:"confidences,omitempty"`
}

type MeshDetectionPayload struct {
	DeviceTimestamp int64           `cbor:"device_timestamp"`
	State           State           `cbor:"state"`
	MeshFilterID    uint64          `cbor:"mesh_filter_id"`
	SubMeshIndex    int             `cbor:"sub_mesh_index"`
	Mesh            *CompressedMesh `cbor:"mesh,omitempty"`
}

// populated returns the kinds whose payload field is set, in protocol
// order.
func (f *ARFrame) populated() []Modality {
	var kinds []Modality
	add := func(kind Modality, present bool) {
		if present {
			kinds = append(kinds, kind)
		}
	}
	add(ModalityColor, f.Color != nil)
	add(ModalityDepth, f.Depth != nil)
	add(ModalityTransform, f.Transform != nil)
	add(ModalityPose, f.Pose != nil)
	add(ModalityGyroscope, f.Gyroscope != nil)
	add(ModalityAudio, f.Audio != nil)
	add(ModalityPlaneDetection, f.PlaneDetection != nil)
	add(ModalityPointCloudDetection, f.PointCloudDetection != nil)
	add(ModalityMeshDetection, f.MeshDetection != nil)
	return kinds
}

// Validate checks that exactly one payload is populated and that Kind
// names it. Trackable payloads are also checked for geometry on a
// Removed record.
func (f *ARFrame) Validate() error {
	populated := f.populated()
	switch len(populated) {
	case 0:
		return fmt.Errorf("frame has no payload (kind %s)", f.Kind)
	case 1:
	default:
		return fmt.Errorf("frame has %d payloads %v, want exactly one", len(populated), populated)
	}
	if populated[0] != f.Kind {
		return fmt.Errorf("frame kind %s does not match %s payload", f.Kind, populated[0])
	}

	switch {
	case f.PlaneDetection != nil:
		payload := f.PlaneDetection
		if payload.State == StateRemoved && (payload.Boundary != nil || payload.Center != (Vector3{}) || payload.Normal != (Vector3{}) || payload.Size != (Vector2{})) {
			return fmt.Errorf("plane %d: %w", payload.TrackableID, ErrRemovedWithGeometry)
		}
	case f.PointCloudDetection != nil:
		payload := f.PointCloudDetection
		if payload.State == StateRemoved && (payload.Identifiers != nil || payload.Positions != nil || payload.Confidences != nil) {
			return fmt.Errorf("point cloud %d: %w", payload.TrackableID, ErrRemovedWithGeometry)
		}
	case f.MeshDetection != nil:
		if f.MeshDetection.State == StateRemoved && f.MeshDetection.Mesh != nil {
			return fmt.Errorf("mesh filter %d: %w", f.MeshDetection.MeshFilterID, ErrRemovedWithGeometry)
		}
	}
	return nil
}

// DeviceTimestamp returns the populated payload's capture time in
// nanoseconds since the Unix epoch, or 0 for an empty frame.
func (f *ARFrame) DeviceTimestamp() int64 {
	switch {
	case f.Color != nil:
		return f.Color.DeviceTimestamp
	case f.Depth != nil:
		return f.Depth.DeviceTimestamp
	case f.Transform != nil:
		return f.Transform.DeviceTimestamp
	case f.Pose != nil:
		return f.Pose.DeviceTimestamp
	case f.Gyroscope != nil:
		return f.Gyroscope.DeviceTimestamp
	case f.Audio != nil:
		return f.Audio.DeviceTimestamp
	case f.PlaneDetection != nil:
		return f.PlaneDetection.DeviceTimestamp
	case f.PointCloudDetection != nil:
		return f.PointCloudDetection.DeviceTimestamp
	case f.MeshDetection != nil:
		return f.MeshDetection.DeviceTimestamp
	default:
		return 0
	}
}

// CapturedAt returns DeviceTimestamp as a time.Time in UTC.
func (f *ARFrame) CapturedAt() time.Time {
	return TimeFromDeviceTimestamp(f.DeviceTimestamp())
}

// DeviceTimestampOf converts a capture time to its wire form.
func DeviceTimestampOf(t time.Time) int64 {
	return t.UnixNano()
}

// TimeFromDeviceTimestamp is the inverse of DeviceTimestampOf.
func TimeFromDeviceTimestamp(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}
