// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import "fmt"

// Vector2 is a two-component float32 vector. It encodes as a two
// element CBOR array.
type Vector2 struct {
	_ struct{} `cbor:",toarray"`
	X float32
	Y float32
}

// Vector3 is a three-component float32 vector in the platform's world
// space convention.
type Vector3 struct {
	_ struct{} `cbor:",toarray"`
	X float32
	Y float32
	Z float32
}

// Quaternion is a rotation stored as (X, Y, Z, W).
type Quaternion struct {
	_ struct{} `cbor:",toarray"`
	X float32
	Y float32
	Z float32
	W float32
}

// IdentityQuaternion is the rotation that does nothing.
var IdentityQuaternion = Quaternion{W: 1}

// Matrix4x4 is a row-major 4×4 transform: element (row, column) is at
// index row*4+column. Translation lives in column 3.
type Matrix4x4 [16]float32

// IdentityMatrix returns the 4×4 identity.
func IdentityMatrix() Matrix4x4 {
	return Matrix4x4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Modality identifies one sensor or tracking data type. Values are
// protocol constants carried as the ARFrame discriminator; changing
// them breaks compatibility with stored recordings.
type Modality uint8

const (
	ModalityUnknown             Modality = 0
	ModalityColor               Modality = 1
	ModalityDepth               Modality = 2
	ModalityTransform           Modality = 3
	ModalityPose                Modality = 4
	ModalityGyroscope           Modality = 5
	ModalityAudio               Modality = 6
	ModalityPlaneDetection      Modality = 7
	ModalityPointCloudDetection Modality = 8
	ModalityMeshDetection       Modality = 9
)

// Modalities lists every concrete modality in protocol order.
var Modalities = []Modality{
	ModalityColor,
	ModalityDepth,
	ModalityTransform,
	ModalityPose,
	ModalityGyroscope,
	ModalityAudio,
	ModalityPlaneDetection,
	ModalityPointCloudDetection,
	ModalityMeshDetection,
}

// String returns the modality's configuration and log name.
func (m Modality) String() string {
	switch m {
	case ModalityColor:
		return "color"
	case ModalityDepth:
		return "depth"
	case ModalityTransform:
		return "transform"
	case ModalityPose:
		return "pose"
	case ModalityGyroscope:
		return "gyroscope"
	case ModalityAudio:
		return "audio"
	case ModalityPlaneDetection:
		return "plane_detection"
	case ModalityPointCloudDetection:
		return "point_cloud_detection"
	case ModalityMeshDetection:
		return "mesh_detection"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// State is the lifecycle tag of a trackable in one change event.
type State uint8

const (
	StateAdded   State = 1
	StateUpdated State = 2
	StateRemoved State = 3
)

func (s State) String() string {
	switch s {
	case StateAdded:
		return "added"
	case StateUpdated:
		return "updated"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// PixelFormat describes the layout of a color image.
type PixelFormat uint8

const (
	PixelFormatUnknown PixelFormat = 0

	// PixelFormatYCbCr420 is a three-plane (or biplanar, expressed as
	// three planes with pixel stride 2 on chroma) YCbCr 4:2:0 image as
	// delivered by mobile camera pipelines.
	PixelFormatYCbCr420 PixelFormat = 1

	// PixelFormatNV12 is the wire layout: full-resolution luma
	// followed by interleaved CbCr at half resolution.
	PixelFormatNV12 PixelFormat = 2
)

// DepthFormat describes the sample type of a depth image.
type DepthFormat uint8

const (
	DepthFormatUnknown DepthFormat = 0

	// DepthFormatFloat32 is depth in meters as little-endian float32.
	DepthFormatFloat32 DepthFormat = 1

	// DepthFormatUint16 is depth in millimeters as little-endian uint16.
	DepthFormatUint16 DepthFormat = 2
)

// BytesPerSample returns the sample width in bytes, or 0 for an
// unknown format.
func (f DepthFormat) BytesPerSample() int {
	switch f {
	case DepthFormatFloat32:
		return 4
	case DepthFormatUint16:
		return 2
	default:
		return 0
	}
}

// PlaneAlignment classifies a detected plane's orientation.
type PlaneAlignment uint8

const (
	PlaneAlignmentNone           PlaneAlignment = 0
	PlaneAlignmentHorizontalUp   PlaneAlignment = 1
	PlaneAlignmentHorizontalDown PlaneAlignment = 2
	PlaneAlignmentVertical       PlaneAlignment = 3
	PlaneAlignmentNotAxisAligned PlaneAlignment = 4
)

// Intrinsics are the camera calibration parameters needed to interpret
// color and depth images geometrically. Focal length and principal
// point are in pixels of an image of the given resolution.
type Intrinsics struct {
	FocalLength      Vector2 `cbor:"focal_length"`
	PrincipalPoint   Vector2 `cbor:"principal_point"`
	ResolutionWidth  int     `cbor:"resolution_width"`
	ResolutionHeight int     `cbor:"resolution_height"`
}

// Scaled returns the intrinsics for the same camera at a different
// image resolution. Color frames are resampled before sending, so the
// registered intrinsics must describe the resampled size.
func (i Intrinsics) Scaled(width, height int) Intrinsics {
	if i.ResolutionWidth == 0 || i.ResolutionHeight == 0 {
		return i
	}
	scaleX := float32(width) / float32(i.ResolutionWidth)
	scaleY := float32(height) / float32(i.ResolutionHeight)
	return Intrinsics{
		FocalLength:      Vector2{X: i.FocalLength.X * scaleX, Y: i.FocalLength.Y * scaleY},
		PrincipalPoint:   Vector2{X: i.PrincipalPoint.X * scaleX, Y: i.PrincipalPoint.Y * scaleY},
		ResolutionWidth:  width,
		ResolutionHeight: height,
	}
}

// Rotate applies the rotation q to v. q is assumed to be unit length.
func (q Quaternion) Rotate(v Vector3) Vector3 {
	// v' = v + 2w(u×v) + 2u×(u×v), with u the vector part of q.
	ux, uy, uz := q.X, q.Y, q.Z
	cx := uy*v.Z - uz*v.Y
	cy := uz*v.X - ux*v.Z
	cz := ux*v.Y - uy*v.X
	ccx := uy*cz - uz*cy
	ccy := uz*cx - ux*cz
	ccz := ux*cy - uy*cx
	return Vector3{
		X: v.X + 2*(q.W*cx+ccx),
		Y: v.Y + 2*(q.W*cy+ccy),
		Z: v.Z + 2*(q.W*cz+ccz),
	}
}
