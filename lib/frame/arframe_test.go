// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestARFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   ARFrame
		wantErr string
	}{
		{
			name:  "single payload",
			frame: ARFrame{Kind: ModalityPose, Pose: &PosePayload{}},
		},
		{
			name:    "empty",
			frame:   ARFrame{Kind: ModalityPose},
			wantErr: "no payload",
		},
		{
			name:    "two payloads",
			frame:   ARFrame{Kind: ModalityPose, Pose: &PosePayload{}, Audio: &AudioPayload{}},
			wantErr: "want exactly one",
		},
		{
			name:    "kind mismatch",
			frame:   ARFrame{Kind: ModalityAudio, Pose: &PosePayload{}},
			wantErr: "does not match",
		},
		{
			name: "removed plane with boundary",
			frame: ARFrame{Kind: ModalityPlaneDetection, PlaneDetection: &PlaneDetectionPayload{
				State: StateRemoved, Boundary: []Vector2{{}},
			}},
			wantErr: ErrRemovedWithGeometry.Error(),
		},
		{
			name: "removed plane with extent",
			frame: ARFrame{Kind: ModalityPlaneDetection, PlaneDetection: &PlaneDetectionPayload{
				State: StateRemoved, Size: Vector2{X: 2, Y: 1},
			}},
			wantErr: ErrRemovedWithGeometry.Error(),
		},
		{
			name: "removed mesh without geometry",
			frame: ARFrame{Kind: ModalityMeshDetection, MeshDetection: &MeshDetectionPayload{
				State: StateRemoved, MeshFilterID: 9,
			}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.frame.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestRawTrackableValidate(t *testing.T) {
	removed := RemovedPlane(PlaneDetectionFrame{
		TrackableID: 1,
		Position:    Vector3{X: 1},
		Center:      Vector3{Y: 1},
		Normal:      Vector3{Y: 1},
		Size:        Vector2{X: 2, Y: 3},
		Boundary:    []Vector2{{}},
	})
	if err := removed.Validate(); err != nil {
		t.Errorf("RemovedPlane: %v", err)
	}
	if removed.Center != (Vector3{}) || removed.Normal != (Vector3{}) || removed.Size != (Vector2{}) {
		t.Errorf("RemovedPlane kept its extent: %+v", removed)
	}
	if removed.Position != (Vector3{X: 1}) || removed.TrackableID != 1 {
		t.Errorf("RemovedPlane lost identity or pose: %+v", removed)
	}
	withExtent := &PlaneDetectionFrame{State: StateRemoved, Normal: Vector3{Y: 1}}
	if err := withExtent.Validate(); !errors.Is(err, ErrRemovedWithGeometry) {
		t.Errorf("removed plane with normal: got %v, want ErrRemovedWithGeometry", err)
	}
	if err := RemovedPointCloud(PointCloudDetectionFrame{Positions: []Vector3{{}}}).Validate(); err != nil {
		t.Errorf("RemovedPointCloud: %v", err)
	}

	removedWithMesh := &MeshDetectionFrame{State: StateRemoved, Mesh: &CompressedMesh{}}
	if err := removedWithMesh.Validate(); !errors.Is(err, ErrRemovedWithGeometry) {
		t.Errorf("removed mesh with data: got %v, want ErrRemovedWithGeometry", err)
	}
	addedWithoutMesh := &MeshDetectionFrame{State: StateAdded}
	if err := addedWithoutMesh.Validate(); err == nil {
		t.Error("added mesh without data validated")
	}

	mismatched := &PointCloudDetectionFrame{
		State: StateUpdated, Identifiers: []uint64{1, 2}, Positions: []Vector3{{}},
	}
	if err := mismatched.Validate(); err == nil {
		t.Error("point cloud with mismatched slices validated")
	}
	if err := (&PlaneDetectionFrame{}).Validate(); err == nil {
		t.Error("zero state validated")
	}
}

func TestModalityNames(t *testing.T) {
	seen := make(map[string]Modality)
	for _, modality := range Modalities {
		name := modality.String()
		if strings.HasPrefix(name, "unknown") {
			t.Errorf("modality %d has no name", modality)
		}
		if previous, exists := seen[name]; exists {
			t.Errorf("modalities %d and %d share the name %q", previous, modality, name)
		}
		seen[name] = modality
	}
	if got := Modality(99).String(); got != "unknown(99)" {
		t.Errorf("Modality(99).String() = %q", got)
	}
}

func TestIntrinsicsScaled(t *testing.T) {
	native := Intrinsics{
		FocalLength:      Vector2{X: 1000, Y: 1000},
		PrincipalPoint:   Vector2{X: 960, Y: 540},
		ResolutionWidth:  1920,
		ResolutionHeight: 1080,
	}
	scaled := native.Scaled(480, 270)
	if scaled.FocalLength != (Vector2{X: 250, Y: 250}) {
		t.Errorf("focal length = %+v", scaled.FocalLength)
	}
	if scaled.PrincipalPoint != (Vector2{X: 240, Y: 135}) {
		t.Errorf("principal point = %+v", scaled.PrincipalPoint)
	}
	if scaled.ResolutionWidth != 480 || scaled.ResolutionHeight != 270 {
		t.Errorf("resolution = %dx%d", scaled.ResolutionWidth, scaled.ResolutionHeight)
	}
}

func TestQuaternionRotate(t *testing.T) {
	// 90 degrees about +Y takes +Z to +X.
	half := float32(math.Sqrt2 / 2)
	q := Quaternion{Y: half, W: half}
	got := q.Rotate(Vector3{Z: 1})
	if math.Abs(float64(got.X-1)) > 1e-6 || math.Abs(float64(got.Y)) > 1e-6 || math.Abs(float64(got.Z)) > 1e-6 {
		t.Errorf("rotate +Z = %+v, want +X", got)
	}
	if identity := IdentityQuaternion.Rotate(Vector3{X: 1, Y: 2, Z: 3}); identity != (Vector3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("identity rotation = %+v", identity)
	}
}
