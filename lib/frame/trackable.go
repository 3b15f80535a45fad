// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"fmt"
)

// ErrRemovedWithGeometry is returned by Validate when a Removed
// trackable record carries geometry.
var ErrRemovedWithGeometry = errors.New("removed trackable carries geometry")

func validateState(state State) error {
	switch state {
	case StateAdded, StateUpdated, StateRemoved:
		return nil
	default:
		return fmt.Errorf("invalid trackable state %d", state)
	}
}

// Validate checks the lifecycle state and the Removed invariant.
func (f *PlaneDetectionFrame) Validate() error {
	if err := validateState(f.State); err != nil {
		return err
	}
	if f.State == StateRemoved && (f.Boundary != nil || f.Center != (Vector3{}) || f.Normal != (Vector3{}) || f.Size != (Vector2{})) {
		return fmt.Errorf("plane %d: %w", f.TrackableID, ErrRemovedWithGeometry)
	}
	return nil
}

// Validate checks the lifecycle state, the Removed invariant, and
// that the per-point slices are parallel.
func (f *PointCloudDetectionFrame) Validate() error {
	if err := validateState(f.State); err != nil {
		return err
	}
	if f.State == StateRemoved {
		if f.Identifiers != nil || f.Positions != nil || f.Confidences != nil {
			return fmt.Errorf("point cloud %d: %w", f.TrackableID, ErrRemovedWithGeometry)
		}
		return nil
	}
	if len(f.Identifiers) != len(f.Positions) {
		return fmt.Errorf("point cloud %d: %d identifiers for %d positions",
			f.TrackableID, len(f.Identifiers), len(f.Positions))
	}
	if f.Confidences != nil && len(f.Confidences) != len(f.Positions) {
		return fmt.Errorf("point cloud %d: %d confidences for %d positions",
			f.TrackableID, len(f.Confidences), len(f.Positions))
	}
	return nil
}

// Validate checks the lifecycle state and the Removed invariant. An
// Added or Updated frame must carry a mesh.
func (f *MeshDetectionFrame) Validate() error {
	if err := validateState(f.State); err != nil {
		return err
	}
	if f.State == StateRemoved {
		if f.Mesh != nil {
			return fmt.Errorf("mesh filter %d: %w", f.MeshFilterID, ErrRemovedWithGeometry)
		}
		return nil
	}
	if f.Mesh == nil {
		return fmt.Errorf("mesh filter %d sub-mesh %d: %s frame without mesh data",
			f.MeshFilterID, f.SubMeshIndex, f.State)
	}
	return nil
}

// RemovedPlane builds the removal record for a plane: identity, last
// pose, and classification. The extent is cleared.
func RemovedPlane(from PlaneDetectionFrame) *PlaneDetectionFrame {
	from.State = StateRemoved
	from.Center = Vector3{}
	from.Normal = Vector3{}
	from.Size = Vector2{}
	from.Boundary = nil
	return &from
}

// RemovedPointCloud builds the removal record for a point cloud.
func RemovedPointCloud(from PointCloudDetectionFrame) *PointCloudDetectionFrame {
	from.State = StateRemoved
	from.Identifiers = nil
	from.Positions = nil
	from.Confidences = nil
	return &from
}
