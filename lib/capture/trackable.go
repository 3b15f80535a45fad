// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"time"

	"github.com/arcollect/arcollect/lib/frame"
)

// expandChanges turns one trackables-changed event into frames, all
// sharing timestamp, in Added, Updated, Removed order.
func expandChanges[E any, T frame.Raw](change TrackablesChanged[E], timestamp time.Time, build func(E, frame.State, time.Time) T) []T {
	frames := make([]T, 0, len(change.Added)+len(change.Updated)+len(change.Removed))
	for _, item := range change.Added {
		frames = append(frames, build(item, frame.StateAdded, timestamp))
	}
	for _, item := range change.Updated {
		frames = append(frames, build(item, frame.StateUpdated, timestamp))
	}
	for _, item := range change.Removed {
		frames = append(frames, build(item, frame.StateRemoved, timestamp))
	}
	return frames
}

// PlaneBuffer records plane detection changes.
type PlaneBuffer struct {
	*eventBuffer[TrackablesChanged[Plane], *frame.PlaneDetectionFrame]
}

// NewPlaneBuffer returns a stopped plane buffer.
func NewPlaneBuffer(changes EventSource[TrackablesChanged[Plane]], deps Dependencies) *PlaneBuffer {
	b := &PlaneBuffer{newEventBuffer[TrackablesChanged[Plane], *frame.PlaneDetectionFrame](frame.ModalityPlaneDetection, changes, deps)}
	b.handle = func(change TrackablesChanged[Plane]) {
		if change.Empty() {
			return
		}
		b.AddBatch(expandChanges(change, b.deps.Time.Now(), planeFrame))
	}
	return b
}

func planeFrame(plane Plane, state frame.State, timestamp time.Time) *frame.PlaneDetectionFrame {
	captured := frame.PlaneDetectionFrame{
		Timestamp:      timestamp,
		State:          state,
		TrackableID:    plane.TrackableID,
		SubsumedByID:   plane.SubsumedByID,
		Position:       plane.Pose.Position,
		Rotation:       plane.Pose.Rotation,
		Center:         plane.Center,
		Normal:         plane.Normal,
		Size:           plane.Size,
		Alignment:      plane.Alignment,
		Classification: plane.Classification,
	}
	if state == frame.StateRemoved {
		return frame.RemovedPlane(captured)
	}
	captured.Boundary = append([]frame.Vector2(nil), plane.Boundary...)
	return &captured
}

// PointCloudBuffer records point cloud detection changes.
type PointCloudBuffer struct {
	*eventBuffer[TrackablesChanged[PointCloud], *frame.PointCloudDetectionFrame]
}

// NewPointCloudBuffer returns a stopped point cloud buffer.
func NewPointCloudBuffer(changes EventSource[TrackablesChanged[PointCloud]], deps Dependencies) *PointCloudBuffer {
	b := &PointCloudBuffer{newEventBuffer[TrackablesChanged[PointCloud], *frame.PointCloudDetectionFrame](frame.ModalityPointCloudDetection, changes, deps)}
	b.handle = func(change TrackablesChanged[PointCloud]) {
		if change.Empty() {
			return
		}
		b.AddBatch(expandChanges(change, b.deps.Time.Now(), pointCloudFrame))
	}
	return b
}

func pointCloudFrame(cloud PointCloud, state frame.State, timestamp time.Time) *frame.PointCloudDetectionFrame {
	captured := frame.PointCloudDetectionFrame{
		Timestamp:   timestamp,
		State:       state,
		TrackableID: cloud.TrackableID,
		Position:    cloud.Pose.Position,
		Rotation:    cloud.Pose.Rotation,
	}
	if state == frame.StateRemoved {
		return frame.RemovedPointCloud(captured)
	}
	captured.Identifiers = append([]uint64(nil), cloud.Identifiers...)
	captured.Positions = append([]frame.Vector3(nil), cloud.Positions...)
	if cloud.Confidences != nil {
		captured.Confidences = append([]float32(nil), cloud.Confidences...)
	}
	return &captured
}
