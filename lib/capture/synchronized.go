// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"github.com/arcollect/arcollect/lib/frame"
)

// SynchronizedBuffer composes one buffer per modality. Lifecycle calls
// fan out to every child that is set; nil children are skipped.
type SynchronizedBuffer struct {
	Color               *ColorBuffer
	Depth               *DepthBuffer
	Transform           *TransformBuffer
	Pose                *PoseBuffer
	Gyroscope           *GyroscopeBuffer
	Audio               *AudioBuffer
	PlaneDetection      *PlaneBuffer
	PointCloudDetection *PointCloudBuffer
	MeshDetection       *MeshBuffer

	// Time stamps each composition. Nil means the real clock.
	Time TimeSource
}

// Children returns the non-nil child buffers in protocol order.
func (s *SynchronizedBuffer) Children() []ModalityBuffer {
	var children []ModalityBuffer
	add := func(child ModalityBuffer, present bool) {
		if present {
			children = append(children, child)
		}
	}
	add(s.Color, s.Color != nil)
	add(s.Depth, s.Depth != nil)
	add(s.Transform, s.Transform != nil)
	add(s.Pose, s.Pose != nil)
	add(s.Gyroscope, s.Gyroscope != nil)
	add(s.Audio, s.Audio != nil)
	add(s.PlaneDetection, s.PlaneDetection != nil)
	add(s.PointCloudDetection, s.PointCloudDetection != nil)
	add(s.MeshDetection, s.MeshDetection != nil)
	return children
}

func (s *SynchronizedBuffer) StartCapture() {
	for _, child := range s.Children() {
		child.StartCapture()
	}
}

func (s *SynchronizedBuffer) StopCapture() {
	for _, child := range s.Children() {
		child.StopCapture()
	}
}

func (s *SynchronizedBuffer) ClearBuffer() {
	for _, child := range s.Children() {
		child.ClearBuffer()
	}
}

func (s *SynchronizedBuffer) Dispose() {
	for _, child := range s.Children() {
		child.Dispose()
	}
}

// TryAcquireLatestFrame samples every child's newest frame. It never
// waits: a child with nothing buffered leaves its field nil. The
// result is false only when no child had a frame.
func (s *SynchronizedBuffer) TryAcquireLatestFrame() (frame.SynchronizedFrame, bool) {
	stamp := s.Time
	if stamp == nil {
		stamp = Dependencies{}.withDefaults().Time
	}
	composed := frame.SynchronizedFrame{Timestamp: stamp.Now()}

	composed.Color = latest[*frame.ColorFrame](s.Color)
	composed.Depth = latest[*frame.DepthFrame](s.Depth)
	composed.Transform = latest[*frame.TransformFrame](s.Transform)
	composed.Pose = latest[*frame.PoseFrame](s.Pose)
	composed.Gyroscope = latest[*frame.GyroscopeFrame](s.Gyroscope)
	composed.Audio = latest[*frame.AudioFrame](s.Audio)
	composed.PlaneDetection = latest[*frame.PlaneDetectionFrame](s.PlaneDetection)
	composed.PointCloudDetection = latest[*frame.PointCloudDetectionFrame](s.PointCloudDetection)
	composed.MeshDetection = latest[*frame.MeshDetectionFrame](s.MeshDetection)

	return composed, len(composed.Children()) > 0
}

// latestSource is satisfied by every modality buffer type.
type latestSource[T frame.Raw] interface {
	comparable
	Latest() (T, bool)
}

func latest[T frame.Raw, B latestSource[T]](buffer B) T {
	var zero T
	var none B
	if buffer == none {
		return zero
	}
	value, ok := buffer.Latest()
	if !ok {
		return zero
	}
	return value
}
