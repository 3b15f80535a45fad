// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/frame"
)

// Default sampling intervals for the rate-based modalities.
const (
	DefaultGyroscopeInterval = 50 * time.Millisecond
	DefaultTransformInterval = 50 * time.Millisecond
	DefaultPoseInterval      = 50 * time.Millisecond
)

// rateBuffer is the shared lifecycle of ticker-driven buffers.
type rateBuffer[T frame.Raw] struct {
	*Buffer[T]
	modality frame.Modality
	deps     Dependencies
	sampler  *sampler

	lifecycle sync.Mutex
}

func newRateBuffer[T frame.Raw](modality frame.Modality, interval, fallback time.Duration, deps Dependencies, read func(time.Time) T) *rateBuffer[T] {
	if interval <= 0 {
		interval = fallback
	}
	r := &rateBuffer[T]{
		Buffer:   NewBuffer[T](),
		modality: modality,
		deps:     deps.withDefaults(),
	}
	r.sampler = newSampler(r.deps.Clock, interval, func() {
		r.Add(read(r.deps.Time.Now()))
	})
	return r
}

func (r *rateBuffer[T]) Modality() frame.Modality { return r.modality }

func (r *rateBuffer[T]) StartCapture() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.setCapturing(true) {
		r.sampler.start()
		r.deps.Logger.Debug("capture started", "modality", r.modality)
	}
}

func (r *rateBuffer[T]) StopCapture() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.setCapturing(false) {
		r.sampler.halt()
		r.deps.Logger.Debug("capture stopped", "modality", r.modality)
	}
}

func (r *rateBuffer[T]) ClearBuffer() { r.Clear() }

func (r *rateBuffer[T]) Dispose() {
	r.StopCapture()
	r.Clear()
}

// TryAcquireLatestFrame returns the newest sample without waiting.
func (r *rateBuffer[T]) TryAcquireLatestFrame() (T, bool) { return r.Latest() }

// GyroscopeSensors are the motion sensors a GyroscopeBuffer samples.
// Any of them may be nil, in which case its fields read as zero.
type GyroscopeSensors struct {
	Attitude     QuaternionSensor
	RotationRate Vector3Sensor
	Gravity      Vector3Sensor
	Acceleration Vector3Sensor
}

func (s GyroscopeSensors) read(timestamp time.Time) *frame.GyroscopeFrame {
	sample := &frame.GyroscopeFrame{Timestamp: timestamp}
	if s.Attitude != nil {
		if value, ok := s.Attitude.ReadQuaternion(); ok {
			sample.Attitude = value
		}
	}
	sample.RotationRate = readVector3(s.RotationRate)
	sample.Gravity = readVector3(s.Gravity)
	sample.Acceleration = readVector3(s.Acceleration)
	return sample
}

func readVector3(sensor Vector3Sensor) frame.Vector3 {
	if sensor == nil {
		return frame.Vector3{}
	}
	value, ok := sensor.ReadVector3()
	if !ok {
		return frame.Vector3{}
	}
	return value
}

// GyroscopeBuffer samples the motion sensors at a fixed interval.
type GyroscopeBuffer struct {
	*rateBuffer[*frame.GyroscopeFrame]
}

// NewGyroscopeBuffer returns a stopped gyroscope buffer. A zero
// interval means DefaultGyroscopeInterval.
func NewGyroscopeBuffer(sensors GyroscopeSensors, interval time.Duration, deps Dependencies) *GyroscopeBuffer {
	return &GyroscopeBuffer{newRateBuffer(frame.ModalityGyroscope, interval, DefaultGyroscopeInterval, deps, sensors.read)}
}

// TransformBuffer samples the device's world transform at a fixed
// interval, storing the upper 3×4 block packed into 48 bytes.
type TransformBuffer struct {
	*rateBuffer[*frame.TransformFrame]
}

// NewTransformBuffer returns a stopped transform buffer. A tick on
// which the reader has no transform stores the identity.
func NewTransformBuffer(reader TransformReader, interval time.Duration, deps Dependencies) *TransformBuffer {
	read := func(timestamp time.Time) *frame.TransformFrame {
		matrix, ok := reader.WorldTransform()
		if !ok {
			matrix = frame.IdentityMatrix()
		}
		return &frame.TransformFrame{Timestamp: timestamp, Matrix: frame.PackAffine(matrix)}
	}
	return &TransformBuffer{newRateBuffer(frame.ModalityTransform, interval, DefaultTransformInterval, deps, read)}
}

// PoseBuffer samples the device pose at a fixed interval and records
// its basis vectors alongside.
type PoseBuffer struct {
	*rateBuffer[*frame.PoseFrame]
}

// NewPoseBuffer returns a stopped pose buffer. A tick on which the
// reader has no pose records the origin with identity rotation.
func NewPoseBuffer(reader PoseReader, interval time.Duration, deps Dependencies) *PoseBuffer {
	read := func(timestamp time.Time) *frame.PoseFrame {
		pose, ok := reader.ReadPose()
		if !ok {
			pose = Pose{Rotation: frame.IdentityQuaternion}
		}
		return &frame.PoseFrame{
			Timestamp: timestamp,
			Position:  pose.Position,
			Rotation:  pose.Rotation,
			Forward:   pose.Rotation.Rotate(frame.Vector3{Z: 1}),
			Right:     pose.Rotation.Rotate(frame.Vector3{X: 1}),
			Up:        pose.Rotation.Rotate(frame.Vector3{Y: 1}),
		}
	}
	return &PoseBuffer{newRateBuffer(frame.ModalityPose, interval, DefaultPoseInterval, deps, read)}
}
