// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"errors"
	"sync"

	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/imaging"
)

// EventSource delivers platform events to subscribers. Handlers may be
// called from any goroutine, including several at once. The returned
// cancel function unsubscribes and is safe to call more than once.
type EventSource[E any] interface {
	Subscribe(handler func(E)) (cancel func())
}

// FrameEvent signals that the camera produced a new frame and its
// images can be acquired.
type FrameEvent struct{}

// ErrNoImage is returned by an ImageSource when no image is available
// for the current frame. Capture skips the event without logging.
var ErrNoImage = errors.New("no image available")

// NativeImage is a platform image handle. Planes are only valid until
// Release, which must be called exactly once.
type NativeImage interface {
	Width() int
	Height() int

	// Format is a frame.PixelFormat for camera images and a
	// frame.DepthFormat for depth images. Confidence images ignore it.
	Format() uint8

	Planes() []imaging.Plane
	Release()
}

// ImageSource acquires the image belonging to the most recent frame
// event.
type ImageSource interface {
	AcquireLatestImage() (NativeImage, error)
}

// Vector3Sensor reads one three-axis sensor. ok is false when the
// sensor is missing or has no reading yet.
type Vector3Sensor interface {
	ReadVector3() (value frame.Vector3, ok bool)
}

// QuaternionSensor reads an orientation sensor.
type QuaternionSensor interface {
	ReadQuaternion() (value frame.Quaternion, ok bool)
}

// TransformReader reads the device's current world transform.
type TransformReader interface {
	WorldTransform() (transform frame.Matrix4x4, ok bool)
}

// PoseReader reads the device's current position and orientation.
type PoseReader interface {
	ReadPose() (pose Pose, ok bool)
}

// Microphone streams audio to a callback between Start and Stop.
// Callbacks may arrive on any goroutine; the sample slice belongs to
// the callee.
type Microphone interface {
	SampleRate() int
	Channels() int
	Start(deliver func(samples []float32)) error
	Stop() error
}

// Pose is a position and orientation in world space.
type Pose struct {
	Position frame.Vector3
	Rotation frame.Quaternion
}

// TrackablesChanged is one platform update for a trackable type: the
// three collections are disjoint.
type TrackablesChanged[T any] struct {
	Added   []T
	Updated []T
	Removed []T
}

// Empty reports whether the event carries no trackables.
func (c TrackablesChanged[T]) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Plane is a detected plane as reported by the platform.
type Plane struct {
	TrackableID    uint64
	SubsumedByID   uint64
	Pose           Pose
	Center         frame.Vector3
	Normal         frame.Vector3
	Size           frame.Vector2
	Alignment      frame.PlaneAlignment
	Classification uint32
	Boundary       []frame.Vector2
}

// PointCloud is a detected feature point cloud.
type PointCloud struct {
	TrackableID uint64
	Pose        Pose
	Identifiers []uint64
	Positions   []frame.Vector3
	Confidences []float32
}

// Broadcaster is an EventSource that fans each Publish out to every
// current subscriber. Platform adapters and tests use it to turn
// callbacks into subscriptions.
type Broadcaster[E any] struct {
	mu       sync.Mutex
	next     uint64
	handlers map[uint64]func(E)
}

// Subscribe registers handler until the returned cancel is called.
func (b *Broadcaster[E]) Subscribe(handler func(E)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[uint64]func(E))
	}
	id := b.next
	b.next++
	b.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
		})
	}
}

// Publish calls every subscriber with event, synchronously, on the
// calling goroutine.
func (b *Broadcaster[E]) Publish(event E) {
	b.mu.Lock()
	handlers := make([]func(E), 0, len(b.handlers))
	for _, handler := range b.handlers {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Subscribers returns the number of current subscriptions.
func (b *Broadcaster[E]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
