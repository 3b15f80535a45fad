// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/imaging"
)

var epoch = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func fakeDependencies(fake *clock.FakeClock) Dependencies {
	return Dependencies{Clock: fake}
}

type vectorSensor struct {
	mu    sync.Mutex
	value frame.Vector3
	ok    bool
}

func (s *vectorSensor) set(value frame.Vector3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.ok = value, true
}

func (s *vectorSensor) ReadVector3() (frame.Vector3, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.ok
}

type quaternionSensor struct {
	mu    sync.Mutex
	value frame.Quaternion
}

func (s *quaternionSensor) set(value frame.Quaternion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
}

func (s *quaternionSensor) ReadQuaternion() (frame.Quaternion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, true
}

type fixedTransform struct {
	matrix frame.Matrix4x4
	ok     bool
}

func (f fixedTransform) WorldTransform() (frame.Matrix4x4, bool) { return f.matrix, f.ok }

type fixedPose struct {
	pose Pose
	ok   bool
}

func (f fixedPose) ReadPose() (Pose, bool) { return f.pose, f.ok }

// testImage is a NativeImage over caller-owned planes that records
// its release.
type testImage struct {
	width, height int
	format        uint8
	planes        []imaging.Plane
	released      *int
}

func (i *testImage) Width() int              { return i.width }
func (i *testImage) Height() int             { return i.height }
func (i *testImage) Format() uint8           { return i.format }
func (i *testImage) Planes() []imaging.Plane { return i.planes }
func (i *testImage) Release()                { *i.released++ }

// imageQueue hands out queued images, then ErrNoImage.
type imageQueue struct {
	mu       sync.Mutex
	images   []*testImage
	err      error
	released int
}

func (q *imageQueue) push(image *testImage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	image.released = &q.released
	q.images = append(q.images, image)
}

func (q *imageQueue) AcquireLatestImage() (NativeImage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	if len(q.images) == 0 {
		return nil, ErrNoImage
	}
	image := q.images[0]
	q.images = q.images[1:]
	return image, nil
}

func (q *imageQueue) releasedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.released
}

type testMicrophone struct {
	mu       sync.Mutex
	deliver  func([]float32)
	startErr error
}

func (m *testMicrophone) SampleRate() int { return 16000 }
func (m *testMicrophone) Channels() int   { return 1 }

func (m *testMicrophone) Start(deliver func([]float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.deliver = deliver
	return nil
}

func (m *testMicrophone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliver == nil {
		return errors.New("not started")
	}
	m.deliver = nil
	return nil
}

// speak delivers samples if the microphone is running.
func (m *testMicrophone) speak(samples []float32) bool {
	m.mu.Lock()
	deliver := m.deliver
	m.mu.Unlock()
	if deliver == nil {
		return false
	}
	deliver(samples)
	return true
}
