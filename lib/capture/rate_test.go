// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/testutil"
	"github.com/arcollect/arcollect/lib/timesync"
)

func TestStartStopWithoutSamplesLeavesDefault(t *testing.T) {
	fake := clock.Fake(epoch)
	deps := fakeDependencies(fake)
	buffers := []ModalityBuffer{
		NewGyroscopeBuffer(GyroscopeSensors{}, 0, deps),
		NewTransformBuffer(fixedTransform{}, 0, deps),
		NewPoseBuffer(fixedPose{}, 0, deps),
		NewColorBuffer(&Broadcaster[FrameEvent]{}, &imageQueue{}, deps),
		NewDepthBuffer(&Broadcaster[FrameEvent]{}, &imageQueue{}, nil, deps),
		NewAudioBuffer(&testMicrophone{}, deps),
		NewPlaneBuffer(&Broadcaster[TrackablesChanged[Plane]]{}, deps),
		NewPointCloudBuffer(&Broadcaster[TrackablesChanged[PointCloud]]{}, deps),
		NewMeshBuffer(&Broadcaster[MeshChanges]{}, nil, deps),
	}

	for _, buffer := range buffers {
		buffer.StartCapture()
		if !buffer.Capturing() {
			t.Errorf("%s: not capturing after StartCapture", buffer.Modality())
		}
		buffer.StopCapture()
		if buffer.Capturing() {
			t.Errorf("%s: still capturing after StopCapture", buffer.Modality())
		}
		if buffer.Len() != 0 {
			t.Errorf("%s: %d frames without any sample", buffer.Modality(), buffer.Len())
		}
		buffer.Dispose()
	}

	gyroscope := NewGyroscopeBuffer(GyroscopeSensors{}, 0, deps)
	gyroscope.StartCapture()
	gyroscope.StopCapture()
	if latest, ok := gyroscope.TryAcquireLatestFrame(); ok || latest != nil {
		t.Errorf("TryAcquireLatestFrame() = %v, %v, want zero value", latest, ok)
	}
}

func TestGyroscopeThreeTicksLatestIsThird(t *testing.T) {
	fake := clock.Fake(epoch)
	attitude := &quaternionSensor{}
	rotation := &vectorSensor{}
	gravity := &vectorSensor{}
	acceleration := &vectorSensor{}
	buffer := NewGyroscopeBuffer(GyroscopeSensors{
		Attitude:     attitude,
		RotationRate: rotation,
		Gravity:      gravity,
		Acceleration: acceleration,
	}, 50*time.Millisecond, fakeDependencies(fake))
	defer buffer.Dispose()

	buffer.StartCapture()
	fake.WaitForTimers(1)

	for tick := 1; tick <= 3; tick++ {
		value := float32(tick)
		attitude.set(frame.Quaternion{X: value, W: 1})
		rotation.set(frame.Vector3{X: value})
		gravity.set(frame.Vector3{Y: -value})
		acceleration.set(frame.Vector3{Z: value})

		fake.Advance(50 * time.Millisecond)
		testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "gyroscope tick %d", tick)
	}

	if buffer.Len() != 3 {
		t.Fatalf("buffer holds %d samples, want 3", buffer.Len())
	}
	latest, ok := buffer.TryAcquireLatestFrame()
	if !ok {
		t.Fatal("no latest frame after three ticks")
	}
	if latest.Attitude != (frame.Quaternion{X: 3, W: 1}) ||
		latest.RotationRate != (frame.Vector3{X: 3}) ||
		latest.Gravity != (frame.Vector3{Y: -3}) ||
		latest.Acceleration != (frame.Vector3{Z: 3}) {
		t.Errorf("latest = %+v, want the third sample", latest)
	}
	if want := epoch.Add(150 * time.Millisecond); !latest.Timestamp.Equal(want) {
		t.Errorf("latest timestamp = %v, want %v", latest.Timestamp, want)
	}
}

func TestGyroscopeAbsentSensorsReadZero(t *testing.T) {
	fake := clock.Fake(epoch)
	missing := &vectorSensor{} // never set: ok == false
	buffer := NewGyroscopeBuffer(GyroscopeSensors{Gravity: missing}, 0, fakeDependencies(fake))
	defer buffer.Dispose()

	buffer.StartCapture()
	fake.WaitForTimers(1)
	fake.Advance(DefaultGyroscopeInterval)
	testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "gyroscope tick")

	latest, _ := buffer.TryAcquireLatestFrame()
	if latest.Attitude != (frame.Quaternion{}) || latest.Gravity != (frame.Vector3{}) {
		t.Errorf("absent sensors produced %+v", latest)
	}
}

func TestRateBufferStartIsIdempotentAndStopHalts(t *testing.T) {
	fake := clock.Fake(epoch)
	buffer := NewPoseBuffer(fixedPose{pose: Pose{Rotation: frame.IdentityQuaternion}, ok: true}, 10*time.Millisecond, fakeDependencies(fake))
	defer buffer.Dispose()

	buffer.StartCapture()
	buffer.StartCapture()
	if pending := fake.PendingCount(); pending != 1 {
		t.Fatalf("%d tickers after two StartCapture calls, want 1", pending)
	}

	fake.Advance(10 * time.Millisecond)
	testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "pose tick")

	buffer.StopCapture()
	buffer.StopCapture()
	if pending := fake.PendingCount(); pending != 0 {
		t.Fatalf("%d tickers after StopCapture, want 0", pending)
	}
	fake.Advance(time.Second)
	if buffer.Len() != 1 {
		t.Errorf("buffer holds %d samples after stop, want 1", buffer.Len())
	}

	buffer.ClearBuffer()
	if buffer.Len() != 0 {
		t.Error("ClearBuffer left samples")
	}
}

func TestPoseBufferRecordsBasis(t *testing.T) {
	fake := clock.Fake(epoch)
	half := float32(math.Sqrt2 / 2)
	pose := Pose{Position: frame.Vector3{X: 1, Y: 2, Z: 3}, Rotation: frame.Quaternion{Y: half, W: half}}
	buffer := NewPoseBuffer(fixedPose{pose: pose, ok: true}, 0, fakeDependencies(fake))
	defer buffer.Dispose()

	buffer.StartCapture()
	fake.WaitForTimers(1)
	fake.Advance(DefaultPoseInterval)
	testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "pose tick")

	latest, _ := buffer.TryAcquireLatestFrame()
	if latest.Position != pose.Position || latest.Rotation != pose.Rotation {
		t.Errorf("pose = %+v / %+v", latest.Position, latest.Rotation)
	}
	near := func(got, want frame.Vector3) bool {
		return math.Abs(float64(got.X-want.X)) < 1e-6 &&
			math.Abs(float64(got.Y-want.Y)) < 1e-6 &&
			math.Abs(float64(got.Z-want.Z)) < 1e-6
	}
	if !near(latest.Forward, frame.Vector3{X: 1}) || !near(latest.Right, frame.Vector3{Z: -1}) || !near(latest.Up, frame.Vector3{Y: 1}) {
		t.Errorf("basis forward %+v right %+v up %+v", latest.Forward, latest.Right, latest.Up)
	}
}

func TestTransformBufferPacksMatrix(t *testing.T) {
	fake := clock.Fake(epoch)
	matrix := frame.IdentityMatrix()
	matrix[3], matrix[7], matrix[11] = 4, 5, 6
	buffer := NewTransformBuffer(fixedTransform{matrix: matrix, ok: true}, 0, fakeDependencies(fake))
	defer buffer.Dispose()

	buffer.StartCapture()
	fake.WaitForTimers(1)
	fake.Advance(DefaultTransformInterval)
	testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "transform tick")

	latest, _ := buffer.TryAcquireLatestFrame()
	if got := frame.UnpackAffine(latest.Matrix); got != matrix {
		t.Errorf("unpacked = %v, want %v", got, matrix)
	}
}

// behindSource answers with a fixed offset from the fake clock.
type behindSource struct {
	clock  *clock.FakeClock
	offset time.Duration
}

func (s behindSource) ServerTime(context.Context) (time.Time, error) {
	return s.clock.Now().Add(s.offset), nil
}

func TestCorrectionBehindLocalTimeDropsNoSamples(t *testing.T) {
	fake := clock.Fake(epoch)
	service := timesync.New(behindSource{clock: fake, offset: -10 * time.Second}, fake, nil)
	buffer := NewGyroscopeBuffer(GyroscopeSensors{}, 50*time.Millisecond, Dependencies{Clock: fake, Time: service})
	defer buffer.Dispose()

	buffer.StartCapture()
	fake.WaitForTimers(1)
	fake.Advance(50 * time.Millisecond)
	testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "tick before synchronization")

	if err := service.Synchronize(context.Background()); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	for tick := 1; tick <= 20; tick++ {
		fake.Advance(50 * time.Millisecond)
		testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "tick %d after synchronization", tick)
	}

	stats := buffer.Stats()
	if stats.OutOfOrder != 0 {
		t.Errorf("%d samples dropped as out of order", stats.OutOfOrder)
	}
	if buffer.Len() != 21 {
		t.Errorf("buffer holds %d samples, want 21", buffer.Len())
	}
}
