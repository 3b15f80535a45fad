// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/imaging"
	"github.com/arcollect/arcollect/lib/testutil"
)

func TestColorBufferCopiesAndReleases(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[FrameEvent]{}
	camera := &imageQueue{}
	buffer := NewColorBuffer(events, camera, fakeDependencies(fake))
	defer buffer.Dispose()

	luma := []byte{1, 2, 3, 4}
	camera.push(&testImage{
		width:  2,
		height: 2,
		format: uint8(frame.PixelFormatYCbCr420),
		planes: []imaging.Plane{
			{Data: luma, RowStride: 2, PixelStride: 1},
			{Data: []byte{128}, RowStride: 1, PixelStride: 1},
			{Data: []byte{128}, RowStride: 1, PixelStride: 1},
		},
	})

	// Events before StartCapture are ignored.
	events.Publish(FrameEvent{})
	if buffer.Len() != 0 {
		t.Fatal("captured before StartCapture")
	}

	buffer.StartCapture()
	events.Publish(FrameEvent{})

	latest, ok := buffer.TryAcquireLatestFrame()
	if !ok {
		t.Fatal("no frame after event")
	}
	if camera.releasedCount() != 1 {
		t.Errorf("image released %d times, want 1", camera.releasedCount())
	}
	if latest.Width != 2 || latest.Height != 2 || latest.Format != frame.PixelFormatYCbCr420 || len(latest.Planes) != 3 {
		t.Fatalf("captured %+v", latest)
	}
	if !latest.Timestamp.Equal(epoch) {
		t.Errorf("timestamp = %v, want %v", latest.Timestamp, epoch)
	}

	// The platform reuses its buffers after release.
	luma[0] = 99
	if !bytes.Equal(latest.Planes[0].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("captured plane aliases the native image: %v", latest.Planes[0].Data)
	}
}

func TestColorBufferSkipsUnavailableImages(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[FrameEvent]{}
	camera := &imageQueue{}
	buffer := NewColorBuffer(events, camera, fakeDependencies(fake))
	defer buffer.Dispose()
	buffer.StartCapture()

	events.Publish(FrameEvent{})
	camera.err = errors.New("camera busy")
	events.Publish(FrameEvent{})

	if buffer.Len() != 0 {
		t.Fatalf("buffer holds %d frames, want 0", buffer.Len())
	}
	if skipped := buffer.Stats().Skipped; skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestDepthBufferPairsConfidence(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[FrameEvent]{}
	depth := &imageQueue{}
	confidence := &imageQueue{}
	buffer := NewDepthBuffer(events, depth, confidence, fakeDependencies(fake))
	defer buffer.Dispose()
	buffer.StartCapture()

	depth.push(&testImage{
		width: 1, height: 1, format: uint8(frame.DepthFormatUint16),
		planes: []imaging.Plane{{Data: []byte{0x10, 0x27}, RowStride: 2, PixelStride: 2}},
	})
	confidence.push(&testImage{
		width: 1, height: 1,
		planes: []imaging.Plane{{Data: []byte{2}, RowStride: 1, PixelStride: 1}},
	})
	events.Publish(FrameEvent{})

	// Second frame: depth only.
	depth.push(&testImage{
		width: 1, height: 1, format: uint8(frame.DepthFormatUint16),
		planes: []imaging.Plane{{Data: []byte{0, 0}, RowStride: 2, PixelStride: 2}},
	})
	events.Publish(FrameEvent{})

	frames := buffer.Frames()
	if len(frames) != 2 {
		t.Fatalf("captured %d frames, want 2", len(frames))
	}
	if frames[0].Format != frame.DepthFormatUint16 || frames[0].Confidence == nil {
		t.Fatalf("first frame = %+v, want uint16 with confidence", frames[0])
	}
	if !bytes.Equal(frames[0].Confidence.Data, []byte{2}) {
		t.Errorf("confidence = %v", frames[0].Confidence.Data)
	}
	if frames[1].Confidence != nil {
		t.Error("second frame has confidence without a confidence image")
	}
	if depth.releasedCount() != 2 || confidence.releasedCount() != 1 {
		t.Errorf("released depth %d confidence %d, want 2 and 1", depth.releasedCount(), confidence.releasedCount())
	}
}

func TestEventBufferStopUnsubscribes(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[FrameEvent]{}
	buffer := NewColorBuffer(events, &imageQueue{}, fakeDependencies(fake))

	buffer.StartCapture()
	buffer.StartCapture()
	if events.Subscribers() != 1 {
		t.Fatalf("%d subscribers after two StartCapture calls, want 1", events.Subscribers())
	}
	buffer.StopCapture()
	if events.Subscribers() != 0 {
		t.Fatalf("%d subscribers after StopCapture, want 0", events.Subscribers())
	}
	buffer.Dispose()
}

func TestStopCaptureFromSiblingSubscriber(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[TrackablesChanged[Plane]]{}
	buffer := NewPlaneBuffer(events, fakeDependencies(fake))
	defer buffer.Dispose()
	buffer.StartCapture()

	cancel := events.Subscribe(func(TrackablesChanged[Plane]) { buffer.StopCapture() })
	defer cancel()

	published := make(chan struct{})
	go func() {
		events.Publish(TrackablesChanged[Plane]{Added: []Plane{{TrackableID: 1}}})
		close(published)
	}()
	testutil.RequireClosed(t, published, 5*time.Second, "Publish returns when a sibling stops capture")

	if buffer.Capturing() {
		t.Error("still capturing after a sibling subscriber stopped capture")
	}
	if n := buffer.Len(); n > 1 {
		t.Errorf("buffer holds %d frames, want at most the one published before stop", n)
	}
	events.Publish(TrackablesChanged[Plane]{Added: []Plane{{TrackableID: 2}}})
	if n := buffer.Len(); n > 1 {
		t.Errorf("frame appended after StopCapture returned: %d frames", n)
	}
}
