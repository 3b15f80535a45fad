// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"errors"

	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/imaging"
)

// ColorBuffer copies one camera image per frame event.
type ColorBuffer struct {
	*eventBuffer[FrameEvent, *frame.ColorFrame]
	camera ImageSource
}

// NewColorBuffer returns a stopped color buffer acquiring from camera
// on every event from frames.
func NewColorBuffer(frames EventSource[FrameEvent], camera ImageSource, deps Dependencies) *ColorBuffer {
	b := &ColorBuffer{
		eventBuffer: newEventBuffer[FrameEvent, *frame.ColorFrame](frame.ModalityColor, frames, deps),
		camera:      camera,
	}
	b.handle = b.onFrame
	return b
}

func (b *ColorBuffer) onFrame(FrameEvent) {
	image, ok := acquire(b.camera, b.deps, b.Buffer, "camera")
	if !ok {
		return
	}
	defer image.Release()

	b.Add(&frame.ColorFrame{
		Timestamp: b.deps.Time.Now(),
		Width:     image.Width(),
		Height:    image.Height(),
		Format:    frame.PixelFormat(image.Format()),
		Planes:    clonePlanes(image.Planes()),
	})
}

// DepthBuffer copies the depth image, and the confidence image when
// the platform provides one, on every frame event. Both are acquired
// in the same handler call; the confidence filter applied later relies
// on them belonging to the same frame.
type DepthBuffer struct {
	*eventBuffer[FrameEvent, *frame.DepthFrame]
	depth      ImageSource
	confidence ImageSource
}

// NewDepthBuffer returns a stopped depth buffer. confidence may be nil.
//
// depth and confidence are read back to back on each frame event and
// paired without comparing timestamps. Callers must supply sources
// that both return the image of the latest platform frame.
func NewDepthBuffer(frames EventSource[FrameEvent], depth, confidence ImageSource, deps Dependencies) *DepthBuffer {
	b := &DepthBuffer{
		eventBuffer: newEventBuffer[FrameEvent, *frame.DepthFrame](frame.ModalityDepth, frames, deps),
		depth:       depth,
		confidence:  confidence,
	}
	b.handle = b.onFrame
	return b
}

func (b *DepthBuffer) onFrame(FrameEvent) {
	depthImage, ok := acquire(b.depth, b.deps, b.Buffer, "depth")
	if !ok {
		return
	}
	defer depthImage.Release()

	planes := depthImage.Planes()
	if len(planes) == 0 {
		b.recordSkip()
		b.deps.Logger.Debug("depth image has no planes")
		return
	}
	captured := &frame.DepthFrame{
		Timestamp: b.deps.Time.Now(),
		Width:     depthImage.Width(),
		Height:    depthImage.Height(),
		Format:    frame.DepthFormat(depthImage.Format()),
		Depth:     planes[0].Clone(),
	}

	if b.confidence != nil {
		confidenceImage, err := b.confidence.AcquireLatestImage()
		switch {
		case err == nil:
			if confidencePlanes := confidenceImage.Planes(); len(confidencePlanes) > 0 {
				plane := confidencePlanes[0].Clone()
				captured.Confidence = &plane
			}
			confidenceImage.Release()
		case errors.Is(err, ErrNoImage):
		default:
			b.deps.Logger.Debug("confidence image acquisition failed", "error", err)
		}
	}

	b.Add(captured)
}

// acquire wraps an acquisition with the skip accounting shared by the
// image buffers.
func acquire[T frame.Raw](source ImageSource, deps Dependencies, buffer *Buffer[T], name string) (NativeImage, bool) {
	image, err := source.AcquireLatestImage()
	if err != nil {
		buffer.recordSkip()
		if !errors.Is(err, ErrNoImage) {
			deps.Logger.Debug("image acquisition failed", "image", name, "error", err)
		}
		return nil, false
	}
	return image, true
}

func clonePlanes(planes []imaging.Plane) []imaging.Plane {
	owned := make([]imaging.Plane, len(planes))
	for i, plane := range planes {
		owned[i] = plane.Clone()
	}
	return owned
}
