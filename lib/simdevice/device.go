// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package simdevice

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/session"
)

// Options configures a Device. Zero fields take the defaults below.
type Options struct {
	// FrameRate is camera frames per second. Default 30.
	FrameRate int

	// ColorWidth and ColorHeight are the camera image size; both must
	// be even. Default 640×480.
	ColorWidth  int
	ColorHeight int

	// DepthWidth and DepthHeight are the depth map size. Default
	// 256×192.
	DepthWidth  int
	DepthHeight int

	// DepthFormat defaults to frame.DepthFormatFloat32.
	DepthFormat frame.DepthFormat

	// AudioSampleRate defaults to 48000; AudioChannels to 1.
	AudioSampleRate int
	AudioChannels   int

	// AudioChunk is the microphone callback period. Default 20ms.
	AudioChunk time.Duration

	// ToneHz is the microphone sine frequency. Default 440.
	ToneHz float64

	// TrackableEvery is the number of camera frames between trackable
	// updates. Default 15.
	TrackableEvery int

	Clock  clock.Clock
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.FrameRate <= 0 {
		o.FrameRate = 30
	}
	if o.ColorWidth <= 0 || o.ColorHeight <= 0 {
		o.ColorWidth, o.ColorHeight = 640, 480
	}
	o.ColorWidth &^= 1
	o.ColorHeight &^= 1
	if o.DepthWidth <= 0 || o.DepthHeight <= 0 {
		o.DepthWidth, o.DepthHeight = 256, 192
	}
	if o.DepthFormat.BytesPerSample() == 0 {
		o.DepthFormat = frame.DepthFormatFloat32
	}
	if o.AudioSampleRate <= 0 {
		o.AudioSampleRate = 48000
	}
	if o.AudioChannels <= 0 {
		o.AudioChannels = 1
	}
	if o.AudioChunk <= 0 {
		o.AudioChunk = 20 * time.Millisecond
	}
	if o.ToneHz <= 0 {
		o.ToneHz = 440
	}
	if o.TrackableEvery <= 0 {
		o.TrackableEvery = 15
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Device is a simulated AR device. Subscribe capture buffers to its
// broadcasters and read its sensors, then call Run to drive frame
// events.
type Device struct {
	Frames      capture.Broadcaster[capture.FrameEvent]
	Planes      capture.Broadcaster[capture.TrackablesChanged[capture.Plane]]
	PointClouds capture.Broadcaster[capture.TrackablesChanged[capture.PointCloud]]
	Meshes      capture.Broadcaster[capture.MeshChanges]

	options Options
	start   time.Time

	frame      atomic.Uint64
	trackables trackableSchedule
	microphone *Microphone
}

// New returns a device whose motion starts at the current clock time.
func New(options Options) *Device {
	options = options.withDefaults()
	device := &Device{
		options: options,
		start:   options.Clock.Now(),
	}
	device.microphone = newMicrophone(options)
	return device
}

// NewDeviceID returns a fresh identifier for a simulated device.
func NewDeviceID() string {
	return "sim-" + uuid.NewString()
}

// Descriptor describes this device to a collector.
func (d *Device) Descriptor(id, name string) session.Device {
	return session.Device{
		Model:    "arcollect-simdevice",
		Name:     name,
		Platform: session.PlatformSimulated,
		ID:       id,
	}
}

// Intrinsics returns the camera calibration for the native color size:
// a 60 degree horizontal field of view with a centered principal point.
func (d *Device) Intrinsics() frame.Intrinsics {
	width, height := float32(d.options.ColorWidth), float32(d.options.ColorHeight)
	// tan(30°) = 0.57735
	focal := (width / 2) / 0.57735
	return frame.Intrinsics{
		FocalLength:      frame.Vector2{X: focal, Y: focal},
		PrincipalPoint:   frame.Vector2{X: width / 2, Y: height / 2},
		ResolutionWidth:  d.options.ColorWidth,
		ResolutionHeight: d.options.ColorHeight,
	}
}

// FrameCount returns the number of frame events published so far.
func (d *Device) FrameCount() uint64 {
	return d.frame.Load()
}

// Run publishes a frame event every 1/FrameRate seconds, and trackable
// changes every TrackableEvery frames, until ctx is cancelled.
func (d *Device) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(d.options.FrameRate)
	ticker := d.options.Clock.NewTicker(interval)
	defer ticker.Stop()

	d.options.Logger.Info("simulated device running",
		"frame_rate", d.options.FrameRate,
		"color", [2]int{d.options.ColorWidth, d.options.ColorHeight},
		"depth", [2]int{d.options.DepthWidth, d.options.DepthHeight},
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Step()
		}
	}
}

// Step advances the device by one camera frame.
func (d *Device) Step() {
	count := d.frame.Add(1)
	d.Frames.Publish(capture.FrameEvent{})
	if count%uint64(d.options.TrackableEvery) == 0 {
		d.publishTrackables()
	}
}

// elapsed returns seconds since the device was created.
func (d *Device) elapsed() float64 {
	return d.options.Clock.Now().Sub(d.start).Seconds()
}
