// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/collector"
	"github.com/arcollect/arcollect/lib/config"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/rpc"
	"github.com/arcollect/arcollect/lib/session"
	"github.com/arcollect/arcollect/lib/simdevice"
	"github.com/arcollect/arcollect/lib/testutil"
	"github.com/arcollect/arcollect/lib/timesync"
	"github.com/arcollect/arcollect/transport"
)

// startCollector serves a fresh collector on a loopback TCP port.
func startCollector(t *testing.T) (*collector.Service, string) {
	t.Helper()
	logger := testutil.Logger(t)
	service := collector.New(nil, nil, logger)
	server := rpc.NewServer(rpc.Limits{}, logger)
	service.Register(server)

	listener, err := transport.NewTCPListener("127.0.0.1:0", logger)
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Serve(ctx, server) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return service, listener.Address()
}

// smallConfig records a tiny simulated device quickly.
func smallConfig(address string) *config.Config {
	cfg := config.Default()
	cfg.Collector.Address = address
	cfg.Session.Name = testutil.UniqueName("integration")
	cfg.Capture.Color.Width, cfg.Capture.Color.Height = 32, 24
	cfg.Simulator.ColorWidth, cfg.Simulator.ColorHeight = 64, 48
	cfg.Simulator.DepthWidth, cfg.Simulator.DepthHeight = 16, 12
	cfg.Simulator.TrackableEvery = 2
	cfg.Capture.Audio.SampleRate = 8000
	cfg.Recorder.FlushInterval = "20ms"
	cfg.TimeSync.Interval = "1s"
	return cfg
}

// waitFor polls condition until it holds or ten seconds pass.
func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second) //nolint:realclock test hang prevention
	for !condition() {
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond) //nolint:realclock polling a real-time pipeline
	}
}

func onlySession(t *testing.T, service *collector.Service) session.Session {
	t.Helper()
	sessions := service.ListSessions()
	if len(sessions) != 1 {
		t.Fatalf("collector has %d sessions, want 1", len(sessions))
	}
	return sessions[0]
}

func TestRecordUploadsEveryModality(t *testing.T) {
	service, address := startCollector(t)
	cfg := smallConfig(address)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- record(ctx, cfg, prometheus.NewRegistry(), testutil.Logger(t)) }()

	modalities := []frame.Modality{
		frame.ModalityColor,
		frame.ModalityDepth,
		frame.ModalityTransform,
		frame.ModalityPose,
		frame.ModalityGyroscope,
		frame.ModalityAudio,
		frame.ModalityPlaneDetection,
		frame.ModalityPointCloudDetection,
		frame.ModalityMeshDetection,
	}
	waitFor(t, "every modality to arrive", func() bool {
		sessions := service.ListSessions()
		if len(sessions) != 1 {
			return false
		}
		stats, err := service.Stats(sessions[0].ID)
		if err != nil {
			return false
		}
		for _, modality := range modalities {
			if stats.Frames[modality.String()] == 0 {
				return false
			}
		}
		return true
	})

	recorded := onlySession(t, service)
	stats, err := service.Stats(recorded.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	intrinsics, ok := stats.Intrinsics[cfg.Device.ID]
	if !ok {
		t.Fatal("intrinsics were not registered")
	}
	// Color is resampled from 64x48 to 32x24 before sending.
	sent := intrinsics.Intrinsics
	if sent.ResolutionWidth != 32 || sent.ResolutionHeight != 24 {
		t.Errorf("intrinsics resolution = %dx%d, want 32x24", sent.ResolutionWidth, sent.ResolutionHeight)
	}
	if sent.PrincipalPoint != (frame.Vector2{X: 16, Y: 12}) {
		t.Errorf("principal point = %+v, want the 32x24 center", sent.PrincipalPoint)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "record did not return"); err != nil {
		t.Fatalf("record: %v", err)
	}

	// The session survives the recorder leaving it.
	left := onlySession(t, service)
	if len(left.Devices) != 0 {
		t.Errorf("session still has %d devices after leave", len(left.Devices))
	}
}

func TestRecordJoinsExistingSession(t *testing.T) {
	service, address := startCollector(t)
	owner := session.Device{ID: "owner", Name: "owner", Platform: session.PlatformSimulated}
	existing, err := service.CreateSession(session.Metadata{Name: "shared"}, owner)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	cfg := smallConfig(address)
	cfg.Session.ID = existing.ID.String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- record(ctx, cfg, prometheus.NewRegistry(), testutil.Logger(t)) }()

	waitFor(t, "frames from the joined device", func() bool {
		stats, err := service.Stats(existing.ID)
		return err == nil && stats.TotalFrames() > 0
	})
	if joined := onlySession(t, service); len(joined.Devices) != 2 {
		t.Errorf("session has %d devices, want 2", len(joined.Devices))
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "record did not return"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if remaining := onlySession(t, service); len(remaining.Devices) != 1 || remaining.Devices[0].ID != "owner" {
		t.Errorf("devices after leave = %+v, want only the owner", remaining.Devices)
	}
}

func TestRecordDeletesCreatedSessionOnExit(t *testing.T) {
	service, address := startCollector(t)
	cfg := smallConfig(address)
	cfg.Session.DeleteOnExit = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- record(ctx, cfg, prometheus.NewRegistry(), testutil.Logger(t)) }()

	waitFor(t, "recording to start", func() bool {
		sessions := service.ListSessions()
		if len(sessions) != 1 {
			return false
		}
		stats, err := service.Stats(sessions[0].ID)
		return err == nil && stats.TotalFrames() > 0
	})
	cancel()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "record did not return"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if sessions := service.ListSessions(); len(sessions) != 0 {
		t.Errorf("collector still has %d sessions", len(sessions))
	}
}

func TestRecordFailsWithoutCollector(t *testing.T) {
	cfg := smallConfig("127.0.0.1:1")
	cfg.Collector.DialTimeout = "1s"

	err := record(context.Background(), cfg, prometheus.NewRegistry(), testutil.Logger(t))
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestBuildBuffersFollowsEnabledModalities(t *testing.T) {
	cfg := config.Default().Capture
	device := simdevice.New(simdevice.Options{})

	all := buildBuffers(cfg, device, capture.Dependencies{}, nil)
	if got := len(all.Children()); got != 9 {
		t.Errorf("all modalities enabled: %d buffers, want 9", got)
	}

	cfg = config.CaptureConfig{
		Gyroscope: config.SampledConfig{Enabled: true},
		Meshes:    config.MeshCaptureConfig{Enabled: true, Parallelism: 2},
	}
	some := buildBuffers(cfg, device, capture.Dependencies{}, nil)
	children := some.Children()
	if len(children) != 2 {
		t.Fatalf("%d buffers, want 2", len(children))
	}
	if children[0].Modality() != frame.ModalityGyroscope || children[1].Modality() != frame.ModalityMeshDetection {
		t.Errorf("modalities = %v, %v", children[0].Modality(), children[1].Modality())
	}
}

func TestNewTimeSource(t *testing.T) {
	logger := testutil.Logger(t)

	if _, synchronizer := newTimeSource(config.TimeSyncConfig{Source: config.TimeSourceNone}, nil, logger); synchronizer != nil {
		t.Error("source none should not synchronize")
	}

	source, synchronizer := newTimeSource(config.TimeSyncConfig{Source: config.TimeSourceNTP, NTPServer: "ntp.invalid"}, nil, logger)
	if synchronizer == nil {
		t.Fatal("ntp source should synchronize")
	}
	if _, ok := source.(*timesync.Service); !ok {
		t.Errorf("time source is %T, want *timesync.Service", source)
	}
	if synchronizer.Synchronized() {
		t.Error("new synchronizer claims to be synchronized")
	}
}

func TestSentIntrinsicsFollowsColorTarget(t *testing.T) {
	device := simdevice.New(simdevice.Options{ColorWidth: 1280, ColorHeight: 960})
	native := device.Intrinsics()

	var captureConfig config.CaptureConfig
	if got := sentIntrinsics(native, captureConfig); got != native {
		t.Errorf("no target size: got %+v, want native %+v", got, native)
	}

	captureConfig.Color.Width, captureConfig.Color.Height = 640, 480
	got := sentIntrinsics(native, captureConfig)
	if got.ResolutionWidth != 640 || got.ResolutionHeight != 480 {
		t.Fatalf("resolution = %dx%d, want 640x480", got.ResolutionWidth, got.ResolutionHeight)
	}
	if got.FocalLength.X != native.FocalLength.X/2 || got.PrincipalPoint != (frame.Vector2{X: 320, Y: 240}) {
		t.Errorf("scaled intrinsics = %+v from %+v", got, native)
	}
}
