// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/collector"
	"github.com/arcollect/arcollect/lib/config"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/meshcodec"
	"github.com/arcollect/arcollect/lib/metrics"
	"github.com/arcollect/arcollect/lib/recorder"
	"github.com/arcollect/arcollect/lib/rpc"
	"github.com/arcollect/arcollect/lib/session"
	"github.com/arcollect/arcollect/lib/simdevice"
	"github.com/arcollect/arcollect/lib/timesync"
	"github.com/arcollect/arcollect/transport"
)

// goodbyeTimeout bounds the leave or delete call made after recording.
const goodbyeTimeout = 5 * time.Second

// record runs one recording until ctx is cancelled or the collector
// connection is lost.
func record(ctx context.Context, cfg *config.Config, registry *prometheus.Registry, logger *slog.Logger) error {
	device := simdevice.New(simdevice.Options{
		FrameRate:       cfg.Simulator.FrameRate,
		ColorWidth:      cfg.Simulator.ColorWidth,
		ColorHeight:     cfg.Simulator.ColorHeight,
		DepthWidth:      cfg.Simulator.DepthWidth,
		DepthHeight:     cfg.Simulator.DepthHeight,
		AudioSampleRate: cfg.Capture.Audio.SampleRate,
		AudioChannels:   cfg.Capture.Audio.Channels,
		TrackableEvery:  cfg.Simulator.TrackableEvery,
		Logger:          logger,
	})
	descriptor := device.Descriptor(cfg.Device.ID, cfg.Device.Name)
	if cfg.Device.Model != "" {
		descriptor.Model = cfg.Device.Model
	}

	dialer, closeDialer, err := newDialer(ctx, cfg.Collector, cfg.Device.ID, logger)
	if err != nil {
		return err
	}
	defer closeDialer()

	dialCtx := ctx
	if timeout := cfg.Collector.DialTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	limits := rpc.Limits{MaxRequestSize: cfg.Collector.MaxRequestSize}
	client, err := session.Dial(dialCtx, dialer, cfg.Collector.Address, limits, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	current, created, err := openSession(ctx, client, cfg.Session, descriptor)
	if err != nil {
		return err
	}
	logger.Info("recording into session",
		"session", current.ID.String(),
		"name", current.Metadata.Name,
		"devices", len(current.Devices),
		"created", created,
	)

	timeSource, synchronizer := newTimeSource(cfg.TimeSync, client, logger)
	if synchronizer != nil {
		if err := synchronizer.Synchronize(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("initial clock synchronization failed, using local time", "error", err)
		}
	}
	deps := capture.Dependencies{Time: timeSource, Logger: logger}
	buffers := buildBuffers(cfg.Capture, device, deps, logger)
	defer func() {
		for _, buffer := range buffers.Children() {
			buffer.Dispose()
		}
	}()

	recorderMetrics, err := recorder.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	recording, err := recorder.New(client, recorder.Config{
		Session:         current.ID,
		Device:          descriptor,
		Buffers:         buffers.Children(),
		Converter:       converter(cfg.Capture),
		FlushInterval:   cfg.Recorder.FlushIntervalDuration(),
		MaxBatchFrames:  cfg.Recorder.MaxBatchFrames,
		MaxQueuedFrames: cfg.Recorder.MaxQueuedFrames,
		Intrinsics: &recorder.Intrinsics{
			Timestamp: timeSource.Now(),
			Value:     sentIntrinsics(device.Intrinsics(), cfg.Capture),
		},
		Metrics: recorderMetrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if synchronizer != nil {
		group.Go(func() error {
			synchronizer.Resync(groupCtx, cfg.TimeSync.IntervalDuration())
			return nil
		})
	}
	group.Go(func() error { return device.Run(groupCtx) })
	group.Go(func() error { return recording.Run(groupCtx) })
	if cfg.Metrics.Listen != "" {
		group.Go(func() error {
			return metrics.ListenAndServe(groupCtx, cfg.Metrics.Listen, registry, logger)
		})
	}

	runErr := group.Wait()
	stats := recording.Stats()
	logger.Info("recording finished",
		"frames_captured", device.FrameCount(),
		"frames_shipped", stats.Shipped,
		"frames_dropped", stats.Dropped,
		"encode_failures", stats.EncodeFailures,
		"queued", stats.Queued,
	)
	if synchronizer != nil {
		logger.Info("clock synchronization",
			"synchronized", synchronizer.Synchronized(),
			"last_rtt", synchronizer.LastRoundTrip(),
		)
	}
	if errors.Is(runErr, rpc.ErrClosed) || errors.Is(runErr, session.ErrSessionGone) {
		return runErr
	}

	if err := goodbye(client, current.ID, descriptor, created && cfg.Session.DeleteOnExit, logger); err != nil {
		logger.Warn("leaving session", "error", err)
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// openSession joins cfg.ID when set and otherwise creates a session.
func openSession(ctx context.Context, client *session.Client, cfg config.SessionConfig, device session.Device) (session.Session, bool, error) {
	if cfg.ID != "" {
		id, err := session.ParseSessionID(cfg.ID)
		if err != nil {
			return session.Session{}, false, err
		}
		joined, err := client.JoinSession(ctx, id, device)
		if err != nil {
			return session.Session{}, false, fmt.Errorf("joining session %s: %w", id, err)
		}
		return joined, false, nil
	}

	metadata := session.Metadata{Name: cfg.Name}
	if cfg.SavePath != "" {
		metadata.SavePath = &cfg.SavePath
	}
	created, err := client.CreateSession(ctx, metadata, device)
	if err != nil {
		return session.Session{}, false, fmt.Errorf("creating session %q: %w", cfg.Name, err)
	}
	return created, true, nil
}

// goodbye leaves the session, or deletes it when remove is set.
func goodbye(client *session.Client, id session.SessionID, device session.Device, remove bool, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), goodbyeTimeout)
	defer cancel()
	if remove {
		logger.Info("deleting session", "session", id.String())
		return client.DeleteSession(ctx, id, device)
	}
	logger.Info("leaving session", "session", id.String())
	return client.LeaveSession(ctx, id, device)
}

// newTimeSource returns the clock frames are stamped with and, when it
// needs periodic correction, the service to run.
func newTimeSource(cfg config.TimeSyncConfig, client *session.Client, logger *slog.Logger) (capture.TimeSource, *timesync.Service) {
	var source timesync.Source
	switch cfg.Source {
	case config.TimeSourceCollector:
		source = client
	case config.TimeSourceNTP:
		source = timesync.NTPSource{Host: cfg.NTPServer}
	default:
		return clock.Real(), nil
	}
	service := timesync.New(source, clock.Real(), logger.With("time_source", cfg.Source))
	return service, service
}

// buildBuffers creates one buffer per enabled modality, all fed by
// device.
func buildBuffers(cfg config.CaptureConfig, device *simdevice.Device, deps capture.Dependencies, logger *slog.Logger) *capture.SynchronizedBuffer {
	buffers := &capture.SynchronizedBuffer{Time: deps.Time}
	if cfg.Color.Enabled {
		buffers.Color = capture.NewColorBuffer(&device.Frames, device.Camera(), deps)
	}
	if cfg.Depth.Enabled {
		buffers.Depth = capture.NewDepthBuffer(&device.Frames, device.Depth(), device.Confidence(), deps)
	}
	if cfg.Transform.Enabled {
		buffers.Transform = capture.NewTransformBuffer(device, cfg.Transform.IntervalDuration(), deps)
	}
	if cfg.Pose.Enabled {
		buffers.Pose = capture.NewPoseBuffer(device, cfg.Pose.IntervalDuration(), deps)
	}
	if cfg.Gyroscope.Enabled {
		buffers.Gyroscope = capture.NewGyroscopeBuffer(device.Sensors(), cfg.Gyroscope.IntervalDuration(), deps)
	}
	if cfg.Audio.Enabled {
		buffers.Audio = capture.NewAudioBuffer(device.Microphone(), deps)
	}
	if cfg.Planes.Enabled {
		buffers.PlaneDetection = capture.NewPlaneBuffer(&device.Planes, deps)
	}
	if cfg.PointClouds.Enabled {
		buffers.PointCloudDetection = capture.NewPointCloudBuffer(&device.PointClouds, deps)
	}
	if cfg.Meshes.Enabled {
		encoder := meshcodec.NewEncoder(cfg.Meshes.Parallelism, logger)
		buffers.MeshDetection = capture.NewMeshBuffer(&device.Meshes, encoder, deps)
	}
	return buffers
}

func converter(cfg config.CaptureConfig) frame.Converter {
	return frame.Converter{
		ColorWidth:          cfg.Color.Width,
		ColorHeight:         cfg.Color.Height,
		ConfidenceThreshold: cfg.Depth.ConfidenceThreshold,
	}
}

// sentIntrinsics describes the camera at the color size the converter
// sends, which differs from the sensor size when a target is set.
func sentIntrinsics(native frame.Intrinsics, cfg config.CaptureConfig) frame.Intrinsics {
	if cfg.Color.Width == 0 || cfg.Color.Height == 0 {
		return native
	}
	return native.Scaled(cfg.Color.Width, cfg.Color.Height)
}

// newDialer returns the dialer for cfg.Transport and a func releasing
// whatever it holds open. WebRTC signals through the collector's TCP
// signaling endpoint as peer name.
func newDialer(ctx context.Context, cfg config.CollectorConfig, name string, logger *slog.Logger) (transport.Dialer, func(), error) {
	timeout := cfg.DialTimeoutDuration()
	switch cfg.Transport {
	case config.TransportTCP:
		return &transport.TCPDialer{Timeout: timeout}, func() {}, nil
	case config.TransportUnix:
		return &transport.UnixDialer{Timeout: timeout}, func() {}, nil
	case config.TransportWebRTC:
		iceConfig, err := transport.ICEConfigFromURLs(cfg.ICEServers, cfg.ICEUsername, cfg.ICECredential)
		if err != nil {
			return nil, nil, fmt.Errorf("ICE configuration: %w", err)
		}
		conn, err := (&transport.TCPDialer{Timeout: timeout}).DialContext(ctx, cfg.Signaling)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing signaling at %s: %w", cfg.Signaling, err)
		}
		signaling := rpc.NewClient(conn, rpc.Limits{}, logger)
		webrtc := transport.NewWebRTCTransport(collector.NewSignalingClient(signaling), name, iceConfig, logger)
		return webrtc, func() {
			closeQuietly(webrtc, logger)
			closeQuietly(signaling, logger)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func closeQuietly(closer io.Closer, logger *slog.Logger) {
	if err := closer.Close(); err != nil {
		logger.Debug("close", "error", err)
	}
}
