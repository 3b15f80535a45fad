// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Transport names accepted by Collector.Transport and Server.Transport.
const (
	TransportTCP    = "tcp"
	TransportUnix   = "unix"
	TransportWebRTC = "webrtc"
)

// Time sync sources accepted by TimeSync.Source.
const (
	TimeSourceCollector = "collector"
	TimeSourceNTP       = "ntp"
	TimeSourceNone      = "none"
)

// Config is the configuration shared by arcollect-recorder and
// arcollect-collector. Each binary reads the sections it needs.
type Config struct {
	Environment Environment `yaml:"environment"`

	Device    DeviceConfig    `yaml:"device"`
	Collector CollectorConfig `yaml:"collector"`
	Session   SessionConfig   `yaml:"session"`
	TimeSync  TimeSyncConfig  `yaml:"time_sync"`
	Capture   CaptureConfig   `yaml:"capture"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides are the sections an environment block may replace. Only
// non-empty fields are applied.
type Overrides struct {
	Collector *CollectorConfig `yaml:"collector,omitempty"`
	Server    *ServerConfig    `yaml:"server,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
	Metrics   *MetricsConfig   `yaml:"metrics,omitempty"`
	Recorder  *RecorderConfig  `yaml:"recorder,omitempty"`
}

// DeviceConfig identifies the recording device.
type DeviceConfig struct {
	// ID must be stable across runs for a physical device. Default: a
	// fresh "device-<uuid>" per process.
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

// CollectorConfig tells the recorder how to reach the collector.
type CollectorConfig struct {
	// Transport is tcp, unix or webrtc.
	Transport string `yaml:"transport"`

	// Address is host:port for tcp, a socket path for unix, and the
	// collector's peer name for webrtc.
	Address string `yaml:"address"`

	// Signaling is the collector's TCP signaling endpoint, used only
	// with the webrtc transport.
	Signaling string `yaml:"signaling"`

	// ICEServers are stun:, stuns:, turn: or turns: URLs.
	ICEServers    []string `yaml:"ice_servers"`
	ICEUsername   string   `yaml:"ice_username"`
	ICECredential string   `yaml:"ice_credential"`

	// DialTimeout bounds connection setup. Default: 10s.
	DialTimeout string `yaml:"dial_timeout"`

	// MaxRequestSize caps one encoded request in bytes. Zero means the
	// rpc default.
	MaxRequestSize int `yaml:"max_request_size"`
}

// SessionConfig selects the session to record into.
type SessionConfig struct {
	// ID joins an existing session. Empty creates a new one named Name.
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	SavePath string `yaml:"save_path"`

	// DeleteOnExit deletes a session this recorder created when it
	// shuts down.
	DeleteOnExit bool `yaml:"delete_on_exit"`
}

// TimeSyncConfig selects the reference clock for frame timestamps.
type TimeSyncConfig struct {
	// Source is collector, ntp or none.
	Source string `yaml:"source"`

	// NTPServer is the server queried when Source is ntp.
	NTPServer string `yaml:"ntp_server"`

	// Interval between resynchronizations. Default: 30s.
	Interval string `yaml:"interval"`
}

// CaptureConfig enables modalities and sets their parameters.
type CaptureConfig struct {
	Color       ColorConfig       `yaml:"color"`
	Depth       DepthConfig       `yaml:"depth"`
	Transform   SampledConfig     `yaml:"transform"`
	Pose        SampledConfig     `yaml:"pose"`
	Gyroscope   SampledConfig     `yaml:"gyroscope"`
	Audio       AudioConfig       `yaml:"audio"`
	Planes      ToggleConfig      `yaml:"planes"`
	PointClouds ToggleConfig      `yaml:"point_clouds"`
	Meshes      MeshCaptureConfig `yaml:"meshes"`
}

type ToggleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ColorConfig sets the NV12 size color frames are resampled to. Zero
// width and height send native size.
type ColorConfig struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
}

// DepthConfig zeroes depth samples below ConfidenceThreshold (0-2).
// Zero disables filtering.
type DepthConfig struct {
	Enabled             bool  `yaml:"enabled"`
	ConfidenceThreshold uint8 `yaml:"confidence_threshold"`
}

// SampledConfig is a ticker-driven modality.
type SampledConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
}

type AudioConfig struct {
	Enabled    bool `yaml:"enabled"`
	SampleRate int  `yaml:"sample_rate"`
	Channels   int  `yaml:"channels"`
}

// MeshCaptureConfig sets the sub-mesh encode parallelism. Zero means
// GOMAXPROCS.
type MeshCaptureConfig struct {
	Enabled     bool `yaml:"enabled"`
	Parallelism int  `yaml:"parallelism"`
}

// RecorderConfig sets upload cadence and batching.
type RecorderConfig struct {
	FlushInterval   string `yaml:"flush_interval"`
	MaxBatchFrames  int    `yaml:"max_batch_frames"`
	MaxQueuedFrames int    `yaml:"max_queued_frames"`
}

// SimulatorConfig drives the synthetic device.
type SimulatorConfig struct {
	FrameRate      int `yaml:"frame_rate"`
	ColorWidth     int `yaml:"color_width"`
	ColorHeight    int `yaml:"color_height"`
	DepthWidth     int `yaml:"depth_width"`
	DepthHeight    int `yaml:"depth_height"`
	TrackableEvery int `yaml:"trackable_every"`
}

// ServerConfig is the collector's listening side.
type ServerConfig struct {
	Transport string `yaml:"transport"`

	// Listen is host:port for tcp, a socket path for unix, and the
	// collector's peer name for webrtc.
	Listen string `yaml:"listen"`

	// SignalingListen is the TCP address for WebRTC signaling.
	SignalingListen string `yaml:"signaling_listen"`

	ICEServers    []string `yaml:"ice_servers"`
	ICEUsername   string   `yaml:"ice_username"`
	ICECredential string   `yaml:"ice_credential"`

	MaxRequestSize int `yaml:"max_request_size"`
}

type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is auto, text or json. Auto picks text on a terminal.
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	// Listen serves /metrics on this address when set.
	Listen string `yaml:"listen"`
}

// Default returns the configuration used before the file is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Device: DeviceConfig{
			ID:    "device-" + uuid.NewString(),
			Name:  "arcollect-recorder",
			Model: "arcollect-simdevice",
		},
		Collector: CollectorConfig{
			Transport:   TransportTCP,
			Address:     "127.0.0.1:7420",
			Signaling:   "127.0.0.1:7421",
			DialTimeout: "10s",
		},
		Session: SessionConfig{
			Name: "capture",
		},
		TimeSync: TimeSyncConfig{
			Source:    TimeSourceCollector,
			NTPServer: "pool.ntp.org",
			Interval:  "30s",
		},
		Capture: CaptureConfig{
			Color:       ColorConfig{Enabled: true, Width: 640, Height: 480},
			Depth:       DepthConfig{Enabled: true, ConfidenceThreshold: 1},
			Transform:   SampledConfig{Enabled: true, Interval: "50ms"},
			Pose:        SampledConfig{Enabled: true, Interval: "50ms"},
			Gyroscope:   SampledConfig{Enabled: true, Interval: "50ms"},
			Audio:       AudioConfig{Enabled: true, SampleRate: 48000, Channels: 1},
			Planes:      ToggleConfig{Enabled: true},
			PointClouds: ToggleConfig{Enabled: true},
			Meshes:      MeshCaptureConfig{Enabled: true},
		},
		Recorder: RecorderConfig{
			FlushInterval:   "500ms",
			MaxBatchFrames:  64,
			MaxQueuedFrames: 10000,
		},
		Simulator: SimulatorConfig{
			FrameRate:      30,
			ColorWidth:     1280,
			ColorHeight:    960,
			DepthWidth:     256,
			DepthHeight:    192,
			TrackableEvery: 15,
		},
		Server: ServerConfig{
			Transport:       TransportTCP,
			Listen:          "127.0.0.1:7420",
			SignalingListen: "127.0.0.1:7421",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads the file named by ARCOLLECT_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv("ARCOLLECT_CONFIG")
	if path == "" {
		return nil, errors.New("ARCOLLECT_CONFIG environment variable not set; " +
			"set it to the path of your arcollect.yaml, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads path over Default, applies the environment section
// and expands variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if c.Logging.Format == "auto" {
			c.Logging.Format = "json"
		}
	}
	if overrides == nil {
		return
	}

	if o := overrides.Collector; o != nil {
		override(&c.Collector.Transport, o.Transport)
		override(&c.Collector.Address, o.Address)
		override(&c.Collector.Signaling, o.Signaling)
		override(&c.Collector.ICEUsername, o.ICEUsername)
		override(&c.Collector.ICECredential, o.ICECredential)
		override(&c.Collector.DialTimeout, o.DialTimeout)
		if o.ICEServers != nil {
			c.Collector.ICEServers = o.ICEServers
		}
		if o.MaxRequestSize != 0 {
			c.Collector.MaxRequestSize = o.MaxRequestSize
		}
	}
	if o := overrides.Server; o != nil {
		override(&c.Server.Transport, o.Transport)
		override(&c.Server.Listen, o.Listen)
		override(&c.Server.SignalingListen, o.SignalingListen)
		override(&c.Server.ICEUsername, o.ICEUsername)
		override(&c.Server.ICECredential, o.ICECredential)
		if o.ICEServers != nil {
			c.Server.ICEServers = o.ICEServers
		}
		if o.MaxRequestSize != 0 {
			c.Server.MaxRequestSize = o.MaxRequestSize
		}
	}
	if o := overrides.Logging; o != nil {
		override(&c.Logging.Level, o.Level)
		override(&c.Logging.Format, o.Format)
	}
	if o := overrides.Metrics; o != nil {
		override(&c.Metrics.Listen, o.Listen)
	}
	if o := overrides.Recorder; o != nil {
		override(&c.Recorder.FlushInterval, o.FlushInterval)
		if o.MaxBatchFrames != 0 {
			c.Recorder.MaxBatchFrames = o.MaxBatchFrames
		}
		if o.MaxQueuedFrames != 0 {
			c.Recorder.MaxQueuedFrames = o.MaxQueuedFrames
		}
	}
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Session.SavePath = expandVars(c.Session.SavePath, vars)
	if c.Collector.Transport == TransportUnix {
		c.Collector.Address = expandVars(c.Collector.Address, vars)
	}
	if c.Server.Transport == TransportUnix {
		c.Server.Listen = expandVars(c.Server.Listen, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}, looking in vars
// first and then the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Environment != Development && c.Environment != Production {
		add("invalid environment: %s", c.Environment)
	}
	if c.Device.ID == "" {
		add("device.id is required")
	}

	transports := []string{TransportTCP, TransportUnix, TransportWebRTC}
	if !slices.Contains(transports, c.Collector.Transport) {
		add("collector.transport must be one of: %v", transports)
	}
	if c.Collector.Address == "" {
		add("collector.address is required")
	}
	if c.Collector.Transport == TransportWebRTC && c.Collector.Signaling == "" {
		add("collector.signaling is required with the webrtc transport")
	}
	if !slices.Contains(transports, c.Server.Transport) {
		add("server.transport must be one of: %v", transports)
	}
	if c.Server.Listen == "" {
		add("server.listen is required")
	}
	if c.Server.Transport == TransportWebRTC && c.Server.SignalingListen == "" {
		add("server.signaling_listen is required with the webrtc transport")
	}

	if c.Session.ID != "" {
		if _, err := uuid.Parse(c.Session.ID); err != nil {
			add("session.id: %v", err)
		}
	} else if c.Session.Name == "" {
		add("session.name is required when session.id is empty")
	}

	sources := []string{TimeSourceCollector, TimeSourceNTP, TimeSourceNone}
	if !slices.Contains(sources, c.TimeSync.Source) {
		add("time_sync.source must be one of: %v", sources)
	}
	if c.TimeSync.Source == TimeSourceNTP && c.TimeSync.NTPServer == "" {
		add("time_sync.ntp_server is required with the ntp source")
	}

	durations := map[string]string{
		"collector.dial_timeout":     c.Collector.DialTimeout,
		"time_sync.interval":         c.TimeSync.Interval,
		"capture.transform.interval": c.Capture.Transform.Interval,
		"capture.pose.interval":      c.Capture.Pose.Interval,
		"capture.gyroscope.interval": c.Capture.Gyroscope.Interval,
		"recorder.flush_interval":    c.Recorder.FlushInterval,
	}
	for _, name := range slices.Sorted(maps.Keys(durations)) {
		if _, err := parseDuration(durations[name]); err != nil {
			add("%s: %v", name, err)
		}
	}

	color := c.Capture.Color
	if color.Width < 0 || color.Height < 0 || color.Width%2 != 0 || color.Height%2 != 0 {
		add("capture.color size %dx%d must be even and non-negative", color.Width, color.Height)
	}
	if c.Capture.Depth.ConfidenceThreshold > 2 {
		add("capture.depth.confidence_threshold must be 0, 1 or 2")
	}
	if c.Capture.Audio.Enabled && (c.Capture.Audio.SampleRate <= 0 || c.Capture.Audio.Channels <= 0) {
		add("capture.audio needs a positive sample_rate and channels")
	}
	if c.Recorder.MaxBatchFrames <= 0 {
		add("recorder.max_batch_frames must be positive")
	}
	if c.Recorder.MaxQueuedFrames < 0 {
		add("recorder.max_queued_frames must not be negative")
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Logging.Level) {
		add("logging.level must be one of: %v", levels)
	}
	formats := []string{"auto", "text", "json"}
	if !slices.Contains(formats, c.Logging.Format) {
		add("logging.format must be one of: %v", formats)
	}

	return errors.Join(errs...)
}

// parseDuration accepts an empty string as zero, meaning the
// component default.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %s", value)
	}
	return duration, nil
}

// mustDuration is parseDuration for values Validate has accepted.
func mustDuration(value string) time.Duration {
	duration, _ := parseDuration(value)
	return duration
}

// DialTimeoutDuration returns DialTimeout; zero means no timeout.
func (c CollectorConfig) DialTimeoutDuration() time.Duration { return mustDuration(c.DialTimeout) }

// IntervalDuration returns Interval; zero means the timesync default.
func (c TimeSyncConfig) IntervalDuration() time.Duration { return mustDuration(c.Interval) }

// IntervalDuration returns Interval; zero means the buffer default.
func (c SampledConfig) IntervalDuration() time.Duration { return mustDuration(c.Interval) }

// FlushIntervalDuration returns FlushInterval; zero means the recorder
// default.
func (c RecorderConfig) FlushIntervalDuration() time.Duration { return mustDuration(c.FlushInterval) }
