// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/session"
)

var (
	// ErrSessionNotFound is returned for a well-formed id with no
	// session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotMember is returned when the calling device has not joined
	// the session.
	ErrNotMember = errors.New("device is not a member of the session")
)

// IntrinsicsRecord is one registered camera calibration.
type IntrinsicsRecord struct {
	DeviceTimestamp int64            `cbor:"device_timestamp"`
	Intrinsics      frame.Intrinsics `cbor:"intrinsics"`
}

// SessionStats summarizes what a session has received.
type SessionStats struct {
	// Frames counts stored frames per modality name.
	Frames map[string]uint64 `cbor:"frames"`

	// LastDeviceTimestamp is the newest frame timestamp per device id.
	LastDeviceTimestamp map[string]int64 `cbor:"last_device_timestamp"`

	// Intrinsics holds the latest registration per device id.
	Intrinsics map[string]IntrinsicsRecord `cbor:"intrinsics"`
}

// TotalFrames sums Frames over every modality.
func (s SessionStats) TotalFrames() uint64 {
	var total uint64
	for _, count := range s.Frames {
		total += count
	}
	return total
}

type sessionRecord struct {
	session   session.Session
	createdAt time.Time
	stats     SessionStats
}

// Service is the in-memory session store. Safe for concurrent use.
type Service struct {
	clock   clock.Clock
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	sessions map[session.SessionID]*sessionRecord
}

// New creates an empty service. A nil clock means clock.Real; a nil
// metrics disables instrumentation.
func New(clk clock.Clock, metrics *Metrics, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		clock:    clk,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[session.SessionID]*sessionRecord),
	}
}

// CreateSession allocates a session with device as its only member.
func (s *Service) CreateSession(metadata session.Metadata, device session.Device) (session.Session, error) {
	if err := device.Validate(); err != nil {
		return session.Session{}, err
	}
	if metadata.Name == "" {
		return session.Session{}, errors.New("session name is required")
	}

	record := &sessionRecord{
		session: session.Session{
			ID:       session.NewSessionID(),
			Metadata: metadata,
			Devices:  []session.Device{device},
		},
		createdAt: s.clock.Now(),
		stats: SessionStats{
			Frames:              make(map[string]uint64),
			LastDeviceTimestamp: make(map[string]int64),
			Intrinsics:          make(map[string]IntrinsicsRecord),
		},
	}

	s.mu.Lock()
	s.sessions[record.session.ID] = record
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.setSessions(count)
	s.logger.Info("session created",
		"session", record.session.ID.String(),
		"name", metadata.Name,
		"device", device.ID,
	)
	return cloneSession(record.session), nil
}

// GetSession returns the session with id.
func (s *Service) GetSession(id session.SessionID) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.lookupLocked(id)
	if err != nil {
		return session.Session{}, err
	}
	return cloneSession(record.session), nil
}

// ListSessions returns every session, oldest first.
func (s *Service) ListSessions() []session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := slices.SortedFunc(maps.Values(s.sessions), func(a, b *sessionRecord) int {
		return a.createdAt.Compare(b.createdAt)
	})
	sessions := make([]session.Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, cloneSession(record.session))
	}
	return sessions
}

// DeleteSession removes id. device must be a member.
func (s *Service) DeleteSession(id session.SessionID, device session.Device) error {
	s.mu.Lock()
	record, err := s.memberLocked(id, device)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.setSessions(count)
	s.logger.Info("session deleted",
		"session", id.String(),
		"device", device.ID,
		"frames", record.stats.TotalFrames(),
	)
	return nil
}

// JoinSession adds device to id. Joining again replaces the stored
// descriptor for the same device id.
func (s *Service) JoinSession(id session.SessionID, device session.Device) (session.Session, error) {
	if err := device.Validate(); err != nil {
		return session.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.lookupLocked(id)
	if err != nil {
		return session.Session{}, err
	}

	index := slices.IndexFunc(record.session.Devices, func(d session.Device) bool { return d.ID == device.ID })
	if index >= 0 {
		record.session.Devices[index] = device
	} else {
		record.session.Devices = append(record.session.Devices, device)
	}

	s.logger.Info("device joined session",
		"session", id.String(),
		"device", device.ID,
		"devices", len(record.session.Devices),
	)
	return cloneSession(record.session), nil
}

// LeaveSession removes device from id. The session survives with no
// members until deleted.
func (s *Service) LeaveSession(id session.SessionID, device session.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.memberLocked(id, device)
	if err != nil {
		return err
	}
	record.session.Devices = slices.DeleteFunc(record.session.Devices, func(d session.Device) bool {
		return d.ID == device.ID
	})

	s.logger.Info("device left session", "session", id.String(), "device", device.ID)
	return nil
}

// RegisterIntrinsics records camera calibration for device.
func (s *Service) RegisterIntrinsics(id session.SessionID, device session.Device, deviceTimestamp int64, intrinsics frame.Intrinsics) error {
	if intrinsics.ResolutionWidth <= 0 || intrinsics.ResolutionHeight <= 0 {
		return fmt.Errorf("intrinsics resolution %dx%d is not positive", intrinsics.ResolutionWidth, intrinsics.ResolutionHeight)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.memberLocked(id, device)
	if err != nil {
		return err
	}
	record.stats.Intrinsics[device.ID] = IntrinsicsRecord{
		DeviceTimestamp: deviceTimestamp,
		Intrinsics:      intrinsics,
	}
	return nil
}

// SaveFrames stores a batch from device. Every frame is validated
// before any is counted, so a rejected batch leaves no trace.
func (s *Service) SaveFrames(id session.SessionID, device session.Device, frames []frame.ARFrame) (int, error) {
	for i := range frames {
		if err := frames[i].Validate(); err != nil {
			return 0, fmt.Errorf("frame %d: %w", i, err)
		}
	}

	s.mu.Lock()
	record, err := s.memberLocked(id, device)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	for i := range frames {
		record.stats.Frames[frames[i].Kind.String()]++
		if stamp := frames[i].DeviceTimestamp(); stamp > record.stats.LastDeviceTimestamp[device.ID] {
			record.stats.LastDeviceTimestamp[device.ID] = stamp
		}
	}
	s.mu.Unlock()

	s.metrics.observeFrames(frames)
	s.logger.Debug("frames saved", "session", id.String(), "device", device.ID, "frames", len(frames))
	return len(frames), nil
}

// Stats returns a copy of what id has received.
func (s *Service) Stats(id session.SessionID) (SessionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.lookupLocked(id)
	if err != nil {
		return SessionStats{}, err
	}
	return SessionStats{
		Frames:              maps.Clone(record.stats.Frames),
		LastDeviceTimestamp: maps.Clone(record.stats.LastDeviceTimestamp),
		Intrinsics:          maps.Clone(record.stats.Intrinsics),
	}, nil
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) lookupLocked(id session.SessionID) (*sessionRecord, error) {
	canonical, err := session.ParseSessionID(id.UUID)
	if err != nil {
		return nil, err
	}
	record, ok := s.sessions[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, canonical)
	}
	return record, nil
}

func (s *Service) memberLocked(id session.SessionID, device session.Device) (*sessionRecord, error) {
	record, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	if !record.session.HasDevice(device.ID) {
		return nil, fmt.Errorf("%w: device %q, session %s", ErrNotMember, device.ID, id)
	}
	return record, nil
}

func cloneSession(s session.Session) session.Session {
	s.Devices = slices.Clone(s.Devices)
	return s
}
