// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package timesync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
)

// Source answers one time query. The Service measures the round trip
// around the call, so implementations return only the server's
// reported time.
type Source interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Service is a clock that can be corrected against a Source. Now never
// decreases: a correction that would move it backward holds it at the
// last reading until corrected time catches up. Safe for concurrent
// use.
type Service struct {
	clock  clock.Clock
	source Source
	logger *slog.Logger

	// start is the local reading at construction. Elapsed time is
	// measured from it via the clock, which for the real clock uses
	// the monotonic reading.
	start time.Time

	mu            sync.Mutex
	synchronized  bool
	serverAnchor  time.Time
	elapsedAnchor time.Duration
	lastRTT       time.Duration

	// floor is the latest value Now has returned.
	floor time.Time
}

// New returns an unsynchronized Service. A nil clock means
// clock.Real(); a nil logger discards.
func New(source Source, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		clock:  clk,
		source: source,
		logger: logger,
		start:  clk.Now(),
	}
}

func (s *Service) elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}

// Now returns the corrected time in the local time zone, or local
// time if the service has never synchronized. Successive calls never
// go backward.
func (s *Service) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if s.synchronized {
		now = s.serverAnchor.Add(s.elapsed() - s.elapsedAnchor).Local()
	}
	if now.Before(s.floor) {
		return s.floor
	}
	s.floor = now
	return now
}

// UTCNow is Now in UTC.
func (s *Service) UTCNow() time.Time {
	return s.Now().UTC()
}

// Synchronized reports whether a Synchronize call has ever succeeded.
func (s *Service) Synchronized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synchronized
}

// LastRoundTrip returns the round-trip time of the last successful
// synchronization, or zero.
func (s *Service) LastRoundTrip() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRTT
}

// Synchronize performs one exchange with the source and re-anchors
// the clock. On failure the service keeps its previous state, so a
// failed resync leaves the last good anchor in place and a service
// that never synced keeps returning local time. Safe to retry.
func (s *Service) Synchronize(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("synchronizing clock: no time source configured")
	}

	sent := s.elapsed()
	serverTime, err := s.source.ServerTime(ctx)
	received := s.elapsed()
	if err != nil {
		return fmt.Errorf("synchronizing clock: %w", err)
	}
	if serverTime.IsZero() {
		return fmt.Errorf("synchronizing clock: source returned zero time")
	}

	rtt := received - sent
	if rtt < 0 {
		rtt = 0
	}
	estimate := serverTime.Add(rtt / 2)

	s.mu.Lock()
	previous := s.synchronized
	held := s.floor.Sub(estimate)
	s.serverAnchor = estimate
	s.elapsedAnchor = received
	s.lastRTT = rtt
	s.synchronized = true
	s.mu.Unlock()

	s.logger.Debug("clock synchronized",
		"server_time", estimate,
		"rtt", rtt,
		"offset", estimate.Sub(s.clock.Now()),
		"resync", previous,
	)
	if held > 0 {
		s.logger.Debug("clock correction is behind the last reading, holding", "hold", held)
	}
	return nil
}

// DefaultResyncInterval is the Run period when none is given.
const DefaultResyncInterval = 30 * time.Second

// Run synchronizes immediately and then every interval until ctx is
// done. Failures are logged and retried at the next tick; they never
// stop the loop. A non-positive interval means DefaultResyncInterval.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if err := s.Synchronize(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("initial clock synchronization failed, using local time", "error", err)
	}
	s.Resync(ctx, interval)
}

// Resync is Run without the initial exchange, for callers that have
// already called Synchronize before stamping anything.
func (s *Service) Resync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultResyncInterval
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Synchronize(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("clock resynchronization failed", "error", err)
			}
		}
	}
}
