// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
)

// sampler runs sample on every tick of a clock ticker until stopped.
type sampler struct {
	clock    clock.Clock
	interval time.Duration
	sample   func()

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func newSampler(clk clock.Clock, interval time.Duration, sample func()) *sampler {
	return &sampler{clock: clk, interval: interval, sample: sample}
}

// start launches the ticker goroutine if it is not already running.
func (s *sampler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	// The ticker is created before start returns so that a fake clock
	// sees it registered as soon as StartCapture does.
	ticker := s.clock.NewTicker(s.interval)
	go s.run(ticker, s.stop, s.done)
}

func (s *sampler) run(ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			s.sample()
		}
	}
}

// halt stops the goroutine and waits for it, so no sample runs after
// halt returns.
func (s *sampler) halt() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
