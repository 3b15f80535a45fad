// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package simdevice

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/clock"
)

var _ capture.Microphone = (*Microphone)(nil)

// Microphone delivers a continuous sine tone in fixed-size chunks on
// the device clock. Phase carries over between chunks and across
// restarts.
type Microphone struct {
	clock      clock.Clock
	sampleRate int
	channels   int
	chunk      int // frames per callback
	step       float64

	mu      sync.Mutex
	phase   float64
	stop    chan struct{}
	stopped chan struct{}
}

func newMicrophone(options Options) *Microphone {
	return &Microphone{
		clock:      options.Clock,
		sampleRate: options.AudioSampleRate,
		channels:   options.AudioChannels,
		chunk:      max(1, int(options.AudioChunk*time.Duration(options.AudioSampleRate)/time.Second)),
		step:       2 * math.Pi * options.ToneHz / float64(options.AudioSampleRate),
	}
}

// Microphone returns the device microphone.
func (d *Device) Microphone() *Microphone {
	return d.microphone
}

func (m *Microphone) SampleRate() int { return m.sampleRate }
func (m *Microphone) Channels() int   { return m.channels }

// Start begins delivering chunks. It fails if already started.
func (m *Microphone) Start(deliver func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return errors.New("microphone already started")
	}

	period := clockDuration(m.chunk, m.sampleRate)
	ticker := m.clock.NewTicker(period)
	m.stop = make(chan struct{})
	m.stopped = make(chan struct{})
	go m.run(ticker, deliver, m.stop, m.stopped)
	return nil
}

// Stop halts delivery and waits for a callback in progress. Stopping a
// stopped microphone does nothing.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	stop, stopped := m.stop, m.stopped
	m.stop, m.stopped = nil, nil
	m.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-stopped
	return nil
}

func (m *Microphone) run(ticker *clock.Ticker, deliver func([]float32), stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deliver(m.nextChunk())
		}
	}
}

// nextChunk renders one chunk of interleaved samples at half amplitude.
func (m *Microphone) nextChunk() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := make([]float32, m.chunk*m.channels)
	for i := range m.chunk {
		value := float32(0.5 * math.Sin(m.phase))
		for channel := range m.channels {
			samples[i*m.channels+channel] = value
		}
		m.phase = math.Mod(m.phase+m.step, 2*math.Pi)
	}
	return samples
}

// clockDuration returns how long frames samples last at rate.
func clockDuration(frames, rate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
