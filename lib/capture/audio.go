// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"sync"

	"github.com/arcollect/arcollect/lib/frame"
)

// AudioBuffer appends every microphone callback as one frame, samples
// unmodified.
type AudioBuffer struct {
	*Buffer[*frame.AudioFrame]
	microphone Microphone
	deps       Dependencies

	lifecycle sync.Mutex
	active    sync.RWMutex
}

// NewAudioBuffer returns a stopped audio buffer.
func NewAudioBuffer(microphone Microphone, deps Dependencies) *AudioBuffer {
	return &AudioBuffer{
		Buffer:     NewBuffer[*frame.AudioFrame](),
		microphone: microphone,
		deps:       deps.withDefaults(),
	}
}

func (b *AudioBuffer) Modality() frame.Modality { return frame.ModalityAudio }

// StartCapture starts the microphone. A microphone that fails to start
// is logged and leaves the buffer stopped.
func (b *AudioBuffer) StartCapture() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	if !b.setCapturing(true) {
		return
	}
	if err := b.microphone.Start(b.deliver); err != nil {
		b.setCapturing(false)
		b.recordSkip()
		b.deps.Logger.Debug("microphone start failed", "error", err)
		return
	}
	b.deps.Logger.Debug("capture started", "modality", frame.ModalityAudio)
}

func (b *AudioBuffer) deliver(samples []float32) {
	b.active.RLock()
	defer b.active.RUnlock()
	if !b.Capturing() {
		return
	}
	b.Add(&frame.AudioFrame{
		Timestamp:  b.deps.Time.Now(),
		SampleRate: b.microphone.SampleRate(),
		Channels:   b.microphone.Channels(),
		Samples:    samples,
	})
}

// StopCapture stops the microphone and waits for a callback already
// in progress.
func (b *AudioBuffer) StopCapture() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	if !b.setCapturing(false) {
		return
	}
	if err := b.microphone.Stop(); err != nil {
		b.deps.Logger.Debug("microphone stop failed", "error", err)
	}
	b.active.Lock()
	b.active.Unlock() //nolint:staticcheck // barrier for in-flight callbacks
	b.deps.Logger.Debug("capture stopped", "modality", frame.ModalityAudio)
}

func (b *AudioBuffer) ClearBuffer() { b.Clear() }

func (b *AudioBuffer) Dispose() {
	b.StopCapture()
	b.Clear()
}

// TryAcquireLatestFrame returns the newest sample without waiting.
func (b *AudioBuffer) TryAcquireLatestFrame() (*frame.AudioFrame, bool) { return b.Latest() }
