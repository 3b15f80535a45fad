// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"sync"

	"github.com/arcollect/arcollect/lib/frame"
)

// eventBuffer is the shared lifecycle of subscription-driven buffers.
// handle runs on the event source's goroutine for every event while
// capturing.
type eventBuffer[E any, T frame.Raw] struct {
	*Buffer[T]
	modality frame.Modality
	deps     Dependencies
	source   EventSource[E]
	handle   func(E)

	lifecycle sync.Mutex
	cancel    func()

	// active gates handlers still in flight on the platform goroutine
	// when StopCapture unsubscribes.
	active sync.RWMutex
}

func newEventBuffer[E any, T frame.Raw](modality frame.Modality, source EventSource[E], deps Dependencies) *eventBuffer[E, T] {
	return &eventBuffer[E, T]{
		Buffer:   NewBuffer[T](),
		modality: modality,
		deps:     deps.withDefaults(),
		source:   source,
	}
}

func (e *eventBuffer[E, T]) Modality() frame.Modality { return e.modality }

func (e *eventBuffer[E, T]) StartCapture() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if !e.setCapturing(true) {
		return
	}
	e.cancel = e.source.Subscribe(func(event E) {
		e.active.RLock()
		defer e.active.RUnlock()
		if !e.Capturing() {
			return
		}
		e.handle(event)
	})
	e.deps.Logger.Debug("capture started", "modality", e.modality)
}

// StopCapture unsubscribes and waits for handlers already running, so
// nothing is appended after it returns. It deadlocks if called from
// within this buffer's handler.
func (e *eventBuffer[E, T]) StopCapture() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if !e.setCapturing(false) {
		return
	}
	e.cancel()
	e.cancel = nil
	e.active.Lock()
	e.active.Unlock() //nolint:staticcheck // barrier for in-flight handlers
	e.deps.Logger.Debug("capture stopped", "modality", e.modality)
}

func (e *eventBuffer[E, T]) ClearBuffer() { e.Clear() }

func (e *eventBuffer[E, T]) Dispose() {
	e.StopCapture()
	e.Clear()
}

// TryAcquireLatestFrame returns the newest sample without waiting.
func (e *eventBuffer[E, T]) TryAcquireLatestFrame() (T, bool) { return e.Latest() }
