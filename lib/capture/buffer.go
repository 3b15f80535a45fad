// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/frame"
)

// Stats are cumulative counters for one buffer.
type Stats struct {
	// Appended counts frames accepted by Add.
	Appended uint64

	// OutOfOrder counts frames dropped because their timestamp
	// preceded the last accepted frame.
	OutOfOrder uint64

	// Skipped counts capture attempts that produced no frame: no image
	// available, an acquisition error, a failed mesh encode.
	Skipped uint64
}

// Buffer is the ordered sample store behind every modality buffer.
// Frames are kept in non-decreasing CapturedAt order; Add rejects a
// frame older than the newest one. Clear and Drain are the only
// operations that shrink the sequence, and both are atomic with
// respect to Add.
//
// All methods may be called concurrently.
type Buffer[T frame.Raw] struct {
	mu        sync.Mutex
	frames    []T
	last      time.Time
	capturing bool
	stats     Stats
	notify    chan struct{}
}

// NewBuffer returns an empty buffer with capture disabled.
func NewBuffer[T frame.Raw]() *Buffer[T] {
	return &Buffer[T]{notify: make(chan struct{}, 1)}
}

// Add appends f. It returns false, and counts the frame in
// Stats.OutOfOrder, when f is older than the newest buffered or
// drained frame.
func (b *Buffer[T]) Add(f T) bool {
	timestamp := f.CapturedAt()

	b.mu.Lock()
	if timestamp.Before(b.last) {
		b.stats.OutOfOrder++
		b.mu.Unlock()
		return false
	}
	b.frames = append(b.frames, f)
	b.last = timestamp
	b.stats.Appended++
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// AddBatch appends frames in order under one lock, so readers see all
// of them or none. Frames older than their predecessor are dropped and
// counted as in Add. It returns the number appended and signals Notify
// once.
func (b *Buffer[T]) AddBatch(frames []T) int {
	if len(frames) == 0 {
		return 0
	}

	b.mu.Lock()
	appended := 0
	for _, f := range frames {
		timestamp := f.CapturedAt()
		if timestamp.Before(b.last) {
			b.stats.OutOfOrder++
			continue
		}
		b.frames = append(b.frames, f)
		b.last = timestamp
		appended++
	}
	b.stats.Appended += uint64(appended)
	b.mu.Unlock()

	if appended > 0 {
		select {
		case b.notify <- struct{}{}:
		default:
		}
	}
	return appended
}

// recordSkip counts one capture attempt that produced no frame.
func (b *Buffer[T]) recordSkip() {
	b.mu.Lock()
	b.stats.Skipped++
	b.mu.Unlock()
}

// Latest returns the most recent frame, or the zero value and false
// when the buffer is empty. It never blocks on capture.
func (b *Buffer[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == 0 {
		var zero T
		return zero, false
	}
	return b.frames[len(b.frames)-1], true
}

// Frames returns a copy of the buffered frames, oldest first.
func (b *Buffer[T]) Frames() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]T, len(b.frames))
	copy(result, b.frames)
	return result
}

// Drain removes and returns every buffered frame, oldest first.
// Ownership of the frames passes to the caller.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.frames
	b.frames = nil
	return drained
}

// DrainRaw is Drain with the element type erased.
func (b *Buffer[T]) DrainRaw() []frame.Raw {
	drained := b.Drain()
	raw := make([]frame.Raw, len(drained))
	for i, f := range drained {
		raw[i] = f
	}
	return raw
}

// Clear discards every buffered frame. The ordering watermark is kept,
// so frames older than the discarded ones are still rejected.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.frames)
	b.frames = nil
}

// Len returns the number of buffered frames.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Stats returns a snapshot of the buffer's counters.
func (b *Buffer[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Capturing reports whether the owning modality buffer is capturing.
func (b *Buffer[T]) Capturing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capturing
}

// setCapturing flips the capture flag and reports whether it changed.
func (b *Buffer[T]) setCapturing(capturing bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capturing == capturing {
		return false
	}
	b.capturing = capturing
	return true
}

// Notify returns a channel that receives after an Add, at most one
// pending signal at a time.
func (b *Buffer[T]) Notify() <-chan struct{} {
	return b.notify
}
