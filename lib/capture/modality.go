// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"io"
	"log/slog"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
)

// TimeSource stamps captured frames. lib/timesync.Service satisfies
// it, as does any clock.Clock.
type TimeSource interface {
	Now() time.Time
}

// Dependencies are the collaborators every modality buffer needs.
type Dependencies struct {
	// Time stamps frames. Defaults to Clock.
	Time TimeSource

	// Clock drives sampling tickers. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives debug-level capture failures. Nil discards.
	Logger *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Time == nil {
		d.Time = d.Clock
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

// ModalityBuffer is the lifecycle every per-modality buffer shares.
// The recorder and SynchronizedBuffer work in terms of it.
type ModalityBuffer interface {
	Modality() frame.Modality

	// StartCapture begins capturing. Calling it while capturing does
	// nothing.
	StartCapture()

	// StopCapture stops capturing and returns once no new frame can be
	// produced by this buffer's own goroutines or subscriptions.
	// Buffered frames are kept. Calling it while stopped does nothing.
	//
	// StopCapture waits for in-flight capture work, so it must not be
	// called from inside that work: not from a source the buffer reads
	// during a sample (an ImageSource, a sensor, a mesh encoder) and not
	// from a handler the buffer itself subscribed. Such a call
	// deadlocks. Other subscribers of the same event source may call it
	// synchronously; anything else can use go buffer.StopCapture().
	StopCapture()

	// ClearBuffer discards buffered frames without touching capture
	// state.
	ClearBuffer()

	// Dispose stops capture, clears the buffer and releases platform
	// handles. The buffer can be started again afterwards.
	Dispose()

	// DrainRaw removes and returns every buffered frame.
	DrainRaw() []frame.Raw

	Len() int
	Stats() Stats
	Capturing() bool
}
