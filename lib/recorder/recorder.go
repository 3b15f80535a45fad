// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/rpc"
	"github.com/arcollect/arcollect/lib/session"
)

const (
	DefaultFlushInterval  = 500 * time.Millisecond
	DefaultMaxBatchFrames = 64
)

// Upload retry backoff doubles from initialBackoff up to maxBackoff and
// resets after a successful batch.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// drainTimeout bounds the final upload pass after shutdown.
const drainTimeout = 5 * time.Second

// Uploader is the part of session.Client the recorder uses.
type Uploader interface {
	SaveARFrames(ctx context.Context, id session.SessionID, frames []frame.ARFrame, device session.Device) error
	RegisterIntrinsics(ctx context.Context, id session.SessionID, device session.Device, timestamp time.Time, intrinsics frame.Intrinsics) error
}

// Intrinsics is a camera calibration to register before uploading.
type Intrinsics struct {
	Timestamp time.Time
	Value     frame.Intrinsics
}

// Config describes one recording.
type Config struct {
	Session session.SessionID
	Device  session.Device

	// Buffers are started by Run and stopped on shutdown.
	Buffers []capture.ModalityBuffer

	Converter frame.Converter

	// FlushInterval defaults to DefaultFlushInterval.
	FlushInterval time.Duration

	// MaxBatchFrames caps the frames in one SaveARFrames call.
	// Defaults to DefaultMaxBatchFrames.
	MaxBatchFrames int

	// MaxQueuedFrames bounds converted frames waiting for upload. The
	// oldest are dropped past it. Zero means unbounded.
	MaxQueuedFrames int

	// Intrinsics, when set, is registered once before frames are
	// uploaded. A rejected registration is retried on each flush.
	Intrinsics *Intrinsics

	Clock   clock.Clock
	Metrics *Metrics
	Logger  *slog.Logger
}

// Stats are cumulative recorder counters.
type Stats struct {
	Shipped        uint64
	Dropped        uint64
	EncodeFailures uint64
	Queued         int
}

// Recorder uploads the frames its buffers capture. Create with New and
// call Run once.
type Recorder struct {
	uploader Uploader
	config   Config
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics

	// queue and intrinsicsPending belong to the Run goroutine.
	queue             []frame.ARFrame
	intrinsicsPending bool

	shipped        atomic.Uint64
	dropped        atomic.Uint64
	encodeFailures atomic.Uint64
	queued         atomic.Int64
	running        atomic.Bool
}

// New validates config and returns a recorder uploading through
// uploader.
func New(uploader Uploader, config Config) (*Recorder, error) {
	if uploader == nil {
		return nil, errors.New("recorder: uploader is required")
	}
	if config.Session.IsZero() {
		return nil, errors.New("recorder: session id is required")
	}
	if err := config.Device.Validate(); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	if len(config.Buffers) == 0 {
		return nil, errors.New("recorder: at least one buffer is required")
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.MaxBatchFrames <= 0 {
		config.MaxBatchFrames = DefaultMaxBatchFrames
	}
	if config.MaxQueuedFrames < 0 {
		return nil, fmt.Errorf("recorder: negative queue bound %d", config.MaxQueuedFrames)
	}

	recorder := &Recorder{
		uploader:          uploader,
		config:            config,
		clock:             config.Clock,
		logger:            config.Logger,
		metrics:           config.Metrics,
		intrinsicsPending: config.Intrinsics != nil,
	}
	if recorder.clock == nil {
		recorder.clock = clock.Real()
	}
	if recorder.logger == nil {
		recorder.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	recorder.metrics.watchBuffers(config.Buffers)
	return recorder, nil
}

// Stats returns a snapshot of the recorder counters. Safe to call
// while Run is active.
func (r *Recorder) Stats() Stats {
	return Stats{
		Shipped:        r.shipped.Load(),
		Dropped:        r.dropped.Load(),
		EncodeFailures: r.encodeFailures.Load(),
		Queued:         int(r.queued.Load()),
	}
}

// Run starts capture and uploads until ctx is cancelled, then stops
// capture and makes one final drain. It returns nil after a cancelled
// ctx and an error wrapping rpc.ErrClosed when the connection is lost.
// Run may be called only once.
func (r *Recorder) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("recorder: Run called twice")
	}

	for _, buffer := range r.config.Buffers {
		buffer.StartCapture()
	}
	r.logger.Info("recording started",
		"session", r.config.Session.String(),
		"device", r.config.Device.ID,
		"modalities", r.modalityNames(),
		"flush_interval", r.config.FlushInterval,
	)

	ticker := r.clock.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	backoff := initialBackoff
	var retry <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case <-ticker.C:
			r.collect()
			if retry != nil {
				continue
			}
		case <-retry:
			retry = nil
		}

		err := r.flush(ctx)
		if err == nil {
			backoff = initialBackoff
			continue
		}
		if ctx.Err() != nil {
			r.shutdown()
			return nil
		}
		if errors.Is(err, rpc.ErrClosed) {
			r.stopCapture()
			r.logger.Error("collector connection lost, abandoning queued frames",
				"error", err,
				"queued", len(r.queue),
			)
			return fmt.Errorf("recording session %s: %w", r.config.Session, err)
		}
		if errors.Is(err, session.ErrSessionGone) {
			r.stopCapture()
			r.logger.Error("session no longer accepts frames, abandoning queued frames",
				"error", err,
				"queued", len(r.queue),
			)
			return fmt.Errorf("recording session %s: %w", r.config.Session, err)
		}

		r.metrics.batchFailed()
		r.logger.Warn("upload failed, will retry",
			"error", err,
			"backoff", backoff,
			"queued", len(r.queue),
		)
		retry = r.clock.After(backoff)
		backoff = min(backoff*2, maxBackoff)
	}
}

// collect drains every buffer into the upload queue. Frames that fail
// conversion are dropped and counted.
func (r *Recorder) collect() {
	for _, buffer := range r.config.Buffers {
		for _, raw := range buffer.DrainRaw() {
			converted, err := r.config.Converter.Convert(raw)
			if err != nil {
				r.encodeFailures.Add(1)
				r.metrics.encodeFailed(raw.Modality())
				r.logger.Debug("dropping frame that failed conversion",
					"modality", raw.Modality().String(),
					"error", err,
				)
				continue
			}
			r.queue = append(r.queue, converted)
		}
	}

	if limit := r.config.MaxQueuedFrames; limit > 0 && len(r.queue) > limit {
		excess := len(r.queue) - limit
		clear(r.queue[:excess])
		r.queue = r.queue[excess:]
		r.dropped.Add(uint64(excess))
		r.metrics.framesDropped(excess)
		r.logger.Warn("upload queue full, dropped oldest frames", "dropped", excess, "limit", limit)
	}
	r.setQueued()
}

// flush registers pending intrinsics, then uploads the queue batch by
// batch. A failed batch stays at the head of the queue.
func (r *Recorder) flush(ctx context.Context) error {
	if r.intrinsicsPending {
		intrinsics := r.config.Intrinsics
		if err := r.uploader.RegisterIntrinsics(ctx, r.config.Session, r.config.Device, intrinsics.Timestamp, intrinsics.Value); err != nil {
			return fmt.Errorf("registering intrinsics: %w", err)
		}
		r.intrinsicsPending = false
		r.logger.Info("intrinsics registered",
			"width", intrinsics.Value.ResolutionWidth,
			"height", intrinsics.Value.ResolutionHeight,
		)
	}

	for len(r.queue) > 0 {
		batch := r.queue[:min(len(r.queue), r.config.MaxBatchFrames)]
		if err := r.uploader.SaveARFrames(ctx, r.config.Session, batch, r.config.Device); err != nil {
			return err
		}
		r.shipped.Add(uint64(len(batch)))
		r.metrics.framesShipped(batch)
		clear(batch)
		r.queue = r.queue[len(batch):]
		r.setQueued()
	}
	r.queue = nil
	return nil
}

// shutdown stops capture and makes one best-effort upload of whatever
// remains, bounded by drainTimeout.
func (r *Recorder) shutdown() {
	r.stopCapture()
	r.collect()

	drainContext, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := r.flush(drainContext); err != nil {
		r.logger.Warn("final drain failed, abandoning remaining frames",
			"error", err,
			"remaining", len(r.queue),
		)
		return
	}
	r.logger.Info("recording stopped", "shipped", r.shipped.Load())
}

func (r *Recorder) stopCapture() {
	for _, buffer := range r.config.Buffers {
		buffer.StopCapture()
	}
}

func (r *Recorder) setQueued() {
	r.queued.Store(int64(len(r.queue)))
	r.metrics.setQueued(len(r.queue))
}

func (r *Recorder) modalityNames() []string {
	names := make([]string, 0, len(r.config.Buffers))
	for _, buffer := range r.config.Buffers {
		names = append(names, buffer.Modality().String())
	}
	return names
}
