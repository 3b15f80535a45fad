// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/meshcodec"
)

// MeshChanges is the event type a MeshBuffer consumes. Removed meshes
// need only their FilterID.
type MeshChanges = TrackablesChanged[meshcodec.Mesh]

type meshBatch struct {
	change    MeshChanges
	timestamp time.Time
}

// MeshBuffer records mesh reconstruction changes. Added and updated
// meshes are compressed off the event goroutine by a single worker, one
// frame per compressed sub-mesh; removed meshes produce one frame each
// with no geometry. Batches are processed in arrival order and each
// batch's frames are appended together.
//
// StopCapture stops accepting events but does not wait for queued
// batches: those finish encoding and are appended afterwards. Dispose
// abandons them.
type MeshBuffer struct {
	*eventBuffer[MeshChanges, *frame.MeshDetectionFrame]
	encoder *meshcodec.Encoder

	queueMu sync.Mutex
	queue   []meshBatch
	wake    chan struct{}

	workerMu     sync.Mutex
	workerCancel context.CancelFunc
	workerDone   chan struct{}
}

// NewMeshBuffer returns a stopped mesh buffer. A nil encoder means
// meshcodec.NewEncoder(0, deps.Logger).
func NewMeshBuffer(changes EventSource[MeshChanges], encoder *meshcodec.Encoder, deps Dependencies) *MeshBuffer {
	b := &MeshBuffer{
		eventBuffer: newEventBuffer[MeshChanges, *frame.MeshDetectionFrame](frame.ModalityMeshDetection, changes, deps),
		encoder:     encoder,
		wake:        make(chan struct{}, 1),
	}
	if b.encoder == nil {
		b.encoder = meshcodec.NewEncoder(0, b.deps.Logger)
	}
	b.handle = b.enqueue
	return b
}

// StartCapture starts the encode worker, if needed, and subscribes.
func (b *MeshBuffer) StartCapture() {
	b.workerMu.Lock()
	if b.workerCancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.workerCancel = cancel
		b.workerDone = make(chan struct{})
		go b.work(ctx, b.workerDone)
	}
	b.workerMu.Unlock()

	b.eventBuffer.StartCapture()
}

// Dispose stops capture, cancels in-flight encoding, waits for the
// worker, and clears the buffer.
func (b *MeshBuffer) Dispose() {
	b.eventBuffer.StopCapture()

	b.workerMu.Lock()
	cancel, done := b.workerCancel, b.workerDone
	b.workerCancel, b.workerDone = nil, nil
	b.workerMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	b.queueMu.Lock()
	b.queue = nil
	b.queueMu.Unlock()
	b.Clear()
}

// Pending returns the number of batches waiting for the worker.
func (b *MeshBuffer) Pending() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}

// enqueue stamps the batch under the queue lock, so queue order and
// timestamp order agree.
func (b *MeshBuffer) enqueue(change MeshChanges) {
	if change.Empty() {
		return
	}
	b.queueMu.Lock()
	b.queue = append(b.queue, meshBatch{change: change, timestamp: b.deps.Time.Now()})
	b.queueMu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *MeshBuffer) next() (meshBatch, bool) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if len(b.queue) == 0 {
		return meshBatch{}, false
	}
	batch := b.queue[0]
	b.queue[0] = meshBatch{}
	b.queue = b.queue[1:]
	return batch, true
}

func (b *MeshBuffer) work(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}
		for {
			batch, ok := b.next()
			if !ok {
				break
			}
			if !b.process(ctx, batch) {
				return
			}
		}
	}
}

// process encodes one batch and appends its frames. It returns false
// when the context was cancelled mid-batch.
func (b *MeshBuffer) process(ctx context.Context, batch meshBatch) bool {
	changed := make([]meshcodec.Mesh, 0, len(batch.change.Added)+len(batch.change.Updated))
	changed = append(changed, batch.change.Added...)
	changed = append(changed, batch.change.Updated...)

	states := make(map[uint64]frame.State, len(changed))
	for _, mesh := range batch.change.Added {
		states[mesh.FilterID] = frame.StateAdded
	}
	for _, mesh := range batch.change.Updated {
		states[mesh.FilterID] = frame.StateUpdated
	}

	var encoded []meshcodec.EncodedMesh
	if len(changed) > 0 {
		var err error
		encoded, err = b.encoder.EncodeBatch(ctx, changed)
		if err != nil {
			b.deps.Logger.Debug("mesh batch abandoned", "error", err)
			return false
		}
		for range len(changed) - len(encoded) {
			b.recordSkip()
		}
	}

	frames := make([]*frame.MeshDetectionFrame, 0, len(encoded)+len(batch.change.Removed))
	for _, mesh := range encoded {
		for index := range mesh.SubMeshes {
			frames = append(frames, &frame.MeshDetectionFrame{
				Timestamp:    batch.timestamp,
				State:        states[mesh.FilterID],
				MeshFilterID: mesh.FilterID,
				SubMeshIndex: index,
				Mesh:         &mesh.SubMeshes[index],
			})
		}
	}
	for _, mesh := range batch.change.Removed {
		frames = append(frames, &frame.MeshDetectionFrame{
			Timestamp:    batch.timestamp,
			State:        frame.StateRemoved,
			MeshFilterID: mesh.FilterID,
		})
	}
	b.AddBatch(frames)
	return true
}
