// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"testing"
	"time"

	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/meshcodec"
	"github.com/arcollect/arcollect/lib/testutil"
)

// quadMesh is a unit quad whose two triangles are separate sub-meshes.
func quadMesh(filterID uint64) meshcodec.Mesh {
	return meshcodec.Mesh{
		FilterID: filterID,
		Vertices: []frame.Vector3{{X: 0}, {X: 1}, {X: 1, Z: 1}, {Z: 1}},
		SubMeshes: [][]uint32{
			{0, 1, 2},
			{0, 2, 3},
		},
	}
}

func TestMeshBufferTwoSubMeshesTwoFrames(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[MeshChanges]{}
	buffer := NewMeshBuffer(events, meshcodec.NewEncoder(2, nil), fakeDependencies(fake))
	defer buffer.Dispose()
	buffer.StartCapture()

	events.Publish(MeshChanges{Added: []meshcodec.Mesh{quadMesh(21)}})
	testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "mesh batch")

	frames := buffer.Frames()
	if len(frames) != 2 {
		t.Fatalf("captured %d frames, want 2", len(frames))
	}
	for i, f := range frames {
		if f.MeshFilterID != 21 {
			t.Errorf("frame %d filter id = %d, want 21", i, f.MeshFilterID)
		}
		if !f.Timestamp.Equal(frames[0].Timestamp) {
			t.Errorf("frame %d timestamp %v, want %v", i, f.Timestamp, frames[0].Timestamp)
		}
		if f.State != frame.StateAdded || f.SubMeshIndex != i || f.Mesh == nil {
			t.Errorf("frame %d = %s sub-mesh %d mesh %v", i, f.State, f.SubMeshIndex, f.Mesh)
		}
		if _, err := meshcodec.DecodeSubMesh(*f.Mesh); err != nil {
			t.Errorf("frame %d mesh does not decode: %v", i, err)
		}
	}
}

func TestMeshBufferRemovedAndFailedMeshes(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[MeshChanges]{}
	buffer := NewMeshBuffer(events, nil, fakeDependencies(fake))
	defer buffer.Dispose()
	buffer.StartCapture()

	broken := quadMesh(5)
	broken.SubMeshes[1] = []uint32{0, 1, 40}
	events.Publish(MeshChanges{
		Updated: []meshcodec.Mesh{broken, quadMesh(6)},
		Removed: []meshcodec.Mesh{{FilterID: 7}, {FilterID: 8}},
	})
	testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "mesh batch")

	frames := buffer.Frames()
	if len(frames) != 4 {
		t.Fatalf("captured %d frames, want 2 sub-mesh frames and 2 removals", len(frames))
	}
	for i := 0; i < 2; i++ {
		if frames[i].MeshFilterID != 6 || frames[i].State != frame.StateUpdated {
			t.Errorf("frame %d = filter %d %s, want filter 6 updated", i, frames[i].MeshFilterID, frames[i].State)
		}
	}
	for i, want := range []uint64{7, 8} {
		removed := frames[2+i]
		if removed.MeshFilterID != want || removed.State != frame.StateRemoved || removed.Mesh != nil {
			t.Errorf("removal %d = %+v", i, removed)
		}
	}
	if skipped := buffer.Stats().Skipped; skipped != 1 {
		t.Errorf("skipped = %d, want 1 for the broken mesh", skipped)
	}
}

func TestMeshBufferBatchesStayOrdered(t *testing.T) {
	fake := clock.Fake(epoch)
	events := &Broadcaster[MeshChanges]{}
	buffer := NewMeshBuffer(events, nil, fakeDependencies(fake))
	defer buffer.Dispose()
	buffer.StartCapture()

	for i := 0; i < 5; i++ {
		events.Publish(MeshChanges{Updated: []meshcodec.Mesh{quadMesh(uint64(i))}})
		fake.Advance(time.Millisecond)
	}
	for buffer.Len() < 10 {
		testutil.RequireReceive(t, buffer.Notify(), 5*time.Second, "mesh batches")
	}

	frames := buffer.Frames()
	for i := 1; i < len(frames); i++ {
		if frames[i].Timestamp.Before(frames[i-1].Timestamp) {
			t.Fatalf("frame %d precedes frame %d", i, i-1)
		}
	}
	if buffer.Stats().OutOfOrder != 0 {
		t.Errorf("out of order = %d, want 0", buffer.Stats().OutOfOrder)
	}
	if buffer.Pending() != 0 {
		t.Errorf("pending batches = %d after every frame arrived", buffer.Pending())
	}
}
