// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package meshcodec

import (
	"context"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/arcollect/arcollect/lib/frame"
)

// EncodedMesh is the result for one mesh of a batch: one compressed
// blob per sub-mesh, in sub-mesh order.
type EncodedMesh struct {
	FilterID  uint64
	SubMeshes []frame.CompressedMesh
}

// Encoder compresses batches of meshes. The zero value is not usable;
// construct with NewEncoder.
type Encoder struct {
	parallelism int
	logger      *slog.Logger
}

// NewEncoder returns an Encoder running at most parallelism sub-mesh
// encodes at once. Zero or negative parallelism means GOMAXPROCS. A
// nil logger discards.
func NewEncoder(parallelism int, logger *slog.Logger) *Encoder {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Encoder{parallelism: parallelism, logger: logger}
}

// EncodeBatch encodes every sub-mesh of every mesh concurrently and
// waits for all of them. Meshes that fail validation or have any
// sub-mesh fail to encode are logged and left out of the result;
// successful meshes keep their input order. The only error returned
// is the context's, when it is cancelled before the batch completes.
func (e *Encoder) EncodeBatch(ctx context.Context, meshes []Mesh) ([]EncodedMesh, error) {
	type slot struct {
		blob frame.CompressedMesh
		err  error
	}
	results := make([][]slot, len(meshes))

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(e.parallelism)

	for meshIndex, mesh := range meshes {
		if err := mesh.Validate(); err != nil {
			e.logger.Warn("skipping mesh", "mesh_filter_id", mesh.FilterID, "error", err)
			continue
		}
		results[meshIndex] = make([]slot, len(mesh.SubMeshes))
		for subMeshIndex := range mesh.SubMeshes {
			target := &results[meshIndex][subMeshIndex]
			group.Go(func() error {
				if err := groupContext.Err(); err != nil {
					return err
				}
				target.blob, target.err = EncodeSubMesh(mesh, subMeshIndex)
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoded := make([]EncodedMesh, 0, len(meshes))
	for meshIndex, slots := range results {
		if slots == nil {
			continue
		}
		mesh := EncodedMesh{FilterID: meshes[meshIndex].FilterID}
		failed := false
		for subMeshIndex, result := range slots {
			if result.err != nil {
				e.logger.Warn("mesh compression failed, skipping mesh",
					"mesh_filter_id", mesh.FilterID,
					"sub_mesh", subMeshIndex,
					"error", result.err,
				)
				failed = true
				break
			}
			mesh.SubMeshes = append(mesh.SubMeshes, result.blob)
		}
		if !failed {
			encoded = append(encoded, mesh)
		}
	}
	return encoded, nil
}
