package draw

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/internal/frame"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/ocean"
)

// EnsureOceanIndexBuffer makes the shared index buffer describe an n×n
// grid. The buffer is rebuilt only when n changes; n < 2 is a no-op.
// It reports whether a buffer for n is ready.
func (e *Encoder) EnsureOceanIndexBuffer(n int) bool {
	if e.closed || n < 2 {
		return false
	}
	if e.oceanIndex != nil && e.oceanGrid == n {
		return true
	}
	indices := ocean.GridIndices(n)
	e.scratch = appendUint32s(e.scratch[:0], indices)

	// A resize must never write into a buffer the GPU may still read.
	e.clearPersistent(&e.oceanIndex)
	err := e.writePersistent(&e.oceanIndex, "ocean_index", gputypes.BufferUsageIndex,
		e.scratch, uint32(len(indices))) //nolint:gosec // grid index count fits uint32
	if err != nil {
		e.oceanGrid = 0
		logging.Logger().Warn("draw: ocean index buffer failed", "grid", n, "err", err)
		return false
	}
	e.oceanGrid = n
	logging.Logger().Debug("draw: ocean index buffer built", "grid", n, "indices", len(indices))
	return true
}

// DrawOceanProjectedGrid draws the projected-grid ocean described by u.
// Vertices are generated on the GPU from the vertex index, so only the
// shared index buffer and the uniform block are bound.
func (e *Encoder) DrawOceanProjectedGrid(f *frame.Context, u *ocean.Uniform) {
	if !e.begin(f) || u == nil || u.Params.GridSize < 2 {
		return
	}
	if !e.EnsureOceanIndexBuffer(u.Params.GridSize) {
		return
	}
	if !e.bindUniform(f, pipeline.KindOcean, u.AppendBytes(e.scratch[:0])) {
		return
	}
	ib := e.oceanIndex
	ib.used = true
	f.Pass.SetIndexBuffer(ib.raw, gputypes.IndexFormatUint32, 0)
	f.Pass.DrawIndexed(ib.count, 1, 0, 0, 0)
	e.finish(f)
}
