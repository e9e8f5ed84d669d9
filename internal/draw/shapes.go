package draw

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/internal/frame"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
)

// DrawTriangles draws colored triangles with the base pipeline. vertices
// holds x, y, r, g, b, a per vertex in pixels with premultiplied color.
// With nil indices every three vertices form a triangle.
func (e *Encoder) DrawTriangles(f *frame.Context, vertices []float32, indices []uint32) {
	if !e.begin(f) {
		return
	}
	n := len(vertices) / pipeline.BaseVertexFloats
	if n < triangleVertices || (indices == nil && n%triangleVertices != 0) {
		return
	}
	for _, i := range indices {
		if int(i) >= n {
			return
		}
	}
	vb, ok := e.upload(pool.CategoryVertex, e.floatBytes(vertices, n*pipeline.BaseVertexFloats))
	if !ok {
		return
	}
	var ib *pool.Lease
	if len(indices) > 0 {
		e.scratch = appendUint32s(e.scratch[:0], indices)
		if ib, ok = e.upload(pool.CategoryIndex, e.scratch); !ok {
			return
		}
	}
	if !e.bindUniform(f, pipeline.KindBase, e.frameUniform(f, e.time)) {
		return
	}
	f.Pass.SetVertexBuffer(0, vb.Raw(), 0)
	if ib != nil {
		f.Pass.SetIndexBuffer(ib.Raw(), gputypes.IndexFormatUint32, 0)
		f.Pass.DrawIndexed(uint32(len(indices)), 1, 0, 0, 0) //nolint:gosec // index count fits uint32
	} else {
		f.Pass.Draw(uint32(n), 1, 0, 0) //nolint:gosec // vertex count fits uint32
	}
	e.finish(f)
}

// DrawInstancedRects draws count rects from data, five floats each:
// x, y, hue, half size, rotation.
func (e *Encoder) DrawInstancedRects(f *frame.Context, data []float32, count int) {
	e.drawDynamic(f, shapeRect, data, count)
}

// DrawInstancedTriangles draws count equilateral triangles from data, five
// floats each: x, y, hue, half size, rotation.
func (e *Encoder) DrawInstancedTriangles(f *frame.Context, data []float32, count int) {
	e.drawDynamic(f, shapeTriangle, data, count)
}

// DrawInstancedCircles draws count circles from data, five floats each:
// x, y, hue, radius, unused.
func (e *Encoder) DrawInstancedCircles(f *frame.Context, data []float32, count int) {
	e.drawDynamic(f, shapeCircle, data, count)
}

func (e *Encoder) drawDynamic(f *frame.Context, s shape, data []float32, count int) {
	if !e.begin(f) || !validCount(data, count, pipeline.DynamicFloats) {
		return
	}
	l, ok := e.upload(pool.CategoryVertex, e.floatBytes(data, count*pipeline.DynamicFloats))
	if !ok {
		return
	}
	if !e.bindUniform(f, instancedKinds[s], e.frameUniform(f, e.time)) {
		return
	}
	f.Pass.SetVertexBuffer(0, l.Raw(), 0)
	f.Pass.Draw(s.vertices(), uint32(count), 0, 0) //nolint:gosec // validated count
	e.finish(f)
}

// UploadAnimatedRects stores count animated rects, six floats each:
// x, y, hue, half size, phase, spin speed. The data stays on the GPU until
// the next upload; count <= 0 clears it.
func (e *Encoder) UploadAnimatedRects(data []float32, count int) {
	e.uploadAnimated(shapeRect, data, count)
}

// UploadAnimatedTriangles stores count animated triangles.
func (e *Encoder) UploadAnimatedTriangles(data []float32, count int) {
	e.uploadAnimated(shapeTriangle, data, count)
}

// UploadAnimatedCircles stores count animated circles.
func (e *Encoder) UploadAnimatedCircles(data []float32, count int) {
	e.uploadAnimated(shapeCircle, data, count)
}

func (e *Encoder) uploadAnimated(s shape, data []float32, count int) {
	if e.closed {
		return
	}
	if !validCount(data, count, pipeline.AnimatedFloats) {
		e.clearPersistent(&e.animated[s])
		return
	}
	err := e.writePersistent(&e.animated[s], animatedKinds[s].String(), gputypes.BufferUsageVertex,
		e.floatBytes(data, count*pipeline.AnimatedFloats), uint32(count)) //nolint:gosec // validated count
	if err != nil {
		logging.Logger().Warn("draw: animated upload failed", "kind", animatedKinds[s].String(), "err", err)
	}
}

// DrawAnimatedRects draws the uploaded rects at time t.
func (e *Encoder) DrawAnimatedRects(f *frame.Context, t float32) {
	e.drawAnimated(f, shapeRect, t)
}

// DrawAnimatedTriangles draws the uploaded triangles at time t.
func (e *Encoder) DrawAnimatedTriangles(f *frame.Context, t float32) {
	e.drawAnimated(f, shapeTriangle, t)
}

// DrawAnimatedCircles draws the uploaded circles at time t.
func (e *Encoder) DrawAnimatedCircles(f *frame.Context, t float32) {
	e.drawAnimated(f, shapeCircle, t)
}

func (e *Encoder) drawAnimated(f *frame.Context, s shape, t float32) {
	p := e.animated[s]
	if !e.begin(f) || p == nil || p.count == 0 {
		return
	}
	if !e.bindUniform(f, animatedKinds[s], e.frameUniform(f, t)) {
		return
	}
	p.used = true
	f.Pass.SetVertexBuffer(0, p.raw, 0)
	f.Pass.Draw(s.vertices(), p.count, 0, 0)
	e.finish(f)
}

// UploadOrbitalParticles stores count particles, seven floats each:
// phase, orbit radius, orbit speed, wobble phase, spin phase, hue, half
// size. Particles orbit (cx, cy) in pixels.
func (e *Encoder) UploadOrbitalParticles(data []float32, count int, cx, cy float32) {
	if e.closed {
		return
	}
	if !validCount(data, count, pipeline.OrbitalFloats) {
		e.clearPersistent(&e.orbital)
		return
	}
	e.center = [2]float32{cx, cy}
	err := e.writePersistent(&e.orbital, "orbital", gputypes.BufferUsageVertex,
		e.floatBytes(data, count*pipeline.OrbitalFloats), uint32(count)) //nolint:gosec // validated count
	if err != nil {
		logging.Logger().Warn("draw: orbital upload failed", "err", err)
	}
}

// DrawOrbitalParticles draws the uploaded particles at time t.
func (e *Encoder) DrawOrbitalParticles(f *frame.Context, t float32) {
	p := e.orbital
	if !e.begin(f) || p == nil || p.count == 0 {
		return
	}
	if !e.bindUniform(f, pipeline.KindOrbital, e.frameUniform(f, t)) {
		return
	}
	p.used = true
	f.Pass.SetVertexBuffer(0, p.raw, 0)
	f.Pass.Draw(quadVertices, p.count, 0, 0)
	e.finish(f)
}

func (e *Encoder) clearPersistent(slot **persistent) {
	if *slot != nil {
		e.retire(*slot)
		*slot = nil
	}
}

// validCount reports whether data holds count records of floats each.
func validCount(data []float32, count, floats int) bool {
	return count > 0 && len(data) >= count*floats
}
