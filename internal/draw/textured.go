package draw

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/frame"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
	"github.com/gogpu/rendercore/internal/texcache"
)

// DrawSprites draws count textured quads from data, five floats each:
// x, y, rotation, half size, alpha. Positions are in a canvasW × canvasH
// space; a non-positive size means the drawable.
func (e *Encoder) DrawSprites(f *frame.Context, tex *texcache.Handle, data []float32, count int, canvasW, canvasH float32) {
	if !e.begin(f) || tex == nil || !validCount(data, count, pipeline.SpriteFloats) {
		return
	}
	group, ok := e.resolve(tex)
	if !ok {
		return
	}
	l, ok := e.upload(pool.CategoryVertex, e.floatBytes(data, count*pipeline.SpriteFloats))
	if !ok {
		return
	}
	u := frameUniform{width: canvasW, height: canvasH, time: e.time, hueSpeed: e.cfg.HueCycleSpeed}
	if canvasW <= 0 || canvasH <= 0 {
		u.width, u.height = float32(f.Width), float32(f.Height)
	}
	if !e.bindUniform(f, pipeline.KindSprite, u.appendBytes(e.scratch[:0])) {
		return
	}
	f.Pass.SetBindGroup(1, group, nil)
	f.Pass.SetVertexBuffer(0, l.Raw(), 0)
	f.Pass.Draw(quadVertices, uint32(count), 0, 0) //nolint:gosec // validated count
	e.finish(f)
}

// DrawGlyphs draws a glyph run. vertices holds x, y, u, v, r, g, b, a per
// vertex; indices form triangles. The atlas is uploaded again whenever it
// reports itself dirty.
func (e *Encoder) DrawGlyphs(f *frame.Context, atlas texcache.GlyphAtlas, vertices []float32, indices []uint32) {
	if !e.begin(f) || atlas == nil || e.textures == nil || len(indices) == 0 {
		return
	}
	n := len(vertices) / pipeline.GlyphVertexFloats
	if n == 0 {
		return
	}
	for _, i := range indices {
		if int(i) >= n {
			return
		}
	}
	group, err := e.textures.ResolveAtlas(atlas)
	if err != nil {
		logging.Logger().Debug("draw: glyph atlas unavailable", "err", err)
		return
	}
	vb, ok := e.upload(pool.CategoryTextVertex, e.floatBytes(vertices, n*pipeline.GlyphVertexFloats))
	if !ok {
		return
	}
	e.scratch = appendUint32s(e.scratch[:0], indices)
	ib, ok := e.upload(pool.CategoryTextIndex, e.scratch)
	if !ok {
		return
	}
	if !e.bindUniform(f, pipeline.KindGlyph, e.frameUniform(f, e.time)) {
		return
	}
	f.Pass.SetBindGroup(1, group, nil)
	f.Pass.SetVertexBuffer(0, vb.Raw(), 0)
	f.Pass.SetIndexBuffer(ib.Raw(), gputypes.IndexFormatUint32, 0)
	f.Pass.DrawIndexed(uint32(len(indices)), 1, 0, 0, 0) //nolint:gosec // index count fits uint32
	e.finish(f)
}

// Mesh is indexed geometry in the mesh vertex layout: position xyz,
// normal xyz, uv, color rgba. Nil Indices draws the vertices as a
// triangle list.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

// DrawMesh3D draws a lit mesh.
func (e *Encoder) DrawMesh3D(f *frame.Context, m *Mesh, u *MeshUniforms) {
	e.drawMesh(f, pipeline.KindMesh3D, nil, m, u, false)
}

// DrawMesh3DWithFog draws a lit mesh blended toward u.Fog.Color with
// distance.
func (e *Encoder) DrawMesh3DWithFog(f *frame.Context, m *Mesh, u *MeshUniforms) {
	e.drawMesh(f, pipeline.KindMesh3DFog, nil, m, u, true)
}

// DrawMesh3DTextured draws a lit mesh modulated by tex. Fog applies when
// u.Fog has a non-empty range.
func (e *Encoder) DrawMesh3DTextured(f *frame.Context, tex *texcache.Handle, m *Mesh, u *MeshUniforms) {
	if tex == nil {
		return
	}
	e.drawMesh(f, pipeline.KindMesh3DTextured, tex, m, u, u != nil && u.Fog.enabled())
}

func (e *Encoder) drawMesh(f *frame.Context, kind pipeline.DrawKind, tex *texcache.Handle, m *Mesh, u *MeshUniforms, fog bool) {
	if !e.begin(f) || m == nil || u == nil {
		return
	}
	n := len(m.Vertices) / pipeline.MeshVertexFloats
	if n < triangleVertices || (m.Indices == nil && n%triangleVertices != 0) {
		return
	}
	for _, i := range m.Indices {
		if int(i) >= n {
			return
		}
	}
	var group hal.BindGroup
	if tex != nil {
		var ok bool
		if group, ok = e.resolve(tex); !ok {
			return
		}
	}
	vb, ok := e.upload(pool.CategoryVertex, e.floatBytes(m.Vertices, n*pipeline.MeshVertexFloats))
	if !ok {
		return
	}
	var ib *pool.Lease
	if len(m.Indices) > 0 {
		e.scratch = appendUint32s(e.scratch[:0], m.Indices)
		if ib, ok = e.upload(pool.CategoryIndex, e.scratch); !ok {
			return
		}
	}
	if !e.bindUniform(f, kind, u.appendBytes(e.scratch[:0], fog)) {
		return
	}
	if group != nil {
		f.Pass.SetBindGroup(1, group, nil)
	}
	f.Pass.SetVertexBuffer(0, vb.Raw(), 0)
	if ib != nil {
		f.Pass.SetIndexBuffer(ib.Raw(), gputypes.IndexFormatUint32, 0)
		f.Pass.DrawIndexed(uint32(len(m.Indices)), 1, 0, 0, 0) //nolint:gosec // index count fits uint32
	} else {
		f.Pass.Draw(uint32(n), 1, 0, 0) //nolint:gosec // vertex count fits uint32
	}
	e.finish(f)
}

func (e *Encoder) resolve(tex *texcache.Handle) (hal.BindGroup, bool) {
	if e.textures == nil {
		return nil, false
	}
	group, err := e.textures.Resolve(tex)
	if err != nil {
		logging.Logger().Debug("draw: texture unavailable", "err", err)
		return nil, false
	}
	return group, true
}
