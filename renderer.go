// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rendercore

import (
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/draw"
	"github.com/gogpu/rendercore/internal/frame"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
	"github.com/gogpu/rendercore/internal/texcache"
	"github.com/gogpu/rendercore/ocean"
)

// Mesh is indexed geometry: position xyz, normal xyz, uv and color rgba per
// vertex. Nil Indices draws the vertices as a triangle list.
type Mesh = draw.Mesh

// MeshUniforms are the per-draw transforms and lighting of a mesh.
type MeshUniforms = draw.MeshUniforms

// Fog blends mesh color toward Color between Start and End view distance.
type Fog = draw.Fog

// SurfaceTarget is everything a Renderer draws with. Format is the
// surface color format; TextureFormatUndefined selects BGRA8Unorm.
type SurfaceTarget struct {
	Device  hal.Device
	Queue   hal.Queue
	Surface hal.Surface
	Window  gpucontext.WindowProvider
	Format  gputypes.TextureFormat
}

// TargetFromProvider builds a SurfaceTarget from a host that owns the GPU
// device, such as a gogpu application. The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// When it also implements gpucontext.DeviceProvider its surface format is
// used.
func TargetFromProvider(provider any, surface hal.Surface, window gpucontext.WindowProvider) (SurfaceTarget, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return SurfaceTarget{}, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return SurfaceTarget{}, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return SurfaceTarget{}, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	t := SurfaceTarget{Device: device, Queue: queue, Surface: surface, Window: window}
	if fp, ok := provider.(interface {
		SurfaceFormat() gputypes.TextureFormat
	}); ok {
		t.Format = fp.SurfaceFormat()
	}
	return t, nil
}

// Renderer draws frames into one surface. It is driven by a single render
// goroutine; only Texture.Release and SetLogger may be called from others.
type Renderer struct {
	registry *pipeline.Registry
	buffers  *pool.Pool
	textures *texcache.Cache
	frames   *frame.Orchestrator
	encoder  *draw.Encoder

	start  time.Time
	now    func() time.Time
	closed bool
}

// CreateRenderer builds every pipeline variant, the buffer pool, the
// texture cache and the frame loop for target, and configures the
// surface. On failure nothing is left allocated and the error wraps one of
// ErrPipelineCreation, ErrNoDevice, ErrNoSurface or ErrSurfaceConfigure.
func CreateRenderer(target SurfaceTarget, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if target.Device == nil || target.Queue == nil {
		return nil, ErrNoDevice
	}
	if target.Surface == nil || target.Window == nil {
		return nil, ErrNoSurface
	}
	format := o.surfaceFormat
	if format == gputypes.TextureFormatUndefined {
		format = target.Format
	}

	reg, err := pipeline.New(target.Device, pipeline.Config{
		ColorFormat: format,
		DepthFormat: o.depthFormat,
		SampleCount: o.sampleCount,
	})
	if err != nil {
		return nil, fmt.Errorf("rendercore: %w", err)
	}
	reg.SetAntialias(o.msaa)

	bufs := pool.New(target.Device, target.Queue, o.poolConfig())
	cache, err := texcache.New(target.Device, target.Queue, reg.TextureLayout(), texcache.Config{
		Budget: o.textureBudget,
	})
	if err != nil {
		bufs.Destroy()
		reg.Destroy()
		return nil, fmt.Errorf("rendercore: %w: %w", ErrPipelineCreation, err)
	}

	frames, err := frame.New(target.Device, target.Queue, target.Surface, target.Window, reg, bufs, frame.Config{
		PresentMode: o.presentMode,
	})
	if err != nil {
		cache.Destroy()
		bufs.Destroy()
		reg.Destroy()
		return nil, fmt.Errorf("rendercore: %w", err)
	}

	enc, err := draw.New(target.Device, target.Queue, reg.UniformLayout(), bufs, cache, draw.Config{
		FramesInFlight: o.framesInFlight,
		HueCycleSpeed:  o.hueCycleSpeed,
	})
	if err != nil {
		frames.Destroy()
		cache.Destroy()
		bufs.Destroy()
		reg.Destroy()
		return nil, fmt.Errorf("rendercore: %w: %w", ErrPipelineCreation, err)
	}
	frames.Track(enc)
	frames.Track(cache)

	r := &Renderer{
		registry: reg,
		buffers:  bufs,
		textures: cache,
		frames:   frames,
		encoder:  enc,
		now:      time.Now,
	}
	r.start = r.now()
	logging.Logger().Info("rendercore: renderer created",
		"format", reg.Config().ColorFormat, "msaa", o.msaa, "samples", reg.Config().SampleCount)
	return r, nil
}

// BeginFrame opens a frame cleared to the given premultiplied color. It
// returns false when no frame could be opened; draws are then no-ops and
// EndFrame does nothing.
func (r *Renderer) BeginFrame(red, green, blue, alpha float64) bool {
	if r.closed {
		return false
	}
	r.encoder.SetTime(float32(r.now().Sub(r.start).Seconds()))
	_, ok := r.frames.BeginFrame(gputypes.Color{R: red, G: green, B: blue, A: alpha})
	return ok
}

// EndFrame submits and presents the open frame.
func (r *Renderer) EndFrame() {
	if r.closed {
		return
	}
	r.frames.EndFrame()
}

// InFrame reports whether a frame is open.
func (r *Renderer) InFrame() bool {
	return !r.closed && r.frames.Current() != nil
}

// SetMSAAEnabled switches between the multisampled and single-sampled
// pipelines. Pipelines switch at once; attachments follow at the next
// BeginFrame.
func (r *Renderer) SetMSAAEnabled(enabled bool) {
	if !r.closed {
		r.frames.SetAntialias(enabled)
	}
}

// MSAAEnabled reports the requested antialias mode.
func (r *Renderer) MSAAEnabled() bool {
	return !r.closed && r.frames.Antialias()
}

// SetDrawableScaleOverride replaces the window scale factor. Zero restores
// the window's own factor.
func (r *Renderer) SetDrawableScaleOverride(scale float64) {
	if !r.closed {
		r.frames.SetDrawableScaleOverride(scale)
	}
}

// DrawableSize returns the drawable size in pixels.
func (r *Renderer) DrawableSize() (width, height uint32) {
	if r.closed {
		return 0, 0
	}
	return r.frames.DrawableSize()
}

// SetHueCycleSpeed sets the hue rotation of the shape shaders in turns per
// second.
func (r *Renderer) SetHueCycleSpeed(speed float32) {
	if !r.closed {
		r.encoder.SetHueCycleSpeed(speed)
	}
}

// SetScissor clips subsequent draws to the rectangle in drawable pixels.
// It persists across frames until ResetScissor.
func (r *Renderer) SetScissor(x, y, width, height int) {
	if !r.closed {
		r.frames.SetScissor(x, y, width, height)
	}
}

// ResetScissor restores drawing to the full drawable.
func (r *Renderer) ResetScissor() {
	if !r.closed {
		r.frames.ResetScissor()
	}
}

// current returns the open frame, or nil.
func (r *Renderer) current() *frame.Context {
	if r.closed {
		return nil
	}
	return r.frames.Current()
}

// DrawTriangles draws colored triangles: x, y, r, g, b, a per vertex in
// drawable pixels. Nil indices draws every three vertices as a triangle.
func (r *Renderer) DrawTriangles(vertices []float32, indices []uint32) {
	r.encoder.DrawTriangles(r.current(), vertices, indices)
}

// DrawInstancedRects draws count rects: x, y, hue, half size, rotation.
func (r *Renderer) DrawInstancedRects(data []float32, count int) {
	r.encoder.DrawInstancedRects(r.current(), data, count)
}

// DrawInstancedTriangles draws count triangles: x, y, hue, half size,
// rotation.
func (r *Renderer) DrawInstancedTriangles(data []float32, count int) {
	r.encoder.DrawInstancedTriangles(r.current(), data, count)
}

// DrawInstancedCircles draws count circles: x, y, hue, radius, unused.
func (r *Renderer) DrawInstancedCircles(data []float32, count int) {
	r.encoder.DrawInstancedCircles(r.current(), data, count)
}

// UploadAnimatedRects stores count rects for DrawAnimatedRects: x, y, hue,
// half size, phase, spin speed. Count <= 0 clears them.
func (r *Renderer) UploadAnimatedRects(data []float32, count int) {
	if !r.closed {
		r.encoder.UploadAnimatedRects(data, count)
	}
}

// UploadAnimatedTriangles stores count triangles for DrawAnimatedTriangles.
func (r *Renderer) UploadAnimatedTriangles(data []float32, count int) {
	if !r.closed {
		r.encoder.UploadAnimatedTriangles(data, count)
	}
}

// UploadAnimatedCircles stores count circles for DrawAnimatedCircles.
func (r *Renderer) UploadAnimatedCircles(data []float32, count int) {
	if !r.closed {
		r.encoder.UploadAnimatedCircles(data, count)
	}
}

// DrawAnimatedRects draws the uploaded rects at time t in seconds.
func (r *Renderer) DrawAnimatedRects(t float32) {
	r.encoder.DrawAnimatedRects(r.current(), t)
}

// DrawAnimatedTriangles draws the uploaded triangles at time t in seconds.
func (r *Renderer) DrawAnimatedTriangles(t float32) {
	r.encoder.DrawAnimatedTriangles(r.current(), t)
}

// DrawAnimatedCircles draws the uploaded circles at time t in seconds.
func (r *Renderer) DrawAnimatedCircles(t float32) {
	r.encoder.DrawAnimatedCircles(r.current(), t)
}

// UploadOrbitalParticles stores count particles orbiting (cx, cy): phase,
// orbit radius, orbit speed, wobble phase, spin phase, hue, half size.
func (r *Renderer) UploadOrbitalParticles(data []float32, count int, cx, cy float32) {
	if !r.closed {
		r.encoder.UploadOrbitalParticles(data, count, cx, cy)
	}
}

// DrawOrbitalParticles draws the uploaded particles at time t in seconds.
func (r *Renderer) DrawOrbitalParticles(t float32) {
	r.encoder.DrawOrbitalParticles(r.current(), t)
}

// DrawSprites draws count quads of tex: x, y, rotation, half size, alpha.
// Positions are in a canvasW × canvasH space mapped onto the drawable; a
// non-positive size means the drawable itself.
func (r *Renderer) DrawSprites(tex *Texture, data []float32, count int, canvasW, canvasH float32) {
	r.encoder.DrawSprites(r.current(), tex.handle(), data, count, canvasW, canvasH)
}

// DrawGlyphs draws a glyph run sampled from atlas: x, y, u, v, r, g, b, a
// per vertex, indexed as triangles.
func (r *Renderer) DrawGlyphs(atlas GlyphAtlas, vertices []float32, indices []uint32) {
	r.encoder.DrawGlyphs(r.current(), atlas, vertices, indices)
}

// DrawMesh3D draws a lit mesh.
func (r *Renderer) DrawMesh3D(m *Mesh, u *MeshUniforms) {
	r.encoder.DrawMesh3D(r.current(), m, u)
}

// DrawMesh3DWithFog draws a lit mesh faded into u.Fog.
func (r *Renderer) DrawMesh3DWithFog(m *Mesh, u *MeshUniforms) {
	r.encoder.DrawMesh3DWithFog(r.current(), m, u)
}

// DrawMesh3DTextured draws a lit mesh modulated by tex.
func (r *Renderer) DrawMesh3DTextured(tex *Texture, m *Mesh, u *MeshUniforms) {
	r.encoder.DrawMesh3DTextured(r.current(), tex.handle(), m, u)
}

// EnsureOceanIndexBuffer prepares the shared index buffer of an n×n ocean
// grid. DrawOceanProjectedGrid calls it; calling it ahead of time moves
// the upload out of the frame.
func (r *Renderer) EnsureOceanIndexBuffer(n int) bool {
	return !r.closed && r.encoder.EnsureOceanIndexBuffer(n)
}

// DrawOceanProjectedGrid draws the procedural ocean described by u.
func (r *Renderer) DrawOceanProjectedGrid(u *ocean.Uniform) {
	r.encoder.DrawOceanProjectedGrid(r.current(), u)
}

// Close waits for the GPU, frees every resource and unconfigures the
// surface. The device, queue and surface stay owned by the caller. Safe
// to call more than once.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.frames.Destroy()
	r.encoder.Destroy()
	r.textures.Destroy()
	r.buffers.Destroy()
	r.registry.Destroy()
	logging.Logger().Info("rendercore: renderer closed")
}
