// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package frame drives one surface through the per-frame cycle:
// acquire, encode a single render pass, submit and present.
//
// The Orchestrator owns the surface configuration, the depth and MSAA
// attachments of both antialias modes, and a retirement queue that frees
// command buffers and surface views once their submission completes.
// It is driven by the render thread only.
package frame

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
)

// Construction errors.
var (
	ErrNoDevice         = errors.New("frame: device and queue are required")
	ErrNoSurface        = errors.New("frame: surface and window are required")
	ErrNoRegistry       = errors.New("frame: pipeline registry and buffer pool are required")
	ErrSurfaceConfigure = errors.New("frame: surface configuration failed")
)

// Tracker is told the submission index of every frame. Owners of
// per-frame GPU memory register one to know when it can be reused.
type Tracker interface {
	Submitted(index uint64)
}

// Config controls how the surface is presented.
type Config struct {
	PresentMode gputypes.PresentMode
	AlphaMode   gputypes.CompositeAlphaMode
}

func (c Config) withDefaults() Config {
	if c.PresentMode == 0 {
		c.PresentMode = gputypes.PresentModeFifo
	}
	if c.AlphaMode == 0 {
		c.AlphaMode = gputypes.CompositeAlphaModeOpaque
	}
	return c
}

// Stats reports orchestrator activity.
type Stats struct {
	Frames          uint64
	Reconfigures    int
	TargetRebuilds  int
	PendingRetires  int
	FailedAcquires  int
	LastSubmission  uint64
	DrawableWidth   uint32
	DrawableHeight  uint32
	AntialiasActive bool
}

// Orchestrator runs the frame loop for one surface.
type Orchestrator struct {
	device   hal.Device
	queue    hal.Queue
	surface  hal.Surface
	window   gpucontext.WindowProvider
	registry *pipeline.Registry
	pool     *pool.Pool
	cfg      Config

	trackers []Tracker

	antialias     bool
	scaleOverride float64

	configuredW, configuredH uint32
	needsConfigure           bool

	targets [2]targetSet
	retire  retireQueue

	scissor    [4]int
	hasScissor bool

	frame *Context
	stats Stats
}

// New validates the collaborators and configures the surface for the
// current drawable size.
func New(
	device hal.Device,
	queue hal.Queue,
	surface hal.Surface,
	window gpucontext.WindowProvider,
	registry *pipeline.Registry,
	bufPool *pool.Pool,
	cfg Config,
) (*Orchestrator, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	if surface == nil || window == nil {
		return nil, ErrNoSurface
	}
	if registry == nil || bufPool == nil {
		return nil, ErrNoRegistry
	}
	o := &Orchestrator{
		device:   device,
		queue:    queue,
		surface:  surface,
		window:   window,
		registry: registry,
		pool:     bufPool,
		cfg:      cfg.withDefaults(),
	}
	o.antialias = registry.Antialias()

	w, h, _ := o.drawableSize()
	if w > 0 && h > 0 {
		if err := o.configure(w, h); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Track registers t to receive the submission index of every frame.
func (o *Orchestrator) Track(t Tracker) {
	o.trackers = append(o.trackers, t)
}

// SetAntialias switches the pipeline row at once; attachments follow at
// the next BeginFrame. The open frame, if any, keeps its mode.
func (o *Orchestrator) SetAntialias(on bool) {
	o.antialias = on
	o.registry.SetAntialias(on)
}

// Antialias reports the requested mode.
func (o *Orchestrator) Antialias() bool { return o.antialias }

// SetDrawableScaleOverride replaces the window scale factor when scale > 0.
// Zero or a negative value restores the window's own factor.
func (o *Orchestrator) SetDrawableScaleOverride(scale float64) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 0
	}
	o.scaleOverride = scale
}

// DrawableSize returns the current drawable size in pixels.
func (o *Orchestrator) DrawableSize() (uint32, uint32) {
	w, h, _ := o.drawableSize()
	return w, h
}

// SetScissor clips subsequent draws to the rectangle in drawable pixels.
// The rectangle is clamped to the drawable of every frame it applies to
// and persists until ResetScissor.
func (o *Orchestrator) SetScissor(x, y, w, h int) {
	o.scissor = [4]int{x, y, w, h}
	o.hasScissor = true
	if o.frame != nil {
		o.applyScissor(o.frame)
	}
}

// ResetScissor restores the full drawable.
func (o *Orchestrator) ResetScissor() {
	o.hasScissor = false
	if o.frame != nil {
		o.frame.Pass.SetScissorRect(0, 0, o.frame.Width, o.frame.Height)
	}
}

// Current returns the open frame, or nil.
func (o *Orchestrator) Current() *Context { return o.frame }

// Stats returns a snapshot of the counters.
func (o *Orchestrator) Stats() Stats {
	s := o.stats
	s.PendingRetires = o.retire.len()
	s.DrawableWidth, s.DrawableHeight, _ = o.drawableSize()
	s.AntialiasActive = o.antialias
	return s
}

// BeginFrame opens a frame cleared to clearColor. It returns false when no
// frame could be opened; the caller then skips drawing and EndFrame is a
// no-op.
func (o *Orchestrator) BeginFrame(clearColor gputypes.Color) (*Context, bool) {
	log := logging.Logger()
	if o.frame != nil {
		log.Warn("frame: BeginFrame while a frame is open")
		return nil, false
	}

	w, h, scale := o.drawableSize()
	if w == 0 || h == 0 {
		log.Debug("frame: zero drawable, skipping", "w", w, "h", h)
		return nil, false
	}
	if o.needsConfigure || w != o.configuredW || h != o.configuredH {
		if err := o.configure(w, h); err != nil {
			log.Warn("frame: reconfigure failed", "err", err)
			return nil, false
		}
	}

	acquired, err := o.surface.AcquireTexture(nil)
	if err != nil {
		o.stats.FailedAcquires++
		if errors.Is(err, hal.ErrSurfaceOutdated) {
			o.needsConfigure = true
		}
		log.Debug("frame: acquire failed", "err", err)
		return nil, false
	}
	if acquired.Suboptimal {
		o.needsConfigure = true
	}
	surfTex := acquired.Texture

	view, err := o.device.CreateTextureView(surfTex, &hal.TextureViewDescriptor{
		Label: "frame_surface_view",
	})
	if err != nil {
		o.surface.DiscardTexture(surfTex)
		log.Warn("frame: surface view failed", "err", err)
		return nil, false
	}

	encoder, err := o.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame_encoder"})
	if err == nil {
		err = encoder.BeginEncoding("frame")
		if err != nil {
			encoder.DiscardEncoding()
		}
	}
	if err != nil {
		o.device.DestroyTextureView(view)
		o.surface.DiscardTexture(surfTex)
		log.Warn("frame: command encoder failed", "err", err)
		return nil, false
	}

	o.retire.retire(o.device, o.queue.PollCompleted())
	o.pool.ResetFrame()

	mode := pipeline.ModeFor(o.antialias)
	rcfg := o.registry.Config()
	ts := &o.targets[mode]
	rebuilt, err := ts.ensure(o.device, w, h, targetFormats{
		color:   rcfg.ColorFormat,
		depth:   rcfg.DepthFormat,
		samples: rcfg.SampleCountFor(mode),
		label:   "frame_" + mode.String(),
	})
	if err != nil {
		encoder.DiscardEncoding()
		o.device.DestroyTextureView(view)
		o.surface.DiscardTexture(surfTex)
		log.Warn("frame: attachments failed", "err", err)
		return nil, false
	}
	if rebuilt {
		o.stats.TargetRebuilds++
		log.Debug("frame: attachments rebuilt", "mode", mode, "w", w, "h", h)
	}

	color := hal.RenderPassColorAttachment{
		View:       view,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: clearColor,
	}
	if ts.colorView != nil {
		color.View = ts.colorView
		color.ResolveTarget = view
		color.StoreOp = gputypes.StoreOpDiscard
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            ts.depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	pass.SetViewport(0, 0, float32(w), float32(h), 0, 1)

	o.stats.Frames++
	o.frame = &Context{
		Index:          o.stats.Frames,
		Encoder:        encoder,
		Pass:           pass,
		SurfaceTexture: surfTex,
		View:           view,
		Antialias:      o.antialias,
		Width:          w,
		Height:         h,
		Scale:          scale,
		registry:       o.registry,
		mode:           mode,
	}
	if o.hasScissor {
		o.applyScissor(o.frame)
	}
	o.frame.BindBase()
	return o.frame, true
}

// EndFrame ends the pass, submits, stamps every tracker with the
// submission index and presents. Without an open frame it does nothing.
func (o *Orchestrator) EndFrame() {
	f := o.frame
	if f == nil {
		return
	}
	o.frame = nil
	log := logging.Logger()

	f.Pass.End()
	cmd, err := f.Encoder.EndEncoding()
	if err != nil {
		o.device.DestroyTextureView(f.View)
		o.surface.DiscardTexture(f.SurfaceTexture)
		log.Warn("frame: end encoding failed", "err", err)
		return
	}

	index, err := o.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		o.device.FreeCommandBuffer(cmd)
		o.device.DestroyTextureView(f.View)
		o.surface.DiscardTexture(f.SurfaceTexture)
		log.Warn("frame: submit failed", "err", err)
		return
	}
	o.stats.LastSubmission = index
	o.pool.Submitted(index)
	for _, t := range o.trackers {
		t.Submitted(index)
	}

	if err := o.queue.Present(o.surface, f.SurfaceTexture, nil); err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) {
			o.needsConfigure = true
		}
		log.Debug("frame: present failed", "err", err)
	}
	o.retire.push(retired{index: index, cmd: cmd, view: f.View})
}

// Destroy waits for the device, frees every retained object and
// unconfigures the surface. An open frame is abandoned.
func (o *Orchestrator) Destroy() {
	if o.device == nil {
		return
	}
	if f := o.frame; f != nil {
		f.Pass.End()
		f.Encoder.DiscardEncoding()
		o.device.DestroyTextureView(f.View)
		o.surface.DiscardTexture(f.SurfaceTexture)
		o.frame = nil
	}
	if err := o.device.WaitIdle(); err != nil {
		logging.Logger().Warn("frame: wait idle failed", "err", err)
	}
	o.retire.drain(o.device)
	for i := range o.targets {
		o.targets[i].destroy(o.device)
	}
	o.surface.Unconfigure(o.device)
	o.device = nil
}

func (o *Orchestrator) applyScissor(f *Context) {
	r := clampRect(o.scissor[0], o.scissor[1], o.scissor[2], o.scissor[3], f.Width, f.Height)
	f.Pass.SetScissorRect(r[0], r[1], r[2], r[3])
}

func (o *Orchestrator) configure(w, h uint32) error {
	err := o.surface.Configure(o.device, &hal.SurfaceConfiguration{
		Width:       w,
		Height:      h,
		Format:      o.registry.Config().ColorFormat,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: o.cfg.PresentMode,
		AlphaMode:   o.cfg.AlphaMode,
	})
	if err != nil {
		return fmt.Errorf("%w: %dx%d: %w", ErrSurfaceConfigure, w, h, err)
	}
	o.configuredW, o.configuredH = w, h
	o.needsConfigure = false
	o.stats.Reconfigures++
	logging.Logger().Debug("frame: surface configured", "w", w, "h", h)
	return nil
}

// drawableSize converts the window's logical size to pixels with the
// override or the window scale factor.
func (o *Orchestrator) drawableSize() (w, h uint32, scale float64) {
	scale = o.scaleOverride
	if scale == 0 {
		scale = o.window.ScaleFactor()
	}
	if scale <= 0 {
		scale = 1
	}
	lw, lh := o.window.Size()
	return toPixels(lw, scale), toPixels(lh, scale), scale
}

func toPixels(logical int, scale float64) uint32 {
	if logical <= 0 {
		return 0
	}
	return uint32(math.Round(float64(logical) * scale)) //nolint:gosec // window sizes fit uint32
}

// clampRect intersects (x, y, w, h) with the drawable. Negative origins
// shrink the rectangle; the result may be empty.
func clampRect(x, y, w, h int, dw, dh uint32) [4]uint32 {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+max(w, 0), int(dw)), min(y+max(h, 0), int(dh))
	x0, y0 = min(x0, int(dw)), min(y0, int(dh))
	//nolint:gosec // every value is clamped to [0, dw] or [0, dh]
	return [4]uint32{uint32(x0), uint32(y0), uint32(max(x1-x0, 0)), uint32(max(y1-y0, 0))}
}
