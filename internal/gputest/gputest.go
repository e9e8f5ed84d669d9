// Package gputest provides noop-backed HAL devices that record what the
// renderer asks of them. It is imported by tests only.
//
// The noop backend returns zero-size resources, so two textures or two
// pipelines can compare equal by pointer. The wrappers here give every
// created object a distinct identity and count creations and destructions.
package gputest

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("gputest: injected failure")

// Texture is a texture with a stable identity.
type Texture struct {
	hal.Texture
	ID   int
	Desc hal.TextureDescriptor
}

// TextureView is a view with a stable identity.
type TextureView struct {
	hal.TextureView
	ID     int
	Source hal.Texture
}

// Pipeline is a render pipeline with a stable identity.
type Pipeline struct {
	hal.RenderPipeline
	ID    int
	Label string
}

// BindGroup is a bind group with a stable identity.
type BindGroup struct {
	hal.BindGroup
	ID    int
	Label string
}

// Device wraps a noop device and records resource traffic.
type Device struct {
	hal.Device

	mu     sync.Mutex
	nextID int

	Textures  []hal.TextureDescriptor
	Buffers   []hal.BufferDescriptor
	Pipelines []string

	DestroyedTextures  int
	DestroyedViews     int
	DestroyedBuffers   int
	DestroyedPipelines int
	BindGroups         int
	Encoders           []*Encoder

	FailEncoder  bool
	FailPipeline func(label string) bool
	FailBuffer   bool
}

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

// CreateBuffer records the descriptor. Buffers are returned unwrapped so the
// noop queue can still write into them.
func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailBuffer {
		return nil, ErrInjected
	}
	d.Buffers = append(d.Buffers, *desc)
	return d.Device.CreateBuffer(desc)
}

// ReadBuffer returns a copy of size bytes of b starting at offset, or nil
// when the range cannot be mapped.
func (d *Device) ReadBuffer(b hal.Buffer, offset, size uint64) []byte {
	m, err := d.Device.MapBuffer(b, offset, size)
	if err != nil {
		return nil
	}
	defer func() { _ = d.Device.UnmapBuffer(b) }()
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(m.Ptr), size))
	return out
}

// DestroyBuffer counts the call.
func (d *Device) DestroyBuffer(b hal.Buffer) {
	d.mu.Lock()
	d.DestroyedBuffers++
	d.mu.Unlock()
	d.Device.DestroyBuffer(b)
}

// CreateTexture records the descriptor and returns a distinct texture.
func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	inner, err := d.Device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Textures = append(d.Textures, *desc)
	return &Texture{Texture: inner, ID: d.id(), Desc: *desc}, nil
}

// DestroyTexture counts the call.
func (d *Device) DestroyTexture(t hal.Texture) {
	d.mu.Lock()
	d.DestroyedTextures++
	d.mu.Unlock()
}

// CreateTextureView returns a distinct view.
func (d *Device) CreateTextureView(t hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	inner, err := d.Device.CreateTextureView(t, desc)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return &TextureView{TextureView: inner, ID: d.id(), Source: t}, nil
}

// DestroyTextureView counts the call.
func (d *Device) DestroyTextureView(v hal.TextureView) {
	d.mu.Lock()
	d.DestroyedViews++
	d.mu.Unlock()
}

// CreateRenderPipeline records the label and returns a distinct pipeline.
func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailPipeline != nil && d.FailPipeline(desc.Label) {
		return nil, fmt.Errorf("%s: %w", desc.Label, ErrInjected)
	}
	inner, err := d.Device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, err
	}
	d.Pipelines = append(d.Pipelines, desc.Label)
	return &Pipeline{RenderPipeline: inner, ID: d.id(), Label: desc.Label}, nil
}

// DestroyRenderPipeline counts the call.
func (d *Device) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.mu.Lock()
	d.DestroyedPipelines++
	d.mu.Unlock()
}

// CreateBindGroup returns a distinct bind group.
func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	inner, err := d.Device.CreateBindGroup(desc)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.BindGroups++
	return &BindGroup{BindGroup: inner, ID: d.id(), Label: desc.Label}, nil
}

// CreateCommandEncoder returns a recording encoder.
func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailEncoder {
		return nil, ErrInjected
	}
	inner, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	enc := &Encoder{CommandEncoder: inner}
	d.Encoders = append(d.Encoders, enc)
	return enc, nil
}

// LastPass returns the most recent render pass, or nil.
func (d *Device) LastPass() *Pass {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.Encoders) - 1; i >= 0; i-- {
		if n := len(d.Encoders[i].Passes); n > 0 {
			return d.Encoders[i].Passes[n-1]
		}
	}
	return nil
}

// Encoder records the render passes it begins.
type Encoder struct {
	hal.CommandEncoder
	Passes    []*Pass
	Discarded bool
}

// BeginRenderPass returns a recording pass.
func (e *Encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &Pass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), Desc: *desc}
	e.Passes = append(e.Passes, p)
	return p
}

// DiscardEncoding marks the encoder discarded.
func (e *Encoder) DiscardEncoding() {
	e.Discarded = true
	e.CommandEncoder.DiscardEncoding()
}

// Call is one recorded render pass command.
type Call struct {
	Op       string
	Pipeline hal.RenderPipeline
	Args     []uint32
}

// Pass records the commands issued on a render pass.
type Pass struct {
	hal.RenderPassEncoder
	Desc  hal.RenderPassDescriptor
	Calls []Call
	Ended bool

	Viewport [4]float32
}

// End marks the pass ended.
func (p *Pass) End() {
	p.Ended = true
	p.Calls = append(p.Calls, Call{Op: "End"})
}

// SetPipeline records the pipeline.
func (p *Pass) SetPipeline(pl hal.RenderPipeline) {
	p.Calls = append(p.Calls, Call{Op: "SetPipeline", Pipeline: pl})
}

// SetBindGroup records the group index and dynamic offsets.
func (p *Pass) SetBindGroup(index uint32, g hal.BindGroup, offsets []uint32) {
	args := append([]uint32{index}, offsets...)
	p.Calls = append(p.Calls, Call{Op: "SetBindGroup", Args: args})
}

// SetVertexBuffer records the slot and offset.
func (p *Pass) SetVertexBuffer(slot uint32, b hal.Buffer, offset uint64) {
	p.Calls = append(p.Calls, Call{Op: "SetVertexBuffer", Args: []uint32{slot, uint32(offset)}}) //nolint:gosec // test offsets are small
}

// SetIndexBuffer records the format.
func (p *Pass) SetIndexBuffer(b hal.Buffer, f gputypes.IndexFormat, offset uint64) {
	p.Calls = append(p.Calls, Call{Op: "SetIndexBuffer", Args: []uint32{uint32(f)}})
}

// SetViewport records the viewport rectangle.
func (p *Pass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	p.Viewport = [4]float32{x, y, w, h}
	p.Calls = append(p.Calls, Call{Op: "SetViewport"})
}

// SetScissorRect records the rectangle.
func (p *Pass) SetScissorRect(x, y, w, h uint32) {
	p.Calls = append(p.Calls, Call{Op: "SetScissorRect", Args: []uint32{x, y, w, h}})
}

// Draw records the counts.
func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Calls = append(p.Calls, Call{Op: "Draw", Args: []uint32{vertexCount, instanceCount, firstVertex, firstInstance}})
}

// DrawIndexed records the counts.
func (p *Pass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.Calls = append(p.Calls, Call{Op: "DrawIndexed", Args: []uint32{indexCount, instanceCount, firstIndex}})
}

// Count returns how many calls of op were recorded.
func (p *Pass) Count(op string) int {
	n := 0
	for _, c := range p.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Find returns the calls of op in order.
func (p *Pass) Find(op string) []Call {
	var out []Call
	for _, c := range p.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the recorded calls.
func (p *Pass) Reset() { p.Calls = p.Calls[:0] }

// Queue wraps a noop queue. When Hold is set, PollCompleted reports at most
// HeldAt, simulating GPU work still in flight.
type Queue struct {
	hal.Queue

	Hold          bool
	HeldAt        uint64
	Submits       int
	BufferWrites  int
	TextureWrites []hal.Extent3D
	Presents      int
	FailSubmit    bool
}

// Submit counts the call.
func (q *Queue) Submit(cbs []hal.CommandBuffer) (uint64, error) {
	if q.FailSubmit {
		return 0, ErrInjected
	}
	q.Submits++
	return q.Queue.Submit(cbs)
}

// PollCompleted honors Hold.
func (q *Queue) PollCompleted() uint64 {
	done := q.Queue.PollCompleted()
	if q.Hold && done > q.HeldAt {
		return q.HeldAt
	}
	return done
}

// WriteBuffer counts the call.
func (q *Queue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) error {
	q.BufferWrites++
	return q.Queue.WriteBuffer(b, offset, data)
}

// WriteTexture records the extent.
func (q *Queue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.TextureWrites = append(q.TextureWrites, *size)
	return q.Queue.WriteTexture(dst, data, layout, size)
}

// Present counts the call.
func (q *Queue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	q.Presents++
	return q.Queue.Present(s, t, damage)
}

// Surface wraps a noop surface and records configurations.
type Surface struct {
	hal.Surface

	Configs    []hal.SurfaceConfiguration
	Acquired   int
	Discarded  int
	Suboptimal bool
	FailAcq    bool
}

// Configure records the configuration.
func (s *Surface) Configure(d hal.Device, cfg *hal.SurfaceConfiguration) error {
	s.Configs = append(s.Configs, *cfg)
	return s.Surface.Configure(d, cfg)
}

// AcquireTexture returns a distinct surface texture.
func (s *Surface) AcquireTexture(f hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	if s.FailAcq {
		return nil, hal.ErrSurfaceOutdated
	}
	acq, err := s.Surface.AcquireTexture(f)
	if err != nil {
		return nil, err
	}
	s.Acquired++
	return &hal.AcquiredSurfaceTexture{
		Texture:    &SurfaceTexture{SurfaceTexture: acq.Texture, ID: s.Acquired},
		Suboptimal: s.Suboptimal,
	}, nil
}

// DiscardTexture counts the call.
func (s *Surface) DiscardTexture(t hal.SurfaceTexture) {
	s.Discarded++
}

// SurfaceTexture is a surface texture with a stable identity.
type SurfaceTexture struct {
	hal.SurfaceTexture
	ID int
}

// Env bundles a recording device, queue and surface.
type Env struct {
	Device  *Device
	Queue   *Queue
	Surface *Surface
}

// New opens a noop adapter and wraps it. Cleanup is registered on t.
func New(t testing.TB) *Env {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("no noop adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		instance.Destroy()
		t.Fatalf("CreateSurface failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return &Env{
		Device:  &Device{Device: openDev.Device},
		Queue:   &Queue{Queue: openDev.Queue},
		Surface: &Surface{Surface: surface},
	}
}
