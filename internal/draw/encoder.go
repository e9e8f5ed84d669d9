// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package draw records instanced draws into the open frame.
//
// Every encoder follows the same steps: validate the input, lease an
// instance buffer from the transient pool (or use a persistent buffer for
// animated and orbital data), write a uniform slot, bind the variant of its
// kind, issue one draw and restore the base pipeline. Invalid input and a
// missing frame are silent no-ops.
package draw

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/frame"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
	"github.com/gogpu/rendercore/internal/texcache"
)

// Per-instance vertex counts.
const (
	quadVertices     = 4
	triangleVertices = 3
)

// Config controls an Encoder. Zero fields take the defaults.
type Config struct {
	// FramesInFlight is the number of uniform arena sets rotated across
	// frames.
	FramesInFlight int

	// HueCycleSpeed is the hue rotation per second applied by the shape
	// shaders.
	HueCycleSpeed float32
}

// Stats reports encoder usage.
type Stats struct {
	// Draws is the number of draw calls recorded in the current frame.
	Draws int

	UniformSlots  int
	UniformChunks int
	UniformSets   int

	OceanGridSize   int
	OceanIndexCount uint32

	PersistentBuffers int
	PendingBuffers    int
}

// shape selects one of the animated buffers.
type shape int

const (
	shapeRect shape = iota
	shapeTriangle
	shapeCircle
	numShapes
)

var animatedKinds = [numShapes]pipeline.DrawKind{
	shapeRect:     pipeline.KindAnimatedRect,
	shapeTriangle: pipeline.KindAnimatedTriangle,
	shapeCircle:   pipeline.KindAnimatedCircle,
}

var instancedKinds = [numShapes]pipeline.DrawKind{
	shapeRect:     pipeline.KindInstancedRect,
	shapeTriangle: pipeline.KindInstancedTriangle,
	shapeCircle:   pipeline.KindInstancedCircle,
}

func (s shape) vertices() uint32 {
	if s == shapeTriangle {
		return triangleVertices
	}
	return quadVertices
}

// persistent is a buffer written by an Upload call and read by many
// frames. used marks a read by the frame being recorded.
type persistent struct {
	raw        hal.Buffer
	capacity   uint64
	count      uint32
	submission uint64
	used       bool
}

// Encoder records the draws of every kind. It is driven by the render
// thread only.
type Encoder struct {
	device   hal.Device
	queue    hal.Queue
	pool     *pool.Pool
	textures *texcache.Cache
	cfg      Config

	arena *arena

	animated [numShapes]*persistent
	orbital  *persistent
	center   [2]float32

	oceanIndex *persistent
	oceanGrid  int

	// retired buffers wait for their last submission.
	retired []*persistent

	time    float32
	frame   uint64
	draws   int
	scratch []byte
	closed  bool
}

// New creates an encoder. uniformLayout is the registry's group 0 layout.
func New(device hal.Device, queue hal.Queue, uniformLayout hal.BindGroupLayout,
	buffers *pool.Pool, textures *texcache.Cache, cfg Config,
) (*Encoder, error) {
	if device == nil || queue == nil || uniformLayout == nil || buffers == nil {
		return nil, errors.New("draw: device, queue, uniform layout and pool are required")
	}
	return &Encoder{
		device:   device,
		queue:    queue,
		pool:     buffers,
		textures: textures,
		cfg:      cfg,
		arena:    newArena(device, queue, uniformLayout, cfg.FramesInFlight),
		scratch:  make([]byte, 0, 4096),
	}, nil
}

// SetTime sets the animation clock in seconds used by draws without an
// explicit time.
func (e *Encoder) SetTime(t float32) { e.time = t }

// Time returns the animation clock.
func (e *Encoder) Time() float32 { return e.time }

// SetHueCycleSpeed changes the hue rotation per second.
func (e *Encoder) SetHueCycleSpeed(speed float32) { e.cfg.HueCycleSpeed = speed }

// Submitted stamps the uniform set and every persistent buffer read by the
// frame with index, and frees retired buffers whose submission completed.
func (e *Encoder) Submitted(index uint64) {
	if e.closed {
		return
	}
	e.arena.submitted(index)
	for _, p := range e.persistents() {
		if p != nil && p.used {
			p.submission = index
			p.used = false
		}
	}
	for _, p := range e.retired {
		if p.used {
			p.submission = index
			p.used = false
		}
	}
	e.collect()
}

// Stats returns current usage.
func (e *Encoder) Stats() Stats {
	s := Stats{
		Draws:          e.draws,
		UniformSlots:   e.arena.used,
		UniformChunks:  e.arena.totalChunks,
		UniformSets:    len(e.arena.sets),
		OceanGridSize:  e.oceanGrid,
		PendingBuffers: len(e.retired),
	}
	if e.oceanIndex != nil {
		s.OceanIndexCount = e.oceanIndex.count
	}
	for _, p := range e.persistents() {
		if p != nil {
			s.PersistentBuffers++
		}
	}
	return s
}

// Destroy frees every buffer the encoder owns. The caller must have waited
// for the device to go idle. Safe to call more than once.
func (e *Encoder) Destroy() {
	if e.closed {
		return
	}
	e.closed = true
	for _, p := range e.retired {
		e.device.DestroyBuffer(p.raw)
	}
	e.retired = nil
	for _, p := range e.persistents() {
		if p != nil {
			e.device.DestroyBuffer(p.raw)
		}
	}
	e.animated = [numShapes]*persistent{}
	e.orbital = nil
	e.oceanIndex = nil
	e.oceanGrid = 0
	e.arena.destroy()
}

func (e *Encoder) persistents() [numShapes + 2]*persistent {
	return [numShapes + 2]*persistent{
		e.animated[shapeRect], e.animated[shapeTriangle], e.animated[shapeCircle],
		e.orbital, e.oceanIndex,
	}
}

// begin resets per-frame counters when f is a new frame. It reports
// whether drawing into f is possible.
func (e *Encoder) begin(f *frame.Context) bool {
	if e.closed || f == nil || f.Pass == nil {
		return false
	}
	if f.Index != e.frame {
		e.frame = f.Index
		e.draws = 0
	}
	return true
}

// bindUniform writes u into the arena and binds it as group 0 after
// binding kind. It returns false, with nothing bound, when no slot is
// available.
func (e *Encoder) bindUniform(f *frame.Context, kind pipeline.DrawKind, u []byte) bool {
	group, offset, ok := e.arena.alloc(f.Index, u)
	if !ok {
		return false
	}
	f.Bind(kind)
	f.Pass.SetBindGroup(0, group, []uint32{offset})
	return true
}

func (e *Encoder) frameUniform(f *frame.Context, t float32) []byte {
	u := frameUniform{
		width:    float32(f.Width),
		height:   float32(f.Height),
		time:     t,
		hueSpeed: e.cfg.HueCycleSpeed,
		centerX:  e.center[0],
		centerY:  e.center[1],
	}
	return u.appendBytes(e.scratch[:0])
}

// upload leases a pool buffer in category c and fills it with data.
func (e *Encoder) upload(c pool.Category, data []byte) (*pool.Lease, bool) {
	l, ok := e.pool.Upload(c, data)
	if !ok {
		logging.Logger().Debug("draw: buffer lease failed, draw skipped", "category", c.String(), "bytes", len(data))
	}
	return l, ok
}

// finish records a draw and restores the base pipeline.
func (e *Encoder) finish(f *frame.Context) {
	e.draws++
	f.BindBase()
}

// writePersistent stores data in *slot, reusing the buffer when it is large
// enough and idle. A buffer still read by an in-flight submission is
// retired and replaced.
func (e *Encoder) writePersistent(slot **persistent, label string, usage gputypes.BufferUsage, data []byte, count uint32) error {
	size := uint64(len(data))
	p := *slot
	if p != nil && (p.capacity < size || p.used || p.submission > e.queue.PollCompleted()) {
		e.retire(p)
		*slot = nil
		p = nil
	}
	if p == nil {
		capacity := pool.SizeClass(size, 256, 16<<20)
		raw, err := e.device.CreateBuffer(&hal.BufferDescriptor{
			Label: label,
			Size:  capacity,
			Usage: usage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("draw: create %s buffer: %w", label, err)
		}
		p = &persistent{raw: raw, capacity: capacity}
		*slot = p
	}
	if err := e.queue.WriteBuffer(p.raw, 0, data); err != nil {
		return fmt.Errorf("draw: write %s buffer: %w", label, err)
	}
	p.count = count
	return nil
}

func (e *Encoder) retire(p *persistent) {
	e.retired = append(e.retired, p)
	e.collect()
}

func (e *Encoder) collect() {
	if len(e.retired) == 0 {
		return
	}
	completed := e.queue.PollCompleted()
	kept := e.retired[:0]
	for _, p := range e.retired {
		if !p.used && p.submission <= completed {
			e.device.DestroyBuffer(p.raw)
			continue
		}
		kept = append(kept, p)
	}
	clear(e.retired[len(kept):])
	e.retired = kept
}

// floatBytes packs the first n floats of data into the scratch buffer.
func (e *Encoder) floatBytes(data []float32, n int) []byte {
	e.scratch = appendFloats(e.scratch[:0], data[:n]...)
	return e.scratch
}
