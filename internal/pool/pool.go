// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pool implements the transient GPU buffer pool.
//
// Draw encoders lease buffers from the pool instead of allocating per draw.
// Buffers are grouped into four independent categories, each capped at a
// fixed number of retained slots. Every lease is released in bulk by
// ResetFrame at the start of the next frame.
//
// Reuse across frames is guarded by submission indices: the frame
// orchestrator stamps every buffer leased during a frame with the index
// returned by hal.Queue.Submit, and Acquire skips buffers whose stamp the
// queue has not completed yet.
package pool

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/logging"
)

// Category selects one of the independent buffer arrays.
type Category int

const (
	// CategoryVertex holds per-vertex and per-instance data.
	CategoryVertex Category = iota

	// CategoryIndex holds index lists.
	CategoryIndex

	// CategoryTextVertex holds glyph quad vertices.
	CategoryTextVertex

	// CategoryTextIndex holds glyph quad indices.
	CategoryTextIndex

	numCategories
)

// NumCategories is the number of buffer categories.
const NumCategories = int(numCategories)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryVertex:
		return "vertex"
	case CategoryIndex:
		return "index"
	case CategoryTextVertex:
		return "text-vertex"
	case CategoryTextIndex:
		return "text-index"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

func (c Category) usage() gputypes.BufferUsage {
	switch c {
	case CategoryIndex, CategoryTextIndex:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	}
}

// Default pool limits.
const (
	// DefaultMaxSlots is the number of buffers retained per category.
	DefaultMaxSlots = 64

	// DefaultMinBufferSize is the smallest buffer the pool allocates (4 KiB).
	DefaultMinBufferSize = 4 << 10

	// DefaultMaxBufferSize is the largest power-of-two size class (16 MiB).
	// Larger requests are allocated at their exact size.
	DefaultMaxBufferSize = 16 << 20
)

// Config holds pool limits. Zero fields take the defaults.
type Config struct {
	MaxSlots      int
	MinBufferSize uint64
	MaxBufferSize uint64
}

func (c Config) withDefaults() Config {
	if c.MaxSlots <= 0 {
		c.MaxSlots = DefaultMaxSlots
	}
	if c.MinBufferSize == 0 {
		c.MinBufferSize = DefaultMinBufferSize
	}
	if c.MaxBufferSize == 0 {
		c.MaxBufferSize = DefaultMaxBufferSize
	}
	if c.MaxBufferSize < c.MinBufferSize {
		c.MaxBufferSize = c.MinBufferSize
	}
	return c
}

// Buffer is a pooled GPU buffer. It is owned by the pool and lent out by
// reference through a Lease.
type Buffer struct {
	raw        hal.Buffer
	capacity   uint64
	category   Category
	inUse      bool
	submission uint64
}

// Raw returns the underlying HAL buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Capacity returns the buffer size in bytes.
func (b *Buffer) Capacity() uint64 { return b.capacity }

// Category returns the category the buffer belongs to.
func (b *Buffer) Category() Category { return b.category }

// Lease is a lightweight handle on a buffer for the current frame.
// Leases come from a freelist and are recycled by ResetFrame; callers must
// not keep them across frames.
type Lease struct {
	buf  *Buffer
	Size uint64
}

// Buffer returns the leased pool buffer.
func (l *Lease) Buffer() *Buffer { return l.buf }

// Raw returns the underlying HAL buffer.
func (l *Lease) Raw() hal.Buffer { return l.buf.raw }

// Stats reports pool usage.
type Stats struct {
	Buffers   [NumCategories]int
	InUse     [NumCategories]int
	Bytes     uint64
	Overflows uint64
	Pending   int
}

// completionSource reports the highest completed submission index.
// hal.Queue satisfies it.
type completionSource interface {
	PollCompleted() uint64
}

// Pool is the transient buffer pool. It is not safe for concurrent use; it
// is driven by the render thread only.
type Pool struct {
	device hal.Device
	queue  hal.Queue
	done   completionSource
	cfg    Config

	slots [NumCategories][]*Buffer

	// leases is the wrapper freelist; cursor is the next free entry.
	leases []Lease
	cursor int

	// overflow buffers are used for one frame and destroyed once their
	// submission has completed.
	overflow        []*Buffer
	frameOverflows  int
	totalOverflows  uint64
	allocatedBytes  uint64
	destroyed       bool
	warnedThisFrame bool
}

// New creates an empty pool. Buffers are allocated lazily by Acquire.
func New(device hal.Device, queue hal.Queue, cfg Config) *Pool {
	return &Pool{
		device: device,
		queue:  queue,
		done:   queue,
		cfg:    cfg.withDefaults(),
		leases: make([]Lease, 0, 64),
	}
}

// Config returns the effective configuration.
func (p *Pool) Config() Config { return p.cfg }

// Acquire returns a lease on a buffer of category c with capacity of at
// least size bytes. It returns false if the device cannot allocate; the
// caller should skip the draw.
func (p *Pool) Acquire(c Category, size uint64) (*Lease, bool) {
	if p.destroyed || c < 0 || c >= numCategories || size == 0 {
		return nil, false
	}

	completed := p.completed()
	for _, b := range p.slots[c] {
		if !b.inUse && b.capacity >= size && b.submission <= completed {
			b.inUse = true
			return p.lease(b, size), true
		}
	}

	b, err := p.allocate(c, size)
	if err != nil {
		logging.Logger().Debug("pool: allocation failed",
			"category", c.String(), "size", size, "err", err)
		return nil, false
	}
	b.inUse = true

	if len(p.slots[c]) < p.cfg.MaxSlots {
		p.slots[c] = append(p.slots[c], b)
	} else {
		p.overflow = append(p.overflow, b)
		p.frameOverflows++
		p.totalOverflows++
		if !p.warnedThisFrame {
			p.warnedThisFrame = true
			logging.Logger().Warn("pool: slot cap exceeded, buffer will not be reused",
				"category", c.String(), "max_slots", p.cfg.MaxSlots, "size", b.capacity)
		}
	}
	return p.lease(b, size), true
}

// Upload leases a buffer for data and writes data into it.
func (p *Pool) Upload(c Category, data []byte) (*Lease, bool) {
	if len(data) == 0 {
		return nil, false
	}
	l, ok := p.Acquire(c, uint64(len(data)))
	if !ok {
		return nil, false
	}
	if err := p.queue.WriteBuffer(l.Raw(), 0, data); err != nil {
		logging.Logger().Debug("pool: write failed", "category", c.String(), "err", err)
		return nil, false
	}
	return l, true
}

// Submitted stamps every buffer in use this frame with the submission index
// that consumes it.
func (p *Pool) Submitted(index uint64) {
	for c := range p.slots {
		for _, b := range p.slots[c] {
			if b.inUse {
				b.submission = index
			}
		}
	}
	for _, b := range p.overflow {
		if b.inUse {
			b.submission = index
		}
	}
}

// ResetFrame marks every buffer available again and rewinds the lease
// freelist. Overflow buffers whose submission has completed are destroyed.
// Call exactly once per frame, before the first Acquire.
func (p *Pool) ResetFrame() {
	for c := range p.slots {
		for _, b := range p.slots[c] {
			b.inUse = false
		}
	}
	for i := range p.leases[:p.cursor] {
		p.leases[i].buf = nil
	}
	p.cursor = 0

	completed := p.completed()
	kept := p.overflow[:0]
	for _, b := range p.overflow {
		b.inUse = false
		if b.submission <= completed {
			p.release(b)
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(p.overflow); i++ {
		p.overflow[i] = nil
	}
	p.overflow = kept

	if p.frameOverflows > 0 {
		logging.Logger().Debug("pool: frame overflow", "buffers", p.frameOverflows)
	}
	p.frameOverflows = 0
	p.warnedThisFrame = false
}

// Stats returns current pool usage.
func (p *Pool) Stats() Stats {
	var s Stats
	for c := range p.slots {
		s.Buffers[c] = len(p.slots[c])
		for _, b := range p.slots[c] {
			if b.inUse {
				s.InUse[c]++
			}
		}
	}
	s.Bytes = p.allocatedBytes
	s.Overflows = p.totalOverflows
	s.Pending = len(p.overflow)
	return s
}

// Destroy releases every buffer. The pool must not be used afterwards.
func (p *Pool) Destroy() {
	if p.destroyed {
		return
	}
	for c := range p.slots {
		for _, b := range p.slots[c] {
			p.release(b)
		}
		p.slots[c] = nil
	}
	for _, b := range p.overflow {
		p.release(b)
	}
	p.overflow = nil
	p.leases = nil
	p.cursor = 0
	p.destroyed = true
}

func (p *Pool) completed() uint64 {
	if p.done == nil {
		return ^uint64(0)
	}
	return p.done.PollCompleted()
}

func (p *Pool) lease(b *Buffer, size uint64) *Lease {
	if p.cursor == len(p.leases) {
		p.leases = append(p.leases, Lease{})
	}
	l := &p.leases[p.cursor]
	p.cursor++
	l.buf = b
	l.Size = size
	return l
}

func (p *Pool) allocate(c Category, size uint64) (*Buffer, error) {
	capacity := SizeClass(size, p.cfg.MinBufferSize, p.cfg.MaxBufferSize)
	raw, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pool_" + c.String(),
		Size:  capacity,
		Usage: c.usage(),
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer (%d bytes): %w", c, capacity, err)
	}
	p.allocatedBytes += capacity
	return &Buffer{raw: raw, capacity: capacity, category: c}, nil
}

func (p *Pool) release(b *Buffer) {
	if b.raw == nil {
		return
	}
	p.device.DestroyBuffer(b.raw)
	b.raw = nil
	p.allocatedBytes -= b.capacity
}

// SizeClass returns the allocation size for a request of size bytes: the
// next power of two at or above max(size, minSize), or size rounded up to a
// multiple of 4 when that power of two would exceed maxSize.
func SizeClass(size, minSize, maxSize uint64) uint64 {
	n := size
	if n < minSize {
		n = minSize
	}
	if n&(n-1) != 0 {
		shift := 64 - bits.LeadingZeros64(n)
		if shift >= 64 {
			return align4(size)
		}
		n = 1 << shift
	}
	if n > maxSize {
		return align4(size)
	}
	return n
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}
