// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package texcache keeps GPU copies of CPU images for textured draws.
//
// Images are registered once and uploaded lazily, with a full mip chain,
// the first time a draw resolves them. Resident textures are tracked in an
// LRU list against a byte budget. A texture is only destroyed after the
// last submission that sampled it has completed, whether it was evicted,
// released by its owner or replaced.
//
// Cache is safe for concurrent use. Register and Handle.Release may be
// called from any goroutine; Resolve, ResolveAtlas and Submitted belong to
// the render thread.
package texcache

import (
	"container/list"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/google/uuid"

	"github.com/gogpu/rendercore/internal/logging"
)

// Cache errors.
var (
	// ErrEmptyImage is returned when registering a nil or empty image.
	ErrEmptyImage = errors.New("texcache: empty image")

	// ErrReleased is returned when resolving a released handle.
	ErrReleased = errors.New("texcache: texture released")

	// ErrClosed is returned after Destroy.
	ErrClosed = errors.New("texcache: cache closed")
)

// DefaultBudget is the default resident byte budget (256 MiB).
const DefaultBudget = 256 << 20

// Config controls the cache.
type Config struct {
	// Budget is the resident byte budget. Zero means DefaultBudget.
	Budget uint64
}

// Stats reports cache usage.
type Stats struct {
	Registered     int
	Resident       int
	ResidentBytes  uint64
	Budget         uint64
	Uploads        uint64
	Evictions      uint64
	Atlases        int
	PendingDestroy int
}

// String returns a compact summary.
func (s Stats) String() string {
	return fmt.Sprintf("Textures[%d registered, %d resident, %d/%d KiB, %d evictions]",
		s.Registered, s.Resident, s.ResidentBytes>>10, s.Budget>>10, s.Evictions)
}

// gpuSet is the GPU half of a texture.
type gpuSet struct {
	tex   hal.Texture
	view  hal.TextureView
	group hal.BindGroup
	bytes uint64
}

// entry is one registered image.
type entry struct {
	id  uuid.UUID
	src *image.RGBA

	gpu        *gpuSet
	element    *list.Element
	submission uint64
	touched    uint64
}

// doomed is a GPU set waiting for its last submission. A set used by the
// frame being recorded has no index yet; seq names that frame and
// Submitted fills in the index.
type doomed struct {
	set        *gpuSet
	submission uint64
	seq        uint64
}

// Cache owns the GPU textures of registered images and glyph atlases.
type Cache struct {
	device hal.Device
	queue  hal.Queue
	layout hal.BindGroupLayout

	mu      sync.Mutex
	sampler hal.Sampler
	budget  uint64
	used    uint64
	entries map[uuid.UUID]*entry
	lru     *list.List
	atlases map[GlyphAtlas]*atlasEntry
	doomed  []doomed

	// seq identifies the frame being recorded; touched entries carry it.
	seq     uint64
	touched []func(index uint64)

	uploads   uint64
	evictions uint64
	closed    bool
}

// New creates a cache whose bind groups follow layout: binding 0 is the
// texture view, binding 1 a linear sampler.
func New(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout, cfg Config) (*Cache, error) {
	if device == nil || queue == nil || layout == nil {
		return nil, errors.New("texcache: device, queue and layout are required")
	}
	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "texcache_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("texcache: create sampler: %w", err)
	}
	budget := cfg.Budget
	if budget == 0 {
		budget = DefaultBudget
	}
	return &Cache{
		device:  device,
		queue:   queue,
		layout:  layout,
		sampler: sampler,
		budget:  budget,
		entries: make(map[uuid.UUID]*entry),
		lru:     list.New(),
		atlases: make(map[GlyphAtlas]*atlasEntry),
		seq:     1,
	}, nil
}

// Register copies img and returns a handle to it. No GPU work happens
// until the handle is first resolved.
func (c *Cache) Register(img image.Image) (*Handle, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	src := toRGBA(img)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	e := &entry{id: uuid.New(), src: src}
	c.entries[e.id] = e
	return &Handle{id: e.id, cache: c, w: src.Rect.Dx(), h: src.Rect.Dy()}, nil
}

// Resolve returns the bind group of h, uploading the texture if it is not
// resident, and marks it used by the frame being recorded.
func (c *Cache) Resolve(h *Handle) (hal.BindGroup, error) {
	if h == nil || h.Released() {
		return nil, ErrReleased
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	e, ok := c.entries[h.id]
	if !ok {
		return nil, ErrReleased
	}

	if e.gpu == nil {
		set, err := c.uploadLocked(e)
		if err != nil {
			return nil, err
		}
		e.gpu = set
		e.element = c.lru.PushFront(e)
		c.used += set.bytes
		c.markLocked(e)
		c.evictLocked()
	} else {
		c.lru.MoveToFront(e.element)
		c.markLocked(e)
	}
	return e.gpu.group, nil
}

// Submitted stamps everything resolved since the previous call with the
// submission index and frees GPU objects whose submissions completed.
func (c *Cache) Submitted(index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, stamp := range c.touched {
		stamp(index)
	}
	for i := range c.doomed {
		if c.doomed[i].seq == c.seq {
			c.doomed[i].submission = index
		}
	}
	clear(c.touched)
	c.touched = c.touched[:0]
	c.seq++
	c.collectLocked()
}

// Collect frees GPU objects whose submissions have completed.
func (c *Cache) Collect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectLocked()
}

// SetBudget changes the byte budget and evicts down to it where possible.
func (c *Cache) SetBudget(bytes uint64) {
	if bytes == 0 {
		bytes = DefaultBudget
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budget = bytes
	c.evictLocked()
}

// Stats returns a snapshot of the cache.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Registered:     len(c.entries),
		Resident:       c.lru.Len(),
		ResidentBytes:  c.used,
		Budget:         c.budget,
		Uploads:        c.uploads,
		Evictions:      c.evictions,
		Atlases:        len(c.atlases),
		PendingDestroy: len(c.doomed),
	}
}

// Destroy frees every GPU object. The caller must have waited for the
// device to go idle. Safe to call more than once.
func (c *Cache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, e := range c.entries {
		if e.gpu != nil {
			c.destroySet(e.gpu)
			e.gpu = nil
		}
	}
	for _, a := range c.atlases {
		if a.gpu != nil {
			c.destroySet(a.gpu)
		}
	}
	for _, d := range c.doomed {
		c.destroySet(d.set)
	}
	c.entries = nil
	c.atlases = nil
	c.doomed = nil
	c.lru.Init()
	c.used = 0
	if c.sampler != nil {
		c.device.DestroySampler(c.sampler)
		c.sampler = nil
	}
}

// release is the Handle.Release hook. The entry leaves the cache at once;
// its GPU objects wait for the last submission that used them.
func (c *Cache) release(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	e, ok := c.entries[id]
	if !ok {
		return
	}
	delete(c.entries, id)
	if e.gpu != nil {
		c.lru.Remove(e.element)
		c.used -= e.gpu.bytes
		c.doom(e.gpu, e.submission, e.touched)
		e.gpu = nil
		e.element = nil
	}
	e.src = nil
	c.collectLocked()
}

// doom queues set for destruction after submission, or after the frame
// being recorded when touched names it.
func (c *Cache) doom(set *gpuSet, submission, touched uint64) {
	d := doomed{set: set, submission: submission}
	if touched == c.seq {
		d.submission = ^uint64(0)
		d.seq = c.seq
	}
	c.doomed = append(c.doomed, d)
}

func (c *Cache) markLocked(e *entry) {
	if e.touched == c.seq {
		return
	}
	e.touched = c.seq
	c.touched = append(c.touched, func(index uint64) { e.submission = index })
}

// evictLocked drops least recently used textures until the budget holds.
// Textures used by the current frame or by an incomplete submission stay.
func (c *Cache) evictLocked() {
	if c.used <= c.budget {
		return
	}
	completed := c.queue.PollCompleted()
	for el := c.lru.Back(); el != nil && c.used > c.budget; {
		prev := el.Prev()
		e, _ := el.Value.(*entry)
		if e != nil && e.touched != c.seq && e.submission <= completed {
			c.lru.Remove(el)
			c.used -= e.gpu.bytes
			c.destroySet(e.gpu)
			e.gpu = nil
			e.element = nil
			c.evictions++
		}
		el = prev
	}
	if c.used > c.budget {
		logging.Logger().Debug("texcache: over budget", "used", c.used, "budget", c.budget)
	}
}

func (c *Cache) collectLocked() {
	if len(c.doomed) == 0 {
		return
	}
	completed := c.queue.PollCompleted()
	kept := c.doomed[:0]
	for _, d := range c.doomed {
		if d.submission <= completed {
			c.destroySet(d.set)
			continue
		}
		kept = append(kept, d)
	}
	clear(c.doomed[len(kept):])
	c.doomed = kept
}

func (c *Cache) uploadLocked(e *entry) (*gpuSet, error) {
	levels := buildMips(e.src)
	w, h := e.src.Rect.Dx(), e.src.Rect.Dy()
	//nolint:gosec // image sizes fit uint32; a chain has at most 32 levels
	size, mips := hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, uint32(len(levels))
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "texcache_" + e.id.String(),
		Size:          size,
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("texcache: create texture: %w", err)
	}
	for i, l := range levels {
		lw, lh := uint32(l.Rect.Dx()), uint32(l.Rect.Dy()) //nolint:gosec // image sizes fit uint32
		err := c.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: tex, MipLevel: uint32(i), Aspect: gputypes.TextureAspectAll}, //nolint:gosec // level index
			l.Pix,
			&hal.ImageDataLayout{BytesPerRow: 4 * lw, RowsPerImage: lh},
			&hal.Extent3D{Width: lw, Height: lh, DepthOrArrayLayers: 1},
		)
		if err != nil {
			c.device.DestroyTexture(tex)
			return nil, fmt.Errorf("texcache: upload level %d: %w", i, err)
		}
	}
	set, err := c.bind(tex, "texcache_bind")
	if err != nil {
		return nil, err
	}
	set.bytes = chainBytes(levels)
	c.uploads++
	return set, nil
}

// bind creates the view and bind group of tex. On failure tex is destroyed.
func (c *Cache) bind(tex hal.Texture, label string) (*gpuSet, error) {
	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: label + "_view"})
	if err != nil {
		c.device.DestroyTexture(tex)
		return nil, fmt.Errorf("texcache: create view: %w", err)
	}
	group, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: c.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: c.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		c.device.DestroyTextureView(view)
		c.device.DestroyTexture(tex)
		return nil, fmt.Errorf("texcache: create bind group: %w", err)
	}
	return &gpuSet{tex: tex, view: view, group: group}, nil
}

func (c *Cache) destroySet(s *gpuSet) {
	if s.group != nil {
		c.device.DestroyBindGroup(s.group)
	}
	if s.view != nil {
		c.device.DestroyTextureView(s.view)
	}
	if s.tex != nil {
		c.device.DestroyTexture(s.tex)
	}
}

// Handle is a registered image. Release frees it exactly once; later
// calls are no-ops. Handles are safe to release from any goroutine.
type Handle struct {
	id       uuid.UUID
	cache    *Cache
	w, h     int
	released atomic.Bool
}

// ID returns the cache key of the handle.
func (h *Handle) ID() uuid.UUID { return h.id }

// Size returns the image size in pixels.
func (h *Handle) Size() (int, int) { return h.w, h.h }

// Released reports whether Release has been called.
func (h *Handle) Released() bool { return h.released.Load() }

// Release drops the image. The GPU texture is destroyed once no in-flight
// submission samples it.
func (h *Handle) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.cache.release(h.id)
	}
}
