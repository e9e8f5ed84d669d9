package draw

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/pipeline"
)

const (
	// slotsPerChunk is the number of uniform slots in one arena buffer.
	slotsPerChunk = 64

	chunkSize = slotsPerChunk * pipeline.UniformSlotSize

	// DefaultFramesInFlight is the number of arena sets rotated by default.
	DefaultFramesInFlight = 3
)

// chunk is one uniform buffer and the bind group that windows a single
// slot of it; draws select the slot with a dynamic offset.
type chunk struct {
	buf   hal.Buffer
	group hal.BindGroup
}

// arenaSet holds the uniform chunks of one frame.
type arenaSet struct {
	chunks     []*chunk
	submission uint64
}

// arena hands out per-draw uniform slots. Sets are rotated across frames
// and a set is only reused once the submission that read it completed;
// when every set is still in flight a new one is added.
type arena struct {
	device hal.Device
	queue  hal.Queue
	layout hal.BindGroupLayout

	sets    []*arenaSet
	next    int
	current *arenaSet
	frame   uint64
	chunk   int
	slot    int
	used    int

	totalChunks int
}

func newArena(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout, framesInFlight int) *arena {
	if framesInFlight <= 0 {
		framesInFlight = DefaultFramesInFlight
	}
	a := &arena{device: device, queue: queue, layout: layout}
	for range framesInFlight {
		a.sets = append(a.sets, &arenaSet{})
	}
	return a
}

// begin selects the set for frame. Calls for the frame already begun are
// no-ops.
func (a *arena) begin(frame uint64) {
	if a.current != nil && a.frame == frame {
		return
	}
	completed := a.queue.PollCompleted()
	a.current = nil
	for i := range a.sets {
		j := (a.next + i) % len(a.sets)
		if a.sets[j].submission <= completed {
			a.current = a.sets[j]
			a.next = j + 1
			break
		}
	}
	if a.current == nil {
		a.current = &arenaSet{}
		a.sets = append(a.sets, a.current)
		a.next = 0
		logging.Logger().Debug("draw: uniform arena grew", "sets", len(a.sets))
	}
	a.frame = frame
	a.chunk, a.slot, a.used = 0, 0, 0
}

// alloc writes data into the next slot of the frame's set and returns the
// bind group and dynamic offset that select it.
func (a *arena) alloc(frame uint64, data []byte) (hal.BindGroup, uint32, bool) {
	if len(data) > pipeline.UniformSlotSize {
		return nil, 0, false
	}
	a.begin(frame)
	if a.slot == slotsPerChunk {
		a.chunk++
		a.slot = 0
	}
	set := a.current
	if a.chunk == len(set.chunks) {
		c, err := a.newChunk()
		if err != nil {
			logging.Logger().Warn("draw: uniform chunk allocation failed", "err", err)
			return nil, 0, false
		}
		set.chunks = append(set.chunks, c)
	}
	c := set.chunks[a.chunk]
	offset := uint32(a.slot * pipeline.UniformSlotSize) //nolint:gosec // slot < slotsPerChunk
	if err := a.queue.WriteBuffer(c.buf, uint64(offset), data); err != nil {
		logging.Logger().Debug("draw: uniform write failed", "err", err)
		return nil, 0, false
	}
	a.slot++
	a.used++
	return c.group, offset, true
}

// submitted stamps the frame's set with the submission that reads it.
func (a *arena) submitted(index uint64) {
	if a.current == nil {
		return
	}
	a.current.submission = index
	a.current = nil
}

func (a *arena) newChunk() (*chunk, error) {
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "uniform_arena",
		Size:  chunkSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	group, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "uniform_arena_bind",
		Layout: a.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(), Offset: 0, Size: pipeline.UniformSlotSize,
			}},
		},
	})
	if err != nil {
		a.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("create uniform bind group: %w", err)
	}
	a.totalChunks++
	return &chunk{buf: buf, group: group}, nil
}

func (a *arena) destroy() {
	for _, s := range a.sets {
		for i := len(s.chunks) - 1; i >= 0; i-- {
			a.device.DestroyBindGroup(s.chunks[i].group)
			a.device.DestroyBuffer(s.chunks[i].buf)
		}
		s.chunks = nil
	}
	a.sets = nil
	a.current = nil
	a.totalChunks = 0
}
