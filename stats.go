package rendercore

import "fmt"

// Stats is a snapshot of renderer activity.
type Stats struct {
	Frames         uint64
	LastSubmission uint64
	DrawableWidth  uint32
	DrawableHeight uint32
	Antialias      bool
	Reconfigures   int
	TargetRebuilds int
	FailedAcquires int

	// Draws counts draw calls recorded in the current or last frame.
	Draws         int
	UniformSlots  int
	UniformChunks int

	PoolBuffers   int
	PoolInUse     int
	PoolBytes     uint64
	PoolOverflows uint64

	Textures         int
	ResidentTextures int
	TextureBytes     uint64
	TextureEvictions uint64
	GlyphAtlases     int

	OceanGridSize   int
	OceanIndexCount uint32
}

// String returns a compact summary.
func (s Stats) String() string {
	return fmt.Sprintf("Frame %d %dx%d msaa=%t: %d draws, pool %d buffers/%d KiB (%d overflows), textures %d/%d resident",
		s.Frames, s.DrawableWidth, s.DrawableHeight, s.Antialias, s.Draws,
		s.PoolBuffers, s.PoolBytes>>10, s.PoolOverflows, s.ResidentTextures, s.Textures)
}

// Stats returns a snapshot of the frame loop, the buffer pool, the uniform
// arena and the texture cache.
func (r *Renderer) Stats() Stats {
	if r.closed {
		return Stats{}
	}
	f := r.frames.Stats()
	e := r.encoder.Stats()
	p := r.buffers.Stats()
	t := r.textures.Stats()
	s := Stats{
		Frames:           f.Frames,
		LastSubmission:   f.LastSubmission,
		DrawableWidth:    f.DrawableWidth,
		DrawableHeight:   f.DrawableHeight,
		Antialias:        f.AntialiasActive,
		Reconfigures:     f.Reconfigures,
		TargetRebuilds:   f.TargetRebuilds,
		FailedAcquires:   f.FailedAcquires,
		Draws:            e.Draws,
		UniformSlots:     e.UniformSlots,
		UniformChunks:    e.UniformChunks,
		PoolBytes:        p.Bytes,
		PoolOverflows:    p.Overflows,
		Textures:         t.Registered,
		ResidentTextures: t.Resident,
		TextureBytes:     t.ResidentBytes,
		TextureEvictions: t.Evictions,
		GlyphAtlases:     t.Atlases,
		OceanGridSize:    e.OceanGridSize,
		OceanIndexCount:  e.OceanIndexCount,
	}
	for i := range p.Buffers {
		s.PoolBuffers += p.Buffers[i]
		s.PoolInUse += p.InUse[i]
	}
	return s
}
