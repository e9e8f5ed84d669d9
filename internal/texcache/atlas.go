package texcache

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// GlyphAtlas is a single-channel coverage atlas maintained by the font
// layer. Dirty reports whether Mask changed since the last ClearDirty.
type GlyphAtlas interface {
	Mask() *image.Alpha
	Dirty() bool
	ClearDirty()
}

// atlasEntry is the GPU copy of one atlas. Atlases are not budgeted or
// evicted; they live until Destroy.
type atlasEntry struct {
	gpu        *gpuSet
	width      int
	height     int
	submission uint64
	touched    uint64
}

// ResolveAtlas returns the bind group of a, creating the R8 texture on
// first use and re-uploading the mask when the atlas is dirty. A resized
// atlas gets a new texture; the old one is destroyed after its last
// submission.
func (c *Cache) ResolveAtlas(a GlyphAtlas) (hal.BindGroup, error) {
	if a == nil {
		return nil, ErrEmptyImage
	}
	mask := a.Mask()
	if mask == nil || mask.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	w, h := mask.Bounds().Dx(), mask.Bounds().Dy()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	ae := c.atlases[a]
	if ae == nil {
		ae = &atlasEntry{}
		c.atlases[a] = ae
	}
	upload := a.Dirty()
	if ae.gpu == nil || ae.width != w || ae.height != h {
		if ae.gpu != nil {
			c.doom(ae.gpu, ae.submission, ae.touched)
			ae.gpu = nil
		}
		set, err := c.createAtlas(w, h)
		if err != nil {
			return nil, err
		}
		ae.gpu, ae.width, ae.height = set, w, h
		upload = true
	}
	if upload {
		uw, uh := uint32(w), uint32(h) //nolint:gosec // atlas sizes fit uint32
		err := c.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: ae.gpu.tex, Aspect: gputypes.TextureAspectAll},
			packAlpha(mask),
			&hal.ImageDataLayout{BytesPerRow: uw, RowsPerImage: uh},
			&hal.Extent3D{Width: uw, Height: uh, DepthOrArrayLayers: 1},
		)
		if err != nil {
			return nil, fmt.Errorf("texcache: upload atlas: %w", err)
		}
		a.ClearDirty()
		c.uploads++
	}

	if ae.touched != c.seq {
		ae.touched = c.seq
		c.touched = append(c.touched, func(index uint64) { ae.submission = index })
	}
	return ae.gpu.group, nil
}

// ForgetAtlas drops the GPU copy of a after its last submission.
func (c *Cache) ForgetAtlas(a GlyphAtlas) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ae, ok := c.atlases[a]
	if !ok || c.closed {
		return
	}
	delete(c.atlases, a)
	if ae.gpu != nil {
		c.doom(ae.gpu, ae.submission, ae.touched)
	}
	c.collectLocked()
}

func (c *Cache) createAtlas(w, h int) (*gpuSet, error) {
	size := hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1} //nolint:gosec // atlas sizes fit uint32
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "texcache_glyph_atlas",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("texcache: create atlas texture: %w", err)
	}
	set, err := c.bind(tex, "texcache_atlas_bind")
	if err != nil {
		return nil, err
	}
	set.bytes = uint64(w) * uint64(h) //nolint:gosec // positive sizes
	return set, nil
}
