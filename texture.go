package rendercore

import (
	"fmt"
	"image"

	"github.com/gogpu/rendercore/internal/texcache"
)

// TextureSource supplies the pixels of a texture, typically a decoded
// asset owned by the caller.
type TextureSource interface {
	Image() image.Image
}

// GlyphAtlas is a single-channel coverage atlas maintained by the font
// layer. The renderer uploads Mask again whenever Dirty reports true and
// then calls ClearDirty.
type GlyphAtlas = texcache.GlyphAtlas

// Texture is an image registered with a Renderer. The GPU copy is created
// on first draw and freed after Release once no submitted frame samples it.
// Release may be called from any goroutine.
type Texture struct {
	h *texcache.Handle
}

// Size returns the texture size in pixels.
func (t *Texture) Size() (width, height int) {
	if t == nil {
		return 0, 0
	}
	return t.h.Size()
}

// Release frees the texture exactly once. Later calls are no-ops.
func (t *Texture) Release() {
	if t != nil {
		t.h.Release()
	}
}

func (t *Texture) handle() *texcache.Handle {
	if t == nil {
		return nil
	}
	return t.h
}

// NewTexture registers img. The pixels are copied, so img may be reused.
// Nil and empty images are rejected.
func (r *Renderer) NewTexture(img image.Image) (*Texture, error) {
	if r.closed {
		return nil, ErrClosed
	}
	h, err := r.textures.Register(img)
	if err != nil {
		return nil, fmt.Errorf("rendercore: new texture: %w", err)
	}
	return &Texture{h: h}, nil
}

// NewTextureFrom registers the image of src.
func (r *Renderer) NewTextureFrom(src TextureSource) (*Texture, error) {
	if src == nil {
		return nil, fmt.Errorf("rendercore: new texture: %w", ErrEmptyImage)
	}
	return r.NewTexture(src.Image())
}

// ForgetGlyphAtlas frees the GPU copy of a once no submitted frame samples
// it. Call it when the font layer drops an atlas.
func (r *Renderer) ForgetGlyphAtlas(a GlyphAtlas) {
	if r.closed || a == nil {
		return
	}
	r.textures.ForgetAtlas(a)
}
