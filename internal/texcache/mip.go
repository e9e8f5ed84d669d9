package texcache

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// toRGBA copies img into a premultiplied RGBA image anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// mipCount returns the number of levels of a full chain down to 1×1.
func mipCount(w, h int) int {
	return 1 + int(math.Floor(math.Log2(float64(max(w, h, 1)))))
}

// buildMips returns level 0 followed by successively halved levels down
// to 1×1. Level 0 is base itself, not a copy.
func buildMips(base *image.RGBA) []*image.RGBA {
	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	levels := make([]*image.RGBA, mipCount(w, h))
	levels[0] = base
	for i := 1; i < len(levels); i++ {
		prev := levels[i-1]
		pw, ph := prev.Bounds().Dx(), prev.Bounds().Dy()
		dst := image.NewRGBA(image.Rect(0, 0, max(1, pw/2), max(1, ph/2)))
		draw.BiLinear.Scale(dst, dst.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		levels[i] = dst
	}
	return levels
}

// chainBytes is the GPU footprint of a chain at 4 bytes per texel.
func chainBytes(levels []*image.RGBA) uint64 {
	var n uint64
	for _, l := range levels {
		n += uint64(len(l.Pix))
	}
	return n
}

// packAlpha returns the mask rows without stride padding.
func packAlpha(m *image.Alpha) []byte {
	w, h := m.Bounds().Dx(), m.Bounds().Dy()
	if m.Stride == w && len(m.Pix) == w*h {
		return m.Pix
	}
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y+y)
		copy(out[y*w:(y+1)*w], m.Pix[off:off+w])
	}
	return out
}
