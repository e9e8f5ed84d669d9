package frame

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// targetSet holds the offscreen attachments of one antialias mode: an
// optional multisampled color texture that resolves into the surface, and
// a depth texture with the same sample count.
//
// Each mode keeps its own set so toggling antialiasing never destroys the
// other mode's textures; a set is rebuilt only when its size changes.
type targetSet struct {
	colorTex  hal.Texture
	colorView hal.TextureView
	depthTex  hal.Texture
	depthView hal.TextureView
	width     uint32
	height    uint32
}

// targetFormats describes how a targetSet is built.
type targetFormats struct {
	color   gputypes.TextureFormat
	depth   gputypes.TextureFormat
	samples uint32
	label   string
}

// ensure creates or recreates the textures if w×h differs from the cached
// size. It reports whether anything was created.
func (ts *targetSet) ensure(device hal.Device, w, h uint32, f targetFormats) (bool, error) {
	if ts.width == w && ts.height == h && ts.depthTex != nil {
		return false, nil
	}
	ts.destroy(device)

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if f.samples > 1 {
		colorTex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         f.label + "_msaa_color",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   f.samples,
			Dimension:     gputypes.TextureDimension2D,
			Format:        f.color,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return false, fmt.Errorf("create MSAA color texture: %w", err)
		}
		ts.colorTex = colorTex

		colorView, err := device.CreateTextureView(colorTex, &hal.TextureViewDescriptor{
			Label: f.label + "_msaa_color_view",
		})
		if err != nil {
			ts.destroy(device)
			return false, fmt.Errorf("create MSAA color view: %w", err)
		}
		ts.colorView = colorView
	}

	depthTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         f.label + "_depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   f.samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        f.depth,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		ts.destroy(device)
		return false, fmt.Errorf("create depth texture: %w", err)
	}
	ts.depthTex = depthTex

	depthView, err := device.CreateTextureView(depthTex, &hal.TextureViewDescriptor{
		Label: f.label + "_depth_view",
	})
	if err != nil {
		ts.destroy(device)
		return false, fmt.Errorf("create depth view: %w", err)
	}
	ts.depthView = depthView

	ts.width = w
	ts.height = h
	return true, nil
}

// destroy releases all textures and resets the cached size.
func (ts *targetSet) destroy(device hal.Device) {
	if ts.depthView != nil {
		device.DestroyTextureView(ts.depthView)
		ts.depthView = nil
	}
	if ts.depthTex != nil {
		device.DestroyTexture(ts.depthTex)
		ts.depthTex = nil
	}
	if ts.colorView != nil {
		device.DestroyTextureView(ts.colorView)
		ts.colorView = nil
	}
	if ts.colorTex != nil {
		device.DestroyTexture(ts.colorTex)
		ts.colorTex = nil
	}
	ts.width = 0
	ts.height = 0
}
