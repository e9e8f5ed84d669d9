package frame

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/pipeline"
)

// Context is the state of the one open frame. It is created by
// BeginFrame and invalidated by EndFrame; draw encoders must not keep it.
type Context struct {
	// Index is the frame number, starting at 1.
	Index uint64

	Encoder hal.CommandEncoder
	Pass    hal.RenderPassEncoder

	// SurfaceTexture and View are the acquired swapchain image.
	SurfaceTexture hal.SurfaceTexture
	View           hal.TextureView

	// Antialias is the mode the pass was opened with.
	Antialias bool

	// Width and Height are the drawable size in pixels.
	Width, Height uint32

	// Scale is the effective drawable scale.
	Scale float64

	registry *pipeline.Registry
	mode     pipeline.AAMode
	bound    hal.RenderPipeline
}

// Variant returns the variant of kind matching the pass sample count: the
// registry's active variant, unless antialiasing was toggled after the
// pass began, in which case the open pass keeps its own mode.
func (c *Context) Variant(kind pipeline.DrawKind) *pipeline.Variant {
	if pipeline.ModeFor(c.registry.Antialias()) == c.mode {
		return c.registry.ActiveVariant(kind)
	}
	return c.registry.Variant(kind, c.mode)
}

// Bind sets the pipeline of kind on the pass unless it is already bound,
// and returns the variant.
func (c *Context) Bind(kind pipeline.DrawKind) *pipeline.Variant {
	v := c.Variant(kind)
	if c.bound != v.Pipeline {
		c.Pass.SetPipeline(v.Pipeline)
		c.bound = v.Pipeline
	}
	return v
}

// BindBase restores the base colored-triangle pipeline.
func (c *Context) BindBase() {
	c.Bind(pipeline.KindBase)
}

// Bound returns the pipeline currently set on the pass.
func (c *Context) Bound() hal.RenderPipeline { return c.bound }
