package rendercore

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/internal/draw"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
	"github.com/gogpu/rendercore/internal/texcache"
)

// Defaults applied by CreateRenderer.
const (
	// DefaultSampleCount is the MSAA sample count.
	DefaultSampleCount = pipeline.DefaultSampleCount

	// DefaultFramesInFlight is the number of uniform arena sets rotated
	// across frames.
	DefaultFramesInFlight = draw.DefaultFramesInFlight

	// DefaultTextureBudget is the resident texture byte budget.
	DefaultTextureBudget = texcache.DefaultBudget

	// DefaultHueCycleSpeed is the hue rotation of the shape shaders in
	// turns per second.
	DefaultHueCycleSpeed = 0.1
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := rendercore.CreateRenderer(target,
//	    rendercore.WithMSAA(true),
//	    rendercore.WithFramesInFlight(2),
//	)
type Option func(*options)

// PoolLimits bounds the transient buffer pool. Zero fields take the
// pool defaults.
type PoolLimits struct {
	// MaxSlots is the number of buffers retained per category.
	MaxSlots int `toml:"max_slots"`

	// MinBufferSize is the smallest buffer allocated, in bytes.
	MinBufferSize uint64 `toml:"min_buffer_size"`

	// MaxBufferSize is the largest power-of-two size class, in bytes.
	MaxBufferSize uint64 `toml:"max_buffer_size"`
}

type options struct {
	msaa           bool
	sampleCount    uint32
	pool           PoolLimits
	framesInFlight int
	textureBudget  uint64
	hueCycleSpeed  float32
	surfaceFormat  gputypes.TextureFormat
	depthFormat    gputypes.TextureFormat
	presentMode    gputypes.PresentMode
}

func defaultOptions() options {
	return options{
		msaa:           true,
		sampleCount:    DefaultSampleCount,
		framesInFlight: DefaultFramesInFlight,
		textureBudget:  DefaultTextureBudget,
		hueCycleSpeed:  DefaultHueCycleSpeed,
		presentMode:    gputypes.PresentModeFifo,
	}
}

func (o options) poolConfig() pool.Config {
	return pool.Config{
		MaxSlots:      o.pool.MaxSlots,
		MinBufferSize: o.pool.MinBufferSize,
		MaxBufferSize: o.pool.MaxBufferSize,
	}
}

// WithMSAA selects whether the renderer starts multisampled. It can be
// switched later with SetMSAAEnabled.
func WithMSAA(enabled bool) Option {
	return func(o *options) {
		o.msaa = enabled
	}
}

// WithSampleCount sets the MSAA sample count. Values other than 2, 4 and 8
// are ignored.
func WithSampleCount(n uint32) Option {
	return func(o *options) {
		switch n {
		case 2, 4, 8:
			o.sampleCount = n
		}
	}
}

// WithPool bounds the transient buffer pool.
func WithPool(limits PoolLimits) Option {
	return func(o *options) {
		o.pool = limits
	}
}

// WithFramesInFlight sets how many frames of uniform memory are kept
// before a set is reused. Values below 1 are ignored.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.framesInFlight = n
		}
	}
}

// WithTextureBudget sets the resident texture byte budget. Zero keeps the
// default.
func WithTextureBudget(bytes uint64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.textureBudget = bytes
		}
	}
}

// WithHueCycleSpeed sets the hue rotation of the shape shaders in turns per
// second. Zero disables the cycling.
func WithHueCycleSpeed(speed float32) Option {
	return func(o *options) {
		o.hueCycleSpeed = speed
	}
}

// WithSurfaceFormat overrides the color format of the surface and every
// pipeline. TextureFormatUndefined keeps the target's format.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.surfaceFormat = f
	}
}

// WithDepthFormat overrides the depth attachment format.
func WithDepthFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.depthFormat = f
	}
}

// WithPresentMode sets the surface present mode.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(o *options) {
		if m != gputypes.PresentModeUndefined {
			o.presentMode = m
		}
	}
}
