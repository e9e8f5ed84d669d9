// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pipeline holds the precompiled render pipelines of the renderer,
// one per (DrawKind, AAMode) pair.
//
// Every pipeline is created up front by New. Switching antialiasing swaps
// the active row of the table; no pipeline is created or compiled after
// construction.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/logging"
)

// ErrPipelineCreation wraps every construction failure of the registry.
var ErrPipelineCreation = errors.New("pipeline: creation failed")

// Defaults for Config.
const (
	DefaultColorFormat = gputypes.TextureFormatBGRA8Unorm
	DefaultDepthFormat = gputypes.TextureFormatDepth24Plus
	DefaultSampleCount = 4
)

const (
	singleSampleCount = 1
	allSamplesMask    = 0xFFFFFFFF
)

// Config describes the render targets the pipelines are built for.
// Zero fields take the defaults.
type Config struct {
	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat
	SampleCount uint32
}

func (c Config) withDefaults() Config {
	if c.ColorFormat == gputypes.TextureFormatUndefined {
		c.ColorFormat = DefaultColorFormat
	}
	if c.DepthFormat == gputypes.TextureFormatUndefined {
		c.DepthFormat = DefaultDepthFormat
	}
	if c.SampleCount == 0 {
		c.SampleCount = DefaultSampleCount
	}
	return c
}

// SampleCountFor returns the sample count used by mode.
func (c Config) SampleCountFor(mode AAMode) uint32 {
	if mode == AAOn {
		return c.SampleCount
	}
	return singleSampleCount
}

// Variant is one compiled pipeline. Variants are immutable; the registry
// hands out the same pointer for the lifetime of the registry.
type Variant struct {
	Kind        DrawKind
	Mode        AAMode
	SampleCount uint32
	Textured    bool
	Pipeline    hal.RenderPipeline
}

// Label returns the pipeline label, e.g. "sprite_aa".
func (v *Variant) Label() string {
	return v.Kind.String() + "_" + v.Mode.String()
}

// Registry is the table of precompiled variants. It is driven by the render
// thread only.
type Registry struct {
	device hal.Device
	cfg    Config

	modules        [numShaders]hal.ShaderModule
	uniformLayout  hal.BindGroupLayout
	textureLayout  hal.BindGroupLayout
	plainLayout    hal.PipelineLayout
	texturedLayout hal.PipelineLayout

	table  [numAAModes][numKinds]*Variant
	active *[numKinds]*Variant
}

// New validates every shader module and creates all pipelines. On any
// failure the partially created objects are destroyed and the returned error
// wraps ErrPipelineCreation.
func New(device hal.Device, cfg Config) (*Registry, error) {
	return newWithSources(device, cfg, DefaultSources())
}

func newWithSources(device hal.Device, cfg Config, src Sources) (*Registry, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil device", ErrPipelineCreation)
	}
	r := &Registry{device: device, cfg: cfg.withDefaults()}
	if err := r.build(src); err != nil {
		r.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrPipelineCreation, err)
	}
	r.active = &r.table[AAOff]
	logging.Logger().Debug("pipeline: registry ready",
		"variants", NumKinds*int(numAAModes), "samples", r.cfg.SampleCount)
	return r, nil
}

// Config returns the effective configuration.
func (r *Registry) Config() Config { return r.cfg }

// ActiveVariant returns the variant of kind for the current antialias mode.
// An open frame uses it while its pass was begun in that mode.
func (r *Registry) ActiveVariant(kind DrawKind) *Variant {
	return r.active[kind]
}

// Variant returns the variant of kind for mode.
func (r *Registry) Variant(kind DrawKind, mode AAMode) *Variant {
	return r.table[mode][kind]
}

// SetAntialias switches the active row for every kind at once.
func (r *Registry) SetAntialias(on bool) {
	r.active = &r.table[ModeFor(on)]
}

// Antialias reports whether the multisampled row is active.
func (r *Registry) Antialias() bool {
	return r.active == &r.table[AAOn]
}

// UniformLayout is the group 0 layout: one uniform buffer with a dynamic offset.
func (r *Registry) UniformLayout() hal.BindGroupLayout { return r.uniformLayout }

// TextureLayout is the group 1 layout: a filterable 2D texture and its sampler.
func (r *Registry) TextureLayout() hal.BindGroupLayout { return r.textureLayout }

// Destroy releases every pipeline, layout and module in reverse creation
// order. Safe to call more than once.
func (r *Registry) Destroy() {
	if r.device == nil {
		return
	}
	for m := range r.table {
		for k, v := range r.table[m] {
			if v != nil && v.Pipeline != nil {
				r.device.DestroyRenderPipeline(v.Pipeline)
			}
			r.table[m][k] = nil
		}
	}
	if r.texturedLayout != nil {
		r.device.DestroyPipelineLayout(r.texturedLayout)
		r.texturedLayout = nil
	}
	if r.plainLayout != nil {
		r.device.DestroyPipelineLayout(r.plainLayout)
		r.plainLayout = nil
	}
	if r.textureLayout != nil {
		r.device.DestroyBindGroupLayout(r.textureLayout)
		r.textureLayout = nil
	}
	if r.uniformLayout != nil {
		r.device.DestroyBindGroupLayout(r.uniformLayout)
		r.uniformLayout = nil
	}
	for i, m := range r.modules {
		if m != nil {
			r.device.DestroyShaderModule(m)
			r.modules[i] = nil
		}
	}
	r.active = nil
}

func (r *Registry) build(src Sources) error {
	for id := ShaderID(0); id < numShaders; id++ {
		if err := validateShader(id, src[id], requiredEntryPoints(id)); err != nil {
			return err
		}
		module, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  id.String() + "_shader",
			Source: hal.ShaderSource{WGSL: src[id]},
		})
		if err != nil {
			return fmt.Errorf("compile %s shader: %w", id, err)
		}
		r.modules[id] = module
	}

	if err := r.createLayouts(); err != nil {
		return err
	}

	for mode := AAMode(0); mode < numAAModes; mode++ {
		for kind := DrawKind(0); kind < numKinds; kind++ {
			v, err := r.createVariant(kind, mode)
			if err != nil {
				return err
			}
			r.table[mode][kind] = v
		}
	}
	return nil
}

func (r *Registry) createLayouts() error {
	uniformLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create uniform layout: %w", err)
	}
	r.uniformLayout = uniformLayout

	textureLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create texture layout: %w", err)
	}
	r.textureLayout = textureLayout

	plain, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "plain_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("create plain pipeline layout: %w", err)
	}
	r.plainLayout = plain

	textured, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "textured_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.uniformLayout, r.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create textured pipeline layout: %w", err)
	}
	r.texturedLayout = textured
	return nil
}

func (r *Registry) createVariant(kind DrawKind, mode AAMode) (*Variant, error) {
	spec := kindSpecs[kind]
	samples := r.cfg.SampleCountFor(mode)

	layout := r.plainLayout
	if spec.textured {
		layout = r.texturedLayout
	}

	var blend *gputypes.BlendState
	if spec.blend == blendPremultiplied {
		premulBlend := gputypes.BlendStatePremultiplied()
		blend = &premulBlend
	}

	depth := &hal.DepthStencilState{
		Format:           r.cfg.DepthFormat,
		StencilFront:     stencilKeep(),
		StencilBack:      stencilKeep(),
		StencilReadMask:  0x00,
		StencilWriteMask: 0x00,
	}
	if spec.depthTest {
		depth.DepthWriteEnabled = true
		depth.DepthCompare = gputypes.CompareFunctionLess
	} else {
		depth.DepthCompare = gputypes.CompareFunctionAlways
	}

	v := &Variant{Kind: kind, Mode: mode, SampleCount: samples, Textured: spec.textured}
	pipeline, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  v.Label(),
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     r.modules[spec.shader],
			EntryPoint: spec.vs,
			Buffers:    spec.buffers(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.modules[spec.shader],
			EntryPoint: spec.fs,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    r.cfg.ColorFormat,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: depth,
		Primitive: gputypes.PrimitiveState{
			Topology:  spec.topology,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  spec.cull,
		},
		Multisample: gputypes.MultisampleState{
			Count: samples,
			Mask:  allSamplesMask,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", v.Label(), err)
	}
	v.Pipeline = pipeline
	return v, nil
}

func stencilKeep() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}
