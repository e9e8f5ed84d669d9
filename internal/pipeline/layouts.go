package pipeline

import "github.com/gogpu/gputypes"

// Record and vertex strides in bytes.
const (
	// BaseVertexStride is x, y, r, g, b, a.
	BaseVertexStride = 24

	// DynamicStride is x, y, hue, halfSize|radius, rotation.
	DynamicStride = 20

	// AnimatedStride is x, y, hue, halfSize, phase, spinSpeed.
	AnimatedStride = 24

	// OrbitalStride is phase, orbitRadius, orbitSpeed, wobblePhase,
	// spinPhase, hue, halfSize.
	OrbitalStride = 28

	// SpriteStride is x, y, rotation, halfSize, alpha.
	SpriteStride = 20

	// GlyphVertexStride is x, y, u, v, r, g, b, a.
	GlyphVertexStride = 32

	// MeshVertexStride is position xyz, normal xyz, uv, color rgba.
	MeshVertexStride = 48
)

// Floats per record, derived from the strides.
const (
	BaseVertexFloats  = BaseVertexStride / 4
	DynamicFloats     = DynamicStride / 4
	AnimatedFloats    = AnimatedStride / 4
	OrbitalFloats     = OrbitalStride / 4
	SpriteFloats      = SpriteStride / 4
	GlyphVertexFloats = GlyphVertexStride / 4
	MeshVertexFloats  = MeshVertexStride / 4
)

// UniformSlotSize is the stride of one dynamic-offset uniform slot. Every
// uniform block in the shaders fits in a slot, and the stride satisfies the
// 256-byte dynamic offset alignment.
const UniformSlotSize = 512

func baseVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: BaseVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1}, // color
			},
		},
	}
}

func dynamicInstanceLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: DynamicStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32, Offset: 8, ShaderLocation: 1},   // hue
				{Format: gputypes.VertexFormatFloat32, Offset: 12, ShaderLocation: 2},  // size
				{Format: gputypes.VertexFormatFloat32, Offset: 16, ShaderLocation: 3},  // rotation
			},
		},
	}
}

func animatedInstanceLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: AnimatedStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32, Offset: 8, ShaderLocation: 1},
				{Format: gputypes.VertexFormatFloat32, Offset: 12, ShaderLocation: 2},
				{Format: gputypes.VertexFormatFloat32, Offset: 16, ShaderLocation: 3},
				{Format: gputypes.VertexFormatFloat32, Offset: 20, ShaderLocation: 4},
			},
		},
	}
}

func orbitalInstanceLayout() []gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, OrbitalFloats)
	for i := range attrs {
		attrs[i] = gputypes.VertexAttribute{
			Format:         gputypes.VertexFormatFloat32,
			Offset:         uint64(i * 4), //nolint:gosec // i < 7
			ShaderLocation: uint32(i),     //nolint:gosec // i < 7
		}
	}
	return []gputypes.VertexBufferLayout{
		{ArrayStride: OrbitalStride, StepMode: gputypes.VertexStepModeInstance, Attributes: attrs},
	}
}

func spriteInstanceLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: SpriteStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32, Offset: 8, ShaderLocation: 1},   // rotation
				{Format: gputypes.VertexFormatFloat32, Offset: 12, ShaderLocation: 2},  // size
				{Format: gputypes.VertexFormatFloat32, Offset: 16, ShaderLocation: 3},  // alpha
			},
		},
	}
}

func glyphVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: GlyphVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // uv
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2}, // color
			},
		},
	}
}

func meshVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: MeshVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1}, // normal
				{Format: gputypes.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2}, // uv
				{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3}, // color
			},
		},
	}
}
