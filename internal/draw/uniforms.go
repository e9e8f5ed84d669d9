package draw

import (
	"encoding/binary"
	"math"
)

// Uniform block sizes in bytes.
const (
	// FrameUniformSize is canvas, center and tint, three vec4s.
	FrameUniformSize = 48

	// MeshUniformSize is mvp, model, light, fog and fog color.
	MeshUniformSize = 176
)

// frameUniform is the block shared by the shape, sprite and glyph shaders.
type frameUniform struct {
	width, height float32
	time          float32
	hueSpeed      float32
	centerX       float32
	centerY       float32
}

func (u *frameUniform) appendBytes(dst []byte) []byte {
	dst = appendFloats(dst, u.width, u.height, u.time, u.hueSpeed)
	dst = appendFloats(dst, u.centerX, u.centerY, 0, 0)
	return appendFloats(dst, 1, 1, 1, 1)
}

// Fog is linear distance fog applied between Start and End.
type Fog struct {
	Start float32
	End   float32
	Color [3]float32
}

// enabled reports whether the range is usable.
func (f Fog) enabled() bool { return f.End > f.Start }

// MeshUniforms are the per-draw inputs of the mesh shaders. Matrices are
// column-major. LightDir points toward the light.
type MeshUniforms struct {
	MVP      [16]float32
	Model    [16]float32
	LightDir [3]float32
	Ambient  float32
	Fog      Fog
}

func (u *MeshUniforms) appendBytes(dst []byte, fog bool) []byte {
	enabled := float32(0)
	if fog {
		enabled = 1
	}
	dst = appendFloats(dst, u.MVP[:]...)
	dst = appendFloats(dst, u.Model[:]...)
	dst = appendFloats(dst, u.LightDir[0], u.LightDir[1], u.LightDir[2], u.Ambient)
	dst = appendFloats(dst, u.Fog.Start, u.Fog.End, enabled, 0)
	return appendFloats(dst, u.Fog.Color[0], u.Fog.Color[1], u.Fog.Color[2], 1)
}

func appendFloats(dst []byte, vals ...float32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func appendUint32s(dst []byte, vals []uint32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}
