package ocean

import (
	"encoding/binary"
	"math"
)

// UniformSize is the byte size of the packed ocean uniform block.
//
// Layout (16-byte rows, matching OceanUniforms in ocean.wgsl):
//
//	  0 mvp        mat4x4
//	 64 model      mat4x4
//	128 light      xyz, ambient
//	144 camera     xyz, time
//	160 fog        start, end, fov, aspect
//	176 fog_color  rgb, max_distance
//	192 grid_a     snap, overscan, horizon, yaw
//	208 grid_b     pitch, grid_size, near_extent, blend_mode
//	224 seam       radius, width, total_amp, max_steepness
//	240 waves      4 × (dir.x, dir.z, k, omega), (amp, steepness, 0, 0)
const UniformSize = 368

// Scene is the lighting and transform part of the ocean uniform block.
type Scene struct {
	MVP      [16]float32
	Model    [16]float32
	Light    [3]float32
	Ambient  float32
	FogStart float32
	FogEnd   float32
	FogColor [3]float32
}

// Uniform is the full per-draw ocean uniform block.
type Uniform struct {
	Scene  Scene
	Params Params
}

// AppendBytes appends the little-endian packed block to dst.
func (u *Uniform) AppendBytes(dst []byte) []byte {
	s := &u.Scene
	p := &u.Params
	radius, width, near := p.seam()
	blend := float32(0)
	if near {
		blend = float32(p.Blend)
	}

	f := func(vals ...float32) {
		for _, v := range vals {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
		}
	}

	f(s.MVP[:]...)
	f(s.Model[:]...)
	f(s.Light[0], s.Light[1], s.Light[2], s.Ambient)
	f(p.Camera.X, p.Camera.Y, p.Camera.Z, p.Time)
	f(s.FogStart, s.FogEnd, p.FOV, p.Aspect)
	f(s.FogColor[0], s.FogColor[1], s.FogColor[2], p.MaxDistance)
	f(p.SnapSize, p.Overscan, p.HorizonMargin, p.Yaw)
	f(p.Pitch, float32(p.GridSize), p.NearExtent, blend)
	f(radius, width, p.Waves.TotalAmplitude(), p.Waves.MaxSteepness())
	for _, w := range p.Waves {
		f(w.DirX, w.DirZ, w.Wavenumber, w.Speed)
		f(w.Amplitude, w.Steepness, 0, 0)
	}
	return dst
}
