package main

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/gogpu/rendercore"
	"github.com/gogpu/rendercore/ocean"
)

const (
	dynamicFloats  = 5
	animatedFloats = 6
	orbitalFloats  = 7
	spriteFloats   = 5

	nearPlane = 0.5
	walkSpeed = 6
)

// scene is the benchmark workload: an ocean, dynamic circles and rects
// that move on the CPU, animated rects and orbital particles that live on
// the GPU, and a handful of sprites.
type scene struct {
	rng    *rand.Rand
	width  float32
	height float32

	circles  []float32
	rects    []float32
	velocity []float32
	sprites  []float32

	animated []float32
	orbital  []float32

	ocean   oceanConfig
	blend   ocean.BlendMode
	uniform ocean.Uniform
	tex     *rendercore.Texture
}

func newScene(cfg benchConfig, seed uint64) *scene {
	s := &scene{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		width:  float32(float64(cfg.Width) * cfg.Scale),
		height: float32(float64(cfg.Height) * cfg.Scale),
	}
	n := max(cfg.Instances, 0)
	s.circles = make([]float32, 0, n*dynamicFloats)
	s.rects = make([]float32, 0, n*dynamicFloats)
	s.velocity = make([]float32, 0, n*2)
	for range n {
		s.circles = append(s.circles, s.rng.Float32()*s.width, s.rng.Float32()*s.height, s.rng.Float32(), 2+s.rng.Float32()*6, 0)
		s.rects = append(s.rects, s.rng.Float32()*s.width, s.rng.Float32()*s.height, s.rng.Float32(), 2+s.rng.Float32()*4, s.rng.Float32()*math.Pi)
		s.velocity = append(s.velocity, (s.rng.Float32()-0.5)*120, (s.rng.Float32()-0.5)*120)
	}
	for range n / 4 {
		s.animated = append(s.animated, s.rng.Float32()*s.width, s.rng.Float32()*s.height, s.rng.Float32(), 3+s.rng.Float32()*5, s.rng.Float32()*2*math.Pi, s.rng.Float32()*4-2)
		s.orbital = append(s.orbital, s.rng.Float32()*2*math.Pi, 40+s.rng.Float32()*200, 0.2+s.rng.Float32(), s.rng.Float32()*2*math.Pi, s.rng.Float32()*2*math.Pi, s.rng.Float32(), 1+s.rng.Float32()*3)
	}
	for i := range 16 {
		s.sprites = append(s.sprites, float32(40+i*70), 60, float32(i)*0.3, 24, 0.9)
	}
	s.setOcean(cfg.Ocean)
	return s
}

// setOcean replaces the ocean parameters. The config was validated when
// it was loaded.
func (s *scene) setOcean(c oceanConfig) {
	s.ocean = c
	s.blend, _ = parseBlend(c.Blend)
	s.uniform.Params.Waves = c.waves()
}

// upload creates the GPU-resident parts of the scene.
func (s *scene) upload(r *rendercore.Renderer) error {
	r.UploadAnimatedRects(s.animated, len(s.animated)/animatedFloats)
	r.UploadOrbitalParticles(s.orbital, len(s.orbital)/orbitalFloats, s.width/2, s.height/2)
	r.EnsureOceanIndexBuffer(s.ocean.Grid)
	tex, err := r.NewTexture(gradient(64, 64))
	if err != nil {
		return err
	}
	s.tex = tex
	return nil
}

func (s *scene) release() {
	s.tex.Release()
}

// step advances the CPU-side instances by dt seconds, wrapping at the
// drawable edges.
func (s *scene) step(dt float32) {
	for i := 0; i < len(s.circles); i += dynamicFloats {
		v := s.velocity[i/dynamicFloats*2:]
		s.circles[i] = wrap(s.circles[i]+v[0]*dt, s.width)
		s.circles[i+1] = wrap(s.circles[i+1]+v[1]*dt, s.height)
		s.rects[i] = wrap(s.rects[i]-v[1]*dt, s.width)
		s.rects[i+1] = wrap(s.rects[i+1]+v[0]*dt, s.height)
		s.rects[i+4] += dt
	}
}

// draw records one frame at time t.
func (s *scene) draw(r *rendercore.Renderer, t float32, w, h uint32) {
	r.DrawOceanProjectedGrid(s.oceanUniform(t, w, h))
	r.DrawInstancedCircles(s.circles, len(s.circles)/dynamicFloats)
	r.DrawInstancedRects(s.rects, len(s.rects)/dynamicFloats)
	r.DrawAnimatedRects(t)
	r.DrawOrbitalParticles(t)
	r.DrawSprites(s.tex, s.sprites, len(s.sprites)/spriteFloats, 0, 0)
}

// oceanUniform places the camera on a slow turn, walking forward, and
// fills the uniform block for a w×h drawable.
func (s *scene) oceanUniform(t float32, w, h uint32) *ocean.Uniform {
	c := &s.ocean
	yaw := t * c.OrbitSpeed * 2 * math.Pi
	eye := ocean.Vec3{
		X: sin32(yaw) * walkSpeed * t,
		Y: c.CameraHeight,
		Z: -cos32(yaw) * walkSpeed * t,
	}
	aspect := float32(1)
	if h > 0 {
		aspect = float32(w) / float32(h)
	}

	p := &s.uniform.Params
	p.GridSize = c.Grid
	p.Time = t
	p.FOV = c.FOV
	p.Aspect = aspect
	p.MaxDistance = c.MaxDistance
	p.SnapSize = c.SnapSize
	p.Overscan = c.Overscan
	p.HorizonMargin = c.HorizonMargin
	p.Yaw = yaw
	p.Pitch = c.Pitch
	p.Camera = eye
	p.Blend = s.blend
	p.SeamRadius = c.SeamRadius
	p.SeamWidth = c.SeamWidth

	sc := &s.uniform.Scene
	sc.MVP = mul(perspective(c.FOV, aspect, nearPlane, c.MaxDistance), view(eye, yaw, c.Pitch))
	sc.Model = identity()
	sc.Light = [3]float32{0.3, 0.8, 0.5}
	sc.Ambient = 0.25
	sc.FogStart = c.MaxDistance * 0.4
	sc.FogEnd = c.MaxDistance
	sc.FogColor = [3]float32{0.62, 0.72, 0.82}
	return &s.uniform
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(255 * x / (w - 1)), //nolint:gosec // bounded by 255
				G: uint8(255 * y / (h - 1)), //nolint:gosec // bounded by 255
				B: 200,
				A: 255,
			})
		}
	}
	return img
}

func wrap(v, limit float32) float32 {
	if limit <= 0 {
		return v
	}
	for v < 0 {
		v += limit
	}
	for v >= limit {
		v -= limit
	}
	return v
}

// Matrices are column-major, matching WGSL mat4x4.

func identity() [16]float32 {
	return [16]float32{0: 1, 5: 1, 10: 1, 15: 1}
}

// perspective maps view depth [near, far] to clip depth [0, 1].
func perspective(fovY, aspect, near, far float32) [16]float32 {
	f := 1 / float32(math.Tan(float64(fovY)/2))
	var m [16]float32
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = near * far / (near - far)
	return m
}

// view is the inverse of the camera rotation Ry(yaw)·Rx(pitch) at eye,
// the same orientation ocean.ViewRay uses.
func view(eye ocean.Vec3, yaw, pitch float32) [16]float32 {
	cy, sy := cos32(yaw), sin32(yaw)
	cp, sp := cos32(pitch), sin32(pitch)
	right := ocean.Vec3{X: cy, Z: sy}
	up := ocean.Vec3{X: -sp * sy, Y: cp, Z: sp * cy}
	back := ocean.Vec3{X: -cp * sy, Y: -sp, Z: cp * cy}
	return [16]float32{
		right.X, up.X, back.X, 0,
		right.Y, up.Y, back.Y, 0,
		right.Z, up.Z, back.Z, 0,
		-right.Dot(eye), -up.Dot(eye), -back.Dot(eye), 1,
	}
}

func mul(a, b [16]float32) [16]float32 {
	var m [16]float32
	for c := range 4 {
		for r := range 4 {
			var sum float32
			for k := range 4 {
				sum += a[k*4+r] * b[c*4+k]
			}
			m[c*4+r] = sum
		}
	}
	return m
}

func sin32(x float32) float32 { return float32(math.Sin(float64(x))) }
func cos32(x float32) float32 { return float32(math.Cos(float64(x))) }
