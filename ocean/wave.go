package ocean

import "math"

// MaxWaves is the number of Gerstner wave slots in the uniform block.
const MaxWaves = 4

// ParamsPerWave is the number of floats per wave in the packed parameter array.
const ParamsPerWave = 8

// Wave describes one Gerstner wave.
//
// The wave contributes Amplitude·cos(phase) along its direction horizontally
// and Amplitude·sin(phase) vertically, where
// phase = Wavenumber·(Direction·position) − Speed·time.
type Wave struct {
	// DirX, DirZ is the unit travel direction on the water plane.
	DirX, DirZ float32

	// Wavenumber is 2π / wavelength.
	Wavenumber float32

	// Speed is the angular speed in radians per second.
	Speed float32

	// Amplitude is the crest height in world units. Zero disables the wave.
	Amplitude float32

	// Steepness in [0, 1] sharpens crest highlights in the water color.
	Steepness float32
}

// Waves is the fixed set of wave slots sent to the GPU.
type Waves [MaxWaves]Wave

// WavesFromParams decodes the packed parameter array used by the public draw
// call. Each wave occupies ParamsPerWave floats:
//
//	dirX, dirZ, wavenumber, speed, amplitude, steepness, unused, unused
//
// Directions are normalized; a zero direction is kept as is.
func WavesFromParams(p [MaxWaves * ParamsPerWave]float32) Waves {
	var w Waves
	for i := range w {
		o := i * ParamsPerWave
		dx, dz := p[o], p[o+1]
		if l := float32(math.Hypot(float64(dx), float64(dz))); l > 0 {
			dx /= l
			dz /= l
		}
		w[i] = Wave{
			DirX:       dx,
			DirZ:       dz,
			Wavenumber: p[o+2],
			Speed:      p[o+3],
			Amplitude:  p[o+4],
			Steepness:  clamp(p[o+5], 0, 1),
		}
	}
	return w
}

// Params encodes the waves back into the packed parameter layout.
func (w *Waves) Params() [MaxWaves * ParamsPerWave]float32 {
	var p [MaxWaves * ParamsPerWave]float32
	for i, wv := range w {
		o := i * ParamsPerWave
		p[o] = wv.DirX
		p[o+1] = wv.DirZ
		p[o+2] = wv.Wavenumber
		p[o+3] = wv.Speed
		p[o+4] = wv.Amplitude
		p[o+5] = wv.Steepness
	}
	return p
}

// TotalAmplitude returns the sum of absolute wave amplitudes, the largest
// vertical or horizontal excursion the superposition can produce.
func (w *Waves) TotalAmplitude() float32 {
	var sum float32
	for _, wv := range w {
		if wv.Amplitude < 0 {
			sum -= wv.Amplitude
		} else {
			sum += wv.Amplitude
		}
	}
	return sum
}

// MaxSteepness returns the largest steepness among active waves.
func (w *Waves) MaxSteepness() float32 {
	var m float32
	for _, wv := range w {
		if wv.Amplitude != 0 && wv.Steepness > m {
			m = wv.Steepness
		}
	}
	return m
}

// Displace applies the Gerstner superposition to the flat sample (x, 0, z)
// at time t and returns the displaced position and the unit surface normal.
//
// The normal is the cross product of the analytic tangents ∂P/∂z and ∂P/∂x,
// accumulated per wave, so no neighbor sampling is needed. With every
// amplitude at zero the input position is returned unchanged with normal
// (0, 1, 0).
func Displace(x, z float32, waves *Waves, t float32) (pos, normal Vec3) {
	pos = Vec3{X: x, Z: z}
	tx := Vec3{X: 1}
	tz := Vec3{Z: 1}

	for _, w := range waves {
		if w.Amplitude == 0 {
			continue
		}
		phase := w.Wavenumber*(w.DirX*x+w.DirZ*z) - w.Speed*t
		c := cos32(phase)
		s := sin32(phase)

		pos.X += w.DirX * w.Amplitude * c
		pos.Y += w.Amplitude * s
		pos.Z += w.DirZ * w.Amplitude * c

		// d(phase)/dx = k·dirX, d(phase)/dz = k·dirZ.
		ka := w.Wavenumber * w.Amplitude
		tx.X -= w.DirX * w.DirX * ka * s
		tx.Y += w.DirX * ka * c
		tx.Z -= w.DirZ * w.DirX * ka * s

		tz.X -= w.DirX * w.DirZ * ka * s
		tz.Y += w.DirZ * ka * c
		tz.Z -= w.DirZ * w.DirZ * ka * s
	}

	normal = tz.Cross(tx).Normalize()
	return pos, normal
}

// Height returns only the vertical displacement at (x, z), time t.
func Height(x, z float32, waves *Waves, t float32) float32 {
	var y float32
	for _, w := range waves {
		if w.Amplitude == 0 {
			continue
		}
		y += w.Amplitude * sin32(w.Wavenumber*(w.DirX*x+w.DirZ*z)-w.Speed*t)
	}
	return y
}

var (
	deepColor    = [3]float32{0.02, 0.09, 0.18}
	shallowColor = [3]float32{0.05, 0.32, 0.42}
	foamColor    = [3]float32{0.90, 0.95, 1.00}
)

// WaterColor derives the base water color from the displaced height.
//
// The height is normalized against totalAmp into [0, 1] and blends deep to
// shallow water; crests above 75% mix toward foam, scaled by steepness.
// A flat sea (totalAmp = 0) sits at the midpoint.
func WaterColor(height, totalAmp, steepness float32) [3]float32 {
	h := float32(0.5)
	if totalAmp > 0 {
		h = clamp(height/(2*totalAmp)+0.5, 0, 1)
	}
	foam := smoothstep(0.75, 1, h) * clamp(steepness, 0, 1) * 0.6

	var c [3]float32
	for i := range c {
		base := mix(deepColor[i], shallowColor[i], h)
		c[i] = mix(base, foamColor[i], foam)
	}
	return c
}
