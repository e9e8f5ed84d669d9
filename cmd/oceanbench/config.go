package main

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/rendercore"
	"github.com/gogpu/rendercore/ocean"
)

// benchConfig is the TOML file read by oceanbench. Only the [ocean]
// table is reloaded while running.
type benchConfig struct {
	Frames    int               `toml:"frames"`
	Width     int               `toml:"width"`
	Height    int               `toml:"height"`
	Scale     float64           `toml:"scale"`
	Instances int               `toml:"instances"`
	Renderer  rendercore.Config `toml:"renderer"`
	Ocean     oceanConfig       `toml:"ocean"`
}

type waveConfig struct {
	Direction  [2]float32 `toml:"direction"`
	Wavelength float32    `toml:"wavelength"`
	Speed      float32    `toml:"speed"`
	Amplitude  float32    `toml:"amplitude"`
	Steepness  float32    `toml:"steepness"`
}

type oceanConfig struct {
	Grid          int          `toml:"grid"`
	FOV           float32      `toml:"fov"`
	MaxDistance   float32      `toml:"max_distance"`
	SnapSize      float32      `toml:"snap_size"`
	Overscan      float32      `toml:"overscan"`
	HorizonMargin float32      `toml:"horizon_margin"`
	CameraHeight  float32      `toml:"camera_height"`
	Pitch         float32      `toml:"pitch"`
	OrbitSpeed    float32      `toml:"orbit_speed"`
	Blend         string       `toml:"blend"`
	SeamRadius    float32      `toml:"seam_radius"`
	SeamWidth     float32      `toml:"seam_width"`
	Waves         []waveConfig `toml:"waves"`
}

func defaultBenchConfig() benchConfig {
	return benchConfig{
		Frames:    600,
		Width:     1280,
		Height:    720,
		Scale:     1,
		Instances: 2000,
		Ocean: oceanConfig{
			Grid:          128,
			FOV:           1.0,
			MaxDistance:   4000,
			SnapSize:      4,
			Overscan:      0.1,
			HorizonMargin: 0.05,
			CameraHeight:  14,
			Pitch:         -0.22,
			OrbitSpeed:    0.05,
			Blend:         "far",
			Waves: []waveConfig{
				{Direction: [2]float32{1, 0.2}, Wavelength: 60, Speed: 1.0, Amplitude: 0.9, Steepness: 0.6},
				{Direction: [2]float32{0.3, 1}, Wavelength: 31, Speed: 1.4, Amplitude: 0.45, Steepness: 0.5},
				{Direction: [2]float32{-0.7, 0.4}, Wavelength: 18, Speed: 1.9, Amplitude: 0.25, Steepness: 0.4},
				{Direction: [2]float32{0.2, -1}, Wavelength: 9, Speed: 2.6, Amplitude: 0.1, Steepness: 0.3},
			},
		},
	}
}

// loadBenchConfig reads path over the defaults. An empty path returns the
// defaults.
func loadBenchConfig(path string) (benchConfig, error) {
	c := defaultBenchConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is a command-line flag
	if err != nil {
		return c, fmt.Errorf("oceanbench: %w", err)
	}
	return parseBenchConfig(data)
}

func parseBenchConfig(data []byte) (benchConfig, error) {
	c := defaultBenchConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("oceanbench: parse config: %w", err)
	}
	if err := c.Renderer.Validate(); err != nil {
		return c, err
	}
	if len(c.Ocean.Waves) > ocean.MaxWaves {
		return c, fmt.Errorf("oceanbench: %d waves, at most %d", len(c.Ocean.Waves), ocean.MaxWaves)
	}
	if _, err := parseBlend(c.Ocean.Blend); err != nil {
		return c, err
	}
	if c.Ocean.Grid < 2 {
		return c, fmt.Errorf("oceanbench: grid %d, want at least 2", c.Ocean.Grid)
	}
	return c, nil
}

// waves converts the wave list to the uniform wave slots. Wavelengths and
// speeds in the file are in world units and seconds.
func (c *oceanConfig) waves() ocean.Waves {
	var p [ocean.MaxWaves * ocean.ParamsPerWave]float32
	for i, w := range c.Waves {
		if i == ocean.MaxWaves {
			break
		}
		o := i * ocean.ParamsPerWave
		p[o] = w.Direction[0]
		p[o+1] = w.Direction[1]
		if w.Wavelength > 0 {
			p[o+2] = 2 * math.Pi / w.Wavelength
		}
		p[o+3] = w.Speed
		p[o+4] = w.Amplitude
		p[o+5] = w.Steepness
	}
	return ocean.WavesFromParams(p)
}

func parseBlend(s string) (ocean.BlendMode, error) {
	switch s {
	case "", "far":
		return ocean.BlendFarOnly, nil
	case "seam":
		return ocean.BlendSeam, nil
	case "legacy":
		return ocean.BlendLegacyExtent, nil
	default:
		return ocean.BlendFarOnly, fmt.Errorf("oceanbench: unknown blend %q", s)
	}
}
