package rendercore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by LoadConfig and ParseConfig for values that
// parse but cannot be used.
var ErrInvalidConfig = errors.New("rendercore: invalid config")

// Config is the file form of the renderer options.
//
//	msaa = true
//	sample_count = 4
//	frames_in_flight = 3
//	texture_budget_mib = 256
//	hue_cycle_speed = 0.1
//	present_mode = "mailbox"
//
//	[pool]
//	max_slots = 64
type Config struct {
	MSAA             *bool      `toml:"msaa"`
	SampleCount      uint32     `toml:"sample_count"`
	FramesInFlight   int        `toml:"frames_in_flight"`
	TextureBudgetMiB uint64     `toml:"texture_budget_mib"`
	HueCycleSpeed    *float32   `toml:"hue_cycle_speed"`
	PresentMode      string     `toml:"present_mode"`
	Pool             PoolLimits `toml:"pool"`
}

// LoadConfig reads and parses a TOML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("rendercore: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses TOML data. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("rendercore: parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports values that parse but cannot be used. The error wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	switch c.SampleCount {
	case 0, 2, 4, 8:
	default:
		return fmt.Errorf("%w: sample_count %d", ErrInvalidConfig, c.SampleCount)
	}
	if c.FramesInFlight < 0 {
		return fmt.Errorf("%w: frames_in_flight %d", ErrInvalidConfig, c.FramesInFlight)
	}
	if c.Pool.MaxSlots < 0 {
		return fmt.Errorf("%w: pool.max_slots %d", ErrInvalidConfig, c.Pool.MaxSlots)
	}
	if _, err := parsePresentMode(c.PresentMode); err != nil {
		return err
	}
	return nil
}

// Options converts the file form to renderer options. Unset fields keep
// the defaults.
func (c *Config) Options() []Option {
	var opts []Option
	if c.MSAA != nil {
		opts = append(opts, WithMSAA(*c.MSAA))
	}
	if c.SampleCount != 0 {
		opts = append(opts, WithSampleCount(c.SampleCount))
	}
	if c.FramesInFlight != 0 {
		opts = append(opts, WithFramesInFlight(c.FramesInFlight))
	}
	if c.TextureBudgetMiB != 0 {
		opts = append(opts, WithTextureBudget(c.TextureBudgetMiB<<20))
	}
	if c.HueCycleSpeed != nil {
		opts = append(opts, WithHueCycleSpeed(*c.HueCycleSpeed))
	}
	if m, err := parsePresentMode(c.PresentMode); err == nil && m != gputypes.PresentModeUndefined {
		opts = append(opts, WithPresentMode(m))
	}
	if c.Pool != (PoolLimits{}) {
		opts = append(opts, WithPool(c.Pool))
	}
	return opts
}

func parsePresentMode(s string) (gputypes.PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return gputypes.PresentModeUndefined, nil
	case "fifo", "vsync":
		return gputypes.PresentModeFifo, nil
	case "fifo_relaxed":
		return gputypes.PresentModeFifoRelaxed, nil
	case "immediate":
		return gputypes.PresentModeImmediate, nil
	case "mailbox":
		return gputypes.PresentModeMailbox, nil
	default:
		return gputypes.PresentModeUndefined, fmt.Errorf("%w: present_mode %q", ErrInvalidConfig, s)
	}
}
