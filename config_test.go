package rendercore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
msaa = false
sample_count = 8
frames_in_flight = 2
texture_budget_mib = 64
hue_cycle_speed = 0.5
present_mode = "mailbox"

[pool]
max_slots = 16
min_buffer_size = 1024
`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	o := defaultOptions()
	for _, opt := range c.Options() {
		opt(&o)
	}
	if o.msaa {
		t.Error("msaa = true, want false")
	}
	if o.sampleCount != 8 {
		t.Errorf("sampleCount = %d, want 8", o.sampleCount)
	}
	if o.framesInFlight != 2 {
		t.Errorf("framesInFlight = %d, want 2", o.framesInFlight)
	}
	if o.textureBudget != 64<<20 {
		t.Errorf("textureBudget = %d, want %d", o.textureBudget, 64<<20)
	}
	if o.hueCycleSpeed != 0.5 {
		t.Errorf("hueCycleSpeed = %v, want 0.5", o.hueCycleSpeed)
	}
	if o.presentMode != gputypes.PresentModeMailbox {
		t.Errorf("presentMode = %v, want Mailbox", o.presentMode)
	}
	if o.pool.MaxSlots != 16 || o.pool.MinBufferSize != 1024 || o.pool.MaxBufferSize != 0 {
		t.Errorf("pool = %+v", o.pool)
	}
}

func TestParseConfigEmptyKeepsDefaults(t *testing.T) {
	c, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if opts := c.Options(); len(opts) != 0 {
		t.Errorf("empty config produced %d options", len(opts))
	}
}

func TestParseConfigZeroHueSpeed(t *testing.T) {
	c, err := ParseConfig([]byte("hue_cycle_speed = 0.0\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	o := defaultOptions()
	for _, opt := range c.Options() {
		opt(&o)
	}
	if o.hueCycleSpeed != 0 {
		t.Errorf("hueCycleSpeed = %v, want explicit 0", o.hueCycleSpeed)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		invalid bool
	}{
		{"sample count", "sample_count = 3", true},
		{"frames in flight", "frames_in_flight = -1", true},
		{"pool slots", "[pool]\nmax_slots = -4", true},
		{"present mode", `present_mode = "sometimes"`, true},
		{"unknown key", "antialias = true", false},
		{"syntax", "msaa = ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseConfig() succeeded, want error")
			}
			if got := errors.Is(err, ErrInvalidConfig); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalidConfig) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.toml")
	if err := os.WriteFile(path, []byte("frames_in_flight = 4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.FramesInFlight != 4 {
		t.Errorf("FramesInFlight = %d, want 4", c.FramesInFlight)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}
