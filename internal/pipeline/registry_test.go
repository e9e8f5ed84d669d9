package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/rendercore/internal/gputest"
)

func TestEmbeddedShadersValidate(t *testing.T) {
	src := DefaultSources()
	for id := ShaderID(0); id < numShaders; id++ {
		if err := validateShader(id, src[id], requiredEntryPoints(id)); err != nil {
			t.Errorf("%s: %v", id, err)
		}
	}
}

func TestRequiredEntryPoints(t *testing.T) {
	eps := requiredEntryPoints(ShaderMesh)
	// vs_main, fs_main, fs_fog, fs_textured; the shared vs_main is listed once.
	if len(eps) != 4 {
		t.Fatalf("mesh entry points = %d, want 4: %v", len(eps), eps)
	}
	if got := len(requiredEntryPoints(ShaderOcean)); got != 2 {
		t.Errorf("ocean entry points = %d, want 2", got)
	}
}

func TestNewCreatesEveryVariant(t *testing.T) {
	env := gputest.New(t)
	r, err := New(env.Device, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Destroy()

	want := NumKinds * int(numAAModes)
	if len(env.Device.Pipelines) != want {
		t.Fatalf("created %d pipelines, want %d", len(env.Device.Pipelines), want)
	}
	for k := DrawKind(0); k < numKinds; k++ {
		off := r.Variant(k, AAOff)
		on := r.Variant(k, AAOn)
		if off == nil || on == nil {
			t.Fatalf("%s: missing variant", k)
		}
		if off.SampleCount != 1 {
			t.Errorf("%s noaa samples = %d, want 1", k, off.SampleCount)
		}
		if on.SampleCount != DefaultSampleCount {
			t.Errorf("%s aa samples = %d, want %d", k, on.SampleCount, DefaultSampleCount)
		}
		if off.Pipeline == on.Pipeline {
			t.Errorf("%s: aa and noaa share a pipeline", k)
		}
	}
	if r.UniformLayout() == nil || r.TextureLayout() == nil {
		t.Error("layouts not created")
	}
	if !r.Variant(KindSprite, AAOff).Textured || r.Variant(KindOcean, AAOff).Textured {
		t.Error("textured flag mismatch")
	}
}

func TestSetAntialiasSwapsWithoutCreation(t *testing.T) {
	env := gputest.New(t)
	r, err := New(env.Device, Config{SampleCount: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Destroy()

	var wantOn, wantOff [NumKinds]*Variant
	for k := DrawKind(0); k < numKinds; k++ {
		wantOn[k] = r.Variant(k, AAOn)
		wantOff[k] = r.Variant(k, AAOff)
	}
	created := len(env.Device.Pipelines)

	if r.Antialias() {
		t.Fatal("registry should start without antialiasing")
	}
	r.SetAntialias(true)
	for k := DrawKind(0); k < numKinds; k++ {
		v := r.ActiveVariant(k)
		if v != wantOn[k] || v.Pipeline != wantOn[k].Pipeline {
			t.Errorf("%s: active variant is not the precomputed aa variant", k)
		}
		if v.SampleCount != 8 {
			t.Errorf("%s: samples = %d, want 8", k, v.SampleCount)
		}
	}
	r.SetAntialias(false)
	for k := DrawKind(0); k < numKinds; k++ {
		if r.ActiveVariant(k) != wantOff[k] {
			t.Errorf("%s: active variant is not the precomputed noaa variant", k)
		}
	}
	if len(env.Device.Pipelines) != created {
		t.Errorf("SetAntialias created %d pipelines", len(env.Device.Pipelines)-created)
	}
}

func TestMissingEntryPointIsFatal(t *testing.T) {
	env := gputest.New(t)
	src := DefaultSources()
	src[ShaderShapes] = strings.Replace(src[ShaderShapes], "fn vs_orbital(", "fn vs_orbit(", 1)

	r, err := newWithSources(env.Device, Config{}, src)
	if err == nil {
		r.Destroy()
		t.Fatal("expected error")
	}
	if r != nil {
		t.Error("partial registry returned")
	}
	if !errors.Is(err, ErrPipelineCreation) {
		t.Errorf("error %v does not wrap ErrPipelineCreation", err)
	}
	if !errors.Is(err, ErrMissingEntryPoint) {
		t.Errorf("error %v does not wrap ErrMissingEntryPoint", err)
	}
	if !strings.Contains(err.Error(), "vs_orbital") {
		t.Errorf("error %q does not name the entry point", err)
	}
	if len(env.Device.Pipelines) != 0 {
		t.Errorf("created %d pipelines before failing", len(env.Device.Pipelines))
	}
}

func TestInvalidShaderIsFatal(t *testing.T) {
	env := gputest.New(t)
	src := DefaultSources()
	src[ShaderOcean] = "@vertex fn vs_main( -> {"

	_, err := newWithSources(env.Device, Config{}, src)
	if !errors.Is(err, ErrShaderInvalid) {
		t.Fatalf("expected ErrShaderInvalid, got %v", err)
	}
	if !errors.Is(err, ErrPipelineCreation) {
		t.Errorf("error %v does not wrap ErrPipelineCreation", err)
	}
}

func TestEmptyShaderIsFatal(t *testing.T) {
	env := gputest.New(t)
	src := DefaultSources()
	src[ShaderGlyph] = "  "

	_, err := newWithSources(env.Device, Config{}, src)
	if !errors.Is(err, ErrEmptyShader) {
		t.Fatalf("expected ErrEmptyShader, got %v", err)
	}
}

func TestPipelineFailureReleasesPartialWork(t *testing.T) {
	env := gputest.New(t)
	env.Device.FailPipeline = func(label string) bool { return label == "ocean_aa" }

	_, err := New(env.Device, Config{})
	if !errors.Is(err, ErrPipelineCreation) {
		t.Fatalf("expected ErrPipelineCreation, got %v", err)
	}
	if !errors.Is(err, gputest.ErrInjected) {
		t.Errorf("error %v does not wrap the device error", err)
	}
	created := len(env.Device.Pipelines)
	if created != NumKinds*int(numAAModes)-1 {
		t.Errorf("created %d pipelines, want %d", created, NumKinds*int(numAAModes)-1)
	}
	if env.Device.DestroyedPipelines != created {
		t.Errorf("destroyed %d of %d pipelines", env.Device.DestroyedPipelines, created)
	}
}

func TestNewNilDevice(t *testing.T) {
	if _, err := New(nil, Config{}); !errors.Is(err, ErrPipelineCreation) {
		t.Errorf("expected ErrPipelineCreation, got %v", err)
	}
}

func TestNames(t *testing.T) {
	if KindMesh3DTextured.String() != "mesh3d_textured" {
		t.Errorf("String = %q", KindMesh3DTextured.String())
	}
	if DrawKind(99).String() != "DrawKind(99)" {
		t.Errorf("String = %q", DrawKind(99).String())
	}
	v := &Variant{Kind: KindSprite, Mode: AAOn}
	if v.Label() != "sprite_aa" {
		t.Errorf("Label = %q, want sprite_aa", v.Label())
	}
	if ShaderOcean.String() != "ocean" {
		t.Errorf("String = %q", ShaderOcean.String())
	}
	if ModeFor(true) != AAOn || ModeFor(false) != AAOff {
		t.Error("ModeFor mismatch")
	}
}
