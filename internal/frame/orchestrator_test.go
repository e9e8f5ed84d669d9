package frame

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/internal/gputest"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
)

type harness struct {
	env  *gputest.Env
	win  *gpucontext.NullWindowProvider
	reg  *pipeline.Registry
	pool *pool.Pool
	o    *Orchestrator
}

func newHarness(t *testing.T, w, h int, aa bool) *harness {
	t.Helper()
	env := gputest.New(t)
	reg, err := pipeline.New(env.Device, pipeline.Config{})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	t.Cleanup(reg.Destroy)
	p := pool.New(env.Device, env.Queue, pool.Config{})
	t.Cleanup(p.Destroy)

	win := &gpucontext.NullWindowProvider{W: w, H: h}
	o, err := New(env.Device, env.Queue, env.Surface, win, reg, p, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.SetAntialias(aa)
	return &harness{env: env, win: win, reg: reg, pool: p, o: o}
}

func (h *harness) frame(t *testing.T) *Context {
	t.Helper()
	ctx, ok := h.o.BeginFrame(gputypes.Color{A: 1})
	if !ok {
		t.Fatal("BeginFrame failed")
	}
	return ctx
}

func TestAttachmentsRecreatedOnlyOnResize(t *testing.T) {
	h := newHarness(t, 800, 600, true)
	dev := h.env.Device

	h.frame(t)
	h.o.EndFrame()
	if len(dev.Textures) != 2 {
		t.Fatalf("textures after first frame = %d, want 2", len(dev.Textures))
	}
	for _, d := range dev.Textures {
		if d.Size.Width != 800 || d.Size.Height != 600 {
			t.Errorf("%s size = %dx%d, want 800x600", d.Label, d.Size.Width, d.Size.Height)
		}
		if d.SampleCount != pipeline.DefaultSampleCount {
			t.Errorf("%s samples = %d, want %d", d.Label, d.SampleCount, pipeline.DefaultSampleCount)
		}
	}

	h.frame(t)
	h.o.EndFrame()
	if len(dev.Textures) != 2 || dev.DestroyedTextures != 0 {
		t.Fatalf("same size recreated textures: created %d, destroyed %d", len(dev.Textures), dev.DestroyedTextures)
	}

	h.win.W, h.win.H = 1024, 768
	h.frame(t)
	h.o.EndFrame()
	if len(dev.Textures) != 4 {
		t.Fatalf("textures after resize = %d, want 4", len(dev.Textures))
	}
	if dev.DestroyedTextures != 2 {
		t.Errorf("destroyed textures = %d, want 2", dev.DestroyedTextures)
	}
	last := dev.Textures[3]
	if last.Size.Width != 1024 || last.Size.Height != 768 {
		t.Errorf("new size = %dx%d, want 1024x768", last.Size.Width, last.Size.Height)
	}
	if got := h.o.Stats().TargetRebuilds; got != 2 {
		t.Errorf("TargetRebuilds = %d, want 2", got)
	}
	if got := len(h.env.Surface.Configs); got != 2 {
		t.Errorf("surface configured %d times, want 2", got)
	}
}

func TestAntialiasSelectsAttachments(t *testing.T) {
	h := newHarness(t, 320, 240, false)
	dev := h.env.Device

	ctx := h.frame(t)
	pass := dev.LastPass()
	if len(dev.Textures) != 1 || dev.Textures[0].SampleCount != 1 {
		t.Fatalf("single-sample frame textures = %+v", dev.Textures)
	}
	if ca := pass.Desc.ColorAttachments[0]; ca.View != ctx.View || ca.ResolveTarget != nil {
		t.Error("single-sample pass should render straight to the surface view")
	}
	if pass.Desc.DepthStencilAttachment.DepthClearValue != 1.0 {
		t.Errorf("depth clear = %v, want 1", pass.Desc.DepthStencilAttachment.DepthClearValue)
	}
	h.o.EndFrame()

	h.o.SetAntialias(true)
	ctx = h.frame(t)
	pass = dev.LastPass()
	if !ctx.Antialias {
		t.Error("context should report antialiasing")
	}
	if ca := pass.Desc.ColorAttachments[0]; ca.ResolveTarget != ctx.View || ca.View == ctx.View {
		t.Error("multisampled pass should resolve into the surface view")
	}
	h.o.EndFrame()
	if len(dev.Textures) != 3 {
		t.Fatalf("textures = %d, want 3", len(dev.Textures))
	}

	h.o.SetAntialias(false)
	h.frame(t)
	h.o.EndFrame()
	if len(dev.Textures) != 3 || dev.DestroyedTextures != 0 {
		t.Errorf("toggling back recreated textures: created %d, destroyed %d", len(dev.Textures), dev.DestroyedTextures)
	}
}

func TestBeginFrameWhileOpen(t *testing.T) {
	h := newHarness(t, 64, 64, false)
	h.frame(t)
	if _, ok := h.o.BeginFrame(gputypes.Color{}); ok {
		t.Fatal("second BeginFrame should fail")
	}
	if h.env.Surface.Acquired != 1 {
		t.Errorf("acquired %d surface textures, want 1", h.env.Surface.Acquired)
	}
	h.o.EndFrame()
	h.o.EndFrame()
	if h.env.Queue.Submits != 1 {
		t.Errorf("submits = %d, want 1", h.env.Queue.Submits)
	}
}

func TestEndFrameSubmitsAndPresents(t *testing.T) {
	h := newHarness(t, 64, 64, false)
	tr := &recordingTracker{}
	h.o.Track(tr)

	h.frame(t)
	pass := h.env.Device.LastPass()
	h.o.EndFrame()

	if !pass.Ended {
		t.Error("pass not ended")
	}
	if h.env.Queue.Submits != 1 || h.env.Queue.Presents != 1 {
		t.Errorf("submits=%d presents=%d, want 1 and 1", h.env.Queue.Submits, h.env.Queue.Presents)
	}
	if h.o.Current() != nil {
		t.Error("frame still open after EndFrame")
	}
	st := h.o.Stats()
	if st.LastSubmission == 0 {
		t.Error("LastSubmission not recorded")
	}
	if len(tr.indices) != 1 || tr.indices[0] != st.LastSubmission {
		t.Errorf("tracker saw %v, want [%d]", tr.indices, st.LastSubmission)
	}
}

func TestBeginFrameBindsBaseAndViewport(t *testing.T) {
	h := newHarness(t, 200, 100, false)
	ctx := h.frame(t)
	pass := h.env.Device.LastPass()

	if pass.Viewport != [4]float32{0, 0, 200, 100} {
		t.Errorf("viewport = %v", pass.Viewport)
	}
	sets := pass.Find("SetPipeline")
	if len(sets) != 1 || sets[0].Pipeline != h.reg.Variant(pipeline.KindBase, pipeline.AAOff).Pipeline {
		t.Fatalf("expected the base pipeline bound once, got %d binds", len(sets))
	}

	ctx.BindBase()
	if pass.Count("SetPipeline") != 1 {
		t.Error("rebinding the bound pipeline issued SetPipeline")
	}
	ctx.Bind(pipeline.KindSprite)
	ctx.BindBase()
	if pass.Count("SetPipeline") != 3 {
		t.Errorf("SetPipeline calls = %d, want 3", pass.Count("SetPipeline"))
	}

	h.o.SetAntialias(true)
	if v := ctx.Variant(pipeline.KindOcean); v.Mode != pipeline.AAOff {
		t.Error("open frame should keep its antialias mode")
	}
	h.o.EndFrame()
}

func TestContextVariantFollowsActiveRow(t *testing.T) {
	h := newHarness(t, 200, 100, true)
	ctx := h.frame(t)

	for _, kind := range []pipeline.DrawKind{pipeline.KindBase, pipeline.KindSprite, pipeline.KindOcean} {
		if got, want := ctx.Variant(kind), h.reg.ActiveVariant(kind); got != want {
			t.Errorf("%v: frame variant %p, want active variant %p", kind, got, want)
		}
	}

	h.o.SetAntialias(false)
	v := ctx.Bind(pipeline.KindOcean)
	if v != h.reg.Variant(pipeline.KindOcean, pipeline.AAOn) {
		t.Error("toggled frame should keep the multisampled variant")
	}
	if v == h.reg.ActiveVariant(pipeline.KindOcean) {
		t.Error("toggled frame should not use the new active row")
	}
	h.o.EndFrame()

	ctx = h.frame(t)
	if got, want := ctx.Variant(pipeline.KindOcean), h.reg.ActiveVariant(pipeline.KindOcean); got != want || got.Mode != pipeline.AAOff {
		t.Errorf("next frame variant mode = %v, want the active single-sample variant", got.Mode)
	}
	h.o.EndFrame()
}

func TestAcquireFailure(t *testing.T) {
	h := newHarness(t, 64, 64, false)
	h.env.Surface.FailAcq = true
	if _, ok := h.o.BeginFrame(gputypes.Color{}); ok {
		t.Fatal("BeginFrame should fail when acquire fails")
	}
	if got := h.o.Stats().FailedAcquires; got != 1 {
		t.Errorf("FailedAcquires = %d, want 1", got)
	}
	h.o.EndFrame()
	if h.env.Queue.Submits != 0 {
		t.Error("EndFrame submitted without a frame")
	}

	configs := len(h.env.Surface.Configs)
	h.env.Surface.FailAcq = false
	h.frame(t)
	h.o.EndFrame()
	if len(h.env.Surface.Configs) != configs+1 {
		t.Error("outdated surface was not reconfigured")
	}
}

func TestEncoderFailureDiscardsSurfaceTexture(t *testing.T) {
	h := newHarness(t, 64, 64, false)
	h.env.Device.FailEncoder = true
	if _, ok := h.o.BeginFrame(gputypes.Color{}); ok {
		t.Fatal("BeginFrame should fail")
	}
	if h.env.Surface.Discarded != 1 {
		t.Errorf("discarded = %d, want 1", h.env.Surface.Discarded)
	}
	if h.env.Device.DestroyedViews != 1 {
		t.Errorf("destroyed views = %d, want 1", h.env.Device.DestroyedViews)
	}
}

func TestRetirementWaitsForCompletion(t *testing.T) {
	h := newHarness(t, 64, 64, false)
	h.env.Queue.Hold = true

	h.frame(t)
	h.o.EndFrame()
	h.frame(t)
	h.o.EndFrame()
	if got := h.o.Stats().PendingRetires; got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}
	views := h.env.Device.DestroyedViews

	h.env.Queue.Hold = false
	h.frame(t)
	if got := h.env.Device.DestroyedViews - views; got != 2 {
		t.Errorf("retired views = %d, want 2", got)
	}
	h.o.EndFrame()
	if got := h.o.Stats().PendingRetires; got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
}

func TestBeginFrameResetsPool(t *testing.T) {
	h := newHarness(t, 64, 64, false)
	h.frame(t)
	if _, ok := h.pool.Acquire(pool.CategoryVertex, 128); !ok {
		t.Fatal("Acquire failed")
	}
	h.o.EndFrame()
	if got := h.pool.Stats().InUse[pool.CategoryVertex]; got != 1 {
		t.Fatalf("in use before next frame = %d, want 1", got)
	}
	h.frame(t)
	if got := h.pool.Stats().InUse[pool.CategoryVertex]; got != 0 {
		t.Errorf("in use after BeginFrame = %d, want 0", got)
	}
	h.o.EndFrame()
}

func TestScissorClamp(t *testing.T) {
	h := newHarness(t, 800, 600, false)
	h.frame(t)
	pass := h.env.Device.LastPass()

	h.o.SetScissor(-10, 10, 1000, 2000)
	h.o.ResetScissor()
	calls := pass.Find("SetScissorRect")
	if len(calls) != 2 {
		t.Fatalf("scissor calls = %d, want 2", len(calls))
	}
	want := []uint32{0, 10, 800, 590}
	for i, v := range want {
		if calls[0].Args[i] != v {
			t.Errorf("clamped scissor = %v, want %v", calls[0].Args, want)
			break
		}
	}
	full := []uint32{0, 0, 800, 600}
	for i, v := range full {
		if calls[1].Args[i] != v {
			t.Errorf("reset scissor = %v, want %v", calls[1].Args, full)
			break
		}
	}
	h.o.EndFrame()
}

func TestScissorPersistsAcrossFrames(t *testing.T) {
	h := newHarness(t, 100, 100, false)
	h.o.SetScissor(50, 50, 100, 100)
	h.frame(t)
	calls := h.env.Device.LastPass().Find("SetScissorRect")
	if len(calls) != 1 || calls[0].Args[2] != 50 || calls[0].Args[3] != 50 {
		t.Errorf("scissor = %v, want 50x50 at 50,50", calls)
	}
	h.o.EndFrame()
}

func TestDrawableScaleOverride(t *testing.T) {
	h := newHarness(t, 400, 300, false)
	h.win.SF = 2
	if w, hh := h.o.DrawableSize(); w != 800 || hh != 600 {
		t.Errorf("drawable = %dx%d, want 800x600", w, hh)
	}
	h.o.SetDrawableScaleOverride(1.5)
	if w, hh := h.o.DrawableSize(); w != 600 || hh != 450 {
		t.Errorf("drawable = %dx%d, want 600x450", w, hh)
	}
	ctx := h.frame(t)
	if ctx.Width != 600 || ctx.Scale != 1.5 {
		t.Errorf("frame size %d scale %v", ctx.Width, ctx.Scale)
	}
	h.o.EndFrame()
	h.o.SetDrawableScaleOverride(0)
	if w, _ := h.o.DrawableSize(); w != 800 {
		t.Errorf("width after clearing override = %d, want 800", w)
	}
}

func TestZeroDrawableSkipsFrame(t *testing.T) {
	h := newHarness(t, 0, 0, false)
	if _, ok := h.o.BeginFrame(gputypes.Color{}); ok {
		t.Fatal("BeginFrame should skip a zero drawable")
	}
	if h.env.Surface.Acquired != 0 {
		t.Error("acquired a surface texture for a zero drawable")
	}
}

func TestNewValidation(t *testing.T) {
	env := gputest.New(t)
	win := gpucontext.NullWindowProvider{W: 1, H: 1}
	if _, err := New(nil, env.Queue, env.Surface, win, nil, nil, Config{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("nil device: %v", err)
	}
	if _, err := New(env.Device, env.Queue, nil, win, nil, nil, Config{}); !errors.Is(err, ErrNoSurface) {
		t.Errorf("nil surface: %v", err)
	}
	if _, err := New(env.Device, env.Queue, env.Surface, win, nil, nil, Config{}); !errors.Is(err, ErrNoRegistry) {
		t.Errorf("nil registry: %v", err)
	}
}

func TestDestroyReleasesTargets(t *testing.T) {
	h := newHarness(t, 64, 64, true)
	h.frame(t)
	h.o.EndFrame()
	h.o.Destroy()
	if h.env.Device.DestroyedTextures != 2 {
		t.Errorf("destroyed textures = %d, want 2", h.env.Device.DestroyedTextures)
	}
	h.o.Destroy()
}

func TestClampRect(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       [4]uint32
	}{
		{"inside", 10, 10, 20, 20, [4]uint32{10, 10, 20, 20}},
		{"negative origin", -5, -5, 10, 10, [4]uint32{0, 0, 5, 5}},
		{"overflow", 90, 90, 50, 50, [4]uint32{90, 90, 10, 10}},
		{"outside", 200, 200, 10, 10, [4]uint32{100, 100, 0, 0}},
		{"negative size", 10, 10, -1, 5, [4]uint32{10, 10, 0, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampRect(tt.x, tt.y, tt.w, tt.h, 100, 100); got != tt.want {
				t.Errorf("clampRect = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingTracker struct {
	indices []uint64
}

func (r *recordingTracker) Submitted(index uint64) {
	r.indices = append(r.indices, index)
}
