package draw

import (
	"encoding/binary"
	"image"
	"math"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/frame"
	"github.com/gogpu/rendercore/internal/gputest"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/pool"
	"github.com/gogpu/rendercore/internal/texcache"
	"github.com/gogpu/rendercore/ocean"
)

type harness struct {
	env   *gputest.Env
	reg   *pipeline.Registry
	pool  *pool.Pool
	cache *texcache.Cache
	o     *frame.Orchestrator
	enc   *Encoder
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	env := gputest.New(t)
	reg, err := pipeline.New(env.Device, pipeline.Config{})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	t.Cleanup(reg.Destroy)
	p := pool.New(env.Device, env.Queue, pool.Config{})
	t.Cleanup(p.Destroy)
	cache, err := texcache.New(env.Device, env.Queue, reg.TextureLayout(), texcache.Config{})
	if err != nil {
		t.Fatalf("texcache.New: %v", err)
	}
	t.Cleanup(cache.Destroy)

	win := &gpucontext.NullWindowProvider{W: 800, H: 600}
	o, err := frame.New(env.Device, env.Queue, env.Surface, win, reg, p, frame.Config{})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	t.Cleanup(o.Destroy)
	enc, err := New(env.Device, env.Queue, reg.UniformLayout(), p, cache, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(enc.Destroy)
	o.Track(enc)
	o.Track(cache)
	return &harness{env: env, reg: reg, pool: p, cache: cache, o: o, enc: enc}
}

// begin opens a frame and clears the calls BeginFrame recorded.
func (h *harness) begin(t *testing.T) (*frame.Context, *gputest.Pass) {
	t.Helper()
	f, ok := h.o.BeginFrame(gputypes.Color{A: 1})
	if !ok {
		t.Fatal("BeginFrame failed")
	}
	pass := h.env.Device.LastPass()
	pass.Reset()
	return f, pass
}

func (h *harness) pipelineOf(kind pipeline.DrawKind) hal.RenderPipeline {
	return h.reg.Variant(kind, pipeline.AAOff).Pipeline
}

func records(count, floats int) []float32 {
	data := make([]float32, count*floats)
	for i := range data {
		data[i] = float32(i%7) + 1
	}
	return data
}

func countLabel(descs []string, label string) int {
	n := 0
	for _, d := range descs {
		if d == label {
			n++
		}
	}
	return n
}

func (h *harness) bufferLabels() []string {
	labels := make([]string, len(h.env.Device.Buffers))
	for i, b := range h.env.Device.Buffers {
		labels[i] = b.Label
	}
	return labels
}

func TestZeroCountDrawsAreNoOps(t *testing.T) {
	h := newHarness(t, Config{})
	f, pass := h.begin(t)
	buffers := len(h.env.Device.Buffers)

	img, err := h.cache.Register(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	atlas := &fakeAtlas{mask: image.NewAlpha(image.Rect(0, 0, 8, 8)), dirty: true}
	u := &MeshUniforms{}

	tests := []struct {
		name string
		draw func()
	}{
		{"rects nil", func() { h.enc.DrawInstancedRects(f, nil, 0) }},
		{"rects short", func() { h.enc.DrawInstancedRects(f, records(1, pipeline.DynamicFloats), 2) }},
		{"triangles negative", func() { h.enc.DrawInstancedTriangles(f, records(1, pipeline.DynamicFloats), -1) }},
		{"circles zero", func() { h.enc.DrawInstancedCircles(f, records(1, pipeline.DynamicFloats), 0) }},
		{"sprites nil texture", func() { h.enc.DrawSprites(f, nil, records(1, pipeline.SpriteFloats), 1, 0, 0) }},
		{"sprites zero", func() { h.enc.DrawSprites(f, img, nil, 0, 0, 0) }},
		{"triangles empty", func() { h.enc.DrawTriangles(f, nil, nil) }},
		{"glyphs empty", func() { h.enc.DrawGlyphs(f, atlas, nil, nil) }},
		{"mesh nil", func() { h.enc.DrawMesh3D(f, nil, u) }},
		{"mesh nil uniforms", func() { h.enc.DrawMesh3DWithFog(f, &Mesh{Vertices: records(3, pipeline.MeshVertexFloats)}, nil) }},
		{"animated nothing uploaded", func() { h.enc.DrawAnimatedRects(f, 1) }},
		{"orbital nothing uploaded", func() { h.enc.DrawOrbitalParticles(f, 1) }},
		{"ocean grid 1", func() { h.enc.DrawOceanProjectedGrid(f, &ocean.Uniform{Params: ocean.Params{GridSize: 1}}) }},
		{"no frame", func() { h.enc.DrawInstancedRects(nil, records(1, pipeline.DynamicFloats), 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.draw()
			if len(pass.Calls) != 0 {
				t.Errorf("recorded %d calls, first %q", len(pass.Calls), pass.Calls[0].Op)
			}
		})
	}
	if got := len(h.env.Device.Buffers); got != buffers {
		t.Errorf("buffers created = %d, want none", got-buffers)
	}
	if s := h.pool.Stats(); s.InUse != [pool.NumCategories]int{} {
		t.Errorf("pool in use = %v, want none", s.InUse)
	}
	h.o.EndFrame()
}

func TestInstancedDrawSequence(t *testing.T) {
	tests := []struct {
		name     string
		kind     pipeline.DrawKind
		draw     func(*Encoder, *frame.Context, []float32, int)
		vertices uint32
	}{
		{"rects", pipeline.KindInstancedRect, (*Encoder).DrawInstancedRects, 4},
		{"triangles", pipeline.KindInstancedTriangle, (*Encoder).DrawInstancedTriangles, 3},
		{"circles", pipeline.KindInstancedCircle, (*Encoder).DrawInstancedCircles, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			f, pass := h.begin(t)
			tt.draw(h.enc, f, records(3, pipeline.DynamicFloats), 3)

			ops := make([]string, len(pass.Calls))
			for i, c := range pass.Calls {
				ops[i] = c.Op
			}
			wantOps := []string{"SetPipeline", "SetBindGroup", "SetVertexBuffer", "Draw", "SetPipeline"}
			if len(ops) != len(wantOps) {
				t.Fatalf("calls = %v, want %v", ops, wantOps)
			}
			for i := range ops {
				if ops[i] != wantOps[i] {
					t.Fatalf("calls = %v, want %v", ops, wantOps)
				}
			}
			if pass.Calls[0].Pipeline != h.pipelineOf(tt.kind) {
				t.Errorf("first pipeline is not the %s variant", tt.kind)
			}
			if pass.Calls[4].Pipeline != h.pipelineOf(pipeline.KindBase) {
				t.Error("base pipeline not restored")
			}
			draw := pass.Find("Draw")[0]
			if draw.Args[0] != tt.vertices || draw.Args[1] != 3 {
				t.Errorf("Draw(%d, %d), want Draw(%d, 3)", draw.Args[0], draw.Args[1], tt.vertices)
			}
			if s := h.pool.Stats(); s.InUse[pool.CategoryVertex] != 1 {
				t.Errorf("vertex leases = %d, want 1", s.InUse[pool.CategoryVertex])
			}
			h.o.EndFrame()
		})
	}
}

func TestUniformSlotsAdvance(t *testing.T) {
	h := newHarness(t, Config{})
	f, pass := h.begin(t)
	data := records(1, pipeline.DynamicFloats)
	h.enc.DrawInstancedRects(f, data, 1)
	h.enc.DrawInstancedRects(f, data, 1)

	groups := pass.Find("SetBindGroup")
	if len(groups) != 2 {
		t.Fatalf("SetBindGroup calls = %d, want 2", len(groups))
	}
	if groups[0].Args[1] != 0 || groups[1].Args[1] != pipeline.UniformSlotSize {
		t.Errorf("offsets = %d, %d, want 0, %d", groups[0].Args[1], groups[1].Args[1], pipeline.UniformSlotSize)
	}
	if s := h.enc.Stats(); s.UniformSlots != 2 || s.Draws != 2 {
		t.Errorf("Stats = %+v, want 2 slots and 2 draws", s)
	}
	h.o.EndFrame()
}

func TestUniformChunkOverflow(t *testing.T) {
	h := newHarness(t, Config{})
	f, _ := h.begin(t)
	data := records(1, pipeline.DynamicFloats)
	for range slotsPerChunk + 1 {
		h.enc.DrawInstancedCircles(f, data, 1)
	}
	if s := h.enc.Stats(); s.UniformChunks != 2 {
		t.Errorf("UniformChunks = %d, want 2", s.UniformChunks)
	}
	h.o.EndFrame()
}

func TestUniformArenaWaitsForSubmission(t *testing.T) {
	h := newHarness(t, Config{FramesInFlight: 2})
	data := records(1, pipeline.DynamicFloats)
	h.env.Queue.Hold = true

	for range 3 {
		f, _ := h.begin(t)
		h.enc.DrawInstancedRects(f, data, 1)
		h.o.EndFrame()
	}
	if s := h.enc.Stats(); s.UniformSets != 3 {
		t.Errorf("UniformSets with work in flight = %d, want 3", s.UniformSets)
	}

	h.env.Queue.Hold = false
	for range 4 {
		f, _ := h.begin(t)
		h.enc.DrawInstancedRects(f, data, 1)
		h.o.EndFrame()
	}
	if s := h.enc.Stats(); s.UniformSets != 3 || s.UniformChunks != 3 {
		t.Errorf("Stats = %+v, want sets and chunks reused", s)
	}
}

func TestOrbitalCenterReachesUniform(t *testing.T) {
	h := newHarness(t, Config{HueCycleSpeed: 0.25})
	h.enc.UploadOrbitalParticles(records(2, pipeline.OrbitalFloats), 2, 400, 300)
	f, pass := h.begin(t)
	h.enc.DrawOrbitalParticles(f, 1.5)

	if pass.Calls[0].Pipeline != h.pipelineOf(pipeline.KindOrbital) {
		t.Fatal("orbital variant not bound")
	}
	if d := pass.Find("Draw"); len(d) != 1 || d[0].Args[0] != 4 || d[0].Args[1] != 2 {
		t.Fatalf("Draw calls = %+v, want one Draw(4, 2)", d)
	}
	buf := h.enc.arena.current.chunks[0].buf
	got := h.env.Device.ReadBuffer(buf, 0, FrameUniformSize)
	want := []float32{800, 600, 1.5, 0.25, 400, 300}
	for i, w := range want {
		v := math.Float32frombits(binary.LittleEndian.Uint32(got[i*4:]))
		if v != w {
			t.Errorf("uniform float %d = %v, want %v", i, v, w)
		}
	}
	h.o.EndFrame()
}

func TestAnimatedUploadedOnce(t *testing.T) {
	h := newHarness(t, Config{})
	h.enc.UploadAnimatedTriangles(records(5, pipeline.AnimatedFloats), 5)
	for i := range 3 {
		f, pass := h.begin(t)
		h.enc.DrawAnimatedTriangles(f, float32(i))
		if d := pass.Find("Draw"); len(d) != 1 || d[0].Args[0] != 3 || d[0].Args[1] != 5 {
			t.Fatalf("frame %d Draw calls = %+v, want one Draw(3, 5)", i, d)
		}
		if s := h.pool.Stats(); s.InUse[pool.CategoryVertex] != 0 {
			t.Errorf("animated draw leased %d pool buffers", s.InUse[pool.CategoryVertex])
		}
		h.o.EndFrame()
	}
	if n := countLabel(h.bufferLabels(), "animated_triangle"); n != 1 {
		t.Errorf("animated buffers = %d, want 1", n)
	}
}

func TestAnimatedReuploadWaitsForGPU(t *testing.T) {
	h := newHarness(t, Config{})
	h.env.Queue.Hold = true
	h.enc.UploadAnimatedRects(records(2, pipeline.AnimatedFloats), 2)
	f, _ := h.begin(t)
	h.enc.DrawAnimatedRects(f, 0)
	h.o.EndFrame()

	destroyed := h.env.Device.DestroyedBuffers
	h.enc.UploadAnimatedRects(records(2, pipeline.AnimatedFloats), 2)
	if n := countLabel(h.bufferLabels(), "animated_rect"); n != 2 {
		t.Fatalf("animated buffers = %d, want a replacement", n)
	}
	if h.env.Device.DestroyedBuffers != destroyed {
		t.Fatal("in-flight animated buffer destroyed")
	}
	if s := h.enc.Stats(); s.PendingBuffers != 1 {
		t.Errorf("PendingBuffers = %d, want 1", s.PendingBuffers)
	}

	h.env.Queue.Hold = false
	h.begin(t)
	h.o.EndFrame()
	if h.env.Device.DestroyedBuffers != destroyed+1 {
		t.Errorf("destroyed = %d, want %d", h.env.Device.DestroyedBuffers, destroyed+1)
	}
	if s := h.enc.Stats(); s.PendingBuffers != 0 {
		t.Errorf("PendingBuffers = %d, want 0", s.PendingBuffers)
	}
}

func TestUploadZeroCountClears(t *testing.T) {
	h := newHarness(t, Config{})
	h.enc.UploadAnimatedCircles(records(1, pipeline.AnimatedFloats), 1)
	h.enc.UploadAnimatedCircles(nil, 0)
	f, pass := h.begin(t)
	h.enc.DrawAnimatedCircles(f, 0)
	if len(pass.Calls) != 0 {
		t.Errorf("cleared upload still drew: %d calls", len(pass.Calls))
	}
	h.o.EndFrame()
}

func TestDrawTriangles(t *testing.T) {
	h := newHarness(t, Config{})
	f, pass := h.begin(t)
	quad := records(4, pipeline.BaseVertexFloats)

	h.enc.DrawTriangles(f, quad, []uint32{0, 1, 2, 0, 2, 3})
	if d := pass.Find("DrawIndexed"); len(d) != 1 || d[0].Args[0] != 6 {
		t.Fatalf("DrawIndexed calls = %+v, want one with 6 indices", d)
	}
	if pass.Count("SetPipeline") != 0 {
		t.Error("base draw switched pipelines")
	}

	pass.Reset()
	h.enc.DrawTriangles(f, records(3, pipeline.BaseVertexFloats), nil)
	if d := pass.Find("Draw"); len(d) != 1 || d[0].Args[0] != 3 {
		t.Fatalf("Draw calls = %+v, want one with 3 vertices", d)
	}

	pass.Reset()
	h.enc.DrawTriangles(f, quad, []uint32{0, 1, 4})
	if len(pass.Calls) != 0 {
		t.Error("out of range index was drawn")
	}
	h.o.EndFrame()
}

func TestSpritesResolveTextureOnce(t *testing.T) {
	h := newHarness(t, Config{})
	tex, err := h.cache.Register(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	data := records(2, pipeline.SpriteFloats)
	f, pass := h.begin(t)
	textures := len(h.env.Device.Textures)

	h.enc.DrawSprites(f, tex, data, 2, 1024, 768)
	h.enc.DrawSprites(f, tex, data, 2, 1024, 768)
	if got := len(h.env.Device.Textures) - textures; got != 1 {
		t.Errorf("textures created = %d, want 1", got)
	}
	var textured int
	for _, c := range pass.Find("SetBindGroup") {
		if c.Args[0] == 1 {
			textured++
		}
	}
	if textured != 2 {
		t.Errorf("texture bind groups = %d, want 2", textured)
	}
	if pass.Calls[0].Pipeline != h.pipelineOf(pipeline.KindSprite) {
		t.Error("sprite variant not bound")
	}

	pass.Reset()
	tex.Release()
	h.enc.DrawSprites(f, tex, data, 2, 1024, 768)
	if len(pass.Calls) != 0 {
		t.Error("released texture was drawn")
	}
	h.o.EndFrame()
}

type fakeAtlas struct {
	mask  *image.Alpha
	dirty bool
}

func (a *fakeAtlas) Mask() *image.Alpha { return a.mask }
func (a *fakeAtlas) Dirty() bool        { return a.dirty }
func (a *fakeAtlas) ClearDirty()        { a.dirty = false }

func TestGlyphsUseTextCategories(t *testing.T) {
	h := newHarness(t, Config{})
	atlas := &fakeAtlas{mask: image.NewAlpha(image.Rect(0, 0, 64, 64)), dirty: true}
	f, pass := h.begin(t)

	h.enc.DrawGlyphs(f, atlas, records(4, pipeline.GlyphVertexFloats), []uint32{0, 1, 2, 2, 1, 3})
	s := h.pool.Stats()
	if s.InUse[pool.CategoryTextVertex] != 1 || s.InUse[pool.CategoryTextIndex] != 1 {
		t.Errorf("text leases = %v, want one vertex and one index", s.InUse)
	}
	if s.InUse[pool.CategoryVertex] != 0 || s.InUse[pool.CategoryIndex] != 0 {
		t.Errorf("glyphs leased shape buffers: %v", s.InUse)
	}
	if d := pass.Find("DrawIndexed"); len(d) != 1 || d[0].Args[0] != 6 {
		t.Fatalf("DrawIndexed calls = %+v, want one with 6 indices", d)
	}
	if atlas.dirty {
		t.Error("atlas not uploaded")
	}
	h.o.EndFrame()
}

func TestMeshVariants(t *testing.T) {
	h := newHarness(t, Config{})
	tex, _ := h.cache.Register(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	mesh := &Mesh{Vertices: records(4, pipeline.MeshVertexFloats), Indices: []uint32{0, 1, 2, 0, 2, 3}}
	u := &MeshUniforms{Fog: Fog{Start: 1, End: 10}}

	tests := []struct {
		name string
		kind pipeline.DrawKind
		draw func(f *frame.Context)
	}{
		{"plain", pipeline.KindMesh3D, func(f *frame.Context) { h.enc.DrawMesh3D(f, mesh, u) }},
		{"fog", pipeline.KindMesh3DFog, func(f *frame.Context) { h.enc.DrawMesh3DWithFog(f, mesh, u) }},
		{"textured", pipeline.KindMesh3DTextured, func(f *frame.Context) { h.enc.DrawMesh3DTextured(f, tex, mesh, u) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, pass := h.begin(t)
			tt.draw(f)
			if len(pass.Calls) == 0 || pass.Calls[0].Pipeline != h.pipelineOf(tt.kind) {
				t.Fatalf("%s variant not bound", tt.kind)
			}
			if d := pass.Find("DrawIndexed"); len(d) != 1 || d[0].Args[0] != 6 {
				t.Errorf("DrawIndexed calls = %+v, want one with 6 indices", d)
			}
			h.o.EndFrame()
		})
	}
}

func TestMeshUniformLayout(t *testing.T) {
	u := MeshUniforms{LightDir: [3]float32{0, 1, 0}, Ambient: 0.2, Fog: Fog{Start: 5, End: 50, Color: [3]float32{0.5, 0.6, 0.7}}}
	u.MVP[0] = 2
	b := u.appendBytes(nil, true)
	if len(b) != MeshUniformSize {
		t.Fatalf("len = %d, want %d", len(b), MeshUniformSize)
	}
	at := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	checks := []struct {
		off  int
		want float32
	}{
		{0, 2},
		{132, 1},
		{140, 0.2},
		{144, 5},
		{148, 50},
		{152, 1},
		{168, 0.7},
	}
	for _, c := range checks {
		if got := at(c.off); got != c.want {
			t.Errorf("float at %d = %v, want %v", c.off, got, c.want)
		}
	}
	if off := u.appendBytes(nil, false); math.Float32frombits(binary.LittleEndian.Uint32(off[152:])) != 0 {
		t.Error("fog flag set without fog")
	}
}

func TestFrameUniformSize(t *testing.T) {
	u := frameUniform{width: 1, height: 2}
	if n := len(u.appendBytes(nil)); n != FrameUniformSize {
		t.Errorf("len = %d, want %d", n, FrameUniformSize)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	h := newHarness(t, Config{})
	h.enc.UploadAnimatedRects(records(1, pipeline.AnimatedFloats), 1)
	h.enc.EnsureOceanIndexBuffer(8)
	f, _ := h.begin(t)
	h.enc.DrawInstancedRects(f, records(1, pipeline.DynamicFloats), 1)
	h.o.EndFrame()

	before := h.env.Device.DestroyedBuffers
	h.enc.Destroy()
	if got := h.env.Device.DestroyedBuffers - before; got != 3 {
		t.Errorf("destroyed = %d, want 3 (animated, ocean index, uniform chunk)", got)
	}
	h.enc.Destroy()
	if got := h.env.Device.DestroyedBuffers - before; got != 3 {
		t.Errorf("second Destroy freed again: %d", got)
	}

	f, pass := h.begin(t)
	h.enc.DrawInstancedRects(f, records(1, pipeline.DynamicFloats), 1)
	if len(pass.Calls) != 0 {
		t.Error("destroyed encoder recorded a draw")
	}
	h.o.EndFrame()
}
