// Command oceanbench renders the ocean and instanced shapes on the noop
// GPU backend and reports how long each frame takes to encode.
//
// Usage:
//
//	oceanbench -config bench.toml -frames 1000 -watch
//
// With -watch the [ocean] table of the config file is reloaded whenever
// the file changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/rendercore"
	"github.com/gogpu/rendercore/ocean"
)

// frameStep is the simulated time between frames, so that runs are
// reproducible regardless of encode speed.
const frameStep = float32(1.0 / 60)

type runOptions struct {
	config string
	frames int
	watch  bool
	seed   uint64
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		frames     = flag.Int("frames", 0, "frames to render, overrides the config")
		watch      = flag.Bool("watch", false, "reload the [ocean] table when the config file changes")
		verbose    = flag.Bool("v", false, "debug logging")
		seed       = flag.Uint64("seed", 1, "instance placement seed")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "oceanbench",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	slogger := slog.New(logger)
	rendercore.SetLogger(slogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := run(ctx, runOptions{config: *configPath, frames: *frames, watch: *watch, seed: *seed}, slogger)
	if err != nil {
		logger.Fatal("bench failed", "err", err)
	}
	fmt.Println(rep)
}

// report summarizes encode times of a run.
type report struct {
	frames  int
	skipped int
	best    time.Duration
	mean    time.Duration
	p95     time.Duration
	worst   time.Duration
	stats   rendercore.Stats

	// sea measures the CPU reference mesh of the last ocean drawn.
	sea ocean.Bounds
}

func (r report) String() string {
	return fmt.Sprintf("%d frames (%d skipped): best %v, mean %v, p95 %v, worst %v\n%s\nocean: heights [%.2f, %.2f], reach %.0f, %d vertices behind the seam",
		r.frames, r.skipped, r.best, r.mean, r.p95, r.worst, r.stats,
		r.sea.MinHeight, r.sea.MaxHeight, r.sea.Reach, r.sea.Hidden)
}

func run(ctx context.Context, opts runOptions, logger *slog.Logger) (report, error) {
	cfg, err := loadBenchConfig(opts.config)
	if err != nil {
		return report{}, err
	}
	if opts.frames > 0 {
		cfg.Frames = opts.frames
	}

	gpu, err := openHeadless()
	if err != nil {
		return report{}, err
	}
	defer gpu.close()

	win := &gpucontext.NullWindowProvider{W: cfg.Width, H: cfg.Height, SF: cfg.Scale}
	r, err := rendercore.CreateRenderer(rendercore.SurfaceTarget{
		Device:  gpu.device,
		Queue:   gpu.queue,
		Surface: gpu.surface,
		Window:  win,
	}, cfg.Renderer.Options()...)
	if err != nil {
		return report{}, err
	}
	defer r.Close()

	sc := newScene(cfg, opts.seed)
	if err := sc.upload(r); err != nil {
		return report{}, err
	}
	defer sc.release()

	var reload <-chan oceanConfig
	if opts.watch && opts.config != "" {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if reload, err = watchOcean(wctx, opts.config, logger); err != nil {
			return report{}, err
		}
	}

	logger.Info("bench started", "frames", cfg.Frames, "instances", cfg.Instances, "grid", cfg.Ocean.Grid)
	times := make([]time.Duration, 0, cfg.Frames)
	skipped := 0
	for i := range cfg.Frames {
		if ctx.Err() != nil {
			break
		}
		select {
		case c, ok := <-reload:
			if ok {
				sc.setOcean(c)
			}
		default:
		}

		t := float32(i) * frameStep
		sc.step(frameStep)
		start := time.Now()
		if !r.BeginFrame(0.62, 0.72, 0.82, 1) {
			skipped++
			continue
		}
		w, h := r.DrawableSize()
		sc.draw(r, t, w, h)
		r.EndFrame()
		times = append(times, time.Since(start))
	}

	rep := summarize(times)
	rep.skipped = skipped
	rep.stats = r.Stats()
	if len(times) > 0 {
		p := &sc.uniform.Params
		rep.sea = ocean.MeshBounds(ocean.Mesh(p), p.Camera)
	}
	return rep, nil
}

func summarize(times []time.Duration) report {
	rep := report{frames: len(times)}
	if len(times) == 0 {
		return rep
	}
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	rep.best = sorted[0]
	rep.worst = sorted[len(sorted)-1]
	rep.mean = sum / time.Duration(len(sorted))
	rep.p95 = sorted[(len(sorted)-1)*95/100]
	return rep
}
