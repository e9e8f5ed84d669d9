// Package rendercore is the real-time rendering core of a 2D/3D graphics
// system built on the gogpu HAL.
//
// # Overview
//
// A Renderer turns per-frame drawing requests into GPU commands: colored
// triangles, instanced and animated shapes, orbiting particles, sprites,
// glyph runs, lit meshes and a procedural ocean surface. Buffers, uniform
// memory and pipelines are reused across frames so that a steady scene
// allocates nothing on the GPU after warm-up.
//
// # Quick Start
//
//	target, err := rendercore.TargetFromProvider(provider, surface, window)
//	if err != nil {
//	    return err
//	}
//	r, err := rendercore.CreateRenderer(target, rendercore.WithMSAA(true))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	for running {
//	    if !r.BeginFrame(0.05, 0.07, 0.1, 1) {
//	        continue
//	    }
//	    r.DrawInstancedCircles(circles, len(circles)/5)
//	    r.DrawOceanProjectedGrid(&oceanUniform)
//	    r.EndFrame()
//	}
//
// # Frames
//
// Exactly one frame is open between BeginFrame and EndFrame. Draw calls
// outside a frame, with nil data or with a non-positive count are silent
// no-ops. BeginFrame returns false when the surface could not be acquired
// or the drawable is empty; the caller skips the frame.
//
// # Coordinates
//
// Instance positions are in drawable pixels with the origin at the top
// left. The drawable is the window's logical size times its scale factor,
// or times the override set with SetDrawableScaleOverride.
//
// # Ocean
//
// The ocean is a projected grid generated on the GPU from the vertex index.
// Package ocean holds the parameter block and a CPU reference of the same
// math for callers that need wave heights.
//
// # Logging
//
// The module is silent by default. SetLogger installs a *slog.Logger used
// by every sub-package.
package rendercore
