package rendercore

import (
	"errors"

	"github.com/gogpu/rendercore/internal/frame"
	"github.com/gogpu/rendercore/internal/pipeline"
	"github.com/gogpu/rendercore/internal/texcache"
)

// Errors returned by the Renderer. CreateRenderer wraps exactly one of the
// first four.
var (
	// ErrPipelineCreation reports a shader or pipeline that could not be
	// built.
	ErrPipelineCreation = pipeline.ErrPipelineCreation

	// ErrNoDevice reports a target without a device or queue.
	ErrNoDevice = frame.ErrNoDevice

	// ErrNoSurface reports a target without a surface or window.
	ErrNoSurface = frame.ErrNoSurface

	// ErrSurfaceConfigure reports a surface that rejected its configuration.
	ErrSurfaceConfigure = frame.ErrSurfaceConfigure

	// ErrEmptyImage reports a nil or empty texture image.
	ErrEmptyImage = texcache.ErrEmptyImage

	// ErrNoHALProvider reports a provider that does not expose HAL types.
	ErrNoHALProvider = errors.New("rendercore: provider does not expose HAL types")

	// ErrClosed is returned by operations on a closed Renderer.
	ErrClosed = errors.New("rendercore: renderer closed")
)
