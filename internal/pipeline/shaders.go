// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Embedded WGSL shader sources.

//go:embed shaders/shapes.wgsl
var shapesShaderSource string

//go:embed shaders/sprite.wgsl
var spriteShaderSource string

//go:embed shaders/glyph.wgsl
var glyphShaderSource string

//go:embed shaders/mesh.wgsl
var meshShaderSource string

//go:embed shaders/ocean.wgsl
var oceanShaderSource string

// ShaderID indexes the shader modules shipped with the renderer.
type ShaderID int

const (
	ShaderShapes ShaderID = iota
	ShaderSprite
	ShaderGlyph
	ShaderMesh
	ShaderOcean

	numShaders
)

var shaderNames = [numShaders]string{
	ShaderShapes: "shapes",
	ShaderSprite: "sprite",
	ShaderGlyph:  "glyph",
	ShaderMesh:   "mesh",
	ShaderOcean:  "ocean",
}

// String returns the module name.
func (id ShaderID) String() string {
	if id < 0 || id >= numShaders {
		return fmt.Sprintf("ShaderID(%d)", int(id))
	}
	return shaderNames[id]
}

// Sources is the WGSL source of every shader module, indexed by ShaderID.
type Sources [numShaders]string

// DefaultSources returns the embedded shader sources.
func DefaultSources() Sources {
	return Sources{
		ShaderShapes: shapesShaderSource,
		ShaderSprite: spriteShaderSource,
		ShaderGlyph:  glyphShaderSource,
		ShaderMesh:   meshShaderSource,
		ShaderOcean:  oceanShaderSource,
	}
}

// Shader validation errors.
var (
	// ErrEmptyShader is returned for a module with no source.
	ErrEmptyShader = errors.New("pipeline: shader source is empty")

	// ErrShaderInvalid is returned when naga rejects a module.
	ErrShaderInvalid = errors.New("pipeline: shader failed validation")

	// ErrMissingEntryPoint is returned when a required entry point is absent
	// or has the wrong stage.
	ErrMissingEntryPoint = errors.New("pipeline: missing entry point")
)

// entryPoint is a required function of a module.
type entryPoint struct {
	name  string
	stage ir.ShaderStage
}

// validateShader parses, lowers and validates src with naga, then checks
// that every required entry point exists with the expected stage.
func validateShader(id ShaderID, src string, required []entryPoint) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("%s: %w", id, ErrEmptyShader)
	}

	ast, err := naga.Parse(src)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", id, ErrShaderInvalid, err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", id, ErrShaderInvalid, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", id, ErrShaderInvalid, err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, ve := range verrs {
			msgs = append(msgs, ve.Error())
		}
		return fmt.Errorf("%s: %w: %s", id, ErrShaderInvalid, strings.Join(msgs, "; "))
	}

	for _, want := range required {
		found := false
		for i := range module.EntryPoints {
			ep := &module.EntryPoints[i]
			if ep.Name == want.name && ep.Stage == want.stage {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: %w: %s", id, ErrMissingEntryPoint, want.name)
		}
	}
	return nil
}
