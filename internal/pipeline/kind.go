package pipeline

import "fmt"

// DrawKind identifies one vertex/fragment contract.
type DrawKind int

const (
	// KindBase draws indexed colored triangles.
	KindBase DrawKind = iota

	// KindInstancedRect draws dynamic rect instances.
	KindInstancedRect

	// KindInstancedTriangle draws dynamic triangle instances.
	KindInstancedTriangle

	// KindInstancedCircle draws dynamic circle instances.
	KindInstancedCircle

	// KindAnimatedRect draws rect instances animated on the GPU.
	KindAnimatedRect

	// KindAnimatedTriangle draws triangle instances animated on the GPU.
	KindAnimatedTriangle

	// KindAnimatedCircle draws circle instances animated on the GPU.
	KindAnimatedCircle

	// KindOrbital draws particles whose position is derived from time.
	KindOrbital

	// KindSprite draws textured quads.
	KindSprite

	// KindGlyph draws alpha-mask glyph quads.
	KindGlyph

	// KindMesh3D draws lit meshes.
	KindMesh3D

	// KindMesh3DFog draws lit meshes with distance fog.
	KindMesh3DFog

	// KindMesh3DTextured draws lit, textured meshes with fog.
	KindMesh3DTextured

	// KindOcean draws the projected-grid ocean.
	KindOcean

	numKinds
)

// NumKinds is the number of draw kinds.
const NumKinds = int(numKinds)

var kindNames = [numKinds]string{
	KindBase:              "base",
	KindInstancedRect:     "instanced_rect",
	KindInstancedTriangle: "instanced_triangle",
	KindInstancedCircle:   "instanced_circle",
	KindAnimatedRect:      "animated_rect",
	KindAnimatedTriangle:  "animated_triangle",
	KindAnimatedCircle:    "animated_circle",
	KindOrbital:           "orbital",
	KindSprite:            "sprite",
	KindGlyph:             "glyph",
	KindMesh3D:            "mesh3d",
	KindMesh3DFog:         "mesh3d_fog",
	KindMesh3DTextured:    "mesh3d_textured",
	KindOcean:             "ocean",
}

// String returns the kind name used in pipeline labels.
func (k DrawKind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("DrawKind(%d)", int(k))
	}
	return kindNames[k]
}

// AAMode selects the multisample configuration of a variant.
type AAMode int

const (
	// AAOff renders single-sampled straight to the surface.
	AAOff AAMode = iota

	// AAOn renders multisampled and resolves to the surface.
	AAOn

	numAAModes
)

// String returns "aa" or "noaa".
func (m AAMode) String() string {
	if m == AAOn {
		return "aa"
	}
	return "noaa"
}

// ModeFor maps an antialias flag to its mode.
func ModeFor(antialias bool) AAMode {
	if antialias {
		return AAOn
	}
	return AAOff
}
