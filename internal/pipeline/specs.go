package pipeline

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
)

type blendKind int

const (
	blendNone blendKind = iota
	blendPremultiplied
)

// kindSpec is the fixed vertex/fragment contract of one DrawKind.
type kindSpec struct {
	shader    ShaderID
	vs, fs    string
	buffers   func() []gputypes.VertexBufferLayout
	topology  gputypes.PrimitiveTopology
	cull      gputypes.CullMode
	blend     blendKind
	textured  bool
	depthTest bool
}

func noBuffers() []gputypes.VertexBufferLayout { return nil }

var kindSpecs = [numKinds]kindSpec{
	KindBase: {
		shader: ShaderShapes, vs: "vs_base", fs: "fs_shape",
		buffers: baseVertexLayout, topology: gputypes.PrimitiveTopologyTriangleList,
		blend: blendPremultiplied,
	},
	KindInstancedRect: {
		shader: ShaderShapes, vs: "vs_instanced_rect", fs: "fs_shape",
		buffers: dynamicInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied,
	},
	KindInstancedTriangle: {
		shader: ShaderShapes, vs: "vs_instanced_triangle", fs: "fs_shape",
		buffers: dynamicInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied,
	},
	KindInstancedCircle: {
		shader: ShaderShapes, vs: "vs_instanced_circle", fs: "fs_circle",
		buffers: dynamicInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied,
	},
	KindAnimatedRect: {
		shader: ShaderShapes, vs: "vs_animated_rect", fs: "fs_shape",
		buffers: animatedInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied,
	},
	KindAnimatedTriangle: {
		shader: ShaderShapes, vs: "vs_animated_triangle", fs: "fs_shape",
		buffers: animatedInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied,
	},
	KindAnimatedCircle: {
		shader: ShaderShapes, vs: "vs_animated_circle", fs: "fs_circle",
		buffers: animatedInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied,
	},
	KindOrbital: {
		shader: ShaderShapes, vs: "vs_orbital", fs: "fs_circle",
		buffers: orbitalInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied,
	},
	KindSprite: {
		shader: ShaderSprite, vs: "vs_main", fs: "fs_main",
		buffers: spriteInstanceLayout, topology: gputypes.PrimitiveTopologyTriangleStrip,
		blend: blendPremultiplied, textured: true,
	},
	KindGlyph: {
		shader: ShaderGlyph, vs: "vs_main", fs: "fs_main",
		buffers: glyphVertexLayout, topology: gputypes.PrimitiveTopologyTriangleList,
		blend: blendPremultiplied, textured: true,
	},
	KindMesh3D: {
		shader: ShaderMesh, vs: "vs_main", fs: "fs_main",
		buffers: meshVertexLayout, topology: gputypes.PrimitiveTopologyTriangleList,
		cull: gputypes.CullModeBack, depthTest: true,
	},
	KindMesh3DFog: {
		shader: ShaderMesh, vs: "vs_main", fs: "fs_fog",
		buffers: meshVertexLayout, topology: gputypes.PrimitiveTopologyTriangleList,
		cull: gputypes.CullModeBack, depthTest: true,
	},
	KindMesh3DTextured: {
		shader: ShaderMesh, vs: "vs_main", fs: "fs_textured",
		buffers: meshVertexLayout, topology: gputypes.PrimitiveTopologyTriangleList,
		cull: gputypes.CullModeBack, depthTest: true, textured: true,
	},
	KindOcean: {
		shader: ShaderOcean, vs: "vs_main", fs: "fs_main",
		buffers: noBuffers, topology: gputypes.PrimitiveTopologyTriangleList,
		blend: blendPremultiplied, depthTest: true,
	},
}

// requiredEntryPoints lists the entry points the kinds built from id expect.
func requiredEntryPoints(id ShaderID) []entryPoint {
	var eps []entryPoint
	seen := make(map[entryPoint]bool)
	add := func(name string, stage ir.ShaderStage) {
		ep := entryPoint{name: name, stage: stage}
		if !seen[ep] {
			seen[ep] = true
			eps = append(eps, ep)
		}
	}
	for k := range kindSpecs {
		s := &kindSpecs[k]
		if s.shader != id {
			continue
		}
		add(s.vs, ir.StageVertex)
		add(s.fs, ir.StageFragment)
	}
	return eps
}
