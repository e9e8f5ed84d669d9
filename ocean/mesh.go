package ocean

import (
	"math"

	"github.com/gogpu/rendercore/internal/parallel"
)

// Mesh builds every vertex of the projected grid on the CPU, one row per
// task on the shared worker pool. The result matches what the vertex
// shader generates for the same Params, indexed by vertex id.
func Mesh(p *Params) []Vertex {
	n := max(p.GridSize, 2)
	out := make([]Vertex, n*n)
	parallel.Shared().ForRange(n, 1, func(lo, hi int) {
		for row := lo; row < hi; row++ {
			for col := range n {
				id := row*n + col
				out[id] = GridVertex(id, p)
			}
		}
	})
	return out
}

// Bounds summarizes a generated mesh.
type Bounds struct {
	MinHeight, MaxHeight float32

	// Reach is the largest horizontal distance from the camera.
	Reach float32

	// Hidden counts vertices faded out by the near seam.
	Hidden int
}

// MeshBounds measures vs relative to the camera at cam.
func MeshBounds(vs []Vertex, cam Vec3) Bounds {
	if len(vs) == 0 {
		return Bounds{}
	}
	b := Bounds{MinHeight: vs[0].Position.Y, MaxHeight: vs[0].Position.Y}
	for i := range vs {
		v := &vs[i]
		b.MinHeight = min(b.MinHeight, v.Position.Y)
		b.MaxHeight = max(b.MaxHeight, v.Position.Y)
		dx, dz := v.Position.X-cam.X, v.Position.Z-cam.Z
		b.Reach = max(b.Reach, float32(math.Sqrt(float64(dx*dx+dz*dz))))
		if v.Alpha == 0 {
			b.Hidden++
		}
	}
	return b
}
