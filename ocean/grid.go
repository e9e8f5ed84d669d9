package ocean

import "math"

// degenerateRayEpsilon is the smallest downward ray component that still
// produces a plane intersection.
const degenerateRayEpsilon = 1e-4

// minEdgeOffset is the shortest origin offset expandEdge will push along.
const minEdgeOffset = 1e-6

// BlendMode selects how the far projected grid fades against a near patch.
type BlendMode uint32

const (
	// BlendFarOnly draws the projected grid alone; seam alpha is always 1.
	BlendFarOnly BlendMode = iota

	// BlendSeam fades the grid in around SeamRadius over SeamWidth.
	BlendSeam

	// BlendLegacyExtent fades around NearExtent with a width of a quarter
	// of the extent, for scenes tuned with the older fixed near patch.
	BlendLegacyExtent
)

// String returns the blend mode name.
func (m BlendMode) String() string {
	switch m {
	case BlendFarOnly:
		return "FarOnly"
	case BlendSeam:
		return "Seam"
	case BlendLegacyExtent:
		return "LegacyExtent"
	default:
		return "Unknown"
	}
}

// IndexCount returns the number of indices of an n×n vertex grid:
// two triangles per cell, (n-1)²·6 in total. Grids below 2×2 have none.
func IndexCount(n int) int {
	if n < 2 {
		return 0
	}
	return (n - 1) * (n - 1) * 6
}

// GridIndices builds the triangle list of an n×n vertex grid in row-major
// vertex order. It returns nil for n < 2.
func GridIndices(n int) []uint32 {
	count := IndexCount(n)
	if count == 0 {
		return nil
	}
	idx := make([]uint32, 0, count)
	stride := uint32(n) //nolint:gosec // n bounded by caller grid sizes
	for row := uint32(0); row < stride-1; row++ {
		for col := uint32(0); col < stride-1; col++ {
			i0 := row*stride + col
			i1 := i0 + 1
			i2 := i0 + stride
			i3 := i2 + 1
			idx = append(idx, i0, i2, i1, i1, i2, i3)
		}
	}
	return idx
}

// SnapOrigin snaps the camera's horizontal position down to the nearest
// multiple of snap, so the ray-cast origin only moves in whole cells.
// A non-positive snap returns the position unchanged.
func SnapOrigin(camX, camZ, snap float32) (x, z float32) {
	if snap <= 0 {
		return camX, camZ
	}
	x = float32(math.Floor(float64(camX/snap))) * snap
	z = float32(math.Floor(float64(camZ/snap))) * snap
	return x, z
}

// ViewRay returns the unit world-space direction through the NDC point
// (ndcX, ndcY) for a camera with the given vertical field of view (radians),
// aspect ratio, yaw and pitch.
func ViewRay(ndcX, ndcY, fov, aspect, yaw, pitch float32) Vec3 {
	tanHalf := float32(math.Tan(float64(fov) * 0.5))
	d := Vec3{X: ndcX * tanHalf * aspect, Y: ndcY * tanHalf, Z: -1}

	cp, sp := cos32(pitch), sin32(pitch)
	d = Vec3{X: d.X, Y: d.Y*cp - d.Z*sp, Z: d.Y*sp + d.Z*cp}

	cy, sy := cos32(yaw), sin32(yaw)
	d = Vec3{X: d.X*cy - d.Z*sy, Y: d.Y, Z: d.X*sy + d.Z*cy}

	return d.Normalize()
}

// IntersectPlane returns the ray parameter at which a ray starting height
// units above the y=0 plane reaches it, clamped to [0, maxDist]. Rays that
// do not point down by at least a small epsilon fall back to maxDist.
func IntersectPlane(height float32, dir Vec3, maxDist float32) float32 {
	if dir.Y > -degenerateRayEpsilon {
		return maxDist
	}
	return clamp(-height/dir.Y, 0, maxDist)
}

// Margins is the NDC overscan beyond the [-1, 1] view on each side.
type Margins struct {
	Bottom float32
	Top    float32
	Side   float32
}

// AdaptiveMargins widens the overscan where displacement is most likely to
// pull the mesh edge into view: low cameras over tall waves, and steep
// downward pitch for the bottom edge.
func AdaptiveMargins(camHeight, totalAmp, pitch, overscan, horizon float32) Margins {
	h := camHeight
	if h < 0.1 {
		h = 0.1
	}
	ratio := clamp(totalAmp/h, 0, 4)
	down := clamp(-pitch/(math.Pi/2), 0, 1)
	return Margins{
		Bottom: overscan * (1 + 2*ratio) * (1 + down),
		Top:    horizon * (1 + ratio),
		Side:   overscan * (1 + ratio),
	}
}

// SeamAlpha returns the far-surface opacity at horizontal distance dist from
// the camera. The ramp is a smoothstep centered on radius and width wide.
// When the near patch is disabled the far surface is always opaque.
func SeamAlpha(dist, radius, width float32, nearEnabled bool) float32 {
	if !nearEnabled {
		return 1
	}
	half := width * 0.5
	return smoothstep(radius-half, radius+half, dist)
}

// Params holds the procedural inputs of one projected-grid draw.
type Params struct {
	GridSize      int
	Time          float32
	FOV           float32
	Aspect        float32
	MaxDistance   float32
	SnapSize      float32
	Overscan      float32
	HorizonMargin float32
	Yaw           float32
	Pitch         float32
	Camera        Vec3
	Waves         Waves

	NearExtent float32
	Blend      BlendMode
	SeamRadius float32
	SeamWidth  float32
}

// seam returns the effective seam radius and width for the blend mode.
func (p *Params) seam() (radius, width float32, enabled bool) {
	switch p.Blend {
	case BlendSeam:
		return p.SeamRadius, p.SeamWidth, true
	case BlendLegacyExtent:
		return p.NearExtent, p.NearExtent * 0.25, true
	default:
		return 0, 0, false
	}
}

// Vertex is one generated surface vertex.
type Vertex struct {
	Position Vec3
	Normal   Vec3
	Color    [3]float32
	Alpha    float32
}

// GridVertex generates vertex id of the projected grid, the CPU twin of the
// ocean vertex shader.
func GridVertex(id int, p *Params) Vertex {
	n := p.GridSize
	if n < 2 {
		n = 2
	}
	row := id / n
	col := id % n
	u := float32(col) / float32(n-1)
	v := float32(row) / float32(n-1)

	totalAmp := p.Waves.TotalAmplitude()
	m := AdaptiveMargins(p.Camera.Y, totalAmp, p.Pitch, p.Overscan, p.HorizonMargin)
	ndcX := mix(-1-m.Side, 1+m.Side, u)
	ndcY := mix(-1-m.Bottom, 1+m.Top, v)

	dir := ViewRay(ndcX, ndcY, p.FOV, p.Aspect, p.Yaw, p.Pitch)
	ox, oz := SnapOrigin(p.Camera.X, p.Camera.Z, p.SnapSize)
	t := IntersectPlane(p.Camera.Y, dir, p.MaxDistance)
	sx := ox + dir.X*t
	sz := oz + dir.Z*t

	sx, sz = expandEdge(sx, sz, ox, oz, ndcX, ndcY, m, totalAmp, p.Yaw)

	pos, normal := Displace(sx, sz, &p.Waves, p.Time)

	radius, width, near := p.seam()
	dx := pos.X - p.Camera.X
	dz := pos.Z - p.Camera.Z
	dist := float32(math.Sqrt(float64(dx*dx + dz*dz)))

	return Vertex{
		Position: pos,
		Normal:   normal,
		Color:    WaterColor(pos.Y, totalAmp, p.Waves.MaxSteepness()),
		Alpha:    SeamAlpha(dist, radius, width, near),
	}
}

// expandEdge pushes samples in the overscanned side and bottom bands away
// from the origin, by up to twice the total amplitude when the sample lies
// along the view direction.
func expandEdge(sx, sz, ox, oz, ndcX, ndcY float32, m Margins, totalAmp, yaw float32) (float32, float32) {
	if totalAmp == 0 {
		return sx, sz
	}
	var ex, ey float32
	if m.Side > 0 {
		ex = clamp((abs32(ndcX)-1)/m.Side, 0, 1)
	}
	if m.Bottom > 0 {
		ey = clamp((-ndcY-1)/m.Bottom, 0, 1)
	}
	edge := ex
	if ey > edge {
		edge = ey
	}
	if edge == 0 {
		return sx, sz
	}

	hx, hz := sx-ox, sz-oz
	l := float32(math.Sqrt(float64(hx*hx + hz*hz)))
	if l < minEdgeOffset {
		return sx, sz
	}
	hx /= l
	hz /= l

	align := abs32(hx*sin32(yaw) - hz*cos32(yaw))
	expand := totalAmp * edge * (1 + align)
	return sx + hx*expand, sz + hz*expand
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
