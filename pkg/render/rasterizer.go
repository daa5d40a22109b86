package render

import (
	"math"

	"github.com/taigrr/bimstage/pkg/math3d"
)

// MeshRenderer is what the rasterizer needs from a mesh.
type MeshRenderer interface {
	GetVertex(i int) (pos, normal math3d.Vec3)
	GetFace(i int) [3]int
	TriangleCount() int
}

// Rasterizer draws triangle meshes into a framebuffer with a z-buffer.
type Rasterizer struct {
	DisableBackfaceCulling bool

	camera *Camera
	fb     *Framebuffer
	depth  []float64
}

// NewRasterizer creates a rasterizer for the given camera and framebuffer.
func NewRasterizer(camera *Camera, fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{camera: camera, fb: fb}
	r.ClearDepth()
	return r
}

// ClearDepth resets the z-buffer. Call once per frame, after any resize.
func (r *Rasterizer) ClearDepth() {
	n := r.fb.Width * r.fb.Height
	if len(r.depth) != n {
		r.depth = make([]float64, n)
	}
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
}

type screenVertex struct {
	pos   math3d.Vec3 // x,y in pixels, z is depth
	shade float64
}

// project transforms a world-space point to screen space.
// ok is false when the point is behind the near plane.
func (r *Rasterizer) project(viewProj math3d.Mat4, p math3d.Vec3) (math3d.Vec3, bool) {
	clip := viewProj.MulVec4(math3d.V4FromV3(p, 1))
	if clip.W <= 0 {
		return math3d.Vec3{}, false
	}
	ndc := clip.PerspectiveDivide()
	x := (ndc.X + 1) * 0.5 * float64(r.fb.Width)
	y := (1 - ndc.Y) * 0.5 * float64(r.fb.Height)
	return math3d.V3(x, y, ndc.Z), true
}

// DrawMesh renders a mesh with Gouraud shading: per-vertex intensity from
// the light direction plus a fixed ambient term.
func (r *Rasterizer) DrawMesh(mesh MeshRenderer, transform math3d.Mat4, c Color, lightDir math3d.Vec3) {
	viewProj := r.camera.ViewProjection()
	light := lightDir.Normalize()
	const ambient = 0.25

	for f := range mesh.TriangleCount() {
		face := mesh.GetFace(f)
		var sv [3]screenVertex
		visible := true
		for i := range 3 {
			p, n := mesh.GetVertex(face[i])
			wp := transform.MulVec3(p)
			wn := transform.MulVec3Dir(n).Normalize()
			proj, ok := r.project(viewProj, wp)
			if !ok {
				visible = false
				break
			}
			shade := ambient + (1-ambient)*math.Max(0, wn.Dot(light))
			sv[i] = screenVertex{pos: proj, shade: shade}
		}
		if !visible {
			continue
		}
		if !r.DisableBackfaceCulling && signedArea(sv) <= 0 {
			continue
		}
		r.fillTriangle(sv, c)
	}
}

// DrawMeshWireframe renders only triangle edges, no depth test.
func (r *Rasterizer) DrawMeshWireframe(mesh MeshRenderer, transform math3d.Mat4, c Color) {
	viewProj := r.camera.ViewProjection()
	for f := range mesh.TriangleCount() {
		face := mesh.GetFace(f)
		var pts [3]math3d.Vec3
		visible := true
		for i := range 3 {
			p, _ := mesh.GetVertex(face[i])
			proj, ok := r.project(viewProj, transform.MulVec3(p))
			if !ok {
				visible = false
				break
			}
			pts[i] = proj
		}
		if !visible {
			continue
		}
		r.drawLine(pts[0], pts[1], c)
		r.drawLine(pts[1], pts[2], c)
		r.drawLine(pts[2], pts[0], c)
	}
}

func signedArea(sv [3]screenVertex) float64 {
	ax, ay := sv[1].pos.X-sv[0].pos.X, sv[1].pos.Y-sv[0].pos.Y
	bx, by := sv[2].pos.X-sv[0].pos.X, sv[2].pos.Y-sv[0].pos.Y
	return ax*by - ay*bx
}

// fillTriangle rasterizes with barycentric coordinates, depth testing each
// pixel and interpolating the shade.
func (r *Rasterizer) fillTriangle(sv [3]screenVertex, c Color) {
	minX := int(math.Floor(math.Min(sv[0].pos.X, math.Min(sv[1].pos.X, sv[2].pos.X))))
	maxX := int(math.Ceil(math.Max(sv[0].pos.X, math.Max(sv[1].pos.X, sv[2].pos.X))))
	minY := int(math.Floor(math.Min(sv[0].pos.Y, math.Min(sv[1].pos.Y, sv[2].pos.Y))))
	maxY := int(math.Ceil(math.Max(sv[0].pos.Y, math.Max(sv[1].pos.Y, sv[2].pos.Y))))

	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, r.fb.Width-1)
	maxY = min(maxY, r.fb.Height-1)

	area := signedArea(sv)
	if area == 0 {
		return
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			w0 := edge(sv[1].pos, sv[2].pos, px, py) / area
			w1 := edge(sv[2].pos, sv[0].pos, px, py) / area
			w2 := edge(sv[0].pos, sv[1].pos, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*sv[0].pos.Z + w1*sv[1].pos.Z + w2*sv[2].pos.Z
			idx := y*r.fb.Width + x
			if z >= r.depth[idx] {
				continue
			}
			r.depth[idx] = z
			shade := w0*sv[0].shade + w1*sv[1].shade + w2*sv[2].shade
			r.fb.Pixels[idx] = c.Scale(shade)
		}
	}
}

func edge(a, b math3d.Vec3, px, py float64) float64 {
	return (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
}

// drawLine draws a line with integer Bresenham stepping, no depth test.
func (r *Rasterizer) drawLine(a, b math3d.Vec3, c Color) {
	x0, y0 := int(a.X), int(a.Y)
	x1, y1 := int(b.X), int(b.Y)
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		r.fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
