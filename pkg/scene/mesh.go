// Package scene holds the renderable state for one loaded building model:
// triangle meshes with per-instance materials, and the registry that maps
// a model's external object identifiers to renderable mesh handles.
package scene

import (
	"github.com/taigrr/bimstage/pkg/math3d"
)

// Material is a flat-shaded surface description. Building-model instances
// carry a single RGBA color rather than textures.
type Material struct {
	Name        string
	Color       [4]float64 // RGBA in 0-1 range
	Emissive    [3]float64 // additive term, used by highlight materials
	Transparent bool
}

// NewMaterial creates an opaque material from an RGBA color, marking it
// transparent when alpha < 1.
func NewMaterial(r, g, b, a float64) *Material {
	return &Material{
		Color:       [4]float64{r, g, b, a},
		Transparent: a < 1,
	}
}

// HighlightMaterial returns the fixed emissive material assigned to
// highlighted meshes.
func HighlightMaterial() *Material {
	return &Material{
		Name:     "highlight",
		Color:    [4]float64{0, 0.8, 1, 1},
		Emissive: [3]float64{0, 0.4, 0.5},
	}
}

// Mesh is one placed geometry instance: triangle data in model space plus
// its material and visibility. The material field is a pointer so the
// highlight engine can swap it and later restore the original reference.
type Mesh struct {
	ObjectID  string // external object identifier from the source model
	Name      string
	Positions []math3d.Vec3
	Normals   []math3d.Vec3
	Indices   []int
	Material  *Material
	Visible   bool
	Bounds    math3d.Box3
}

// NewMesh creates a visible mesh and computes its bounds.
func NewMesh(objectID string, positions, normals []math3d.Vec3, indices []int, mat *Material) *Mesh {
	m := &Mesh{
		ObjectID:  objectID,
		Positions: positions,
		Normals:   normals,
		Indices:   indices,
		Material:  mat,
		Visible:   true,
	}
	m.CalculateBounds()
	return m
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	b := math3d.EmptyBox3()
	for _, p := range m.Positions {
		b = b.Expand(p)
	}
	m.Bounds = b
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// Transform applies a transformation matrix to all vertices and
// recomputes bounds.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Positions {
		m.Positions[i] = mat.MulVec3(m.Positions[i])
	}
	for i := range m.Normals {
		m.Normals[i] = mat.MulVec3Dir(m.Normals[i]).Normalize()
	}
	m.CalculateBounds()
}

// Face returns the three vertex indices of triangle i.
func (m *Mesh) Face(i int) [3]int {
	return [3]int{m.Indices[3*i], m.Indices[3*i+1], m.Indices[3*i+2]}
}

// GetVertex returns the position and normal for vertex i.
// Implements render.MeshRenderer.
func (m *Mesh) GetVertex(i int) (pos, normal math3d.Vec3) {
	if i < len(m.Normals) {
		normal = m.Normals[i]
	}
	return m.Positions[i], normal
}

// GetFace returns the vertex indices for triangle i.
// Implements render.MeshRenderer.
func (m *Mesh) GetFace(i int) [3]int {
	return m.Face(i)
}
