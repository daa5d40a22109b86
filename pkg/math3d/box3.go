package math3d

// Box3 is an axis-aligned bounding box.
type Box3 struct {
	Min, Max Vec3
}

// EmptyBox3 returns a box that contains nothing; the first Expand or Union
// replaces it entirely.
func EmptyBox3() Box3 {
	const huge = 1e308
	return Box3{
		Min: Vec3{huge, huge, huge},
		Max: Vec3{-huge, -huge, -huge},
	}
}

// IsEmpty reports whether the box contains no points.
func (b Box3) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Expand grows the box to include point p.
func (b Box3) Expand(p Vec3) Box3 {
	return Box3{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b Box3) Union(o Box3) Box3 {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return Box3{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Center returns the center of the box.
func (b Box3) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the box.
func (b Box3) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// MaxDim returns the largest dimension of the box, 0 for an empty box.
func (b Box3) MaxDim() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Size().MaxComponent()
}
