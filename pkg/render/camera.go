package render

import (
	"math"

	"github.com/taigrr/bimstage/pkg/math3d"
)

// Camera holds view and projection parameters.
type Camera struct {
	Position math3d.Vec3
	Target   math3d.Vec3
	Up       math3d.Vec3

	fov    float64
	aspect float64
	near   float64
	far    float64
}

// NewCamera creates a camera with sensible defaults.
func NewCamera() *Camera {
	return &Camera{
		Position: math3d.V3(0, 0, 5),
		Target:   math3d.Zero3(),
		Up:       math3d.V3(0, 1, 0),
		fov:      math.Pi / 3,
		aspect:   1,
		near:     0.1,
		far:      1000,
	}
}

// SetFOV sets the vertical field of view in radians.
func (c *Camera) SetFOV(fov float64) {
	c.fov = fov
}

// FOV returns the vertical field of view in radians.
func (c *Camera) FOV() float64 {
	return c.fov
}

// SetAspectRatio sets the width/height aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.aspect = aspect
}

// SetClipPlanes sets the near and far clip distances.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.near = near
	c.far = far
}

// SetPosition moves the camera.
func (c *Camera) SetPosition(p math3d.Vec3) {
	c.Position = p
}

// LookAt points the camera at a target.
func (c *Camera) LookAt(target math3d.Vec3) {
	c.Target = target
}

// ViewMatrix returns the world-to-camera matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	return math3d.LookAtMatrix(c.Position, c.Target, c.Up)
}

// ViewProjection returns the combined projection * view matrix.
func (c *Camera) ViewProjection() math3d.Mat4 {
	return math3d.Perspective(c.fov, c.aspect, c.near, c.far).Mul(c.ViewMatrix())
}
