package math3d

import "math"

// Mat4 represents a 4x4 transformation matrix, stored row-major.
type Mat4 struct {
	M [4][4]float64
}

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{M: [4][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}}
}

// Translate returns a translation matrix.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m.M[0][3] = v.X
	m.M[1][3] = v.Y
	m.M[2][3] = v.Z
	return m
}

// Scale returns a scale matrix.
func Scale(v Vec3) Mat4 {
	m := Identity()
	m.M[0][0] = v.X
	m.M[1][1] = v.Y
	m.M[2][2] = v.Z
	return m
}

// RotateX returns a rotation matrix around the X axis (radians).
func RotateX(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m.M[1][1] = c
	m.M[1][2] = -s
	m.M[2][1] = s
	m.M[2][2] = c
	return m
}

// RotateY returns a rotation matrix around the Y axis (radians).
func RotateY(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m.M[0][0] = c
	m.M[0][2] = s
	m.M[2][0] = -s
	m.M[2][2] = c
	return m
}

// RotateZ returns a rotation matrix around the Z axis (radians).
func RotateZ(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m.M[0][0] = c
	m.M[0][1] = -s
	m.M[1][0] = s
	m.M[1][1] = c
	return m
}

// QuatToMat4 converts a quaternion (x, y, z, w) to a rotation matrix.
func QuatToMat4(x, y, z, w float64) Mat4 {
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z
	return Mat4{M: [4][4]float64{
		{1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy), 0},
		{2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx), 0},
		{2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy), 0},
		{0, 0, 0, 1},
	}}
}

// Mat4FromSlice builds a matrix from a flat 16-element slice in column-major
// order (the convention binary model formats use for node matrices).
func Mat4FromSlice(s []float64) Mat4 {
	var m Mat4
	for col := range 4 {
		for row := range 4 {
			m.M[row][col] = s[col*4+row]
		}
	}
	return m
}

// Perspective returns a perspective projection matrix.
// fov is the vertical field of view in radians.
func Perspective(fov, aspect, near, far float64) Mat4 {
	f := 1 / math.Tan(fov/2)
	var m Mat4
	m.M[0][0] = f / aspect
	m.M[1][1] = f
	m.M[2][2] = (far + near) / (near - far)
	m.M[2][3] = (2 * far * near) / (near - far)
	m.M[3][2] = -1
	return m
}

// LookAtMatrix returns a view matrix looking from eye toward target.
func LookAtMatrix(eye, target, up Vec3) Mat4 {
	f := target.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Mat4{M: [4][4]float64{
		{s.X, s.Y, s.Z, -s.Dot(eye)},
		{u.X, u.Y, u.Z, -u.Dot(eye)},
		{-f.X, -f.Y, -f.Z, f.Dot(eye)},
		{0, 0, 0, 1},
	}}
}

// Mul returns the matrix product a * b.
func (a Mat4) Mul(b Mat4) Mat4 {
	var r Mat4
	for i := range 4 {
		for j := range 4 {
			sum := 0.0
			for k := range 4 {
				sum += a.M[i][k] * b.M[k][j]
			}
			r.M[i][j] = sum
		}
	}
	return r
}

// MulVec4 transforms a Vec4 by the matrix.
func (a Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		a.M[0][0]*v.X + a.M[0][1]*v.Y + a.M[0][2]*v.Z + a.M[0][3]*v.W,
		a.M[1][0]*v.X + a.M[1][1]*v.Y + a.M[1][2]*v.Z + a.M[1][3]*v.W,
		a.M[2][0]*v.X + a.M[2][1]*v.Y + a.M[2][2]*v.Z + a.M[2][3]*v.W,
		a.M[3][0]*v.X + a.M[3][1]*v.Y + a.M[3][2]*v.Z + a.M[3][3]*v.W,
	}
}

// MulVec3 transforms a point (W=1) by the matrix, with perspective divide.
func (a Mat4) MulVec3(v Vec3) Vec3 {
	return a.MulVec4(V4FromV3(v, 1)).PerspectiveDivide()
}

// MulVec3Dir transforms a direction (W=0) by the matrix. No translation
// is applied; callers normalize the result when it matters.
func (a Mat4) MulVec3Dir(v Vec3) Vec3 {
	return a.MulVec4(V4FromV3(v, 0)).Vec3()
}
