// Package geom decodes a raw binary building model into renderable
// triangle-mesh descriptors with per-instance transform and material.
package geom

import (
	"errors"

	"github.com/taigrr/bimstage/pkg/math3d"
)

// ErrDecode is returned when a model cannot be opened at all. It is fatal
// for the viewer instance that attempted the load; per-instance conversion
// problems are skipped instead.
var ErrDecode = errors.New("geometry decode failed")

// ErrMemoryLimit is returned by kernels that enforce a memory ceiling when
// materializing an instance would exceed it.
var ErrMemoryLimit = errors.New("kernel memory limit exceeded")

// OpenOptions bounds the kernel's resource usage while a model is open.
type OpenOptions struct {
	// CoordinateToOrigin recenters model coordinates around the origin so
	// large-site models keep float precision.
	CoordinateToOrigin bool
	// MemoryLimitBytes caps the bytes of geometry the kernel may hold
	// live at once. Zero means no ceiling.
	MemoryLimitBytes int64
}

// ModelHandle identifies an open model inside a kernel.
type ModelHandle int

// GeomHandle identifies one placed geometry instance inside an open model.
// Geometry handles are kernel-owned and must be released explicitly; the
// kernel does not garbage-collect them.
type GeomHandle int

// Instance is the kernel-level view of one placed geometry: interleaved
// vertex data where every 6 floats are (position.xyz, normal.xyz), a
// triangle index list, a flat RGBA color, and a placement transform.
type Instance struct {
	ObjectID    string
	Name        string
	Interleaved []float32
	Indices     []uint32
	Color       [4]float64
	Transform   math3d.Mat4
}

// Kernel is the external geometry engine the streamer drives. Implementations
// own all geometry memory; callers must Release every handle they obtain and
// CloseModel when done, on every exit path.
type Kernel interface {
	OpenModel(buf []byte, opts OpenOptions) (ModelHandle, error)
	// InstanceCount returns the number of placed geometry instances.
	InstanceCount(m ModelHandle) int
	// InstanceAt materializes instance i and returns its handle.
	InstanceAt(m ModelHandle, i int) (GeomHandle, error)
	// Geometry returns the data behind a handle. The returned buffers are
	// only valid until Release.
	Geometry(g GeomHandle) (*Instance, error)
	// Release frees a geometry handle. Releasing an unknown handle is a
	// no-op.
	Release(g GeomHandle)
	// CloseModel frees the model and any handles still live under it.
	CloseModel(m ModelHandle)
}
