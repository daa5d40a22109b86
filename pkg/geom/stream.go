package geom

import (
	"fmt"

	"fortio.org/log"

	"github.com/taigrr/bimstage/pkg/math3d"
)

// MeshDesc is one streamed, renderable mesh: de-interleaved vertex arrays,
// triangle indices, flat color, and the placement transform.
type MeshDesc struct {
	ObjectID    string
	Name        string
	Positions   []math3d.Vec3
	Normals     []math3d.Vec3
	Indices     []int
	Color       [4]float64
	Transparent bool
	Transform   math3d.Mat4
}

// Stream decodes buf with the kernel and calls fn once per usable placed
// instance. The sequence is finite and not restartable; re-decoding means
// calling Stream again on the original buffer.
//
// Per-instance conversion failures and degenerate instances (empty vertex
// or index arrays) are skipped silently; a model that fails to open is
// fatal and returns a wrapped ErrDecode. Every kernel geometry handle is
// released before moving to the next instance, and the model handle is
// closed before return on every path.
func Stream(k Kernel, buf []byte, opts OpenOptions, fn func(MeshDesc) error) error {
	model, err := k.OpenModel(buf, opts)
	if err != nil {
		return err
	}
	defer k.CloseModel(model)

	count := k.InstanceCount(model)
	for i := range count {
		if err := streamOne(k, model, i, fn); err != nil {
			return err
		}
	}
	return nil
}

// streamOne converts a single instance, guaranteeing handle release on
// every exit path. Only fn's error propagates; conversion problems are
// logged at debug level and skipped.
func streamOne(k Kernel, model ModelHandle, i int, fn func(MeshDesc) error) error {
	g, err := k.InstanceAt(model, i)
	if err != nil {
		log.Debugf("skipping instance %d: %v", i, err)
		return nil
	}
	defer k.Release(g)

	inst, err := k.Geometry(g)
	if err != nil {
		log.Debugf("skipping instance %d: %v", i, err)
		return nil
	}

	desc, ok := convert(inst)
	if !ok {
		return nil
	}
	return fn(desc)
}

// convert de-interleaves the kernel's 6-float vertex layout into separate
// position and normal arrays, each half the float count. Degenerate
// instances report ok=false.
func convert(inst *Instance) (MeshDesc, bool) {
	if len(inst.Interleaved) == 0 || len(inst.Indices) == 0 {
		return MeshDesc{}, false
	}
	if len(inst.Interleaved)%6 != 0 {
		log.Debugf("instance %q: interleaved length %d not a multiple of 6", inst.ObjectID, len(inst.Interleaved))
		return MeshDesc{}, false
	}

	n := len(inst.Interleaved) / 6
	positions := make([]math3d.Vec3, n)
	normals := make([]math3d.Vec3, n)
	for v := range n {
		base := v * 6
		positions[v] = math3d.V3(
			float64(inst.Interleaved[base]),
			float64(inst.Interleaved[base+1]),
			float64(inst.Interleaved[base+2]))
		normals[v] = math3d.V3(
			float64(inst.Interleaved[base+3]),
			float64(inst.Interleaved[base+4]),
			float64(inst.Interleaved[base+5]))
	}

	indices := make([]int, len(inst.Indices))
	for i, idx := range inst.Indices {
		if int(idx) >= n {
			log.Debugf("instance %q: index %d out of range", inst.ObjectID, idx)
			return MeshDesc{}, false
		}
		indices[i] = int(idx)
	}

	return MeshDesc{
		ObjectID:    inst.ObjectID,
		Name:        inst.Name,
		Positions:   positions,
		Normals:     normals,
		Indices:     indices,
		Color:       inst.Color,
		Transparent: inst.Color[3] < 1,
		Transform:   inst.Transform,
	}, true
}

// CountInstances opens a model just to report how many placed instances it
// contains. Used by the info command.
func CountInstances(k Kernel, buf []byte) (int, error) {
	model, err := k.OpenModel(buf, OpenOptions{})
	if err != nil {
		return 0, fmt.Errorf("count instances: %w", err)
	}
	defer k.CloseModel(model)
	return k.InstanceCount(model), nil
}
