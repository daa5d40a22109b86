package viewer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/bimstage/pkg/geom"
	"github.com/taigrr/bimstage/pkg/math3d"
	"github.com/taigrr/bimstage/pkg/scene"
)

type stubKernel struct {
	instances []*geom.Instance
	openErr   error
}

func (s *stubKernel) OpenModel([]byte, geom.OpenOptions) (geom.ModelHandle, error) {
	if s.openErr != nil {
		return 0, s.openErr
	}
	return 1, nil
}
func (s *stubKernel) InstanceCount(geom.ModelHandle) int { return len(s.instances) }
func (s *stubKernel) InstanceAt(_ geom.ModelHandle, i int) (geom.GeomHandle, error) {
	return geom.GeomHandle(i), nil
}
func (s *stubKernel) Geometry(g geom.GeomHandle) (*geom.Instance, error) {
	return s.instances[int(g)], nil
}
func (s *stubKernel) Release(geom.GeomHandle)     {}
func (s *stubKernel) CloseModel(geom.ModelHandle) {}

func wallInstance(id string, shift float64) *geom.Instance {
	return &geom.Instance{
		ObjectID: id,
		Name:     "Wall",
		Interleaved: []float32{
			0, 0, 0, 0, 0, 1,
			1, 0, 0, 0, 0, 1,
			0, 1, 0, 0, 0, 1,
		},
		Indices:   []uint32{0, 1, 2},
		Color:     [4]float64{0.8, 0.8, 0.8, 1},
		Transform: math3d.Translate(math3d.V3(shift, 0, 0)),
	}
}

func TestLoadModelRegistersTransformedMeshes(t *testing.T) {
	k := &stubKernel{instances: []*geom.Instance{
		wallInstance("wall-1", 0),
		wallInstance("wall-2", 10),
	}}
	registry := scene.NewRegistry()

	n, err := LoadModel(k, nil, geom.OpenOptions{}, registry)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, registry.Len())

	// Placement transform is baked into vertex positions.
	m2 := registry.Resolve("wall-2")[0]
	assert.Equal(t, math3d.V3(10, 0, 0), m2.Positions[0])
	assert.Equal(t, "Wall", m2.Name)
	assert.True(t, m2.Visible)
	assert.False(t, m2.Material.Transparent)
}

func TestLoadModelDecodeFailureClearsRegistry(t *testing.T) {
	registry := scene.NewRegistry()
	registry.Register("stale", unitMesh("stale", math3d.Zero3()))

	k := &stubKernel{openErr: fmt.Errorf("%w: bad magic", geom.ErrDecode)}
	_, err := LoadModel(k, nil, geom.OpenOptions{}, registry)
	require.ErrorIs(t, err, geom.ErrDecode)
	assert.Equal(t, 0, registry.Len(), "failed load must leave no stale meshes")
}
