package geom

import (
	"bytes"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/bimstage/pkg/math3d"
)

// GLBKernel decodes binary GLB building models (the shape cloud translation
// services emit). It implements Kernel with an explicit handle arena: every
// materialized instance stays live, and counted against the memory ceiling,
// until it is released.
type GLBKernel struct {
	nextModel ModelHandle
	nextGeom  GeomHandle
	models    map[ModelHandle]*glbModel
	geoms     map[GeomHandle]*geomSlot
}

type glbModel struct {
	doc        *gltf.Document
	placements []placement
	opts       OpenOptions
	liveBytes  int64
	handles    map[GeomHandle]struct{}
}

// placement is one node/primitive pair with its accumulated world transform.
type placement struct {
	primitive *gltf.Primitive
	transform math3d.Mat4
	objectID  string
	name      string
}

type geomSlot struct {
	model ModelHandle
	inst  *Instance
	bytes int64
}

// NewGLBKernel creates an empty kernel.
func NewGLBKernel() *GLBKernel {
	return &GLBKernel{
		models: make(map[ModelHandle]*glbModel),
		geoms:  make(map[GeomHandle]*geomSlot),
	}
}

// OpenModel parses a GLB buffer and flattens its node hierarchy into placed
// geometry instances. Parse failure is fatal (wrapped ErrDecode).
func (k *GLBKernel) OpenModel(buf []byte, opts OpenOptions) (ModelHandle, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(buf)).Decode(doc); err != nil {
		return 0, fmt.Errorf("%w: open glb: %v", ErrDecode, err)
	}

	m := &glbModel{
		doc:     doc,
		opts:    opts,
		handles: make(map[GeomHandle]struct{}),
	}

	if len(doc.Scenes) > 0 {
		sceneIdx := 0
		if doc.Scene != nil {
			sceneIdx = int(*doc.Scene)
		}
		for _, nodeIdx := range doc.Scenes[sceneIdx].Nodes {
			walkNode(doc, int(nodeIdx), math3d.Identity(), m)
		}
	} else {
		for i := range doc.Nodes {
			if isRootNode(doc, i) {
				walkNode(doc, i, math3d.Identity(), m)
			}
		}
	}

	if opts.CoordinateToOrigin {
		recenter(m)
	}

	k.nextModel++
	h := k.nextModel
	k.models[h] = m
	return h, nil
}

// InstanceCount returns the number of placed geometry instances.
func (k *GLBKernel) InstanceCount(m ModelHandle) int {
	model, ok := k.models[m]
	if !ok {
		return 0
	}
	return len(model.placements)
}

// InstanceAt materializes instance i: reads its accessors, interleaves
// position+normal data, and reserves arena space against the memory ceiling.
func (k *GLBKernel) InstanceAt(mh ModelHandle, i int) (GeomHandle, error) {
	model, ok := k.models[mh]
	if !ok {
		return 0, fmt.Errorf("unknown model handle %d", mh)
	}
	if i < 0 || i >= len(model.placements) {
		return 0, fmt.Errorf("instance %d out of range", i)
	}
	p := model.placements[i]

	inst, err := materialize(model.doc, p)
	if err != nil {
		return 0, fmt.Errorf("instance %d: %w", i, err)
	}

	size := int64(len(inst.Interleaved)*4 + len(inst.Indices)*4)
	if model.opts.MemoryLimitBytes > 0 && model.liveBytes+size > model.opts.MemoryLimitBytes {
		return 0, fmt.Errorf("%w: %d live + %d requested", ErrMemoryLimit, model.liveBytes, size)
	}
	model.liveBytes += size

	k.nextGeom++
	h := k.nextGeom
	k.geoms[h] = &geomSlot{model: mh, inst: inst, bytes: size}
	model.handles[h] = struct{}{}
	return h, nil
}

// Geometry returns the instance behind a handle.
func (k *GLBKernel) Geometry(g GeomHandle) (*Instance, error) {
	slot, ok := k.geoms[g]
	if !ok {
		return nil, fmt.Errorf("unknown geometry handle %d", g)
	}
	return slot.inst, nil
}

// Release frees a geometry handle and its arena space.
func (k *GLBKernel) Release(g GeomHandle) {
	slot, ok := k.geoms[g]
	if !ok {
		return
	}
	if model, ok := k.models[slot.model]; ok {
		model.liveBytes -= slot.bytes
		delete(model.handles, g)
	}
	delete(k.geoms, g)
}

// CloseModel frees the model and any geometry handles still live under it.
func (k *GLBKernel) CloseModel(m ModelHandle) {
	model, ok := k.models[m]
	if !ok {
		return
	}
	for g := range model.handles {
		delete(k.geoms, g)
	}
	delete(k.models, m)
}

// LiveBytes reports the bytes of geometry currently held for a model.
func (k *GLBKernel) LiveBytes(m ModelHandle) int64 {
	if model, ok := k.models[m]; ok {
		return model.liveBytes
	}
	return 0
}

func isRootNode(doc *gltf.Document, i int) bool {
	for _, n := range doc.Nodes {
		for _, child := range n.Children {
			if int(child) == i {
				return false
			}
		}
	}
	return true
}

// walkNode accumulates transforms down the node tree and records one
// placement per triangle primitive.
func walkNode(doc *gltf.Document, nodeIdx int, parent math3d.Mat4, m *glbModel) {
	node := doc.Nodes[nodeIdx]

	local := math3d.Identity()
	if node.Translation != [3]float64{0, 0, 0} {
		local = local.Mul(math3d.Translate(math3d.V3(
			node.Translation[0], node.Translation[1], node.Translation[2])))
	}
	if node.Rotation != [4]float64{0, 0, 0, 1} {
		local = local.Mul(math3d.QuatToMat4(
			node.Rotation[0], node.Rotation[1], node.Rotation[2], node.Rotation[3]))
	}
	if node.Scale != [3]float64{1, 1, 1} && node.Scale != [3]float64{0, 0, 0} {
		local = local.Mul(math3d.Scale(math3d.V3(node.Scale[0], node.Scale[1], node.Scale[2])))
	}
	if node.Matrix != [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1} {
		local = math3d.Mat4FromSlice(node.Matrix[:])
	}

	world := parent.Mul(local)

	if node.Mesh != nil {
		gm := doc.Meshes[int(*node.Mesh)]
		objectID := node.Name
		if objectID == "" {
			objectID = fmt.Sprintf("node-%04d", nodeIdx)
		}
		for _, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
				continue
			}
			if _, ok := prim.Attributes[gltf.POSITION]; !ok {
				continue
			}
			m.placements = append(m.placements, placement{
				primitive: prim,
				transform: world,
				objectID:  objectID,
				name:      gm.Name,
			})
		}
	}

	for _, child := range node.Children {
		walkNode(doc, int(child), world, m)
	}
}

// recenter shifts every placement so the model's approximate bounds center
// sits at the origin. Bounds come from the position accessors' min/max so
// no geometry is materialized.
func recenter(m *glbModel) {
	box := math3d.EmptyBox3()
	for _, p := range m.placements {
		acc := m.doc.Accessors[p.primitive.Attributes[gltf.POSITION]]
		if len(acc.Min) < 3 || len(acc.Max) < 3 {
			continue
		}
		lo := math3d.V3(float64(acc.Min[0]), float64(acc.Min[1]), float64(acc.Min[2]))
		hi := math3d.V3(float64(acc.Max[0]), float64(acc.Max[1]), float64(acc.Max[2]))
		for _, corner := range boxCorners(lo, hi) {
			box = box.Expand(p.transform.MulVec3(corner))
		}
	}
	if box.IsEmpty() {
		return
	}
	shift := math3d.Translate(box.Center().Negate())
	for i := range m.placements {
		m.placements[i].transform = shift.Mul(m.placements[i].transform)
	}
}

func boxCorners(lo, hi math3d.Vec3) [8]math3d.Vec3 {
	return [8]math3d.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z},
	}
}

// materialize reads one primitive's accessors into an Instance with
// interleaved (position, normal) vertex data.
func materialize(doc *gltf.Document, p placement) (*Instance, error) {
	positions, err := readVec3Accessor(doc, p.primitive.Attributes[gltf.POSITION])
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if normIdx, ok := p.primitive.Attributes[gltf.NORMAL]; ok {
		normals, err = readVec3Accessor(doc, normIdx)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}

	var indices []uint32
	if p.primitive.Indices != nil {
		indices, err = readIndices(doc, int(*p.primitive.Indices))
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if len(normals) != len(positions) {
		normals = flatNormals(positions, indices)
	}

	interleaved := make([]float32, 0, len(positions)*6)
	for i := range positions {
		interleaved = append(interleaved,
			positions[i][0], positions[i][1], positions[i][2],
			normals[i][0], normals[i][1], normals[i][2])
	}

	return &Instance{
		ObjectID:    p.objectID,
		Name:        p.name,
		Interleaved: interleaved,
		Indices:     indices,
		Color:       primitiveColor(doc, p.primitive),
		Transform:   p.transform,
	}, nil
}

// primitiveColor pulls the flat RGBA base color off the primitive's
// material, defaulting to opaque white.
func primitiveColor(doc *gltf.Document, prim *gltf.Primitive) [4]float64 {
	color := [4]float64{1, 1, 1, 1}
	if prim.Material == nil || int(*prim.Material) >= len(doc.Materials) {
		return color
	}
	mat := doc.Materials[int(*prim.Material)]
	if mat.PBRMetallicRoughness != nil && mat.PBRMetallicRoughness.BaseColorFactor != nil {
		f := mat.PBRMetallicRoughness.BaseColorFactor
		color = [4]float64{float64(f[0]), float64(f[1]), float64(f[2]), float64(f[3])}
	}
	return color
}

// flatNormals computes per-vertex normals from face winding when the model
// carries none.
func flatNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	normals := make([][3]float32, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= len(positions) || int(i1) >= len(positions) || int(i2) >= len(positions) {
			continue
		}
		v0 := math3d.V3(float64(positions[i0][0]), float64(positions[i0][1]), float64(positions[i0][2]))
		v1 := math3d.V3(float64(positions[i1][0]), float64(positions[i1][1]), float64(positions[i1][2]))
		v2 := math3d.V3(float64(positions[i2][0]), float64(positions[i2][1]), float64(positions[i2][2]))
		n := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		fn := [3]float32{float32(n.X), float32(n.Y), float32(n.Z)}
		normals[i0] = fn
		normals[i1] = fn
		normals[i2] = fn
	}
	return normals
}

// readVec3Accessor reads VEC3 float data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([][3]float32, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	bufData, start, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}
	result := make([][3]float32, accessor.Count)
	for i := range accessor.Count {
		offset := start + i*stride
		for j := range 3 {
			result[i][j] = readFloat32(bufData[offset+j*4:])
		}
	}
	return result, nil
}

// readIndices reads scalar index data, widening to uint32.
func readIndices(doc *gltf.Document, accessorIdx int) ([]uint32, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR, got %v", accessor.Type)
	}

	var compSize int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		compSize = 1
	case gltf.ComponentUshort:
		compSize = 2
	case gltf.ComponentUint:
		compSize = 4
	default:
		return nil, fmt.Errorf("unexpected index component type: %v", accessor.ComponentType)
	}

	bufData, start, stride, err := accessorBytes(doc, accessor, compSize)
	if err != nil {
		return nil, err
	}

	result := make([]uint32, accessor.Count)
	for i := range accessor.Count {
		offset := start + i*stride
		switch compSize {
		case 1:
			result[i] = uint32(bufData[offset])
		case 2:
			result[i] = uint32(bufData[offset]) | uint32(bufData[offset+1])<<8
		case 4:
			result[i] = uint32(bufData[offset]) |
				uint32(bufData[offset+1])<<8 |
				uint32(bufData[offset+2])<<16 |
				uint32(bufData[offset+3])<<24
		}
	}
	return result, nil
}

// accessorBytes resolves an accessor to its backing bytes, start offset,
// and element stride. Only embedded (GLB chunk) buffers are supported.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, defaultStride int) ([]byte, int, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]
	if buffer.URI != "" {
		return nil, 0, 0, fmt.Errorf("external buffers not supported")
	}
	if buffer.Data == nil {
		return nil, 0, 0, fmt.Errorf("buffer has no data")
	}
	stride := bufferView.ByteStride
	if stride == 0 {
		stride = defaultStride
	}
	start := bufferView.ByteOffset + accessor.ByteOffset
	need := start + (accessor.Count-1)*stride + defaultStride
	if accessor.Count > 0 && need > len(buffer.Data) {
		return nil, 0, 0, fmt.Errorf("accessor overruns buffer (%d > %d)", need, len(buffer.Data))
	}
	return buffer.Data, start, stride, nil
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
