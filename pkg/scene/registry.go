package scene

// Handle identifies a registered mesh. Handles are registry-scoped and
// become invalid after Clear.
type Handle int

// Registry maps a model's external object identifiers to renderable mesh
// handles. One external id may own several meshes (a wall with windows
// decomposes into multiple placed instances). Lookup of an unknown id
// yields an empty result, never an error.
//
// The registry is a two-level arena+index: id -> handles -> owned mesh.
// It is owned by exactly one viewer instance and is not safe for
// concurrent mutation.
type Registry struct {
	meshes []*Mesh
	index  map[string][]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string][]Handle)}
}

// Register adds a mesh under the given external id and returns its handle.
func (r *Registry) Register(id string, m *Mesh) Handle {
	h := Handle(len(r.meshes))
	r.meshes = append(r.meshes, m)
	r.index[id] = append(r.index[id], h)
	return h
}

// Handles returns the handles registered for id, empty if unknown.
func (r *Registry) Handles(id string) []Handle {
	return r.index[id]
}

// Resolve returns the meshes registered for id, empty if unknown.
func (r *Registry) Resolve(id string) []*Mesh {
	hs := r.index[id]
	if len(hs) == 0 {
		return nil
	}
	out := make([]*Mesh, 0, len(hs))
	for _, h := range hs {
		out = append(out, r.meshes[h])
	}
	return out
}

// Mesh returns the mesh for a handle, nil if the handle is stale.
func (r *Registry) Mesh(h Handle) *Mesh {
	if h < 0 || int(h) >= len(r.meshes) {
		return nil
	}
	return r.meshes[h]
}

// All returns every registered mesh in registration order.
func (r *Registry) All() []*Mesh {
	return r.meshes
}

// Len returns the number of registered meshes.
func (r *Registry) Len() int {
	return len(r.meshes)
}

// IDs returns every registered external id, in no particular order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.index))
	for id := range r.index {
		out = append(out, id)
	}
	return out
}

// Clear drops all meshes and index entries. Existing handles become stale.
func (r *Registry) Clear() {
	r.meshes = nil
	r.index = make(map[string][]Handle)
}
