package viewer

import (
	"fmt"
	"math"
	"time"

	"github.com/taigrr/bimstage/pkg/geom"
	"github.com/taigrr/bimstage/pkg/math3d"
	"github.com/taigrr/bimstage/pkg/render"
	"github.com/taigrr/bimstage/pkg/scene"
)

// flyToDuration is the fixed camera animation window.
const flyToDuration = 1000 * time.Millisecond

// Native is the in-process viewer backend. It exclusively owns its scene
// registry, camera, and highlight state; nothing else may mutate them.
// All methods are single-writer: one goroutine (the frame loop) drives a
// Native instance.
type Native struct {
	registry *scene.Registry
	camera   *render.Camera

	// highlight state: the set of highlighted ids plus, per mesh handle,
	// the saved pre-highlight material. Saved materials are owned here
	// exclusively and restored by identity on clear.
	highlighted map[string]struct{}
	saved       map[scene.Handle]*scene.Material

	isolating bool
	anim      *flyTo
	closed    bool
}

// flyTo is one in-flight camera animation. A newer fit supersedes it.
type flyTo struct {
	fromPos, toPos       math3d.Vec3
	fromTarget, toTarget math3d.Vec3
	start                time.Time
}

// NewNative creates a native viewer over an already-populated registry.
func NewNative(registry *scene.Registry, camera *render.Camera) *Native {
	return &Native{
		registry:    registry,
		camera:      camera,
		highlighted: make(map[string]struct{}),
		saved:       make(map[scene.Handle]*scene.Material),
	}
}

// LoadModel decodes buf with the kernel and populates the registry.
// Returns the number of meshes registered. A decode failure leaves the
// registry empty and is fatal for this viewer instance.
func LoadModel(k geom.Kernel, buf []byte, opts geom.OpenOptions, registry *scene.Registry) (int, error) {
	registry.Clear()
	count := 0
	err := geom.Stream(k, buf, opts, func(d geom.MeshDesc) error {
		mat := scene.NewMaterial(d.Color[0], d.Color[1], d.Color[2], d.Color[3])
		m := scene.NewMesh(d.ObjectID, d.Positions, d.Normals, d.Indices, mat)
		m.Name = d.Name
		m.Transform(d.Transform)
		registry.Register(d.ObjectID, m)
		count++
		return nil
	})
	if err != nil {
		registry.Clear()
		return 0, fmt.Errorf("load model: %w", err)
	}
	return count, nil
}

// Highlight replaces the highlighted set: every previously highlighted
// mesh gets its saved material back first, then the new set is applied
// with the fixed emissive highlight material.
func (n *Native) Highlight(ids []string) error {
	n.restoreAll()
	for _, id := range ids {
		handles := n.registry.Handles(id)
		for _, h := range handles {
			m := n.registry.Mesh(h)
			if m == nil {
				continue
			}
			if _, done := n.saved[h]; done {
				continue // id listed twice, material already swapped
			}
			n.saved[h] = m.Material
			m.Material = scene.HighlightMaterial()
		}
		if len(handles) > 0 {
			n.highlighted[id] = struct{}{}
		}
	}
	return nil
}

// ClearHighlight restores every highlighted mesh's original material.
func (n *Native) ClearHighlight() error {
	n.restoreAll()
	return nil
}

// restoreAll puts saved materials back by identity and drops the saved
// references.
func (n *Native) restoreAll() {
	for h, mat := range n.saved {
		if m := n.registry.Mesh(h); m != nil {
			m.Material = mat
		}
		delete(n.saved, h)
	}
	clear(n.highlighted)
}

// FitToSelection starts a camera fly-to covering the union bounds of the
// given ids. Unknown ids contribute nothing; with no resolvable bounds the
// camera is left alone.
func (n *Native) FitToSelection(ids []string) error {
	box := math3d.EmptyBox3()
	for _, id := range ids {
		for _, m := range n.registry.Resolve(id) {
			box = box.Union(m.Bounds)
		}
	}
	if box.IsEmpty() {
		return nil
	}

	center := box.Center()
	dist := fitDistance(box.MaxDim(), n.camera.FOV())

	// Keep the current viewing direction; back off along it.
	dir := n.camera.Position.Sub(n.camera.Target)
	if dir.Len() == 0 {
		dir = math3d.V3(0, 0, 1)
	}
	dir = dir.Normalize()

	n.anim = &flyTo{
		fromPos:    n.camera.Position,
		toPos:      center.Add(dir.Scale(dist)),
		fromTarget: n.camera.Target,
		toTarget:   center,
		start:      time.Now(),
	}
	return nil
}

// fitDistance derives the camera distance that frames a box of the given
// max dimension, with a 2.5x margin.
func fitDistance(maxDim, fov float64) float64 {
	if maxDim == 0 {
		return 1
	}
	return maxDim / (2 * math.Tan(fov/2)) * 2.5
}

// StepAnimation advances the fly-to for the current frame. Returns true
// while an animation is running. A new FitToSelection supersedes the old
// animation implicitly: there is only ever one.
func (n *Native) StepAnimation(now time.Time) bool {
	if n.anim == nil {
		return false
	}
	t := float64(now.Sub(n.anim.start)) / float64(flyToDuration)
	if t >= 1 {
		n.camera.SetPosition(n.anim.toPos)
		n.camera.LookAt(n.anim.toTarget)
		n.anim = nil
		return false
	}
	if t < 0 {
		t = 0
	}
	e := easeOutCubic(t)
	n.camera.SetPosition(n.anim.fromPos.Lerp(n.anim.toPos, e))
	n.camera.LookAt(n.anim.fromTarget.Lerp(n.anim.toTarget, e))
	return true
}

// CompleteAnimation jumps any in-flight fly-to straight to its end state.
// Headless rendering uses this instead of frame stepping.
func (n *Native) CompleteAnimation() {
	if n.anim == nil {
		return
	}
	n.camera.SetPosition(n.anim.toPos)
	n.camera.LookAt(n.anim.toTarget)
	n.anim = nil
}

// easeOutCubic is 1 - (1-t)^3.
func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// SetIsolation hides every mesh whose id is outside ids when enabled with
// a non-empty selection; otherwise every mesh is shown. Isolation with an
// empty selection is the same as isolation off.
func (n *Native) SetIsolation(enabled bool, ids []string) error {
	n.isolating = enabled && len(ids) > 0
	if !n.isolating {
		for _, m := range n.registry.All() {
			m.Visible = true
		}
		return nil
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	for _, m := range n.registry.All() {
		_, ok := keep[m.ObjectID]
		m.Visible = ok
	}
	return nil
}

// Isolating reports whether isolation mode is in effect.
func (n *Native) Isolating() bool {
	return n.isolating
}

// Close restores highlight state and drops the scene. Idempotent; teardown
// never fails.
func (n *Native) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	n.restoreAll()
	n.anim = nil
	n.registry.Clear()
	return nil
}
