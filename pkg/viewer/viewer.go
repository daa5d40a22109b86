// Package viewer keeps a 3D viewport synchronized with the operator's
// staged-entity selection: highlight, camera fit, and isolation mode.
//
// Two backends exist. Native renders meshes in-process and owns its scene
// registry; Cloud drives a hosted viewer over its REST and websocket
// surface. Callers hold the Viewer interface and never branch on which
// backend is active.
package viewer

import "errors"

// ErrViewerInit is returned when a backend's bring-up sequence fails.
// It surfaces as a load-error state; the viewer instance is unusable.
var ErrViewerInit = errors.New("viewer initialization failed")

// Viewer is the capability contract both backends implement.
type Viewer interface {
	// Highlight replaces the highlighted set. Clearing of the previous
	// set always completes before the new set is applied.
	Highlight(ids []string) error
	// ClearHighlight restores all highlighted meshes.
	ClearHighlight() error
	// FitToSelection frames the given ids in the viewport.
	FitToSelection(ids []string) error
	// SetIsolation hides everything outside ids when enabled. Disabled,
	// or enabled with no ids, shows everything.
	SetIsolation(enabled bool, ids []string) error
	// Close releases backend resources. Safe to call more than once.
	Close() error
}

var (
	_ Viewer = (*Native)(nil)
	_ Viewer = (*Cloud)(nil)
)
