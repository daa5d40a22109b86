package main

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"time"

	"fortio.org/log"
	"fortio.org/terminal/ansipixels"
	"fortio.org/terminal/ansipixels/tcolor"
	"github.com/charmbracelet/harmonica"
	"github.com/spf13/cobra"

	"github.com/taigrr/bimstage/pkg/geom"
	"github.com/taigrr/bimstage/pkg/math3d"
	"github.com/taigrr/bimstage/pkg/render"
	"github.com/taigrr/bimstage/pkg/scene"
	"github.com/taigrr/bimstage/pkg/viewer"
)

func newViewCmd() *cobra.Command {
	var targetFPS float64
	cmd := &cobra.Command{
		Use:   "view <model>",
		Short: "Interactive terminal viewport",
		Long: `View a building model in the terminal.

Controls:
	Mouse drag  - Rotate model
	n/p         - Highlight next/previous object
	h           - Highlight all objects / clear highlight
	i           - Toggle isolation mode
	f           - Fly camera to highlighted objects
	x           - Toggle wireframe mode (x-ray)
	r           - Reset view
	?           - Toggle HUD overlay
	Esc         - Quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args[0], targetFPS)
		},
	}
	cmd.Flags().Float64Var(&targetFPS, "fps", 60, "Target FPS")
	return cmd
}

// RotationAxis tracks position and velocity for one rotation axis with spring decay.
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewRotationAxis creates an axis with harmonica spring for smooth velocity decay.
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0 using spring.
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState holds model rotation with harmonica spring physics.
type RotationState struct {
	Pitch, Yaw RotationAxis
	fps        int
}

func NewRotationState(fps int) *RotationState {
	return &RotationState{
		Pitch: NewRotationAxis(fps),
		Yaw:   NewRotationAxis(fps),
		fps:   fps,
	}
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
}

// InspectState holds the current object cursor and display toggles.
type InspectState struct {
	IDs       []string // all object ids in stable order
	Cursor    int      // -1 = none highlighted, len(IDs) = all
	Isolate   bool
	Wireframe bool
	ShowHUD   bool
}

func NewInspectState(ids []string) *InspectState {
	return &InspectState{IDs: ids, Cursor: -1, ShowHUD: true}
}

// Highlighted returns the ids selected by the cursor.
func (s *InspectState) Highlighted() []string {
	switch {
	case s.Cursor < 0:
		return nil
	case s.Cursor >= len(s.IDs):
		return s.IDs
	default:
		return s.IDs[s.Cursor : s.Cursor+1]
	}
}

// Apply pushes cursor and isolation state through the viewer engine.
func (s *InspectState) Apply(v *viewer.Native) {
	ids := s.Highlighted()
	if err := v.Highlight(ids); err != nil {
		log.Warnf("highlight: %v", err)
	}
	if len(ids) > 0 {
		if err := v.FitToSelection(ids); err != nil {
			log.Warnf("fit to selection: %v", err)
		}
	}
	if err := v.SetIsolation(s.Isolate, ids); err != nil {
		log.Warnf("isolation: %v", err)
	}
}

// drawInspectHUD renders the overlay: object counts top, cursor status bottom.
func drawInspectHUD(ap *ansipixels.AnsiPixels, filename string, state *InspectState) {
	if !state.ShowHUD {
		return
	}
	ap.WriteCentered(0, "%s", filename)
	ap.WriteRight(0, tcolor.Cyan.Foreground()+"%d objects"+tcolor.Reset, len(state.IDs))

	status := "none"
	switch {
	case state.Cursor >= len(state.IDs):
		status = fmt.Sprintf("all (%d)", len(state.IDs))
	case state.Cursor >= 0:
		status = state.IDs[state.Cursor]
	}
	checkIso := "[ ]"
	if state.Isolate {
		checkIso = "[✓]"
	}
	ap.WriteAt(0, ap.H-1, "%s Isolate  highlight: %s%s%s", checkIso, tcolor.Yellow.Foreground(), status, tcolor.Reset)
}

//nolint:gocognit,funlen // UI event loop.
func runView(cmd *cobra.Command, ref string, targetFPS float64) error {
	cfg := LoadConfig()
	src, err := cfg.Source(ref)
	if err != nil {
		return err
	}
	buf, err := src.Fetch(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("fetch model: %w", err)
	}

	registry := scene.NewRegistry()
	count, err := viewer.LoadModel(geom.NewGLBKernel(), buf, geom.OpenOptions{CoordinateToOrigin: true}, registry)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("model %q contains no renderable geometry", ref)
	}

	ap := ansipixels.NewAnsiPixels(targetFPS)
	if err = ap.Open(); err != nil {
		return fmt.Errorf("open ansipixels: %w", err)
	}
	defer func() {
		ap.ShowCursor()
		ap.MouseTrackingOff()
		ap.Out.Flush()
		ap.Restore()
	}()
	ap.SyncBackgroundColor()
	ap.MouseTrackingOn()
	ap.HideCursor()

	// 2x height for half-block characters
	fb := render.NewFramebuffer(ap.W, ap.H*2)
	fb.BG = color.RGBA{ap.Background.R, ap.Background.G, ap.Background.B, 255}

	camera := render.NewCamera()
	camera.SetAspectRatio(float64(fb.Width) / float64(fb.Height))
	camera.SetFOV(math.Pi / 3)
	camera.SetClipPlanes(0.1, 10000)

	rasterizer := render.NewRasterizer(camera, fb)
	rasterizer.DisableBackfaceCulling = true
	lightDir := math3d.V3(0.5, 1, 0.3).Normalize()

	native := viewer.NewNative(registry, camera)
	defer native.Close()

	ids := registry.IDs()
	sort.Strings(ids)
	state := NewInspectState(ids)

	// Frame the full model before the first frame.
	if err = native.FitToSelection(ids); err != nil {
		return fmt.Errorf("initial fit: %w", err)
	}
	native.CompleteAnimation()

	rotation := NewRotationState(int(math.Round(targetFPS)))
	lastMouseX, lastMouseY := 0, 0

	ap.OnMouse = func() {
		if ap.LeftDrag() {
			dx := ap.Mx - lastMouseX
			dy := ap.My - lastMouseY
			rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03)
		}
		lastMouseX, lastMouseY = ap.Mx, ap.My
	}
	ap.OnResize = func() error {
		fb.Resize(ap.W, ap.H*2)
		camera.SetAspectRatio(float64(fb.Width) / float64(fb.Height))
		return nil
	}

	err = ap.FPSTicks(func() bool {
		for _, b := range ap.Data {
			switch b {
			case 'n', 'N':
				state.Cursor = (state.Cursor+2)%(len(state.IDs)+2) - 1
				state.Apply(native)
			case 'p', 'P':
				state.Cursor--
				if state.Cursor < -1 {
					state.Cursor = len(state.IDs)
				}
				state.Apply(native)
			case 'h', 'H':
				if state.Cursor >= len(state.IDs) {
					state.Cursor = -1
				} else {
					state.Cursor = len(state.IDs)
				}
				state.Apply(native)
			case 'i', 'I':
				state.Isolate = !state.Isolate
				state.Apply(native)
			case 'f', 'F':
				if sel := state.Highlighted(); len(sel) > 0 {
					if ferr := native.FitToSelection(sel); ferr != nil {
						log.Warnf("fit to selection: %v", ferr)
					}
				}
			case 'x', 'X':
				state.Wireframe = !state.Wireframe
			case 'r', 'R':
				state.Cursor = -1
				state.Isolate = false
				state.Apply(native)
				rotation.Reset()
				if ferr := native.FitToSelection(state.IDs); ferr != nil {
					log.Warnf("fit: %v", ferr)
				}
			case '?':
				state.ShowHUD = !state.ShowHUD
			case 27, 3, 4: // Esc, Ctrl-C, Ctrl-D
				return false
			}
		}

		rotation.Update()
		native.StepAnimation(time.Now())

		transform := math3d.RotateX(rotation.Pitch.Position).
			Mul(math3d.RotateY(rotation.Yaw.Position))

		fb.Clear()
		rasterizer.ClearDepth()
		for _, m := range registry.All() {
			if !m.Visible {
				continue
			}
			c := materialColor(m.Material)
			if state.Wireframe {
				rasterizer.DrawMeshWireframe(m, transform, c)
			} else {
				rasterizer.DrawMesh(m, transform, c, lightDir)
			}
		}

		ap.ClearScreen()
		if serr := ap.ShowScaledImage(fb.ToImage()); serr != nil {
			log.Errf("show image: %v", serr)
			return false
		}
		drawInspectHUD(ap, filepath.Base(ref), state)
		return true
	})
	if err != nil {
		return fmt.Errorf("main loop: %w", err)
	}
	return nil
}
