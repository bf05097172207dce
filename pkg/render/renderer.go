package render

import (
	"sync"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/layout"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/selection"
)

// HitKind says what a point landed on.
type HitKind int

const (
	HitNone HitKind = iota
	HitNode
	HitEdge
)

// Hit is the result of a hit test. For edges, Index is the position in the
// scene geometry.
type Hit struct {
	Kind  HitKind
	ID    string
	Index int
}

// Handlers receive clicks. Nil handlers are skipped. They run without the
// renderer lock held, so they may call back into the renderer.
type Handlers struct {
	NodeClick       func(id string)
	EdgeClick       func(e *model.Edge)
	BackgroundClick func()
}

// Renderer owns one scene and its view state. Methods are safe to call from
// the UI goroutine and from transition timers.
type Renderer struct {
	mu       sync.Mutex
	opts     Options
	memo     *layout.Memo
	scene    *Scene
	hovered  string
	selected string
	camera   *ViewCamera
	panner   *KeyPanner
	handlers Handlers

	transition *Transition
}

// New returns a renderer with an empty scene.
func New(opts Options) *Renderer {
	opts = opts.WithDefaults()
	return &Renderer{
		opts:   opts,
		memo:   layout.NewMemo(layout.DefaultMemoSize),
		scene:  &Scene{},
		camera: NewViewCamera(opts.Layout.Width, opts.Layout.Height),
	}
}

// Options returns the effective drawing options.
func (r *Renderer) Options() Options {
	return r.opts
}

// SetHandlers replaces the click handlers.
func (r *Renderer) SetHandlers(h Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = h
}

// Build lays out a working set with the renderer's options and memo.
func (r *Renderer) Build(nodes []model.Node, edges []model.Edge) *Scene {
	return BuildScene(nodes, edges, r.opts, r.memo)
}

// Show builds and immediately displays a working set.
func (r *Renderer) Show(nodes []model.Node, edges []model.Edge) {
	r.SetScene(r.Build(nodes, edges))
}

// SetScene swaps the displayed scene. Hover is cleared; the edge selection
// survives only if the edge is still present.
func (r *Renderer) SetScene(s *Scene) {
	if s == nil {
		s = &Scene{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scene = s
	r.hovered = ""
	if _, ok := s.Edge(r.selected); !ok {
		r.selected = ""
	}
}

// Scene returns the displayed scene.
func (r *Renderer) Scene() *Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene
}

// Camera returns the view camera.
func (r *Renderer) Camera() *ViewCamera {
	return r.camera
}

// Hovered returns the hovered edge id, "" when none.
func (r *Renderer) Hovered() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hovered
}

// SelectedEdge returns the highlighted edge id, "" when none.
func (r *Renderer) SelectedEdge() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// HoverEdge marks id as hovered. Unknown ids clear the hover.
func (r *Renderer) HoverEdge(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scene.Edge(id); !ok {
		id = ""
	}
	r.hovered = id
}

// ClearHover drops the hover state.
func (r *Renderer) ClearHover() {
	r.HoverEdge("")
}

// Geometry returns the scene geometry colored for the current hover and
// selection.
func (r *Renderer) Geometry() []geometry.EdgeGeometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geometryLocked()
}

func (r *Renderer) geometryLocked() []geometry.EdgeGeometry {
	gs := append([]geometry.EdgeGeometry(nil), r.scene.Geometry...)
	geometry.Restate(gs, r.hovered, r.selected)
	return gs
}

// HitTest resolves a viewport point. Nodes are drawn over edges and win;
// among edges the last drawn wins.
func (r *Renderer) HitTest(sx, sy float64) Hit {
	x, y := r.camera.ToScene(sx, sy)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hitTestLocked(x, y)
}

func (r *Renderer) hitTestLocked(x, y float64) Hit {
	radius := r.opts.Geometry.NodeRadius
	nodes := r.scene.Positioned()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		dx, dy := x-n.X, y-n.Y
		if dx*dx+dy*dy <= radius*radius {
			return Hit{Kind: HitNode, ID: n.ID}
		}
	}
	gs := r.scene.Geometry
	for i := len(gs) - 1; i >= 0; i-- {
		g := gs[i]
		reach := (g.StrokeWidth() + r.opts.HitPadding) / 2
		if geometry.DistanceToSegment(x, y, g.X1, g.Y1, g.X2, g.Y2) <= reach {
			return Hit{Kind: HitEdge, ID: g.Edge.ID, Index: i}
		}
	}
	return Hit{Kind: HitNone}
}

// PointerMove updates the hover from a viewport point and reports whether it
// changed.
func (r *Renderer) PointerMove(sx, sy float64) bool {
	hit := r.HitTest(sx, sy)
	next := ""
	if hit.Kind == HitEdge {
		next = hit.ID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := next != r.hovered
	r.hovered = next
	return changed
}

// Click dispatches a viewport click. Clicking the highlighted edge again
// clears it; clicking the background clears any edge highlight.
func (r *Renderer) Click(sx, sy float64) Hit {
	hit := r.HitTest(sx, sy)

	r.mu.Lock()
	h := r.handlers
	var edge *model.Edge
	switch hit.Kind {
	case HitEdge:
		if r.selected == hit.ID {
			r.selected = ""
		} else {
			r.selected = hit.ID
			e := r.scene.Geometry[hit.Index].Edge
			edge = &e
		}
	case HitNone:
		r.selected = ""
	}
	r.mu.Unlock()

	switch hit.Kind {
	case HitNode:
		if h.NodeClick != nil {
			h.NodeClick(hit.ID)
		}
	case HitEdge:
		if h.EdgeClick != nil {
			if edge == nil {
				// toggled off: report the same edge so the receiver can toggle too
				e, _ := r.Scene().Edge(hit.ID)
				edge = &e
			}
			h.EdgeClick(edge)
		}
	default:
		if h.BackgroundClick != nil {
			h.BackgroundClick()
		}
	}
	return hit
}

// FitView fits the camera to the scene. It fails on an empty scene; callers
// log the failure and keep the current view.
func (r *Renderer) FitView() error {
	r.mu.Lock()
	minX, minY, maxX, maxY, ok := r.scene.Layout.Bounds(r.opts.Geometry.NodeRadius + fitPadding)
	r.mu.Unlock()
	if !ok {
		return ErrEmptyScene
	}
	r.camera.fit(minX, minY, maxX, maxY)
	return nil
}

// Mount creates the key-hold panner for this view. Mounting twice returns the
// same panner.
func (r *Renderer) Mount() *KeyPanner {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panner == nil {
		r.panner = newKeyPanner(r.camera, r.opts.PanSpeed)
	}
	return r.panner
}

// Unmount discards the panner and any held keys, and cancels a pending
// transition.
func (r *Renderer) Unmount() {
	r.mu.Lock()
	r.panner = nil
	t := r.transition
	r.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
}

// Panner returns the mounted panner, or nil.
func (r *Renderer) Panner() *KeyPanner {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.panner
}

// UseTransition routes focus changes through t instead of swapping scenes
// immediately. Pass nil to swap immediately.
func (r *Renderer) UseTransition(t *Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transition = t
}

// OnNodeSelect implements selection.Listener. Node selection has no edge
// highlight.
func (r *Renderer) OnNodeSelect(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = ""
}

// OnEdgeSelect implements selection.Listener by mirroring the highlight.
func (r *Renderer) OnEdgeSelect(e *model.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e == nil {
		r.selected = ""
		return
	}
	r.selected = e.ID
}

// OnFocusChange implements selection.FocusListener.
func (r *Renderer) OnFocusChange(n selection.Neighborhood) {
	scene := r.Build(n.Nodes, n.Edges)
	r.mu.Lock()
	t := r.transition
	r.mu.Unlock()
	if t != nil {
		t.Schedule(scene)
		return
	}
	r.SetScene(scene)
	if err := r.FitView(); err != nil {
		debug.Warn("fit view: %v", err)
	}
}

var (
	_ Camera                  = (*ViewCamera)(nil)
	_ selection.Listener      = (*Renderer)(nil)
	_ selection.FocusListener = (*Renderer)(nil)
)
