package selection

import (
	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// Listener receives selection changes. OnNodeSelect gets "" and OnEdgeSelect
// gets nil when the respective selection is cleared.
type Listener interface {
	OnNodeSelect(id string)
	OnEdgeSelect(e *model.Edge)
}

// FocusListener is implemented by listeners that also want the recomputed
// neighborhood whenever the focus changes.
type FocusListener interface {
	OnFocusChange(n Neighborhood)
}

// ListenerFuncs adapts plain functions to Listener and FocusListener. Nil
// fields are skipped.
type ListenerFuncs struct {
	NodeSelect  func(id string)
	EdgeSelect  func(e *model.Edge)
	FocusChange func(n Neighborhood)
}

func (f ListenerFuncs) OnNodeSelect(id string) {
	if f.NodeSelect != nil {
		f.NodeSelect(id)
	}
}

func (f ListenerFuncs) OnEdgeSelect(e *model.Edge) {
	if f.EdgeSelect != nil {
		f.EdgeSelect(e)
	}
}

func (f ListenerFuncs) OnFocusChange(n Neighborhood) {
	if f.FocusChange != nil {
		f.FocusChange(n)
	}
}

// Options configures a Controller.
type Options struct {
	Limits       Limits
	Palette      theme.Palette
	DefaultFocus string
}

// Controller owns the focus node, its neighborhood and the current selection.
// It is driven from a single goroutine.
type Controller struct {
	ds           *model.Dataset
	limits       Limits
	palette      theme.Palette
	defaultFocus string

	focus     string
	hood      Neighborhood
	selection Selection
	listeners []Listener
}

// NewController returns a controller focused on opts.DefaultFocus.
func NewController(ds *model.Dataset, opts Options) *Controller {
	c := &Controller{
		ds:           ds,
		limits:       opts.Limits,
		palette:      opts.Palette,
		defaultFocus: opts.DefaultFocus,
	}
	if c.palette.IsZero() {
		c.palette = theme.DefaultPalette()
	}
	c.focus = opts.DefaultFocus
	c.hood = Derive(ds, c.focus, c.limits, c.palette)
	return c
}

// AddListener registers l for future changes.
func (c *Controller) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Focus returns the focus node id, "" when unfocused.
func (c *Controller) Focus() string { return c.focus }

// Neighborhood returns the working set for the current focus.
func (c *Controller) Neighborhood() Neighborhood { return c.hood }

// Selection returns the current selection.
func (c *Controller) Selection() Selection { return c.selection }

// Dataset returns the dataset the controller derives from.
func (c *Controller) Dataset() *model.Dataset { return c.ds }

// SetFocus recomputes the neighborhood for id and clears the selection.
func (c *Controller) SetFocus(id string) {
	c.refocus(id)
	c.setSelection(None())
}

// ClearFocus drops the focus, leaving an empty neighborhood.
func (c *Controller) ClearFocus() {
	c.SetFocus("")
}

// Reset returns to the default focus with nothing selected.
func (c *Controller) Reset() {
	c.SetFocus(c.defaultFocus)
}

// SelectNode makes id the focus and the selected node. Unknown ids are
// ignored.
func (c *Controller) SelectNode(id string) {
	if !c.ds.HasNode(id) {
		debug.Log("selection: ignoring unknown node %q", id)
		return
	}
	if id != c.focus {
		c.refocus(id)
	}
	c.setSelection(NodeSelection(id))
}

// SelectEdge selects the edge, or clears the selection when it is already the
// selected edge. Edges outside the dataset are ignored.
func (c *Controller) SelectEdge(id string) {
	if cur, ok := c.selection.EdgeID(); ok && cur == id {
		c.setSelection(None())
		return
	}
	if _, ok := c.edge(id); !ok {
		debug.Log("selection: ignoring unknown edge %q", id)
		return
	}
	c.setSelection(EdgeSelection(id))
}

// ClearSelection deselects everything and keeps the focus.
func (c *Controller) ClearSelection() {
	c.setSelection(None())
}

// SetDataset swaps in a reloaded dataset and recomputes the current focus.
// A focus that no longer exists falls back to the default.
func (c *Controller) SetDataset(ds *model.Dataset) {
	c.ds = ds
	focus := c.focus
	if focus != "" && !ds.HasNode(focus) {
		focus = c.defaultFocus
	}
	c.refocus(focus)
	sel := c.selection
	if id, ok := sel.NodeID(); ok && !ds.HasNode(id) {
		sel = None()
	}
	if id, ok := sel.EdgeID(); ok {
		if _, found := c.edge(id); !found {
			sel = None()
		}
	}
	c.setSelection(sel)
}

func (c *Controller) refocus(id string) {
	c.focus = id
	c.hood = Derive(c.ds, id, c.limits, c.palette)
	for _, l := range c.listeners {
		if fl, ok := l.(FocusListener); ok {
			fl.OnFocusChange(c.hood)
		}
	}
}

func (c *Controller) setSelection(next Selection) {
	prev := c.selection
	c.selection = next

	prevNode, _ := prev.NodeID()
	nextNode, _ := next.NodeID()
	prevEdge, _ := prev.EdgeID()
	nextEdge, _ := next.EdgeID()

	// Clear the old kind before announcing the new one.
	if prevEdge != nextEdge && nextEdge == "" {
		c.emitEdge("")
	}
	if prevNode != nextNode {
		for _, l := range c.listeners {
			l.OnNodeSelect(nextNode)
		}
	}
	if prevEdge != nextEdge && nextEdge != "" {
		c.emitEdge(nextEdge)
	}
}

func (c *Controller) emitEdge(id string) {
	var ep *model.Edge
	if id != "" {
		if e, ok := c.edge(id); ok {
			ep = &e
		}
	}
	for _, l := range c.listeners {
		l.OnEdgeSelect(ep)
	}
}

// edge prefers the working copy, which carries the display size.
func (c *Controller) edge(id string) (model.Edge, bool) {
	if e, ok := c.hood.Edge(id); ok {
		return e, true
	}
	return c.ds.Edge(id)
}
