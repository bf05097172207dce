// Package render draws a positioned working set and tracks the view state
// around it: hover, edge selection, hit testing, the camera and key-hold
// panning. Output backends are SVG (svgo), PNG (gg) and an HTML page that
// hands the pinned layout to 3d-force-graph.
package render

import (
	"errors"

	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/layout"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// ErrEmptyScene is returned by operations that need at least one node.
var ErrEmptyScene = errors.New("scene has no nodes")

const (
	DefaultHitPadding    = 10.0
	DefaultLabelFontSize = 12.0
	DefaultBackground    = "#ffffff"
	DefaultLabelColor    = "#263238"
)

// Options controls drawing. Zero fields take defaults.
type Options struct {
	Layout   layout.Config    `yaml:"layout" toml:"layout"`
	Geometry geometry.Options `yaml:"geometry" toml:"geometry"`

	// HitPadding widens the invisible edge hit region beyond the stroke.
	HitPadding    float64 `yaml:"hit_padding" toml:"hit_padding"`
	LabelFontSize float64 `yaml:"label_font_size" toml:"label_font_size"`
	Background    string  `yaml:"background" toml:"background"`
	LabelColor    string  `yaml:"label_color" toml:"label_color"`

	// PanSpeed is the key-hold pan rate in canvas pixels per second.
	PanSpeed float64 `yaml:"pan_speed" toml:"pan_speed"`
}

// DefaultOptions returns the stock 800x600 drawing options.
func DefaultOptions() Options {
	return Options{}.WithDefaults()
}

// WithDefaults fills unset fields. The layout radius is shared with geometry.
func (o Options) WithDefaults() Options {
	o.Layout = o.Layout.WithDefaults()
	if o.Geometry.NodeRadius <= 0 {
		o.Geometry.NodeRadius = o.Layout.NodeRadius
	}
	o.Geometry = o.Geometry.WithDefaults()
	if o.HitPadding <= 0 {
		o.HitPadding = DefaultHitPadding
	}
	if o.LabelFontSize <= 0 {
		o.LabelFontSize = DefaultLabelFontSize
	}
	if o.Background == "" {
		o.Background = DefaultBackground
	}
	if o.LabelColor == "" {
		o.LabelColor = DefaultLabelColor
	}
	if o.PanSpeed <= 0 {
		o.PanSpeed = DefaultPanSpeed
	}
	return o
}

// Scene is one positioned working set. It is immutable once built.
type Scene struct {
	Nodes    []model.Node
	Edges    []model.Edge
	Layout   layout.Layout
	Geometry []geometry.EdgeGeometry
}

// BuildScene lays out nodes and resolves edge geometry. memo may be nil.
func BuildScene(nodes []model.Node, edges []model.Edge, opts Options, memo *layout.Memo) *Scene {
	opts = opts.WithDefaults()
	s := &Scene{
		Nodes: append([]model.Node(nil), nodes...),
		Edges: append([]model.Edge(nil), edges...),
	}
	if memo != nil {
		s.Layout = memo.Layout(s.Nodes, s.Edges, opts.Layout)
	} else {
		s.Layout = layout.CalculateLayout(s.Nodes, s.Edges, opts.Layout)
	}
	s.Geometry = geometry.Resolve(s.Layout, s.Edges, opts.Geometry)
	return s
}

// IsEmpty reports whether the scene has no positioned nodes.
func (s *Scene) IsEmpty() bool {
	return s == nil || len(s.Layout) == 0
}

// Positioned returns the laid-out nodes in input order, each once.
func (s *Scene) Positioned() []layout.LayoutNode {
	if s == nil {
		return nil
	}
	out := make([]layout.LayoutNode, 0, len(s.Layout))
	seen := make(map[string]bool, len(s.Layout))
	for _, n := range s.Nodes {
		if ln, ok := s.Layout[n.ID]; ok && !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, ln)
		}
	}
	return out
}

// Edge returns the first scene edge with the given id.
func (s *Scene) Edge(id string) (model.Edge, bool) {
	if s == nil {
		return model.Edge{}, false
	}
	for _, e := range s.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return model.Edge{}, false
}

// nodeFace returns the fill and display label of a positioned node.
func nodeFace(n layout.LayoutNode) (fill, label string) {
	fill, label = theme.Neutral, n.ID
	if n.Node != nil {
		label = n.Node.DisplayLabel()
		if n.Node.Fill != "" {
			fill = n.Node.Fill
		}
	}
	return fill, label
}
