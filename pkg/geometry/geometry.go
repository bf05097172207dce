// Package geometry turns positioned nodes and edges into drawable segments:
// endpoints trimmed to the node circles, gradient and arrowhead resource ids,
// and the stroke colors for the current interaction state.
package geometry

import (
	"math"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/layout"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

const (
	DefaultNodeRadius    = 20.0
	DefaultArrowheadSize = 10.0
)

// Options controls edge trimming and coloring.
type Options struct {
	NodeRadius    float64 `yaml:"node_radius" toml:"node_radius"`
	ArrowheadSize float64 `yaml:"arrowhead_size" toml:"arrowhead_size"`
	Accent        string  `yaml:"accent" toml:"accent"`

	// Hovered and Highlighted are edge ids drawn in the accent color.
	Hovered     string `yaml:"-" toml:"-"`
	Highlighted string `yaml:"-" toml:"-"`
}

// DefaultOptions returns the stock radius, arrowhead and accent.
func DefaultOptions() Options {
	return Options{}.WithDefaults()
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.NodeRadius <= 0 {
		o.NodeRadius = DefaultNodeRadius
	}
	if o.ArrowheadSize <= 0 {
		o.ArrowheadSize = DefaultArrowheadSize
	}
	if o.Accent == "" {
		o.Accent = theme.DefaultAccent
	}
	return o
}

// InteractionState is the per-edge view state that affects coloring.
type InteractionState int

const (
	StateNormal InteractionState = iota
	StateHovered
	StateHighlighted
)

// Emphasized reports whether the state switches the edge to the accent color.
func (s InteractionState) Emphasized() bool {
	return s == StateHovered || s == StateHighlighted
}

// EdgeGeometry is the drawable form of one edge.
type EdgeGeometry struct {
	Edge model.Edge

	X1, Y1 float64 // on the source circle
	X2, Y2 float64 // short of the target circle by half an arrowhead
	Angle  float64

	GradientID string
	MarkerID   string

	SourceFill string
	TargetFill string
	Accent     string
	State      InteractionState
}

// StrokeWidth is the visible width, taken from the edge size bucket.
func (g EdgeGeometry) StrokeWidth() float64 {
	if g.Edge.Size < 1 {
		return 1
	}
	return float64(g.Edge.Size)
}

// GradientStops returns the start and end colors of the stroke gradient.
func (g EdgeGeometry) GradientStops() (from, to string) {
	if g.State.Emphasized() {
		return g.Accent, g.Accent
	}
	return g.SourceFill, g.TargetFill
}

// ArrowColor returns the arrowhead fill.
func (g EdgeGeometry) ArrowColor() string {
	if g.State.Emphasized() {
		return g.Accent
	}
	return g.TargetFill
}

// Edge opacities at rest and while hovered or highlighted.
const (
	RestOpacity       = 0.5
	EmphasizedOpacity = 1.0
)

// Opacity is EmphasizedOpacity for emphasized edges and RestOpacity otherwise.
func (g EdgeGeometry) Opacity() float64 {
	if g.State.Emphasized() {
		return EmphasizedOpacity
	}
	return RestOpacity
}

// Length returns the length of the trimmed segment.
func (g EdgeGeometry) Length() float64 {
	return math.Hypot(g.X2-g.X1, g.Y2-g.Y1)
}

// Resolve computes geometry for every edge whose endpoints are both in l.
// Output order follows edges; edges with a missing endpoint are dropped.
func Resolve(l layout.Layout, edges []model.Edge, opts Options) []EdgeGeometry {
	defer metrics.Timer(metrics.EdgeResolve)()

	opts = opts.WithDefaults()
	alloc := newIDAllocator()
	out := make([]EdgeGeometry, 0, len(edges))

	for _, e := range edges {
		src, ok := l[e.Source]
		if !ok {
			debug.Log("geometry: drop edge %q, source %q not positioned", e.ID, e.Source)
			continue
		}
		tgt, ok := l[e.Target]
		if !ok {
			debug.Log("geometry: drop edge %q, target %q not positioned", e.ID, e.Target)
			continue
		}

		angle := math.Atan2(tgt.Y-src.Y, tgt.X-src.X)
		cos, sin := math.Cos(angle), math.Sin(angle)
		endInset := opts.NodeRadius + opts.ArrowheadSize/2

		key := alloc.next(ResourceKey(e.ID))
		g := EdgeGeometry{
			Edge:       e,
			X1:         src.X + opts.NodeRadius*cos,
			Y1:         src.Y + opts.NodeRadius*sin,
			X2:         tgt.X - endInset*cos,
			Y2:         tgt.Y - endInset*sin,
			Angle:      angle,
			GradientID: "grad-" + key,
			MarkerID:   "arrow-" + key,
			SourceFill: fillOf(src),
			TargetFill: fillOf(tgt),
			Accent:     opts.Accent,
			State:      stateOf(e.ID, opts),
		}
		out = append(out, g)
	}
	return out
}

// Restate recolors gs in place for new hover/highlight ids.
func Restate(gs []EdgeGeometry, hovered, highlighted string) {
	o := Options{Hovered: hovered, Highlighted: highlighted}
	for i := range gs {
		gs[i].State = stateOf(gs[i].Edge.ID, o)
	}
}

func stateOf(id string, o Options) InteractionState {
	switch {
	case id == "":
		return StateNormal
	case id == o.Hovered:
		return StateHovered
	case id == o.Highlighted:
		return StateHighlighted
	default:
		return StateNormal
	}
}

func fillOf(n layout.LayoutNode) string {
	if n.Node != nil && n.Node.Fill != "" {
		return n.Node.Fill
	}
	return theme.Neutral
}

// DistanceToSegment returns the distance from (px, py) to the segment
// (x1, y1)-(x2, y2).
func DistanceToSegment(px, py, x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-x1, py-y1)
	}
	t := ((px-x1)*dx + (py-y1)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(x1+t*dx), py-(y1+t*dy))
}

// ArrowheadPolygon returns the three corners of an arrowhead of the given
// size centered on the trimmed end of g, so its tip touches the target circle.
func ArrowheadPolygon(g EdgeGeometry, size float64) [3][2]float64 {
	cos, sin := math.Cos(g.Angle), math.Sin(g.Angle)
	half := size / 2
	tipX, tipY := g.X2+half*cos, g.Y2+half*sin
	baseX, baseY := g.X2-half*cos, g.Y2-half*sin
	return [3][2]float64{
		{tipX, tipY},
		{baseX - half*sin, baseY + half*cos},
		{baseX + half*sin, baseY - half*cos},
	}
}
