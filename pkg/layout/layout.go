// Package layout assigns 2D coordinates to a working set of nodes by
// splitting it into three connectivity tiers laid out as columns: sources on
// the left, their direct targets in the middle, everything else on the right.
package layout

import (
	"math"

	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

// Tier is the connectivity class a node is placed into.
type Tier int

const (
	TierSource Tier = iota
	TierFirstOrder
	TierSecondOrder
)

func (t Tier) String() string {
	switch t {
	case TierSource:
		return "source"
	case TierFirstOrder:
		return "first-order"
	case TierSecondOrder:
		return "second-order"
	default:
		return "unknown"
	}
}

// Config holds the canvas geometry. Zero fields take the defaults below.
type Config struct {
	Width           float64 `yaml:"width" toml:"width"`
	Height          float64 `yaml:"height" toml:"height"`
	NodeRadius      float64 `yaml:"node_radius" toml:"node_radius"`
	VerticalSpacing float64 `yaml:"vertical_spacing" toml:"vertical_spacing"`
	LeftPadding     float64 `yaml:"left_padding" toml:"left_padding"`
	RightPadding    float64 `yaml:"right_padding" toml:"right_padding"`
	VerticalPadding float64 `yaml:"vertical_padding" toml:"vertical_padding"`
}

const (
	DefaultWidth           = 800.0
	DefaultHeight          = 600.0
	DefaultNodeRadius      = 20.0
	DefaultVerticalSpacing = 100.0
	DefaultPadding         = 100.0
	DefaultVerticalPadding = 60.0
)

// DefaultConfig returns the 800x600 canvas configuration.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns c with every non-positive field replaced by its default.
func (c Config) WithDefaults() Config {
	def := func(v, d float64) float64 {
		if v <= 0 {
			return d
		}
		return v
	}
	c.Width = def(c.Width, DefaultWidth)
	c.Height = def(c.Height, DefaultHeight)
	c.NodeRadius = def(c.NodeRadius, DefaultNodeRadius)
	c.VerticalSpacing = def(c.VerticalSpacing, DefaultVerticalSpacing)
	c.LeftPadding = def(c.LeftPadding, DefaultPadding)
	c.RightPadding = def(c.RightPadding, DefaultPadding)
	c.VerticalPadding = def(c.VerticalPadding, DefaultVerticalPadding)
	return c
}

// LayoutNode is a positioned node. It lives for one render cycle.
type LayoutNode struct {
	ID   string
	X, Y float64
	Tier Tier
	Node *model.Node
}

// Layout maps node ids to their positions.
type Layout map[string]LayoutNode

// Tiers is the three-way partition of a working node set. Each slice keeps
// the input order of the nodes.
type Tiers struct {
	Source      []string
	FirstOrder  []string
	SecondOrder []string
}

// Of returns the tier of id and whether it was partitioned.
func (t Tiers) Of(id string) (Tier, bool) {
	for tier, ids := range [][]string{t.Source, t.FirstOrder, t.SecondOrder} {
		for _, v := range ids {
			if v == id {
				return Tier(tier), true
			}
		}
	}
	return 0, false
}

// Partition classifies nodes using only edges whose endpoints are both in
// nodes. A node without incoming edges is a source, isolated nodes included.
func Partition(nodes []model.Node, edges []model.Edge) Tiers {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}

	outgoing := make(map[string][]string, len(nodes))
	incoming := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if !present[e.Source] || !present[e.Target] {
			continue
		}
		outgoing[e.Source] = append(outgoing[e.Source], e.Target)
		incoming[e.Target] = append(incoming[e.Target], e.Source)
	}

	isSource := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if len(incoming[n.ID]) == 0 {
			isSource[n.ID] = true
		}
	}

	firstOrder := make(map[string]bool)
	for id := range isSource {
		for _, target := range outgoing[id] {
			if !isSource[target] {
				firstOrder[target] = true
			}
		}
	}

	var tiers Tiers
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		switch {
		case isSource[n.ID]:
			tiers.Source = append(tiers.Source, n.ID)
		case firstOrder[n.ID]:
			tiers.FirstOrder = append(tiers.FirstOrder, n.ID)
		default:
			tiers.SecondOrder = append(tiers.SecondOrder, n.ID)
		}
	}
	return tiers
}

// CalculateLayout positions nodes in three columns by tier. It is pure: equal
// inputs always produce equal coordinates. Duplicate node ids are laid out
// once, at their first occurrence.
func CalculateLayout(nodes []model.Node, edges []model.Edge, cfg Config) Layout {
	defer metrics.Timer(metrics.LayoutCompute)()

	cfg = cfg.WithDefaults()
	result := make(Layout, len(nodes))
	if len(nodes) == 0 {
		return result
	}

	byID := make(map[string]*model.Node, len(nodes))
	for i := range nodes {
		if _, ok := byID[nodes[i].ID]; !ok {
			byID[nodes[i].ID] = &nodes[i]
		}
	}

	tiers := Partition(nodes, edges)

	sourceX := cfg.LeftPadding + cfg.NodeRadius
	secondX := cfg.Width - cfg.RightPadding - cfg.NodeRadius
	firstX := (sourceX + secondX) / 2

	place := func(ids []string, x float64, tier Tier) {
		ys := columnY(len(ids), cfg)
		for i, id := range ids {
			result[id] = LayoutNode{ID: id, X: x, Y: ys[i], Tier: tier, Node: byID[id]}
		}
	}
	place(tiers.Source, sourceX, TierSource)
	place(tiers.FirstOrder, firstX, TierFirstOrder)
	place(tiers.SecondOrder, secondX, TierSecondOrder)

	return result
}

// columnY returns n vertically centered y coordinates.
func columnY(n int, cfg Config) []float64 {
	if n == 0 {
		return nil
	}
	ys := make([]float64, n)
	if n == 1 {
		ys[0] = cfg.Height / 2
		return ys
	}

	available := math.Max(cfg.Height-2*cfg.VerticalPadding, 0)
	spacing := math.Min(cfg.VerticalSpacing, available/float64(n-1))
	startY := (cfg.Height - spacing*float64(n-1)) / 2
	for i := range ys {
		ys[i] = startY + float64(i)*spacing
	}
	return ys
}

// Bounds returns the bounding box of the node centers grown by pad on every
// side. ok is false for an empty layout.
func (l Layout) Bounds(pad float64) (minX, minY, maxX, maxY float64, ok bool) {
	first := true
	for _, n := range l {
		if first {
			minX, maxX, minY, maxY = n.X, n.X, n.Y, n.Y
			first = false
			continue
		}
		minX = math.Min(minX, n.X)
		maxX = math.Max(maxX, n.X)
		minY = math.Min(minY, n.Y)
		maxY = math.Max(maxY, n.Y)
	}
	if first {
		return 0, 0, 0, 0, false
	}
	return minX - pad, minY - pad, maxX + pad, maxY + pad, true
}
