// Package selection derives the bounded neighborhood shown around a focus node
// and tracks which node or edge the user has selected.
package selection

import (
	"math"
	"sort"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// DefaultEdgeLimit caps both the first-order and second-order edge lists.
const DefaultEdgeLimit = 6

// Limits bounds the neighborhood. Zero uses DefaultEdgeLimit; a negative
// value means no cap.
type Limits struct {
	FirstOrder  int `yaml:"first_order" toml:"first_order"`
	SecondOrder int `yaml:"second_order" toml:"second_order"`
}

// DefaultLimits returns the 6/6 cap.
func DefaultLimits() Limits {
	return Limits{FirstOrder: DefaultEdgeLimit, SecondOrder: DefaultEdgeLimit}
}

func (l Limits) withDefaults() Limits {
	if l.FirstOrder == 0 {
		l.FirstOrder = DefaultEdgeLimit
	}
	if l.SecondOrder == 0 {
		l.SecondOrder = DefaultEdgeLimit
	}
	return l
}

// Neighborhood is the working set derived from a focus node.
type Neighborhood struct {
	Focus string

	// Nodes holds the focus, then first-order targets, then second-order
	// targets, each once. Fill is set from the palette.
	Nodes []model.Node

	// Edges is FirstOrder followed by SecondOrder. Size is set from weight.
	Edges       []model.Edge
	FirstOrder  []model.Edge
	SecondOrder []model.Edge
}

// IsEmpty reports whether the neighborhood has no nodes.
func (n Neighborhood) IsEmpty() bool {
	return len(n.Nodes) == 0
}

// Edge returns the working edge with the given id.
func (n Neighborhood) Edge(id string) (model.Edge, bool) {
	for _, e := range n.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return model.Edge{}, false
}

// HasNode reports whether id is in the working node set.
func (n Neighborhood) HasNode(id string) bool {
	for _, node := range n.Nodes {
		if node.ID == id {
			return true
		}
	}
	return false
}

// Derive builds the neighborhood of focus. An empty or unknown focus yields an
// empty neighborhood.
func Derive(ds *model.Dataset, focus string, limits Limits, palette theme.Palette) Neighborhood {
	defer metrics.Timer(metrics.NeighborhoodDerive)()

	if focus == "" || !ds.HasNode(focus) {
		debug.LogIf(focus != "", "selection: focus %q not in dataset", focus)
		return Neighborhood{}
	}
	limits = limits.withDefaults()

	first := topByWeight(ds.OutgoingEdges(focus), limits.FirstOrder)

	firstTargets := make(map[string]bool, len(first))
	var firstOrder []string
	for _, e := range first {
		if !firstTargets[e.Target] {
			firstTargets[e.Target] = true
			firstOrder = append(firstOrder, e.Target)
		}
	}

	var candidates []model.Edge
	for _, e := range ds.Edges {
		if firstTargets[e.Source] && e.Target != focus && !firstTargets[e.Target] {
			candidates = append(candidates, e)
		}
	}
	second := topByWeight(candidates, limits.SecondOrder)

	ids := make([]string, 0, 1+len(first)+len(second))
	ids = append(ids, focus)
	ids = append(ids, firstOrder...)
	for _, e := range second {
		ids = append(ids, e.Target)
	}

	hood := Neighborhood{Focus: focus}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := ds.Node(id)
		if !ok {
			debug.Log("selection: edge target %q not in dataset", id)
			continue
		}
		n.Fill = palette.Fill(n.Category)
		hood.Nodes = append(hood.Nodes, n)
	}

	hood.FirstOrder = sized(first)
	hood.SecondOrder = sized(second)
	hood.Edges = make([]model.Edge, 0, len(first)+len(second))
	hood.Edges = append(hood.Edges, hood.FirstOrder...)
	hood.Edges = append(hood.Edges, hood.SecondOrder...)
	return hood
}

// EdgeSize buckets a weight into a stroke width from 1 to 4.
func EdgeSize(weight float64) int {
	s := int(math.Round(weight * 2))
	if s < 1 {
		return 1
	}
	if s > 4 {
		return 4
	}
	return s
}

// topByWeight returns up to limit edges ordered by weight descending, ties in
// input order. The input is not modified.
func topByWeight(edges []model.Edge, limit int) []model.Edge {
	sorted := make([]model.Edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func sized(edges []model.Edge) []model.Edge {
	out := make([]model.Edge, len(edges))
	for i, e := range edges {
		e.Size = EdgeSize(e.Weight)
		out[i] = e
	}
	return out
}
