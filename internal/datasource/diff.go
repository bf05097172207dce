package datasource

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vanderheijden86/threatmap/pkg/model"
)

// DatasetDiff describes what changed between two loads of a dataset.
type DatasetDiff struct {
	AddedNodes   []string
	RemovedNodes []string
	AddedEdges   []string
	RemovedEdges []string
	// Reweighted lists edges present in both loads whose weight changed.
	Reweighted []WeightChange
}

// WeightChange is a single edge whose weight differs between loads.
type WeightChange struct {
	ID     string  `json:"id"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// Diff compares two datasets by node and edge id. Either may be nil.
func Diff(before, after *model.Dataset) DatasetDiff {
	var d DatasetDiff

	oldNodes := nodeIDs(before)
	newNodes := nodeIDs(after)
	for id := range newNodes {
		if !oldNodes[id] {
			d.AddedNodes = append(d.AddedNodes, id)
		}
	}
	for id := range oldNodes {
		if !newNodes[id] {
			d.RemovedNodes = append(d.RemovedNodes, id)
		}
	}

	oldEdges := edgeWeights(before)
	newEdges := edgeWeights(after)
	for id, w := range newEdges {
		prev, ok := oldEdges[id]
		switch {
		case !ok:
			d.AddedEdges = append(d.AddedEdges, id)
		case prev != w:
			d.Reweighted = append(d.Reweighted, WeightChange{ID: id, Before: prev, After: w})
		}
	}
	for id := range oldEdges {
		if _, ok := newEdges[id]; !ok {
			d.RemovedEdges = append(d.RemovedEdges, id)
		}
	}

	slices.Sort(d.AddedNodes)
	slices.Sort(d.RemovedNodes)
	slices.Sort(d.AddedEdges)
	slices.Sort(d.RemovedEdges)
	slices.SortFunc(d.Reweighted, func(a, b WeightChange) int { return strings.Compare(a.ID, b.ID) })
	return d
}

// IsEmpty returns true if nothing changed.
func (d DatasetDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 && len(d.Reweighted) == 0
}

// Summary returns a one-line description such as "+2 nodes, -1 edge".
func (d DatasetDiff) Summary() string {
	if d.IsEmpty() {
		return "no changes"
	}
	var parts []string
	add := func(n int, sign, noun string) {
		if n == 0 {
			return
		}
		if n != 1 {
			noun += "s"
		}
		parts = append(parts, fmt.Sprintf("%s%d %s", sign, n, noun))
	}
	add(len(d.AddedNodes), "+", "node")
	add(len(d.RemovedNodes), "-", "node")
	add(len(d.AddedEdges), "+", "edge")
	add(len(d.RemovedEdges), "-", "edge")
	add(len(d.Reweighted), "~", "weight")
	return strings.Join(parts, ", ")
}

func nodeIDs(ds *model.Dataset) map[string]bool {
	out := make(map[string]bool)
	if ds == nil {
		return out
	}
	for _, n := range ds.Nodes {
		out[n.ID] = true
	}
	return out
}

// Edge ids are unique once a dataset has been through the loader.
func edgeWeights(ds *model.Dataset) map[string]float64 {
	out := make(map[string]float64)
	if ds == nil {
		return out
	}
	for _, e := range ds.Edges {
		out[e.ID] = e.Weight
	}
	return out
}
