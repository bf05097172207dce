// Package analysis computes graph-level node attributes for datasets that
// arrive without them: PageRank, betweenness and degree counts.
package analysis

import (
	"cmp"
	"slices"
	"time"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

// Centrality holds per-node scores keyed by node id.
type Centrality struct {
	PageRank    map[string]float64
	Betweenness map[string]float64
	InDegree    map[string]int
	OutDegree   map[string]int

	PageRankTimedOut    bool
	BetweennessTimedOut bool
	BetweennessSkipped  bool
}

// Metrics returns the scores of one node.
func (c Centrality) Metrics(id string) model.Metrics {
	return model.Metrics{
		PageRank:    c.PageRank[id],
		Betweenness: c.Betweenness[id],
		InDegree:    c.InDegree[id],
		OutDegree:   c.OutDegree[id],
	}
}

// ComputeCentrality scores every node. Degrees count parallel edges; the
// spectral and path metrics see each ordered pair once and ignore self loops.
// Edges with an unknown endpoint are ignored throughout.
func ComputeCentrality(nodes []model.Node, edges []model.Edge, cfg Config) Centrality {
	defer metrics.Timer(metrics.CentralityCompute)()

	c := Centrality{
		PageRank:    make(map[string]float64, len(nodes)),
		Betweenness: make(map[string]float64, len(nodes)),
		InDegree:    make(map[string]int, len(nodes)),
		OutDegree:   make(map[string]int, len(nodes)),
	}
	if len(nodes) == 0 {
		return c
	}

	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(nodes))
	nodeToID := make(map[int64]string, len(nodes))
	for _, n := range nodes {
		if _, dup := idToNode[n.ID]; dup {
			continue
		}
		gn := g.NewNode()
		g.AddNode(gn)
		idToNode[n.ID] = gn.ID()
		nodeToID[gn.ID()] = n.ID
	}

	for _, e := range edges {
		u, okU := idToNode[e.Source]
		v, okV := idToNode[e.Target]
		if !okU || !okV {
			continue
		}
		c.OutDegree[e.Source]++
		c.InDegree[e.Target]++
		if u == v {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
	}

	prDone := make(chan map[int64]float64, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				debug.Warn("pagerank panicked: %v", r)
			}
		}()
		prDone <- network.PageRank(g, cfg.Damping, cfg.Tolerance)
	}()
	timer := time.NewTimer(cfg.PageRankTimeout)
	select {
	case pr := <-prDone:
		timer.Stop()
		for id, score := range pr {
			c.PageRank[nodeToID[id]] = score
		}
	case <-timer.C:
		c.PageRankTimedOut = true
		uniform := 1.0 / float64(len(idToNode))
		for id := range idToNode {
			c.PageRank[id] = uniform
		}
	}

	if cfg.SkipBetweenness || (cfg.MaxBetweennessNodes > 0 && len(idToNode) > cfg.MaxBetweennessNodes) {
		c.BetweennessSkipped = true
		debug.Log("analysis: skipping betweenness for %d nodes: %s", len(idToNode), cfg.skipReason(len(idToNode)))
		return c
	}

	bwDone := make(chan map[int64]float64, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				debug.Warn("betweenness panicked: %v", r)
			}
		}()
		bwDone <- network.Betweenness(g)
	}()
	timer = time.NewTimer(cfg.BetweennessTimeout)
	select {
	case bw := <-bwDone:
		timer.Stop()
		for id, score := range bw {
			c.Betweenness[nodeToID[id]] = score
		}
	case <-timer.C:
		c.BetweennessTimedOut = true
	}

	return c
}

// Fill computes centrality for ds and stores it on every node whose metrics
// are all zero. It returns how many nodes were filled.
func Fill(ds *model.Dataset, cfg Config) int {
	need := false
	for _, n := range ds.Nodes {
		if n.Metrics.IsZero() {
			need = true
			break
		}
	}
	if !need {
		return 0
	}

	c := ComputeCentrality(ds.Nodes, ds.Edges, cfg)
	filled := 0
	for i := range ds.Nodes {
		if ds.Nodes[i].Metrics.IsZero() {
			ds.Nodes[i].Metrics = c.Metrics(ds.Nodes[i].ID)
			filled++
		}
	}
	return filled
}

// Ranked is a node paired with a score.
type Ranked struct {
	Node  model.Node
	Score float64
}

// TopByPageRank returns the n nodes with the highest PageRank, ties broken by
// id. n <= 0 returns every node.
func TopByPageRank(ds *model.Dataset, n int) []Ranked {
	out := make([]Ranked, 0, len(ds.Nodes))
	for _, node := range ds.Nodes {
		out = append(out, Ranked{Node: node, Score: node.Metrics.PageRank})
	}
	slices.SortFunc(out, func(a, b Ranked) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Node.ID, b.Node.ID)
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
