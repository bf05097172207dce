package analysis

import (
	"math"
	"testing"

	"github.com/vanderheijden86/threatmap/pkg/model"
)

func chain() ([]model.Node, []model.Edge) {
	nodes := []model.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	edges := []model.Edge{
		{ID: "ab", Source: "A", Target: "B"},
		{ID: "ab2", Source: "A", Target: "B"},
		{ID: "bc", Source: "B", Target: "C"},
		{ID: "cc", Source: "C", Target: "C"},
		{ID: "bx", Source: "B", Target: "missing"},
	}
	return nodes, edges
}

func TestComputeCentrality_Chain(t *testing.T) {
	nodes, edges := chain()
	c := ComputeCentrality(nodes, edges, DefaultConfig())

	if c.OutDegree["A"] != 2 || c.InDegree["B"] != 2 {
		t.Errorf("parallel edges should count toward degree: out(A)=%d in(B)=%d", c.OutDegree["A"], c.InDegree["B"])
	}
	if c.OutDegree["B"] != 1 {
		t.Errorf("edge to unknown node should be ignored, out(B)=%d", c.OutDegree["B"])
	}
	if c.InDegree["C"] != 2 || c.OutDegree["C"] != 1 {
		t.Errorf("self loop should count once each way: in(C)=%d out(C)=%d", c.InDegree["C"], c.OutDegree["C"])
	}

	if c.Betweenness["B"] != 1 {
		t.Errorf("betweenness(B) = %v, want 1", c.Betweenness["B"])
	}
	if c.Betweenness["A"] != 0 || c.Betweenness["C"] != 0 {
		t.Errorf("endpoints should have zero betweenness: %v", c.Betweenness)
	}

	sum := 0.0
	for _, v := range c.PageRank {
		sum += v
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("pagerank should sum to 1, got %v", sum)
	}
	if !(c.PageRank["C"] > c.PageRank["A"]) {
		t.Errorf("sink should outrank source: %v", c.PageRank)
	}
	if c.PageRankTimedOut || c.BetweennessTimedOut || c.BetweennessSkipped {
		t.Error("small graph should not time out or skip")
	}
}

func TestComputeCentrality_Empty(t *testing.T) {
	c := ComputeCentrality(nil, nil, DefaultConfig())
	if len(c.PageRank) != 0 || len(c.Betweenness) != 0 {
		t.Errorf("expected empty result, got %+v", c)
	}
}

func TestComputeCentrality_SkipsBetweennessForLargeGraphs(t *testing.T) {
	nodes, edges := chain()
	cfg := DefaultConfig()
	cfg.MaxBetweennessNodes = 2

	c := ComputeCentrality(nodes, edges, cfg)
	if !c.BetweennessSkipped {
		t.Fatal("expected betweenness to be skipped")
	}
	if len(c.Betweenness) != 0 {
		t.Errorf("skipped betweenness should be empty: %v", c.Betweenness)
	}
	if len(c.PageRank) != 3 {
		t.Errorf("pagerank should still be computed: %v", c.PageRank)
	}
}

func TestFill(t *testing.T) {
	nodes, edges := chain()
	nodes[0].Metrics = model.Metrics{PageRank: 0.9}
	ds := model.NewDataset(nodes, edges)

	if n := Fill(ds, DefaultConfig()); n != 2 {
		t.Errorf("filled %d nodes, want 2", n)
	}
	if ds.Nodes[0].Metrics.PageRank != 0.9 {
		t.Error("supplied metrics must be kept")
	}
	if ds.Nodes[1].Metrics.InDegree != 2 || ds.Nodes[1].Metrics.Betweenness != 1 {
		t.Errorf("B metrics = %+v", ds.Nodes[1].Metrics)
	}

	if n := Fill(ds, DefaultConfig()); n != 0 {
		t.Errorf("second fill should be a no-op, filled %d", n)
	}
}

func TestTopByPageRank(t *testing.T) {
	ds := model.NewDataset([]model.Node{
		{ID: "low", Metrics: model.Metrics{PageRank: 0.1}},
		{ID: "b-tie", Metrics: model.Metrics{PageRank: 0.4}},
		{ID: "a-tie", Metrics: model.Metrics{PageRank: 0.4}},
		{ID: "high", Metrics: model.Metrics{PageRank: 0.5}},
	}, nil)

	top := TopByPageRank(ds, 3)
	want := []string{"high", "a-tie", "b-tie"}
	if len(top) != len(want) {
		t.Fatalf("got %d results", len(top))
	}
	for i, id := range want {
		if top[i].Node.ID != id {
			t.Errorf("rank %d = %s, want %s", i, top[i].Node.ID, id)
		}
	}
	if all := TopByPageRank(ds, 0); len(all) != 4 {
		t.Errorf("n=0 should return all, got %d", len(all))
	}
}
