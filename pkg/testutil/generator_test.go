package testutil

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/threatmap/pkg/layout"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/selection"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

func TestChain(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		size      int
		wantNodes int
		wantEdges int
		wantDepth int
	}{
		{"chain_1", 1, 1, 0, 0},
		{"chain_2", 2, 2, 1, 1},
		{"chain_5", 5, 5, 4, 4},
		{"chain_10", 10, 10, 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Chain(tt.size)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Chain(%d) nodes = %d, want %d", tt.size, len(gf.Nodes), tt.wantNodes)
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Chain(%d) edges = %d, want %d", tt.size, len(gf.Edges), tt.wantEdges)
			}
			if gf.Properties.HasCycles {
				t.Error("Chain should not have cycles")
			}
			if gf.Properties.ExpectedDepth != tt.wantDepth {
				t.Errorf("Chain(%d) depth = %d, want %d", tt.size, gf.Properties.ExpectedDepth, tt.wantDepth)
			}
			for i, e := range gf.Edges {
				if e[0] != i || e[1] != i+1 {
					t.Errorf("Edge %d: got [%d,%d], want [%d,%d]", i, e[0], e[1], i, i+1)
				}
			}
		})
	}
}

func TestTopologies(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		gf        GraphFixture
		wantNodes int
		wantEdges int
	}{
		{"star", gen.Star(5), 6, 5},
		{"reverse_star", gen.ReverseStar(3), 4, 3},
		{"diamond", gen.Diamond(3), 5, 6},
		{"diamond_clamped", gen.Diamond(0), 3, 2},
		{"cycle", gen.Cycle(4), 4, 4},
		{"tree", gen.Tree(2, 3), 13, 12},
		{"tree_root", gen.Tree(0, 3), 1, 0},
		{"disconnected", gen.Disconnected(3, 2), 6, 3},
		{"complete", gen.Complete(4), 4, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.gf.Nodes) != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", len(tt.gf.Nodes), tt.wantNodes)
			}
			if len(tt.gf.Edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(tt.gf.Edges), tt.wantEdges)
			}
			for _, e := range tt.gf.Edges {
				if e[0] < 0 || e[0] >= len(tt.gf.Nodes) || e[1] < 0 || e[1] >= len(tt.gf.Nodes) {
					t.Errorf("edge %v out of range", e)
				}
			}
		})
	}
}

func TestRandomDAG_Deterministic(t *testing.T) {
	a := NewDefault().RandomDAG(30, 0.2)
	b := NewDefault().RandomDAG(30, 0.2)
	if len(a.Edges) != len(b.Edges) {
		t.Fatalf("same seed gave %d and %d edges", len(a.Edges), len(b.Edges))
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Fatalf("edge %d differs: %v vs %v", i, a.Edges[i], b.Edges[i])
		}
	}
	for _, e := range a.Edges {
		if e[0] >= e[1] {
			t.Errorf("edge %v goes backwards", e)
		}
	}
	if got := NewDefault().RandomDAG(10, 0); len(got.Edges) != 0 {
		t.Errorf("density 0 produced %d edges", len(got.Edges))
	}
}

func TestToDataset(t *testing.T) {
	gen := New(GeneratorConfig{
		CategoryMix:     []model.Category{model.CategoryThreat, model.CategoryImpact},
		MaxWeight:       4,
		IncludeMetrics:  true,
		IncludeEvidence: true,
	})
	ds := gen.ToDataset(gen.Diamond(2))

	AssertNodeCount(t, ds, 4)
	AssertNoDuplicateIDs(t, ds)
	AssertValid(t, ds)
	AssertEdgeExists(t, ds, "T-top", "T-mid1")
	AssertEdgeExists(t, ds, "T-mid2", "T-bottom")

	for _, e := range ds.Edges {
		if e.Weight < 1 || e.Weight > 4 {
			t.Errorf("edge %s weight %.0f outside 1..4", EdgeLabel(e), e.Weight)
		}
		if len(e.Citations) != 1 || e.Citations[0].Cause == "" {
			t.Errorf("edge %s missing evidence", e.ID)
		}
	}
	for _, n := range ds.Nodes {
		if n.Category != model.CategoryThreat && n.Category != model.CategoryImpact {
			t.Errorf("node %s category %q not from the mix", n.ID, n.Category)
		}
		if n.Metrics.PageRank == 0 {
			t.Errorf("node %s has no pagerank", n.ID)
		}
		if len(n.Citations[0].QuotedParts()) != 2 {
			t.Errorf("node %s quoted parts = %v", n.ID, n.Citations[0].QuotedParts())
		}
	}
}

func TestToJSON(t *testing.T) {
	ds := QuickChain(3)
	out := ToJSON(ds)

	var doc struct {
		Nodes []model.Node `json:"nodes"`
		Edges []model.Edge `json:"edges"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Nodes) != 3 || len(doc.Edges) != 2 {
		t.Errorf("document has %d nodes and %d edges", len(doc.Nodes), len(doc.Edges))
	}
	if !strings.Contains(out, `"T-n0"`) {
		t.Errorf("ids missing:\n%s", out)
	}
}

func TestQuickFixtures(t *testing.T) {
	if ds := Empty(); !ds.IsEmpty() {
		t.Error("Empty() is not empty")
	}
	AssertNodeCount(t, Single(), 1)
	AssertNodeCount(t, QuickStar(4), 5)
	AssertNodeCount(t, QuickCycle(3), 3)
	AssertNodeCount(t, QuickTree(1, 2), 3)
	AssertNodeCount(t, QuickDiamond(1), 3)
	AssertNoDuplicateIDs(t, QuickRandom(20, 0.3))

	ids := GetIDs(QuickChain(2))
	if len(ids) != 2 || ids[0] != "T-n0" || ids[1] != "T-n1" {
		t.Errorf("ids = %v", ids)
	}
}

func TestAssertHelpersOnDerivedFixtures(t *testing.T) {
	limits := selection.Limits{FirstOrder: 3, SecondOrder: 2}
	ds := QuickTree(3, 4)
	hood := selection.Derive(ds, "T-root", limits, theme.DefaultPalette())

	AssertNeighborhoodBounds(t, hood, limits)
	if len(hood.FirstOrder) != 3 || len(hood.SecondOrder) != 2 {
		t.Errorf("edges = %d/%d", len(hood.FirstOrder), len(hood.SecondOrder))
	}

	l := layout.CalculateLayout(hood.Nodes, hood.Edges, layout.DefaultConfig())
	AssertTierColumns(t, l)
}

func TestGoldenFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GENERATE_GOLDEN", "1")
	NewGoldenFile(t, dir, "out.golden").Assert("line one\nline two\n")

	t.Setenv("GENERATE_GOLDEN", "")
	g := NewGoldenFile(t, dir, "out.golden")
	g.Assert("line one\nline two\n")
	if !strings.HasSuffix(g.Path(), "out.golden") {
		t.Errorf("path = %s", g.Path())
	}
}
