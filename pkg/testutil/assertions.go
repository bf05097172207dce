package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/threatmap/pkg/layout"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/selection"
)

// AssertNodeCount verifies the expected number of nodes.
func AssertNodeCount(t *testing.T, ds *model.Dataset, expected int) {
	t.Helper()
	if len(ds.Nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(ds.Nodes))
	}
}

// AssertNoDuplicateIDs verifies all node and edge IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, ds *model.Dataset) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range ds.Nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
	}
	seen = make(map[string]bool)
	for _, e := range ds.Edges {
		if seen[e.ID] {
			t.Errorf("duplicate edge ID: %s", e.ID)
		}
		seen[e.ID] = true
	}
}

// AssertValid verifies the dataset passes validation.
func AssertValid(t *testing.T, ds *model.Dataset) {
	t.Helper()
	if err := ds.Validate(); err != nil {
		t.Errorf("dataset invalid: %v", err)
	}
}

// AssertEdgeExists verifies that at least one edge runs from source to target.
func AssertEdgeExists(t *testing.T, ds *model.Dataset, source, target string) {
	t.Helper()
	for _, e := range ds.OutgoingEdges(source) {
		if e.Target == target {
			return
		}
	}
	t.Errorf("expected edge from %s to %s not found", source, target)
}

// AssertNeighborhoodBounds verifies the structural guarantees of a derived
// neighborhood: the focus comes first, node ids are unique, every edge has
// both endpoints in the node set, first-order edges leave the focus, and the
// edge lists respect the limits.
func AssertNeighborhoodBounds(t *testing.T, hood selection.Neighborhood, limits selection.Limits) {
	t.Helper()
	if hood.IsEmpty() {
		if len(hood.Edges) != 0 {
			t.Errorf("empty neighborhood has %d edges", len(hood.Edges))
		}
		return
	}
	if hood.Nodes[0].ID != hood.Focus {
		t.Errorf("first node = %s, want focus %s", hood.Nodes[0].ID, hood.Focus)
	}
	seen := make(map[string]bool, len(hood.Nodes))
	for _, n := range hood.Nodes {
		if seen[n.ID] {
			t.Errorf("node %s appears twice", n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range hood.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			t.Errorf("edge %s (%s -> %s) leaves the node set", e.ID, e.Source, e.Target)
		}
	}
	for _, e := range hood.FirstOrder {
		if e.Source != hood.Focus {
			t.Errorf("first-order edge %s starts at %s", e.ID, e.Source)
		}
	}
	for _, e := range hood.SecondOrder {
		if e.Source == hood.Focus || e.Target == hood.Focus {
			t.Errorf("second-order edge %s touches the focus", e.ID)
		}
	}
	if limits.FirstOrder > 0 && len(hood.FirstOrder) > limits.FirstOrder {
		t.Errorf("first-order edges = %d, limit %d", len(hood.FirstOrder), limits.FirstOrder)
	}
	if limits.SecondOrder > 0 && len(hood.SecondOrder) > limits.SecondOrder {
		t.Errorf("second-order edges = %d, limit %d", len(hood.SecondOrder), limits.SecondOrder)
	}
}

// AssertTierColumns verifies every node of a tier shares one x coordinate and
// tiers run left to right.
func AssertTierColumns(t *testing.T, l layout.Layout) {
	t.Helper()
	xs := map[layout.Tier]float64{}
	for id, n := range l {
		if x, ok := xs[n.Tier]; ok && x != n.X {
			t.Errorf("node %s in tier %s at x=%.1f, tier column at x=%.1f", id, n.Tier, n.X, x)
		}
		xs[n.Tier] = n.X
	}
	order := []layout.Tier{layout.TierSource, layout.TierFirstOrder, layout.TierSecondOrder}
	prev, havePrev := 0.0, false
	for _, tier := range order {
		x, ok := xs[tier]
		if !ok {
			continue
		}
		if havePrev && x <= prev {
			t.Errorf("tier %s at x=%.1f is not right of x=%.1f", tier, x, prev)
		}
		prev, havePrev = x, true
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}

	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// Dataset file helpers

// WriteDatasetFile writes ds as a JSON document to dir/name and returns the
// path.
func WriteDatasetFile(t testing.TB, dir, name string, ds *model.Dataset) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(ToJSON(ds)), 0644); err != nil {
		t.Fatalf("failed to write dataset file: %v", err)
	}
	return path
}

// GetIDs returns the node ids in dataset order.
func GetIDs(ds *model.Dataset) []string {
	ids := make([]string, len(ds.Nodes))
	for i, n := range ds.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// EdgeLabel formats an edge as "source->target" for readable failures.
func EdgeLabel(e model.Edge) string {
	return fmt.Sprintf("%s->%s", e.Source, e.Target)
}
