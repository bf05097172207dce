// Package testutil provides test fixture generators for various graph topologies.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/threatmap/pkg/model"
)

// GraphFixture represents an abstract directed graph for testing layout and
// neighborhood code.
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"` // [source_idx, target_idx]
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles     bool `json:"has_cycles,omitempty"`
	IsConnected   bool `json:"is_connected,omitempty"`
	ExpectedDepth int  `json:"expected_depth,omitempty"`
}

// GeneratorConfig controls dataset generation.
type GeneratorConfig struct {
	Seed            int64            // Random seed for determinism (0 = use 42)
	IDPrefix        string           // Prefix for node IDs (default: "T")
	CategoryMix     []model.Category // Category distribution (nil = all threat)
	MaxWeight       int              // Edge weights are drawn from 1..MaxWeight (default: 10)
	IncludeMetrics  bool             // Attach random centrality scores
	IncludeEvidence bool             // Attach one citation per node and edge
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		IDPrefix:    "T",
		CategoryMix: []model.Category{model.CategoryThreat},
		MaxWeight:   10,
	}
}

// Generator creates test fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "T"
	}
	if len(cfg.CategoryMix) == 0 {
		cfg.CategoryMix = []model.Category{model.CategoryThreat}
	}
	if cfg.MaxWeight <= 0 {
		cfg.MaxWeight = 10
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Graph Topology Generators
// ============================================================================

// Chain creates a linear chain: n0 -> n1 -> ... -> n{size-1}.
// Properties: DAG, depth = size-1, single path
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Linear chain of %d nodes: n0 -> n1 -> ... -> n%d", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: max(size-1, 0),
		},
	}
}

// Star creates a hub with an edge to every spoke.
// Properties: DAG, depth = 1, every spoke is a first-order target of hub
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := make([]string, spokes+1)
	edges := make([][2]int, spokes)
	nodes[0] = "hub"
	for i := 1; i <= spokes; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{0, i}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Star with hub pointing to %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: 1},
	}
}

// ReverseStar creates a hub that every spoke points to.
// Properties: DAG, depth = 1, hub has no outgoing edges
func (g *Generator) ReverseStar(spokes int) GraphFixture {
	nodes := make([]string, spokes+1)
	edges := make([][2]int, spokes)
	nodes[0] = "hub"
	for i := 1; i <= spokes; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{i, 0}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Reverse star with %d spokes pointing to hub", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: 1},
	}
}

// Diamond creates top -> mid1..midN -> bottom.
func (g *Generator) Diamond(width int) GraphFixture {
	if width < 1 {
		width = 1
	}
	size := width + 2
	nodes := make([]string, size)
	edges := make([][2]int, 0, width*2)
	nodes[0] = "top"
	nodes[size-1] = "bottom"
	for i := 1; i <= width; i++ {
		nodes[i] = fmt.Sprintf("mid%d", i)
		edges = append(edges, [2]int{0, i}, [2]int{i, size - 1})
	}
	return GraphFixture{
		Description: fmt.Sprintf("Diamond with %d middle nodes: top -> mid1..mid%d -> bottom", width, width),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: 2},
	}
}

// Cycle creates a directed ring n0 -> n1 -> ... -> n{size-1} -> n0.
func (g *Generator) Cycle(size int) GraphFixture {
	if size < 2 {
		size = 2
	}
	nodes := make([]string, size)
	edges := make([][2]int, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("c%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Cycle of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{HasCycles: true, IsConnected: true},
	}
}

// Tree creates a complete tree where every parent points to its children.
// depth 0 yields a single root.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	nodes := []string{"root"}
	var edges [][2]int
	level := []int{0}
	for d := 1; d <= depth; d++ {
		var next []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				idx := len(nodes)
				nodes = append(nodes, fmt.Sprintf("%s.%d", nodes[parent], b))
				edges = append(edges, [2]int{parent, idx})
				next = append(next, idx)
			}
		}
		level = next
	}
	return GraphFixture{
		Description: fmt.Sprintf("Tree of depth %d and breadth %d", depth, breadth),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: depth},
	}
}

// Disconnected creates separate chains with no edges between them.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < components; c++ {
		base := len(nodes)
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("g%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{base + i - 1, base + i})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: components <= 1, ExpectedDepth: max(componentSize-1, 0)},
	}
}

// Complete creates an edge between every ordered pair of distinct nodes.
func (g *Generator) Complete(size int) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("k%d", i)
		for j := 0; j < size; j++ {
			if i != j {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Complete directed graph of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{HasCycles: size > 1, IsConnected: true, ExpectedDepth: min(size-1, 1)},
	}
}

// RandomDAG creates a random directed acyclic graph.
// density is the probability of an edge existing (0.0 to 1.0).
func (g *Generator) RandomDAG(size int, density float64) GraphFixture {
	density = min(max(density, 0), 1)
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	// Only lower index to higher index keeps it acyclic.
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Random DAG with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// ============================================================================
// Dataset Generators (convert graph fixtures to model.Dataset)
// ============================================================================

// ToDataset converts a GraphFixture to an indexed dataset. Edge ids are
// "e<index>"; weights, categories and optional metrics come from the
// generator's seeded source.
func (g *Generator) ToDataset(gf GraphFixture) *model.Dataset {
	nodes := make([]model.Node, len(gf.Nodes))
	for i, name := range gf.Nodes {
		n := model.Node{
			ID:       NodeID(g.cfg.IDPrefix, name),
			Label:    fmt.Sprintf("Threat %s", name),
			Category: g.pickCategory(),
		}
		if g.cfg.IncludeMetrics {
			n.Metrics.PageRank = g.rng.Float64()
			n.Metrics.Betweenness = g.rng.Float64()
		}
		if g.cfg.IncludeEvidence {
			n.Citations = []model.Citation{{
				Title:        fmt.Sprintf("Report on %s", name),
				DocumentLink: fmt.Sprintf("https://example.com/reports/%s", name),
				Source:       "fixture",
				QuotedText:   fmt.Sprintf("%s observed ||| %s confirmed", name, name),
			}}
			n.CitationCount = 1
			n.DocumentCount = 1
		}
		nodes[i] = n
	}

	edges := make([]model.Edge, len(gf.Edges))
	for i, pair := range gf.Edges {
		w := g.rng.Intn(g.cfg.MaxWeight) + 1
		e := model.Edge{
			ID:       fmt.Sprintf("e%d", i),
			Source:   nodes[pair[0]].ID,
			Target:   nodes[pair[1]].ID,
			Weight:   float64(w),
			RawCount: w,
		}
		if g.cfg.IncludeEvidence {
			e.Citations = []model.CitationRelation{{
				Citation: model.Citation{Title: fmt.Sprintf("Link %d", i), Source: "fixture"},
				Cause:    gf.Nodes[pair[0]],
				Effect:   gf.Nodes[pair[1]],
			}}
		}
		edges[i] = e
	}
	return model.NewDataset(nodes, edges)
}

// ToJSON encodes a dataset in the nodes/edges document format the loader
// reads.
func ToJSON(ds *model.Dataset) string {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// NodeID returns the dataset id generated for a fixture node name.
func NodeID(prefix, name string) string {
	return fmt.Sprintf("%s-%s", prefix, name)
}

func (g *Generator) pickCategory() model.Category {
	return g.cfg.CategoryMix[g.rng.Intn(len(g.cfg.CategoryMix))]
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickChain creates a chain dataset with default settings.
func QuickChain(size int) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.Chain(size))
}

// QuickStar creates a star dataset with default settings.
func QuickStar(spokes int) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.Star(spokes))
}

// QuickDiamond creates a diamond dataset with default settings.
func QuickDiamond(width int) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.Diamond(width))
}

// QuickCycle creates a cycle dataset with default settings.
func QuickCycle(size int) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.Cycle(size))
}

// QuickTree creates a tree dataset with default settings.
func QuickTree(depth, breadth int) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.Tree(depth, breadth))
}

// QuickRandom creates a random DAG dataset with default settings.
func QuickRandom(size int, density float64) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.RandomDAG(size, density))
}

// Empty returns an empty dataset for edge case testing.
func Empty() *model.Dataset {
	return model.NewDataset(nil, nil)
}

// Single returns a dataset with one node and no edges.
func Single() *model.Dataset {
	return model.NewDataset([]model.Node{{
		ID:       NodeID("T", "single"),
		Label:    "Single Threat",
		Category: model.CategoryThreat,
	}}, nil)
}
