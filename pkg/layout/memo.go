package layout

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

// DefaultMemoSize bounds how many distinct inputs a Memo remembers.
const DefaultMemoSize = 32

// Memo caches layouts by the structural hash of their inputs, so re-rendering
// an unchanged working set skips the layout pass. Not safe for concurrent use.
type Memo struct {
	cache *lru.Cache[uint64, Layout]
}

type memoKey struct {
	Nodes  []model.Node
	Edges  []model.Edge
	Config Config
}

// NewMemo returns a memo holding up to size layouts; size <= 0 uses
// DefaultMemoSize.
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, err := lru.New[uint64, Layout](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Memo{cache: cache}
}

// Layout returns the cached layout for these inputs or computes and stores it.
func (m *Memo) Layout(nodes []model.Node, edges []model.Edge, cfg Config) Layout {
	cfg = cfg.WithDefaults()
	key, err := hashstructure.Hash(memoKey{Nodes: nodes, Edges: edges, Config: cfg}, hashstructure.FormatV2, nil)
	if err != nil {
		debug.Log("layout memo: hash failed, computing directly: %v", err)
		return CalculateLayout(nodes, edges, cfg)
	}

	if cached, ok := m.cache.Get(key); ok {
		metrics.LayoutMemo.Hit()
		return rebind(cached, nodes)
	}
	metrics.LayoutMemo.Miss()

	l := CalculateLayout(nodes, edges, cfg)
	m.cache.Add(key, l)
	return rebind(l, nodes)
}

// Len returns the number of cached layouts.
func (m *Memo) Len() int {
	return m.cache.Len()
}

// rebind copies l and points each entry at the caller's node slice.
func rebind(l Layout, nodes []model.Node) Layout {
	out := make(Layout, len(l))
	for id, ln := range l {
		out[id] = ln
	}
	bound := make(map[string]bool, len(nodes))
	for i := range nodes {
		id := nodes[i].ID
		if ln, ok := out[id]; ok && !bound[id] {
			ln.Node = &nodes[i]
			out[id] = ln
			bound[id] = true
		}
	}
	return out
}
