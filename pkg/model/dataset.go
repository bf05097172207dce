package model

// Dataset is the static collection of nodes and edges loaded once per
// session. It is treated as read-only after construction.
type Dataset struct {
	Nodes []Node `json:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" validate:"dive"`

	index    map[string]int
	outgoing map[string][]int
}

// NewDataset builds a dataset and its lookup indexes.
func NewDataset(nodes []Node, edges []Edge) *Dataset {
	d := &Dataset{Nodes: nodes, Edges: edges}
	d.Reindex()
	return d
}

// Reindex rebuilds the id and adjacency indexes. Call it after replacing
// Nodes or Edges.
func (d *Dataset) Reindex() {
	d.index = make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		if _, dup := d.index[n.ID]; !dup {
			d.index[n.ID] = i
		}
	}
	d.outgoing = make(map[string][]int, len(d.Nodes))
	for i, e := range d.Edges {
		d.outgoing[e.Source] = append(d.outgoing[e.Source], i)
	}
}

// Node returns the node with the given id.
func (d *Dataset) Node(id string) (Node, bool) {
	if d == nil {
		return Node{}, false
	}
	if d.index == nil {
		d.Reindex()
	}
	i, ok := d.index[id]
	if !ok {
		return Node{}, false
	}
	return d.Nodes[i], true
}

// HasNode reports whether id is a node in the dataset.
func (d *Dataset) HasNode(id string) bool {
	_, ok := d.Node(id)
	return ok
}

// OutgoingEdges returns the edges whose source is id, in dataset order.
func (d *Dataset) OutgoingEdges(id string) []Edge {
	if d == nil {
		return nil
	}
	if d.outgoing == nil {
		d.Reindex()
	}
	idx := d.outgoing[id]
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.Edges[i])
	}
	return out
}

// Edge returns the edge with the given id.
func (d *Dataset) Edge(id string) (Edge, bool) {
	if d == nil {
		return Edge{}, false
	}
	for _, e := range d.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// IsEmpty reports whether the dataset has no nodes.
func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.Nodes) == 0
}
