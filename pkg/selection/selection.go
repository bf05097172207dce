package selection

// Kind tags a Selection.
type Kind int

const (
	KindNone Kind = iota
	KindNode
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	default:
		return "none"
	}
}

// Selection is either nothing, one node, or one edge. Never both.
type Selection struct {
	kind Kind
	id   string
}

// None is the empty selection.
func None() Selection { return Selection{} }

// NodeSelection selects the node with the given id.
func NodeSelection(id string) Selection {
	if id == "" {
		return None()
	}
	return Selection{kind: KindNode, id: id}
}

// EdgeSelection selects the edge with the given id.
func EdgeSelection(id string) Selection {
	if id == "" {
		return None()
	}
	return Selection{kind: KindEdge, id: id}
}

// Kind returns the tag.
func (s Selection) Kind() Kind { return s.kind }

// IsNone reports whether nothing is selected.
func (s Selection) IsNone() bool { return s.kind == KindNone }

// NodeID returns the selected node id, if a node is selected.
func (s Selection) NodeID() (string, bool) {
	if s.kind != KindNode {
		return "", false
	}
	return s.id, true
}

// EdgeID returns the selected edge id, if an edge is selected.
func (s Selection) EdgeID() (string, bool) {
	if s.kind != KindEdge {
		return "", false
	}
	return s.id, true
}

func (s Selection) String() string {
	if s.kind == KindNone {
		return "none"
	}
	return s.kind.String() + "(" + s.id + ")"
}
