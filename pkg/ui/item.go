package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/vanderheijden86/threatmap/pkg/model"
)

// NodeItem wraps model.Node to implement list.Item for the focus picker.
type NodeItem struct {
	Node model.Node
}

func (i NodeItem) Title() string {
	return i.Node.DisplayLabel()
}

func (i NodeItem) Description() string {
	cat := string(i.Node.Category)
	if cat == "" {
		cat = "uncategorized"
	}
	return fmt.Sprintf("%s • %s • pagerank %.3f • %d out",
		i.Node.ID, cat, i.Node.Metrics.PageRank, i.Node.Metrics.OutDegree)
}

func (i NodeItem) FilterValue() string {
	var sb strings.Builder
	sb.WriteString(i.Node.DisplayLabel())
	sb.WriteString(" ")
	sb.WriteString(i.Node.ID)
	if i.Node.Label != "" && i.Node.Label != i.Node.DisplayLabel() {
		sb.WriteString(" ")
		sb.WriteString(i.Node.Label)
	}
	sb.WriteString(" ")
	sb.WriteString(string(i.Node.Category))
	return sb.String()
}

// nodeItems lists every node, highest PageRank first.
func nodeItems(ds *model.Dataset) []list.Item {
	if ds == nil {
		return nil
	}
	nodes := append([]model.Node(nil), ds.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Metrics.PageRank > nodes[j].Metrics.PageRank
	})
	items := make([]list.Item, len(nodes))
	for i, n := range nodes {
		items[i] = NodeItem{Node: n}
	}
	return items
}
