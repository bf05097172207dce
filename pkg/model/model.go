// Package model defines the threat relationship dataset: threats and
// categories as nodes, weighted directed relationships as edges, and the
// citation evidence attached to both.
package model

import (
	"strings"
)

// Category classifies a node. The set is fixed; values outside it are kept
// verbatim and rendered with the neutral color.
type Category string

const (
	CategoryThreat        Category = "threat"
	CategoryActor         Category = "actor"
	CategoryVulnerability Category = "vulnerability"
	CategoryImpact        Category = "impact"
	CategoryMitigation    Category = "mitigation"
	CategorySector        Category = "sector"
	CategoryTechnology    Category = "technology"
)

// Categories lists the known categories in legend order.
var Categories = []Category{
	CategoryThreat,
	CategoryActor,
	CategoryVulnerability,
	CategoryImpact,
	CategoryMitigation,
	CategorySector,
	CategoryTechnology,
}

// IsKnown reports whether c is one of the enumerated categories.
func (c Category) IsKnown() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Metrics holds the numeric node attributes. Centrality scores are either
// supplied by the dataset or computed at load time.
type Metrics struct {
	PageRank    float64 `json:"pagerank" yaml:"pagerank"`
	Betweenness float64 `json:"betweenness" yaml:"betweenness"`
	InDegree    int     `json:"in_degree" yaml:"in_degree"`
	OutDegree   int     `json:"out_degree" yaml:"out_degree"`
}

// IsZero reports whether no metric has been set.
func (m Metrics) IsZero() bool {
	return m == Metrics{}
}

// Citation is a read-only evidence record attached to a node.
type Citation struct {
	Title           string `json:"title"`
	DocumentLink    string `json:"document_link,omitempty" validate:"omitempty,url"`
	Source          string `json:"source,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	QuotedText      string `json:"quoted_text,omitempty"`
}

// QuotedParts splits the "|||"-delimited quoted text into trimmed, non-empty
// parts.
func (c Citation) QuotedParts() []string {
	return splitQuoted(c.QuotedText)
}

// CitationRelation is a read-only evidence record attached to an edge. It
// carries the cause and effect statements the relationship was drawn from.
type CitationRelation struct {
	Citation
	Cause  string `json:"cause,omitempty"`
	Effect string `json:"effect,omitempty"`
}

// Node is a threat or category in the dataset.
type Node struct {
	ID            string     `json:"id" validate:"required"`
	Label         string     `json:"label"`
	ShortLabel    string     `json:"short_label,omitempty"`
	Category      Category   `json:"category"`
	Metrics       Metrics    `json:"metrics"`
	DocumentCount int        `json:"document_count,omitempty" validate:"gte=0"`
	CitationCount int        `json:"citation_count,omitempty" validate:"gte=0"`
	Citations     []Citation `json:"citations,omitempty" validate:"dive"`

	// Fill is the display color ("#rrggbb") attached per render pass.
	Fill string `json:"fill,omitempty"`
}

// DisplayLabel returns the short label override, then the label, then the id.
func (n Node) DisplayLabel() string {
	if s := strings.TrimSpace(n.ShortLabel); s != "" {
		return s
	}
	if s := strings.TrimSpace(n.Label); s != "" {
		return s
	}
	return n.ID
}

// Edge is a directed, weighted relationship between two nodes. Parallel edges
// between the same pair are permitted.
type Edge struct {
	ID        string             `json:"id"`
	Source    string             `json:"source" validate:"required"`
	Target    string             `json:"target" validate:"required"`
	Weight    float64            `json:"weight" validate:"gte=0"`
	RawCount  int                `json:"raw_count,omitempty" validate:"gte=0"`
	Citations []CitationRelation `json:"citations,omitempty" validate:"dive"`

	// Size is the display width bucket attached per render pass (1-4).
	Size int `json:"size,omitempty"`
}

func splitQuoted(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	raw := strings.Split(s, "|||")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
