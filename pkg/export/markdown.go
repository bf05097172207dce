package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/selection"
)

// NodeMarkdown renders a node's attributes and citations.
func NodeMarkdown(n model.Node) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s\n\n", n.DisplayLabel())
	if n.Label != "" && n.Label != n.DisplayLabel() {
		fmt.Fprintf(&sb, "*%s*\n\n", n.Label)
	}

	sb.WriteString("| | |\n|---|---|\n")
	if n.Category != "" {
		fmt.Fprintf(&sb, "| Category | %s |\n", n.Category)
	}
	fmt.Fprintf(&sb, "| PageRank | %.4f |\n", n.Metrics.PageRank)
	fmt.Fprintf(&sb, "| Betweenness | %.2f |\n", n.Metrics.Betweenness)
	fmt.Fprintf(&sb, "| Degree | %d in / %d out |\n", n.Metrics.InDegree, n.Metrics.OutDegree)
	fmt.Fprintf(&sb, "| Evidence | %d documents, %d citations |\n\n", n.DocumentCount, n.CitationCount)

	if len(n.Citations) > 0 {
		sb.WriteString("### Citations\n\n")
		for _, c := range n.Citations {
			writeCitation(&sb, c, "", "")
		}
	}
	return sb.String()
}

// EdgeMarkdown renders a relationship and its cause/effect citations.
// sourceLabel and targetLabel fall back to the edge endpoints when empty.
func EdgeMarkdown(e model.Edge, sourceLabel, targetLabel string) string {
	if sourceLabel == "" {
		sourceLabel = e.Source
	}
	if targetLabel == "" {
		targetLabel = e.Target
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s → %s\n\n", sourceLabel, targetLabel)
	fmt.Fprintf(&sb, "**Weight** %.2f", e.Weight)
	if e.RawCount > 0 {
		fmt.Fprintf(&sb, " · %d mentions", e.RawCount)
	}
	sb.WriteString("\n\n")

	if len(e.Citations) > 0 {
		sb.WriteString("### Evidence\n\n")
		for _, c := range e.Citations {
			writeCitation(&sb, c.Citation, c.Cause, c.Effect)
		}
	}
	return sb.String()
}

// NeighborhoodMarkdown renders a focus neighborhood as a report: a Mermaid
// flowchart followed by every relationship ranked as shown.
func NeighborhoodMarkdown(hood selection.Neighborhood) string {
	var sb strings.Builder

	labels := make(map[string]string, len(hood.Nodes))
	for _, n := range hood.Nodes {
		labels[n.ID] = n.DisplayLabel()
	}
	title := labels[hood.Focus]
	if title == "" {
		title = "Empty neighborhood"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if hood.IsEmpty() {
		sb.WriteString("*Nothing to show for this focus.*\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "%d nodes · %d direct relationships · %d second-order relationships\n\n",
		len(hood.Nodes), len(hood.FirstOrder), len(hood.SecondOrder))

	sb.WriteString("```mermaid\n")
	sb.WriteString(MermaidFlowchart(hood))
	sb.WriteString("```\n\n")

	write := func(heading string, edges []model.Edge) {
		if len(edges) == 0 {
			return
		}
		fmt.Fprintf(&sb, "## %s\n\n", heading)
		sb.WriteString("| Source | Target | Weight |\n|---|---|---|\n")
		for _, e := range edges {
			fmt.Fprintf(&sb, "| %s | %s | %.2f |\n", escapeCell(labels[e.Source]), escapeCell(labels[e.Target]), e.Weight)
		}
		sb.WriteString("\n")
	}
	write("Direct relationships", hood.FirstOrder)
	write("Second-order relationships", hood.SecondOrder)

	return sb.String()
}

// MermaidFlowchart draws the neighborhood left to right, one class per node
// fill.
func MermaidFlowchart(hood selection.Neighborhood) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	ids := make(map[string]string, len(hood.Nodes))
	classes := make(map[string]string)
	for _, n := range hood.Nodes {
		if _, ok := ids[n.ID]; ok {
			continue
		}
		safe := "n_" + geometry.ResourceKey(n.ID)
		ids[n.ID] = safe
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safe, sanitizeMermaidText(n.DisplayLabel()))
		if n.Fill != "" {
			class := "c" + strings.TrimPrefix(n.Fill, "#")
			if _, ok := classes[class]; !ok {
				classes[class] = n.Fill
				fmt.Fprintf(&sb, "    classDef %s fill:%s,stroke:#333,color:#fff\n", class, n.Fill)
			}
			fmt.Fprintf(&sb, "    class %s %s\n", safe, class)
		}
	}

	for _, e := range hood.Edges {
		from, okFrom := ids[e.Source]
		to, okTo := ids[e.Target]
		if !okFrom || !okTo {
			continue
		}
		link := "-->"
		if e.Source == hood.Focus {
			link = "==>"
		}
		fmt.Fprintf(&sb, "    %s %s|%.1f| %s\n", from, link, e.Weight, to)
	}
	return sb.String()
}

func writeCitation(sb *strings.Builder, c model.Citation, cause, effect string) {
	title := c.Title
	if title == "" {
		title = "Untitled"
	}
	if c.DocumentLink != "" {
		fmt.Fprintf(sb, "- **[%s](%s)**", title, c.DocumentLink)
	} else {
		fmt.Fprintf(sb, "- **%s**", title)
	}
	var meta []string
	if c.Source != "" {
		meta = append(meta, c.Source)
	}
	if c.PublicationDate != "" {
		meta = append(meta, c.PublicationDate)
	}
	if len(meta) > 0 {
		fmt.Fprintf(sb, " · %s", strings.Join(meta, " · "))
	}
	sb.WriteString("\n")
	if cause != "" {
		fmt.Fprintf(sb, "  - Cause: %s\n", cause)
	}
	if effect != "" {
		fmt.Fprintf(sb, "  - Effect: %s\n", effect)
	}
	for _, q := range c.QuotedParts() {
		fmt.Fprintf(sb, "  > %s\n", q)
	}
	sb.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
// Removes/escapes characters that break Mermaid syntax.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(text)

	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, result)

	result = strings.TrimSpace(result)

	// Truncate if too long (UTF-8 safe using runes)
	runes := []rune(result)
	if len(runes) > 40 {
		result = string(runes[:37]) + "..."
	}

	return result
}
