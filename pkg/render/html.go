package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// DefaultGraphScript is the 3d-force-graph bundle the page loads.
const DefaultGraphScript = "https://unpkg.com/3d-force-graph@1"

// HTMLOptions configures WriteHTML.
type HTMLOptions struct {
	Title     string
	ScriptURL string
}

type htmlNode struct {
	ID            string           `json:"id"`
	Label         string           `json:"label"`
	Category      string           `json:"category"`
	Color         string           `json:"color"`
	Tier          string           `json:"tier"`
	FX            float64          `json:"fx"`
	FY            float64          `json:"fy"`
	FZ            float64          `json:"fz"`
	Metrics       model.Metrics    `json:"metrics"`
	DocumentCount int              `json:"document_count"`
	CitationCount int              `json:"citation_count"`
	Citations     []model.Citation `json:"citations,omitempty"`
}

type htmlLink struct {
	ID          string                   `json:"id"`
	Source      string                   `json:"source"`
	Target      string                   `json:"target"`
	Weight      float64                  `json:"weight"`
	RawCount    int                      `json:"raw_count"`
	Size        int                      `json:"size"`
	SourceColor string                   `json:"source_color"`
	Color       string                   `json:"color"`
	RestColor   string                   `json:"rest_color"`
	Citations   []model.CitationRelation `json:"citations,omitempty"`
}

type htmlPayload struct {
	Nodes  []htmlNode `json:"nodes"`
	Links  []htmlLink `json:"links"`
	Accent string     `json:"accent"`

	// AccentColor is the accent at emphasized opacity. Link opacity is a
	// single setting in the graph library, so per-link alpha rides in the
	// color.
	AccentColor string  `json:"accent_color"`
	Arrow       float64 `json:"arrow"`
	Radius      float64 `json:"radius"`
}

type htmlData struct {
	Title     string
	ScriptURL string
	Empty     bool
	GraphJSON template.JS
}

// cssRGBA formats a hex color with alpha a.
func cssRGBA(hex string, a float64) string {
	c := theme.HexOrNeutral(hex)
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", c.R, c.G, c.B, a)
}

var htmlPage = template.Must(template.New("graph").Parse(htmlTemplate))

// WriteHTML writes a standalone page that hands the scene to 3d-force-graph.
// Node positions are pinned to the tiered layout, centered on the origin
// with y pointing up.
func (r *Renderer) WriteHTML(w io.Writer, opts HTMLOptions) error {
	defer metrics.Timer(metrics.HTMLRender)()

	r.mu.Lock()
	scene := r.scene
	gs := r.geometryLocked()
	r.mu.Unlock()
	ro := r.opts

	if opts.Title == "" {
		opts.Title = "threatmap"
	}
	if opts.ScriptURL == "" {
		opts.ScriptURL = DefaultGraphScript
	}

	payload := htmlPayload{
		Nodes:       []htmlNode{},
		Links:       []htmlLink{},
		Accent:      ro.Geometry.Accent,
		AccentColor: cssRGBA(ro.Geometry.Accent, geometry.EmphasizedOpacity),
		Arrow:       ro.Geometry.ArrowheadSize,
		Radius:      ro.Geometry.NodeRadius,
	}
	cx, cy := ro.Layout.Width/2, ro.Layout.Height/2
	for _, n := range scene.Positioned() {
		fill, label := nodeFace(n)
		hn := htmlNode{
			ID:    n.ID,
			Label: label,
			Color: fill,
			Tier:  n.Tier.String(),
			FX:    n.X - cx,
			FY:    cy - n.Y,
		}
		if n.Node != nil {
			hn.Category = string(n.Node.Category)
			hn.Metrics = n.Node.Metrics
			hn.DocumentCount = n.Node.DocumentCount
			hn.CitationCount = n.Node.CitationCount
			hn.Citations = n.Node.Citations
		}
		payload.Nodes = append(payload.Nodes, hn)
	}
	for _, g := range gs {
		payload.Links = append(payload.Links, htmlLink{
			ID:          g.Edge.ID,
			Source:      g.Edge.Source,
			Target:      g.Edge.Target,
			Weight:      g.Edge.Weight,
			RawCount:    g.Edge.RawCount,
			Size:        int(g.StrokeWidth()),
			SourceColor: g.SourceFill,
			Color:       g.TargetFill,
			RestColor:   cssRGBA(g.TargetFill, geometry.RestOpacity),
			Citations:   g.Edge.Citations,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode graph payload: %w", err)
	}

	return htmlPage.Execute(w, htmlData{
		Title:     opts.Title,
		ScriptURL: opts.ScriptURL,
		Empty:     len(payload.Nodes) == 0,
		GraphJSON: template.JS(raw),
	})
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<script src="{{.ScriptURL}}"></script>
<style>
  body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #fafafa; }
  #graph { position: absolute; inset: 0 360px 0 0; }
  #panel { position: absolute; top: 0; right: 0; bottom: 0; width: 360px; overflow-y: auto; box-sizing: border-box;
           padding: 16px; background: #fff; border-left: 1px solid #e0e0e0; }
  #panel h2 { margin: 0 0 8px; font-size: 18px; }
  #panel .meta { color: #607d8b; font-size: 13px; margin-bottom: 12px; }
  #panel blockquote { margin: 6px 0; padding-left: 10px; border-left: 3px solid #cfd8dc; color: #37474f; }
  #panel .citation { margin-bottom: 14px; font-size: 14px; }
  .empty { display: flex; align-items: center; justify-content: center; height: 100vh; color: #78909c; }
</style>
</head>
<body>
{{if .Empty}}
<div class="empty">Nothing to show for this focus.</div>
{{else}}
<div id="graph"></div>
<aside id="panel"><div class="meta">Click a node or relationship to see its evidence.</div></aside>
<script>
const DATA = {{.GraphJSON}};
const panel = document.getElementById('panel');
let hovered = null;
let selected = null;

function el(tag, text, cls) {
  const e = document.createElement(tag);
  if (text !== undefined && text !== null) e.textContent = text;
  if (cls) e.className = cls;
  return e;
}

function citationBlock(c) {
  const box = el('div', null, 'citation');
  const title = c.document_link ? el('a', c.title || c.document_link) : el('strong', c.title || 'Untitled');
  if (c.document_link) { title.href = c.document_link; title.target = '_blank'; title.rel = 'noopener'; }
  box.appendChild(title);
  const meta = [c.source, c.publication_date].filter(Boolean).join(' · ');
  if (meta) box.appendChild(el('div', meta, 'meta'));
  if (c.cause) box.appendChild(el('div', 'Cause: ' + c.cause));
  if (c.effect) box.appendChild(el('div', 'Effect: ' + c.effect));
  (c.quoted_text || '').split('|||').map(s => s.trim()).filter(Boolean)
    .forEach(q => box.appendChild(el('blockquote', q)));
  return box;
}

function showNode(n) {
  panel.replaceChildren(el('h2', n.label),
    el('div', [n.category, n.tier, 'PageRank ' + n.metrics.pagerank.toFixed(3)].filter(Boolean).join(' · '), 'meta'),
    el('div', n.document_count + ' documents, ' + n.citation_count + ' citations', 'meta'));
  (n.citations || []).forEach(c => panel.appendChild(citationBlock(c)));
}

function showLink(l) {
  const src = typeof l.source === 'object' ? l.source.label : l.source;
  const tgt = typeof l.target === 'object' ? l.target.label : l.target;
  panel.replaceChildren(el('h2', src + ' → ' + tgt),
    el('div', 'Weight ' + l.weight.toFixed(2) + ' · ' + l.raw_count + ' mentions', 'meta'));
  (l.citations || []).forEach(c => panel.appendChild(citationBlock(c)));
}

function clearPanel() {
  panel.replaceChildren(el('div', 'Click a node or relationship to see its evidence.', 'meta'));
}

const emphasized = l => l.id === hovered || l.id === selected;

const Graph = ForceGraph3D()(document.getElementById('graph'))
  .backgroundColor('#fafafa')
  .graphData(DATA)
  .dagMode('lr')
  .nodeId('id')
  .nodeLabel('label')
  .nodeColor('color')
  .nodeRelSize(DATA.radius / 4)
  .linkWidth(l => l.size)
  .linkColor(l => emphasized(l) ? DATA.accent_color : l.rest_color)
  .linkOpacity(1)
  .linkDirectionalArrowLength(DATA.arrow)
  .linkDirectionalArrowRelPos(1)
  .linkDirectionalArrowColor(l => emphasized(l) ? DATA.accent : l.color)
  .onLinkHover(l => { hovered = l ? l.id : null; refresh(); })
  .onLinkClick(l => {
    selected = selected === l.id ? null : l.id;
    if (selected) { showLink(l); } else { clearPanel(); }
    refresh();
  })
  .onNodeClick(n => { selected = null; showNode(n); refresh(); })
  .onBackgroundClick(() => { selected = null; clearPanel(); refresh(); });

function refresh() {
  Graph.linkColor(Graph.linkColor()).linkDirectionalArrowColor(Graph.linkDirectionalArrowColor());
}

setTimeout(() => {
  try {
    Graph.zoomToFit(400, 40);
  } catch (err) {
    console.warn('fit view failed', err);
  }
}, 500);
</script>
{{end}}
</body>
</html>
`
