package render

import (
	"fmt"
	"html"
	"io"

	svg "github.com/ajstarks/svgo/float"

	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
)

const svgStyle = `
.edge-hit { stroke: transparent; fill: none; pointer-events: stroke; cursor: pointer; }
.edge-line { fill: none; pointer-events: none; transition: opacity 0.15s; }
.edge:hover .edge-line { opacity: 1; }
.node { cursor: pointer; }
.node-label { paint-order: stroke; stroke-linejoin: round; text-anchor: middle; pointer-events: none; }
`

// WriteSVG draws the scene as an SVG document whose viewBox follows the
// camera, so it scales to its container. An empty scene yields an empty
// canvas.
func (r *Renderer) WriteSVG(w io.Writer) error {
	defer metrics.Timer(metrics.SVGRender)()

	r.mu.Lock()
	scene := r.scene
	gs := r.geometryLocked()
	r.mu.Unlock()
	opts := r.opts

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	vx, vy, vw, vh := r.camera.ViewBox()
	canvas.Start(opts.Layout.Width, opts.Layout.Height,
		fmt.Sprintf(`viewBox="%.2f %.2f %.2f %.2f"`, vx, vy, vw, vh),
		`preserveAspectRatio="xMidYMid meet"`,
		`style="width:100%;height:auto"`,
	)
	canvas.Style("text/css", svgStyle)
	canvas.Rect(vx, vy, vw, vh, "fill:"+opts.Background)

	if len(gs) > 0 {
		canvas.Def()
		for _, g := range gs {
			writeGradient(canvas, g)
			writeMarker(canvas, g, opts.Geometry.ArrowheadSize)
		}
		canvas.DefEnd()
	}

	canvas.Group(`class="edges"`)
	for _, g := range gs {
		d := fmt.Sprintf("M %.2f %.2f L %.2f %.2f", g.X1, g.Y1, g.X2, g.Y2)
		canvas.Group(`class="edge"`, fmt.Sprintf(`data-edge-id="%s"`, html.EscapeString(g.Edge.ID)))
		canvas.Title(fmt.Sprintf("%s → %s (weight %.2f)", g.Edge.Source, g.Edge.Target, g.Edge.Weight))
		canvas.Path(d,
			`class="edge-hit"`,
			fmt.Sprintf(`stroke-width="%.2f"`, g.StrokeWidth()+opts.HitPadding),
		)
		canvas.Path(d,
			`class="edge-line"`,
			fmt.Sprintf(`stroke="url(#%s)"`, g.GradientID),
			fmt.Sprintf(`stroke-width="%.2f"`, g.StrokeWidth()),
			fmt.Sprintf(`opacity="%.2f"`, g.Opacity()),
			fmt.Sprintf(`marker-end="url(#%s)"`, g.MarkerID),
		)
		canvas.Gend()
	}
	canvas.Gend()

	radius := opts.Geometry.NodeRadius
	canvas.Group(`class="nodes"`)
	for _, n := range scene.Positioned() {
		fill, label := nodeFace(n)
		canvas.Group(`class="node"`,
			fmt.Sprintf(`data-node-id="%s"`, html.EscapeString(n.ID)),
			fmt.Sprintf(`transform="translate(%.2f,%.2f)"`, n.X, n.Y),
		)
		canvas.Title(label)
		canvas.Circle(0, 0, radius, "fill:"+fill)
		canvas.Text(0, radius+opts.LabelFontSize+2, label,
			`class="node-label"`,
			fmt.Sprintf(`font-size="%.0f"`, opts.LabelFontSize),
			fmt.Sprintf(`fill="%s"`, opts.LabelColor),
			fmt.Sprintf(`stroke="%s"`, opts.Background),
			`stroke-width="3"`,
		)
		canvas.Gend()
	}
	canvas.Gend()

	canvas.End()
	return ew.err
}

// svgo only styles plain strings, so userSpaceOnUse gradients and
// float-sized markers are written directly.
func writeGradient(canvas *svg.SVG, g geometry.EdgeGeometry) {
	from, to := g.GradientStops()
	fmt.Fprintf(canvas.Writer,
		`<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f">`+
			`<stop offset="0%%" stop-color="%s"/><stop offset="100%%" stop-color="%s"/></linearGradient>`+"\n",
		g.GradientID, g.X1, g.Y1, g.X2, g.Y2, from, to)
}

// The marker's reference point is its center, so the arrow straddles the
// trimmed end and its tip lands on the target circle.
func writeMarker(canvas *svg.SVG, g geometry.EdgeGeometry, size float64) {
	fmt.Fprintf(canvas.Writer,
		`<marker id="%s" viewBox="0 0 10 10" refX="5" refY="5" markerUnits="userSpaceOnUse" markerWidth="%.2f" markerHeight="%.2f" orient="auto">`+
			`<path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n",
		g.MarkerID, size, size, g.ArrowColor())
}

// errWriter keeps the first write error so the svgo calls, which ignore
// errors, can be checked once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
