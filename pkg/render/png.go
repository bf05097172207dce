package render

import (
	"image/color"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// WritePNG rasterizes the scene at the canvas size through the camera.
// Labels use the fixed 7x13 bitmap face.
func (r *Renderer) WritePNG(w io.Writer) error {
	defer metrics.Timer(metrics.PNGRender)()

	r.mu.Lock()
	scene := r.scene
	gs := r.geometryLocked()
	r.mu.Unlock()
	opts := r.opts

	dc := gg.NewContext(int(opts.Layout.Width), int(opts.Layout.Height))
	dc.SetHexColor(opts.Background)
	dc.Clear()

	vx, vy, _, _ := r.camera.ViewBox()
	scale := r.camera.Scale()
	dc.Scale(scale, scale)
	dc.Translate(-vx, -vy)

	for _, g := range gs {
		drawEdgePNG(dc, g, opts.Geometry.ArrowheadSize, scale)
	}

	radius := opts.Geometry.NodeRadius
	dc.SetFontFace(basicfont.Face7x13)
	labelColor := theme.HexOrNeutral(opts.LabelColor)
	halo := theme.HexOrNeutral(opts.Background)
	for _, n := range scene.Positioned() {
		fill, label := nodeFace(n)
		dc.DrawCircle(n.X, n.Y, radius)
		dc.SetColor(theme.HexOrNeutral(fill))
		dc.Fill()

		ly := n.Y + radius + 10
		dc.SetColor(halo)
		for _, off := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			dc.DrawStringAnchored(label, n.X+off[0], ly+off[1], 0.5, 0.5)
		}
		dc.SetColor(labelColor)
		dc.DrawStringAnchored(label, n.X, ly, 0.5, 0.5)
	}

	return dc.EncodePNG(w)
}

// gg evaluates gradients in device space and does not scale line widths, so
// both are mapped through the current transform by hand.
func drawEdgePNG(dc *gg.Context, g geometry.EdgeGeometry, arrow, scale float64) {
	alpha := uint8(g.Opacity() * 255)
	from, to := g.GradientStops()

	x1, y1 := dc.TransformPoint(g.X1, g.Y1)
	x2, y2 := dc.TransformPoint(g.X2, g.Y2)
	grad := gg.NewLinearGradient(x1, y1, x2, y2)
	grad.AddColorStop(0, withAlpha(theme.HexOrNeutral(from), alpha))
	grad.AddColorStop(1, withAlpha(theme.HexOrNeutral(to), alpha))

	dc.SetStrokeStyle(grad)
	dc.SetLineWidth(g.StrokeWidth() * scale)
	dc.DrawLine(g.X1, g.Y1, g.X2, g.Y2)
	dc.Stroke()

	poly := geometry.ArrowheadPolygon(g, arrow)
	dc.NewSubPath()
	dc.MoveTo(poly[0][0], poly[0][1])
	dc.LineTo(poly[1][0], poly[1][1])
	dc.LineTo(poly[2][0], poly[2][1])
	dc.ClosePath()
	dc.SetColor(withAlpha(theme.HexOrNeutral(g.ArrowColor()), alpha))
	dc.Fill()
}

func withAlpha(c color.RGBA, a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}
