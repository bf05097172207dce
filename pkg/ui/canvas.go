package ui

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/render"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

const (
	nodeGlyph      = '●'
	focusGlyph     = '◉'
	maxLabelCells  = 18
	cellAspect     = 2.0 // a terminal cell is about twice as tall as wide
	emptySceneHint = "Nothing to show. Press / to choose a focus."
)

// cell is one terminal cell. A zero rune marks the right half of a wide rune.
type cell struct {
	r     rune
	color string
	bold  bool
}

// canvas is a character grid the graph is rasterized onto.
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	w, h = max(w, 1), max(h, 1)
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
	return c
}

func (c *canvas) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.w && y < c.h
}

func (c *canvas) at(x, y int) cell {
	if !c.in(x, y) {
		return cell{}
	}
	return c.cells[y*c.w+x]
}

func (c *canvas) set(x, y int, r rune, color string, bold bool) {
	if !c.in(x, y) {
		return
	}
	i := y*c.w + x
	// Keep wide runes whole: overwriting either half blanks the other.
	if c.cells[i].r == 0 && x > 0 {
		c.cells[i-1] = cell{r: ' '}
	}
	if x+1 < c.w && c.cells[i+1].r == 0 {
		c.cells[i+1] = cell{r: ' '}
	}
	c.cells[i] = cell{r: r, color: color, bold: bold}
}

// text writes s from (x, y), clipped at the right edge.
func (c *canvas) text(x, y int, s, color string, bold bool) {
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > c.w {
			return
		}
		c.set(x, y, r, color, bold)
		if rw == 2 {
			c.set(x+1, y, 0, color, bold)
		}
		x += rw
	}
}

// line draws a segment with Bresenham's algorithm. The first half takes
// from, the second half to.
func (c *canvas) line(x0, y0, x1, y1 int, from, to string, bold bool) {
	glyph := lineGlyph(x1-x0, y1-y0)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	steps := max(dx, -dy)
	err := dx + dy
	for i := 0; ; i++ {
		color := from
		if i*2 >= steps {
			color = to
		}
		c.set(x0, y0, glyph, color, bold)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// String renders the grid with ANSI colors.
func (c *canvas) String() string {
	var sb strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		var run strings.Builder
		cur := c.at(0, y)
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur.color == "" && !cur.bold {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(fg(cur.color, cur.bold).Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < c.w; x++ {
			cl := c.at(x, y)
			if cl.r == 0 {
				continue
			}
			if cl.color != cur.color || cl.bold != cur.bold {
				flush()
				cur = cl
			}
			run.WriteRune(cl.r)
		}
		flush()
	}
	return sb.String()
}

// Plain renders the grid without styling.
func (c *canvas) Plain() string {
	var sb strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < c.w; x++ {
			if r := c.at(x, y).r; r != 0 {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

// projection maps between scene coordinates, viewport pixels and cells.
type projection struct {
	cam    *render.ViewCamera
	vw, vh float64 // viewport size in pixels
	w, h   int     // grid size in cells
}

func (p projection) cell(x, y float64) (int, int) {
	sx, sy := p.cam.ToScreen(x, y)
	return int(math.Floor(sx * float64(p.w) / p.vw)), int(math.Floor(sy * float64(p.h) / p.vh))
}

// viewport returns the pixel at the center of a cell.
func (p projection) viewport(cx, cy int) (float64, float64) {
	return (float64(cx) + 0.5) * p.vw / float64(p.w), (float64(cy) + 0.5) * p.vh / float64(p.h)
}

// drawScene rasterizes edges, then nodes and their labels on top.
func drawScene(c *canvas, s *render.Scene, geoms []geometry.EdgeGeometry, p projection, focus string) {
	if s.IsEmpty() {
		msg := truncateRunesHelper(emptySceneHint, c.w, "…")
		c.text(max(0, (c.w-runewidth.StringWidth(msg))/2), c.h/2, msg, "", false)
		return
	}

	for _, g := range geoms {
		from, to := g.GradientStops()
		x0, y0 := p.cell(g.X1, g.Y1)
		x1, y1 := p.cell(g.X2, g.Y2)
		bold := g.State.Emphasized()
		c.line(x0, y0, x1, y1, from, to, bold)
		c.set(x1, y1, arrowGlyph(g.Angle), g.ArrowColor(), true)
	}

	for _, n := range s.Positioned() {
		fill, label := theme.Neutral, n.ID
		if n.Node != nil {
			label = n.Node.DisplayLabel()
			if n.Node.Fill != "" {
				fill = n.Node.Fill
			}
		}
		x, y := p.cell(n.X, n.Y)
		glyph := nodeGlyph
		if n.ID == focus {
			glyph = focusGlyph
		}
		c.set(x, y, glyph, fill, true)
		room := min(maxLabelCells, c.w-x-2)
		if room > 0 && y >= 0 && y < c.h {
			c.text(x+2, y, truncateRunesHelper(label, room, "…"), fill, n.ID == focus)
		}
	}
}

// lineGlyph picks a box-drawing character for a cell-space direction.
func lineGlyph(dx, dy int) rune {
	if dx == 0 && dy == 0 {
		return '·'
	}
	deg := math.Atan2(float64(dy)*cellAspect, float64(dx)) * 180 / math.Pi
	deg = math.Abs(deg)
	switch {
	case deg < 22.5 || deg > 157.5:
		return '─'
	case deg > 67.5 && deg < 112.5:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// arrowGlyph picks the arrowhead for a scene-space angle in radians.
func arrowGlyph(angle float64) rune {
	deg := angle * 180 / math.Pi
	switch {
	case deg >= -45 && deg <= 45:
		return '▶'
	case deg > 45 && deg < 135:
		return '▼'
	case deg < -45 && deg > -135:
		return '▲'
	default:
		return '◀'
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
