package render

import (
	"math"
	"sync"
)

const (
	MinZoom = 0.1
	MaxZoom = 8.0

	// fitPadding is the margin kept around the scene by FitView, in scene
	// units, on top of the node radius.
	fitPadding = 20.0
)

// Camera is the command surface for moving the view. Zoom and Pan are user
// gestures and are ignored while interaction is disabled; Reset always
// applies.
type Camera interface {
	Zoom(delta float64)
	Pan(dx, dy float64)
	Reset()
	SetInteractionEnabled(enabled bool)
}

// ViewCamera maps scene coordinates onto a fixed-size viewport:
// screen = (scene - offset) * scale.
type ViewCamera struct {
	mu      sync.Mutex
	width   float64
	height  float64
	scale   float64
	offX    float64
	offY    float64
	enabled bool
}

// NewViewCamera returns an identity camera over a width x height viewport.
func NewViewCamera(width, height float64) *ViewCamera {
	return &ViewCamera{width: width, height: height, scale: 1, enabled: true}
}

// Zoom multiplies the scale by 1+delta, keeping the viewport center fixed.
func (c *ViewCamera) Zoom(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || delta <= -1 {
		return
	}
	cx := c.offX + c.width/(2*c.scale)
	cy := c.offY + c.height/(2*c.scale)
	c.scale = clamp(c.scale*(1+delta), MinZoom, MaxZoom)
	c.offX = cx - c.width/(2*c.scale)
	c.offY = cy - c.height/(2*c.scale)
}

// Pan moves the content by (dx, dy) viewport pixels.
func (c *ViewCamera) Pan(dx, dy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.offX -= dx / c.scale
	c.offY -= dy / c.scale
}

// Reset restores the identity view.
func (c *ViewCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scale, c.offX, c.offY = 1, 0, 0
}

// SetInteractionEnabled toggles whether Zoom and Pan take effect.
func (c *ViewCamera) SetInteractionEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// InteractionEnabled reports whether gestures are accepted.
func (c *ViewCamera) InteractionEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Scale returns the current zoom factor.
func (c *ViewCamera) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// ViewBox returns the visible scene rectangle.
func (c *ViewCamera) ViewBox() (x, y, w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offX, c.offY, c.width / c.scale, c.height / c.scale
}

// ToScene converts a viewport point into scene coordinates.
func (c *ViewCamera) ToScene(sx, sy float64) (x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sx/c.scale + c.offX, sy/c.scale + c.offY
}

// ToScreen converts a scene point into viewport coordinates.
func (c *ViewCamera) ToScreen(x, y float64) (sx, sy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (x - c.offX) * c.scale, (y - c.offY) * c.scale
}

// fit centers the rectangle in the viewport at the largest scale that shows
// all of it.
func (c *ViewCamera) fit(minX, minY, maxX, maxY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bw := math.Max(maxX-minX, 1)
	bh := math.Max(maxY-minY, 1)
	c.scale = clamp(math.Min(c.width/bw, c.height/bh), MinZoom, MaxZoom)
	c.offX = (minX+maxX)/2 - c.width/(2*c.scale)
	c.offY = (minY+maxY)/2 - c.height/(2*c.scale)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
