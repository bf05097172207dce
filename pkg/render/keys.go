package render

import (
	"strings"
	"time"
)

// DefaultPanSpeed is the key-hold pan rate in viewport pixels per second.
const DefaultPanSpeed = 300.0

// Key is an arrow key that pans while held.
type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeyUp
	KeyDown
)

// ParseKey maps "left", "right", "up" and "down" (any case) to a Key.
func ParseKey(s string) (Key, bool) {
	switch strings.ToLower(s) {
	case "left":
		return KeyLeft, true
	case "right":
		return KeyRight, true
	case "up":
		return KeyUp, true
	case "down":
		return KeyDown, true
	}
	return 0, false
}

// KeyPanner holds the set of pressed arrow keys for one mounted view and
// turns them into camera pans on each Tick. It starts no goroutines; the
// owner drives Tick from its frame loop.
type KeyPanner struct {
	cam   Camera
	speed float64
	held  map[Key]bool
}

func newKeyPanner(cam Camera, speed float64) *KeyPanner {
	return &KeyPanner{cam: cam, speed: speed, held: make(map[Key]bool, 4)}
}

// Press marks k as held.
func (p *KeyPanner) Press(k Key) { p.held[k] = true }

// Release marks k as released.
func (p *KeyPanner) Release(k Key) { delete(p.held, k) }

// ReleaseAll clears every held key, e.g. when the view loses focus.
func (p *KeyPanner) ReleaseAll() { clear(p.held) }

// Held reports whether k is pressed.
func (p *KeyPanner) Held(k Key) bool { return p.held[k] }

// Active reports whether any key is held.
func (p *KeyPanner) Active() bool { return len(p.held) > 0 }

// Tick pans for dt worth of held keys. An arrow moves the view in its
// direction, so the content moves the opposite way.
func (p *KeyPanner) Tick(dt time.Duration) {
	if len(p.held) == 0 || dt <= 0 {
		return
	}
	step := p.speed * dt.Seconds()
	var dx, dy float64
	if p.held[KeyLeft] {
		dx += step
	}
	if p.held[KeyRight] {
		dx -= step
	}
	if p.held[KeyUp] {
		dy += step
	}
	if p.held[KeyDown] {
		dy -= step
	}
	if dx != 0 || dy != 0 {
		p.cam.Pan(dx, dy)
	}
}
