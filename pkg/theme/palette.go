// Package theme holds the category color table shared by every rendering
// backend, plus the terminal styles used by the explorer.
package theme

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/vanderheijden86/threatmap/pkg/model"
)

// Neutral is the fill for nodes whose category is not in the palette.
const Neutral = "#9e9e9e"

// DefaultAccent overrides edge and arrowhead colors for hovered or highlighted
// edges.
const DefaultAccent = "#ff6b6b"

var defaultCategoryColors = map[model.Category]string{
	model.CategoryThreat:        "#e15759",
	model.CategoryActor:         "#f28e2b",
	model.CategoryVulnerability: "#edc948",
	model.CategoryImpact:        "#b07aa1",
	model.CategoryMitigation:    "#59a14f",
	model.CategorySector:        "#4e79a7",
	model.CategoryTechnology:    "#76b7b2",
}

// Palette maps categories to fill colors.
type Palette struct {
	Accent     string
	categories map[model.Category]string
}

// DefaultPalette returns the built-in category table.
func DefaultPalette() Palette {
	cats := make(map[model.Category]string, len(defaultCategoryColors))
	for k, v := range defaultCategoryColors {
		cats[k] = v
	}
	return Palette{Accent: DefaultAccent, categories: cats}
}

// WithOverrides returns a copy of p with the given category colors and accent
// replaced. Invalid hex values are ignored.
func (p Palette) WithOverrides(categories map[string]string, accent string) Palette {
	out := Palette{Accent: p.Accent, categories: make(map[model.Category]string, len(p.categories))}
	for k, v := range p.categories {
		out.categories[k] = v
	}
	for k, v := range categories {
		if _, err := ParseHex(v); err == nil {
			out.categories[model.Category(strings.ToLower(k))] = normalizeHex(v)
		}
	}
	if _, err := ParseHex(accent); err == nil {
		out.Accent = normalizeHex(accent)
	}
	return out
}

// IsZero reports whether p is the zero Palette rather than one built by
// DefaultPalette.
func (p Palette) IsZero() bool {
	return p.categories == nil
}

// Fill returns the color for a category, or Neutral when it is unknown.
func (p Palette) Fill(c model.Category) string {
	if v, ok := p.categories[model.Category(strings.ToLower(string(c)))]; ok {
		return v
	}
	return Neutral
}

// AccentColor returns the accent, falling back to DefaultAccent.
func (p Palette) AccentColor() string {
	if p.Accent == "" {
		return DefaultAccent
	}
	return p.Accent
}

// ParseHex parses "#rgb" or "#rrggbb" into an opaque color.
// The leading '#' is required.
func ParseHex(s string) (color.RGBA, error) {
	h, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: missing '#'", s)
	}
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// HexOrNeutral is ParseHex that falls back to the neutral gray.
func HexOrNeutral(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		c, _ = ParseHex(Neutral)
	}
	return c
}

// CSS formats c as "#rrggbb".
func CSS(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func normalizeHex(s string) string {
	return CSS(HexOrNeutral(s))
}
