package theme

import (
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/threatmap/pkg/model"
)

// lightShade scales category colors down for light terminal backgrounds.
const lightShade = 0.75

// Adaptive returns the category color for terminal output. Light terminals
// get a darker shade of the same hue.
func (p Palette) Adaptive(c model.Category) lipgloss.AdaptiveColor {
	return adaptive(p.Fill(c))
}

// AccentAdaptive is Adaptive for the accent color.
func (p Palette) AccentAdaptive() lipgloss.AdaptiveColor {
	return adaptive(p.AccentColor())
}

func adaptive(hex string) lipgloss.AdaptiveColor {
	c := HexOrNeutral(hex)
	dark := color.RGBA{
		R: uint8(float64(c.R) * lightShade),
		G: uint8(float64(c.G) * lightShade),
		B: uint8(float64(c.B) * lightShade),
		A: 0xff,
	}
	return lipgloss.AdaptiveColor{Light: CSS(dark), Dark: CSS(c)}
}
