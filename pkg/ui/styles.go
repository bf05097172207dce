package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// Adaptive colors for light and dark terminals.
var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
)

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for the panel that receives keys
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	mutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	statusStyle = lipgloss.NewStyle().Foreground(ColorSuccess)

	errorStyle = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)

	helpKeyStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	helpDescStyle = lipgloss.NewStyle().Foreground(ColorSubtext)
)

// RenderCategoryBadge renders a category name on its palette color.
func RenderCategoryBadge(p theme.Palette, c model.Category) string {
	if c == "" {
		c = "uncategorized"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(p.Adaptive(c)).
		Bold(true).
		Padding(0, 1).
		Render(string(c))
}

// fg returns a style with the given hex foreground. An empty color yields the
// plain terminal style.
func fg(hex string, bold bool) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(bold)
	if hex != "" {
		s = s.Foreground(lipgloss.Color(hex))
	}
	return s
}
