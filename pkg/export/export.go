// Package export writes focus neighborhoods to files: SVG, PNG and HTML
// through the renderer, and a Markdown evidence report with a Mermaid
// flowchart. Batch renders every focus in a dataset concurrently.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/render"
	"github.com/vanderheijden86/threatmap/pkg/selection"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// Format is an output file type.
type Format string

const (
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatPNG, FormatHTML, FormatMarkdown}

// ParseFormat accepts a format name or a common alias ("markdown", "htm").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "html", "htm":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want svg, png, html or md)", s)
}

// Ext returns the file extension, with the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Options configures a single render.
type Options struct {
	Render    render.Options
	Selection selection.Options
	Title     string
	ScriptURL string
}

// Focus derives the neighborhood of focus and writes it to w. Graphic
// formats are fitted to the view first.
func Focus(w io.Writer, ds *model.Dataset, focus string, f Format, opts Options) (selection.Neighborhood, error) {
	so := opts.Selection
	if so.Palette.IsZero() {
		so.Palette = theme.DefaultPalette()
	}
	hood := selection.Derive(ds, focus, so.Limits, so.Palette)
	return hood, Neighborhood(w, hood, f, opts)
}

// Neighborhood writes an already derived neighborhood to w.
func Neighborhood(w io.Writer, hood selection.Neighborhood, f Format, opts Options) error {
	if f == FormatMarkdown {
		_, err := io.WriteString(w, NeighborhoodMarkdown(hood))
		return err
	}

	r := render.New(opts.Render)
	r.Show(hood.Nodes, hood.Edges)
	if !hood.IsEmpty() {
		if err := r.FitView(); err != nil {
			return err
		}
	}

	switch f {
	case FormatSVG:
		return r.WriteSVG(w)
	case FormatPNG:
		return r.WritePNG(w)
	case FormatHTML:
		title := opts.Title
		if title == "" {
			title = focusLabel(hood)
		}
		return r.WriteHTML(w, render.HTMLOptions{Title: title, ScriptURL: opts.ScriptURL})
	}
	return fmt.Errorf("unknown format %q", f)
}

func focusLabel(hood selection.Neighborhood) string {
	for _, n := range hood.Nodes {
		if n.ID == hood.Focus {
			return n.DisplayLabel()
		}
	}
	return hood.Focus
}
