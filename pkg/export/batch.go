package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/selection"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

// ManifestName is the index file Batch writes next to the renders.
const ManifestName = "manifest.json"

// BatchOptions configures Batch.
type BatchOptions struct {
	Options

	// Dir receives one file per focus and format.
	Dir     string
	Formats []Format

	// Jobs bounds concurrency. Zero uses GOMAXPROCS.
	Jobs int

	// Progress, if set, is called after each file. It may be called from
	// several goroutines.
	Progress func(Result)
}

// Result describes one rendered file. Per-file failures are reported here
// rather than aborting the batch.
type Result struct {
	Focus  string        `json:"focus"`
	Label  string        `json:"label"`
	Format Format        `json:"format"`
	Path   string        `json:"path"`
	Nodes  int           `json:"nodes"`
	Edges  int           `json:"edges"`
	Took   time.Duration `json:"took_ns"`
	Err    error         `json:"-"`
	Error  string        `json:"error,omitempty"`
}

// Focuses returns every node with at least one outgoing edge, in dataset
// order.
func Focuses(ds *model.Dataset) []string {
	var out []string
	for _, n := range ds.Nodes {
		if len(ds.OutgoingEdges(n.ID)) > 0 {
			out = append(out, n.ID)
		}
	}
	return out
}

// Batch renders the neighborhood of every focus in Focuses to opts.Dir and
// writes a manifest. The returned error is only for failures that stop the
// whole batch: the output directory, the manifest or cancellation.
func Batch(ctx context.Context, ds *model.Dataset, opts BatchOptions) ([]Result, error) {
	if len(opts.Formats) == 0 {
		opts.Formats = []Format{FormatSVG}
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.Selection.Palette.IsZero() {
		opts.Selection.Palette = theme.DefaultPalette()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	focuses := Focuses(ds)
	results := make([]Result, len(focuses)*len(opts.Formats))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)

	for i, focus := range focuses {
		hood := selection.Derive(ds, focus, opts.Selection.Limits, opts.Selection.Palette)
		base := geometry.ResourceKey(focus)
		for j, f := range opts.Formats {
			slot := i*len(opts.Formats) + j
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				res := renderOne(hood, f, filepath.Join(opts.Dir, base+f.Ext()), opts.Options)
				results[slot] = res
				if res.Err != nil {
					debug.Warn("export %s (%s): %v", focus, f, res.Err)
				}
				if opts.Progress != nil {
					opts.Progress(res)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	if err := writeManifest(filepath.Join(opts.Dir, ManifestName), results); err != nil {
		return results, err
	}
	debug.Log("export: wrote %d files for %d focuses", len(results), len(focuses))
	return results, nil
}

func renderOne(hood selection.Neighborhood, f Format, path string, opts Options) Result {
	start := time.Now()
	res := Result{
		Focus:  hood.Focus,
		Label:  focusLabel(hood),
		Format: f,
		Path:   path,
		Nodes:  len(hood.Nodes),
		Edges:  len(hood.Edges),
	}

	var buf bytes.Buffer
	if err := Neighborhood(&buf, hood, f, opts); err != nil {
		res.Err = err
	} else if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		res.Err = fmt.Errorf("writing %s: %w", path, err)
	}
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	res.Took = time.Since(start)
	return res
}

func writeManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
