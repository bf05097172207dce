package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/threatmap/pkg/export"
)

type exportFlags struct {
	dir         string
	formats     []string
	jobs        int
	interactive bool
}

func newExportCmd(a *app) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render every focus in the dataset",
		Long: `Render the neighborhood of every node that has outgoing edges, one file
per node and format, plus a manifest.json index.

Examples:
  threatmap export --dir out
  threatmap export --dir out --format svg,html --jobs 4
  threatmap export --interactive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, a, f)
		},
	}
	cmd.Flags().StringVar(&f.dir, "dir", "threatmap-export", "Output directory")
	cmd.Flags().StringSliceVar(&f.formats, "format", []string{"svg"}, "Formats: svg, png, html, md (comma-separated)")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "Parallel renders (default GOMAXPROCS)")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Ask for formats, directory and jobs")
	return cmd
}

func runExport(cmd *cobra.Command, a *app, f exportFlags) error {
	formats := make([]export.Format, 0, len(f.formats))
	for _, s := range f.formats {
		ft, err := export.ParseFormat(s)
		if err != nil {
			return withCode(ExitError, err)
		}
		formats = append(formats, ft)
	}

	ds, _, err := a.loadDataset(cmd.Context())
	if err != nil {
		return err
	}

	if f.interactive {
		answers, err := export.NewWizard(ds, export.WizardConfig{
			Formats: formats,
			Dir:     f.dir,
			Jobs:    f.jobs,
		}).Run()
		if err != nil {
			return err
		}
		formats, f.dir, f.jobs = answers.Formats, answers.Dir, answers.Jobs
	}

	total := len(export.Focuses(ds)) * len(formats)
	progress := newProgress(a, total)
	results, err := export.Batch(cmd.Context(), ds, export.BatchOptions{
		Options: export.Options{
			Render:    a.cfg.RenderOptions(),
			Selection: a.cfg.SelectionOptions(),
		},
		Dir:      f.dir,
		Formats:  formats,
		Jobs:     f.jobs,
		Progress: progress.step,
	})
	progress.done()
	if err != nil {
		return err
	}

	failed := export.Failed(results)
	for _, r := range failed {
		fail.Fprintf(a.errOut, "  failed %s (%s): %s\n", r.Focus, r.Format, r.Error)
	}
	fmt.Fprintf(a.errOut, "%s %d files to %s %s\n",
		brand.Sprint("exported"),
		len(results)-len(failed),
		f.dir,
		subtle.Sprintf("(%d focuses, %s)", total/max(len(formats), 1), export.ManifestName))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d renders failed", len(failed), len(results))
	}
	return nil
}

// progress prints a single updating counter line on a terminal and nothing
// otherwise.
type progress struct {
	mu    sync.Mutex
	a     *app
	total int
	n     int
	live  bool
}

func newProgress(a *app, total int) *progress {
	live := false
	if f, ok := a.errOut.(*os.File); ok {
		live = term.IsTerminal(int(f.Fd()))
	}
	return &progress{a: a, total: total, live: live}
}

func (p *progress) step(r export.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	if p.live {
		fmt.Fprintf(p.a.errOut, "\r%s %d/%d %s\033[K", subtle.Sprint("rendering"), p.n, p.total, r.Label)
	}
}

func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live && p.n > 0 {
		fmt.Fprint(p.a.errOut, "\r\033[K")
	}
}
