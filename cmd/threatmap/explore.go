package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/threatmap/internal/datasource"
	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/export"
	"github.com/vanderheijden86/threatmap/pkg/ui"
	"github.com/vanderheijden86/threatmap/pkg/watcher"
)

type exploreFlags struct {
	focus       string
	snapshotDir string
	noReload    bool
}

func newExploreCmd(a *app) *cobra.Command {
	var f exploreFlags
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse the graph in the terminal",
		Long: `Open the terminal explorer on a focus node.

Without --focus and without selection.default_focus, a picker lists every
node with outgoing edges. The dataset is reloaded when its file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplore(cmd, a, f)
		},
	}
	cmd.Flags().StringVarP(&f.focus, "focus", "f", "", "Focus node id")
	cmd.Flags().StringVar(&f.snapshotDir, "snapshot-dir", "", "Directory for SVG snapshots (default: state dir)")
	cmd.Flags().BoolVar(&f.noReload, "no-reload", false, "Do not watch the dataset for changes")
	return cmd
}

func runExplore(cmd *cobra.Command, a *app, f exploreFlags) error {
	ctx := cmd.Context()
	ds, src, err := a.loadDataset(ctx)
	if err != nil {
		return err
	}

	focus := f.focus
	if focus == "" {
		focus = a.cfg.Selection.DefaultFocus
	}
	if focus == "" && export.IsTerminal() {
		focus, err = export.PickFocus(ds)
		if err != nil && !errors.Is(err, export.ErrNoFocus) {
			return err
		}
	}
	if focus != "" && !ds.HasNode(focus) {
		return requireFocus(ds, focus)
	}

	var w *watcher.Watcher
	if a.cfg.Explorer.LiveReload && !f.noReload {
		w, err = startWatcher(ctx, src)
		if err != nil {
			debug.Warn("explore: live reload disabled: %v", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m := ui.NewModel(ds, ui.Options{
		Config:       a.cfg,
		Source:       src,
		ParseOptions: a.parseOptions(),
		Watcher:      w,
		Focus:        focus,
		SnapshotDir:  f.snapshotDir,
	})
	return runTUIProgram(ctx, m)
}

func startWatcher(ctx context.Context, src datasource.DataSource) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(src.Path,
		watcher.WithOnError(func(err error) {
			debug.Warn("explore: watcher: %v", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func runTUIProgram(ctx context.Context, m tea.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Optional auto-quit for automated tests: set THREATMAP_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("THREATMAP_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
