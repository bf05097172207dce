package export

// This file implements the interactive prompts used by the CLI: the batch
// export wizard and the focus picker.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/threatmap/pkg/analysis"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

// ErrNoFocus is returned by PickFocus when the dataset has nothing to pick.
var ErrNoFocus = errors.New("dataset has no node with outgoing edges")

// WizardConfig holds the answers collected by the export wizard.
type WizardConfig struct {
	Formats []Format
	Dir     string
	Jobs    int
}

// Wizard walks the user through a batch export.
type Wizard struct {
	config WizardConfig
	ds     *model.Dataset
}

// NewWizard creates a wizard seeded with defaults. Zero fields of defaults
// fall back to SVG, "threatmap-export" and GOMAXPROCS.
func NewWizard(ds *model.Dataset, defaults WizardConfig) *Wizard {
	if len(defaults.Formats) == 0 {
		defaults.Formats = []Format{FormatSVG}
	}
	if defaults.Dir == "" {
		defaults.Dir = "threatmap-export"
	}
	if defaults.Jobs <= 0 {
		defaults.Jobs = runtime.GOMAXPROCS(0)
	}
	return &Wizard{config: defaults, ds: ds}
}

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run asks for formats, the output directory and the worker count.
func (w *Wizard) Run() (WizardConfig, error) {
	w.printBanner()

	formats := w.config.Formats
	dir := w.config.Dir
	jobs := strconv.Itoa(w.config.Jobs)

	form := newForm(
		huh.NewGroup(
			huh.NewMultiSelect[Format]().
				Title("Formats").
				Description("One file per focus and format").
				Options(formatOptions(formats)...).
				Value(&formats).
				Validate(func(v []Format) error {
					if len(v) == 0 {
						return errors.New("pick at least one format")
					}
					return nil
				}),
			huh.NewInput().
				Title("Output directory").
				Value(&dir).
				Validate(validateDir),
			huh.NewInput().
				Title("Parallel jobs").
				Value(&jobs).
				Validate(validateJobs),
		),
	)
	if err := form.Run(); err != nil {
		return w.config, err
	}

	w.config.Formats = formats
	w.config.Dir = filepath.Clean(strings.TrimSpace(dir))
	w.config.Jobs, _ = strconv.Atoi(strings.TrimSpace(jobs))
	return w.config, nil
}

// GetConfig returns the current answers.
func (w *Wizard) GetConfig() WizardConfig {
	return w.config
}

func (w *Wizard) printBanner() {
	focuses := 0
	if w.ds != nil {
		focuses = len(Focuses(w.ds))
	}
	fmt.Println("threatmap export")
	fmt.Println("────────────────")
	fmt.Printf("  %d focus nodes will be rendered.\n\n", focuses)
}

func formatOptions(selected []Format) []huh.Option[Format] {
	opts := make([]huh.Option[Format], 0, len(Formats))
	for _, f := range Formats {
		on := false
		for _, s := range selected {
			if s == f {
				on = true
			}
		}
		opts = append(opts, huh.NewOption(strings.ToUpper(string(f)), f).Selected(on))
	}
	return opts
}

func validateDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("directory is required")
	}
	if info, err := os.Stat(s); err == nil && !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", s)
	}
	return nil
}

func validateJobs(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a positive number")
	}
	return nil
}

// PickFocus shows a filterable list of every node with outgoing edges,
// highest PageRank first, and returns the chosen id.
func PickFocus(ds *model.Dataset) (string, error) {
	opts := focusOptions(ds)
	if len(opts) == 0 {
		return "", ErrNoFocus
	}
	id := opts[0].Value
	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose a focus").
				Options(opts...).
				Filtering(true).
				Height(min(len(opts)+2, 16)).
				Value(&id),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return id, nil
}

func focusOptions(ds *model.Dataset) []huh.Option[string] {
	if ds == nil {
		return nil
	}
	var opts []huh.Option[string]
	for _, r := range analysis.TopByPageRank(ds, 0) {
		out := len(ds.OutgoingEdges(r.Node.ID))
		if out == 0 {
			continue
		}
		key := fmt.Sprintf("%s  (%s, %d out)", r.Node.DisplayLabel(), categoryName(r.Node.Category), out)
		opts = append(opts, huh.NewOption(key, r.Node.ID))
	}
	return opts
}

func categoryName(c model.Category) string {
	if c == "" {
		return "uncategorized"
	}
	return string(c)
}
