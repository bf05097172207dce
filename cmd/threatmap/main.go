// Package main provides the threatmap CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/threatmap/internal/datasource"
	"github.com/vanderheijden86/threatmap/pkg/config"
	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/loader"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/version"
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	warn   = color.New(color.FgYellow)
	fail   = color.New(color.FgRed, color.Bold)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	debug.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", fail.Sprint("error:"), err)
		os.Exit(exitCode(err))
	}
}

// app is the state shared by every subcommand.
type app struct {
	out, errOut io.Writer

	dataPath   string
	configPath string
	envFile    string
	strict     bool
	debug      bool
	noColor    bool

	cfg config.Config
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "threatmap",
		Short: "Explore and render threat relationship graphs",
		Long: `threatmap draws the neighborhood of a threat: the focus node, the threats it
leads to, and the threats those lead to, laid out in three columns.

The dataset is a JSON document, a JSONL stream or a SQLite database. Pass it
with --data or set THREATMAP_DATA (a .env file in the working directory is
read first).`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate("threatmap {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.dataPath, "data", "d", "", "Dataset path (.json, .jsonl or .db); defaults to THREATMAP_DATA or the config")
	pf.StringVar(&a.configPath, "config", "", "Config file (.yaml or .toml); defaults to THREATMAP_CONFIG or the XDG config")
	pf.StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before anything else")
	pf.BoolVar(&a.strict, "strict", false, "Fail on the first malformed record instead of skipping it")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging (same as THREATMAP_DEBUG=1)")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newRenderCmd(a),
		newExportCmd(a),
		newExploreCmd(a),
		newStatsCmd(a),
		newConvertCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup runs before every subcommand: environment, logging, then config.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return withCode(ExitConfigError, fmt.Errorf("loading %s: %w", a.envFile, err))
		}
	}
	if a.debug || os.Getenv("THREATMAP_DEBUG") != "" {
		debug.SetEnabled(true)
	}
	if a.noColor {
		color.NoColor = true
	}

	var (
		cfg config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return withCode(ExitConfigError, err)
	}
	a.cfg = cfg
	debug.Section(cmd.CommandPath())
	debug.Log("cli: %s with config %s", cmd.Name(), a.resolvedConfigPath())
	return nil
}

func (a *app) resolvedConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ConfigPath()
}

// datasetPath returns --data, then THREATMAP_DATA, then the configured path.
func (a *app) datasetPath() (string, error) {
	if a.dataPath != "" {
		return a.dataPath, nil
	}
	if p := a.cfg.DataPath(); p != "" {
		return p, nil
	}
	return "", withCode(ExitConfigError, errors.New("no dataset: pass --data or set "+config.EnvData))
}

func (a *app) parseOptions() loader.ParseOptions {
	return loader.ParseOptions{
		Strict: a.strict,
		WarningHandler: func(msg string) {
			warn.Fprintf(a.errOut, "warning: %s\n", msg)
		},
	}
}

// loadDataset resolves and loads the dataset for a subcommand.
func (a *app) loadDataset(ctx context.Context) (*model.Dataset, datasource.DataSource, error) {
	path, err := a.datasetPath()
	if err != nil {
		return nil, datasource.DataSource{}, err
	}
	ds, src, err := datasource.Load(ctx, path, a.parseOptions())
	if err != nil {
		return nil, src, withCode(ExitDataError, err)
	}
	debug.Log("cli: loaded %s: %d nodes, %d edges", src, len(ds.Nodes), len(ds.Edges))
	return ds, src, nil
}

// requireFocus checks that id names a node in ds.
func requireFocus(ds *model.Dataset, id string) error {
	if id == "" {
		return withCode(ExitError, errors.New("no focus: pass --focus or set selection.default_focus"))
	}
	if !ds.HasNode(id) {
		return withCode(ExitDataError, fmt.Errorf("unknown focus %q", id))
	}
	return nil
}
