package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/threatmap/internal/datasource"
)

func newConvertCmd(a *app) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Write the dataset to a SQLite database",
		Long: `Write the loaded dataset, computed centrality included, to a fresh SQLite
database. The result can be passed back with --data.

Examples:
  threatmap convert --data threats.json --to threats.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to == "" {
				return withCode(ExitError, errors.New("--to is required"))
			}
			ds, src, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			if same(src.Path, to) {
				return withCode(ExitError, fmt.Errorf("refusing to overwrite the source %s", to))
			}
			if err := datasource.WriteSQLite(cmd.Context(), to, ds); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "%s %s %s\n",
				brand.Sprint("wrote"),
				to,
				subtle.Sprintf("(%d nodes, %d edges)", len(ds.Nodes), len(ds.Edges)))
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Destination database (.db)")
	return cmd
}

func same(a, b string) bool {
	pa, errA := filepath.Abs(a)
	pb, errB := filepath.Abs(b)
	return errA == nil && errB == nil && pa == pb
}
