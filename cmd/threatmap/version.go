package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/threatmap/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the threatmap version",
		Args:  cobra.NoArgs,
		// The version needs no config or dataset.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "threatmap %s (%s %s/%s)\n",
				version.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
