package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/eulex/internal/version"
)

func newVersionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(o.stdout, "eulexctl %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
