package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PoYaSharonLin/Sparko-api/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "sparko", version.String())
	},
}
