package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/PoYaSharonLin/Sparko-api/internal/version"
)

var envName string

var rootCmd = &cobra.Command{
	Use:           "sparko",
	Short:         "Sparko research paper API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is optional; real environment variables win.
		_ = godotenv.Load()
		if envName != "" {
			return os.Setenv("ENV", envName)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "",
		"Environment name selecting config/<env>.yaml (overrides ENV)")
	rootCmd.Version = version.Version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(allCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
