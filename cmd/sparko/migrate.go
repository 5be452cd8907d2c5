package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the papers and jobs tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "migrate")
		if err != nil {
			return err
		}
		defer a.close()

		// auto_migrate already ran inside newApp.
		if a.cfg.Papers.AutoMigrate {
			return nil
		}
		return a.migrate(ctx)
	},
}
