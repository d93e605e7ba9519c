package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"manuscript-editor-api/internal/wire"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		data, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize data layer: %w", err)
		}
		defer cleanup()

		if err := data.PgClient.AutoMigrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
		return nil
	},
}
