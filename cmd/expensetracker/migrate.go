package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"expensetracker/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the SQLite schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.DataBackend != "sqlite" {
				return fmt.Errorf("migrate needs the sqlite backend, got %q", cfg.DataBackend)
			}
			version, err := storage.InitSchema(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (%s)\n", version, cfg.SQLiteDBPath)
			return nil
		},
	}
}
