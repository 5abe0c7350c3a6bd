package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skywatch-oss/fusion-engine/internal/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Open(dbPath())
			if err != nil {
				return err
			}
			defer database.Close()
			migrations, err := db.MigrationsFS()
			if err != nil {
				return err
			}
			return database.MigrateUp(migrations)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Open(dbPath())
			if err != nil {
				return err
			}
			defer database.Close()
			migrations, err := db.MigrationsFS()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrateVersion(migrations)
			if err != nil {
				return err
			}
			fmt.Printf("schema version %d (dirty: %v)\n", version, dirty)
			return nil
		},
	})

	return cmd
}
