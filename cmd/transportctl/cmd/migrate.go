package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	postgres "github.com/campus-shuttle/transport-api/internal/adapters/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending embedded migrations. A database that is already current is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Backend != "postgres" {
			return fmt.Errorf("migrate needs the postgres backend (set SHUTTLE_STORAGE_BACKEND=postgres or --db-url)")
		}
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
