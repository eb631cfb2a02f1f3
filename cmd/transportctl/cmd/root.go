package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/campus-shuttle/transport-api/internal/platform/bootstrap"
	"github.com/campus-shuttle/transport-api/internal/platform/config"
	"github.com/campus-shuttle/transport-api/internal/platform/logging"
)

var (
	cfg config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "transportctl",
	Short: "Operator commands for the shuttle transport API",
	Long: `transportctl runs maintenance tasks against the configured database: schema
migrations, reference data seeding, role grants and the subscription expiry sweep.

Configuration is read the same way as the API server (SHUTTLE_* environment variables
and an optional config.yaml).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbURL, _ := cmd.Flags().GetString("db-url"); dbURL != "" {
			cfg.Storage.Backend = "postgres"
			cfg.Database.URL = dbURL
		}
		log, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db-url", "", "Postgres connection URL; implies the postgres backend (env: SHUTTLE_DATABASE_URL)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp wires the application for a one-shot command. Commands that write data refuse
// the memory backend since nothing would outlive the process.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	if cfg.Storage.Backend != "postgres" {
		return nil, fmt.Errorf("this command needs the postgres backend (set SHUTTLE_STORAGE_BACKEND=postgres or --db-url)")
	}
	return bootstrap.New(ctx, cfg, log, bootstrap.Options{})
}
