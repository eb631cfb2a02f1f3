package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var olderThanFlag time.Duration

var idempotencyCmd = &cobra.Command{
	Use:   "idempotency",
	Short: "Idempotency key maintenance",
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete stored Idempotency-Key responses older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		if olderThanFlag <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		cutoff := app.Clock.Now().Add(-olderThanFlag)
		n, err := app.Repos.Idempotency.DeleteBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"deleted": n, "cutoff": cutoff.Format(time.RFC3339)}).Info("idempotency purge complete")
		return nil
	},
}

func init() {
	purgeCmd.Flags().DurationVar(&olderThanFlag, "older-than", 72*time.Hour, "Age past which stored responses are deleted")
	idempotencyCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(idempotencyCmd)
}
