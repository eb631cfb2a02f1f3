package cmd

import (
	"github.com/spf13/cobra"
)

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "Subscription maintenance",
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Mark ACTIVE subscriptions whose end date has passed as EXPIRED",
	Long: `Reads already report ended subscriptions as EXPIRED; this sweep persists the change
for every record at once so reports and exports agree with the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.Services.Subscriptions.ExpireDue(ctx)
		if err != nil {
			return err
		}
		log.WithField("expired", n).Info("expiry sweep complete")
		return nil
	},
}

func init() {
	subscriptionsCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(subscriptionsCmd)
}
