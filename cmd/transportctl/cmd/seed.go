package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	officerEmailFlag    string
	officerPasswordFlag string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed routes, vehicles, drivers and today's trips",
	Long: `Creates the reference routes and stops, the vehicle fleet with one driver each,
today's trips and the transport officer account. Rows that already exist are skipped, so
the command can run repeatedly (for example from a daily job to create the day's trips).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		officer := app.Officer()
		if officerEmailFlag != "" {
			officer.Email = officerEmailFlag
		}
		if officerPasswordFlag != "" {
			officer.Password = officerPasswordFlag
		}
		if officer.Email != "" && officer.Password == "" {
			return fmt.Errorf("officer password is required (--officer-password or SHUTTLE_SEED_OFFICER_PASSWORD)")
		}

		rep, err := app.Seeder().Run(ctx, officer)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"users":    rep.Users,
			"routes":   rep.Routes,
			"stops":    rep.Stops,
			"vehicles": rep.Vehicles,
			"drivers":  rep.Drivers,
			"trips":    rep.Trips,
		}).Info("seeded")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&officerEmailFlag, "officer-email", "", "Transport officer email (env: SHUTTLE_SEED_OFFICER_EMAIL)")
	seedCmd.Flags().StringVar(&officerPasswordFlag, "officer-password", "", "Transport officer password (env: SHUTTLE_SEED_OFFICER_PASSWORD)")
	rootCmd.AddCommand(seedCmd)
}
