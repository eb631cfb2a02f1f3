package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage user roles",
}

var grantCmd = &cobra.Command{
	Use:   "grant <email> <role>",
	Short: "Grant a role (NORMAL_STAFF, FACULTY or TO) to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := domain.RoleName(strings.ToUpper(strings.TrimSpace(args[1])))
		if !role.Valid() {
			return fmt.Errorf("unknown role %q (expected NORMAL_STAFF, FACULTY or TO)", args[1])
		}

		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Services.Accounts.GrantRole(ctx, args[0], role); err != nil {
			return err
		}
		log.WithField("email", args[0]).WithField("role", role).Info("role granted")
		return nil
	},
}

func init() {
	rolesCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(rolesCmd)
}
