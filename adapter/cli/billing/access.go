package billing

import (
	"fmt"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	"github.com/spf13/cobra"
)

// Access is the capability summary printed by the access command.
type Access struct {
	UserID             string `json:"user_id"`
	CreateAssignments  bool   `json:"create_assignments"`
	Calendar           bool   `json:"calendar"`
	TrialDaysRemaining int    `json:"trial_days_remaining"`
}

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Show which features are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		ctx, userID := cmd.Context(), app.UserID()
		access := Access{
			UserID:             userID,
			CreateAssignments:  app.Engine.CanCreateAssignment(ctx, userID),
			Calendar:           app.Engine.CanAccessCalendar(ctx, userID),
			TrialDaysRemaining: app.Engine.GetTrialDaysRemaining(ctx, userID),
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return printJSON(out, access)
		}

		fmt.Fprintf(out, "Create assignments: %s\n", yesNo(access.CreateAssignments))
		fmt.Fprintf(out, "Calendar:           %s\n", yesNo(access.Calendar))
		if access.TrialDaysRemaining > 0 {
			fmt.Fprintf(out, "Trial days left:    %d\n", access.TrialDaysRemaining)
		}
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
