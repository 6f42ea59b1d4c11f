package billing

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show subscription status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		view, err := app.Engine.CheckSubscriptionStatus(cmd.Context(), app.UserID())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return printJSON(out, view)
		}

		fmt.Fprintf(out, "User:         %s\n", view.UserID)
		fmt.Fprintf(out, "Subscription: %s (%s)\n", view.PlanID, view.Status)
		switch view.Status {
		case domain.SubscriptionTrial:
			if view.IsTrialActive {
				fmt.Fprintf(out, "Trial:        %d day(s) left, ends %s\n", view.TrialDaysRemaining, view.TrialEndDate.Local().Format(time.RFC1123))
			}
		case domain.SubscriptionActive:
			if view.UpgradedAt != nil {
				fmt.Fprintf(out, "Subscribed:   %s\n", view.UpgradedAt.Local().Format(time.RFC1123))
			}
		}
		if view.RequiresPaymentMethod && !view.Entitled {
			fmt.Fprintln(out, "Run `tutora upgrade` to continue using Tutora.")
		}
		return nil
	},
}
