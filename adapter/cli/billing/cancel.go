package billing

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the subscription",
	Long:  `Cancel the subscription. Access ends immediately and no refund is issued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		err = app.Engine.CancelSubscription(cmd.Context(), app.UserID())
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No subscription found.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Subscription cancelled.")
		return nil
	},
}
