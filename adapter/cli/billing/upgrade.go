package billing

import (
	"fmt"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/spf13/cobra"
)

var (
	upgradeMethod string
	upgradeToken  string
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Convert to the paid plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		result := app.Engine.ConvertTrialToPaid(cmd.Context(), app.UserID(), domain.PaymentMethod{
			Type:  domain.PaymentMethodType(upgradeMethod),
			Token: upgradeToken,
		})

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			if err := printJSON(out, result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, result.Message)
			if result.TransactionID != "" {
				fmt.Fprintf(out, "Transaction: %s\n", result.TransactionID)
			}
		}

		if !result.Success {
			return fmt.Errorf("upgrade failed")
		}
		return nil
	},
}

func init() {
	upgradeCmd.Flags().StringVarP(&upgradeMethod, "method", "m", string(domain.PaymentMethodCard), "payment method type (card, paypal)")
	upgradeCmd.Flags().StringVarP(&upgradeToken, "token", "t", "", "payment method token from the provider")
}
