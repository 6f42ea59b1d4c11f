package billing

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show assignment usage for this month",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		if app.UsageService == nil {
			return errors.New("usage tracking not initialized")
		}

		u, err := app.UsageService.GetUsage(cmd.Context(), app.UserID())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return printJSON(out, u)
		}

		if u.Unlimited() {
			fmt.Fprintf(out, "%s: %d assignment(s), unlimited\n", u.Period, u.Used)
			return nil
		}
		fmt.Fprintf(out, "%s: %d of %d assignment(s), %d remaining\n", u.Period, u.Used, u.Limit, u.Remaining)
		return nil
	},
}

var assignmentCmd = &cobra.Command{
	Use:   "assignment",
	Short: "Manage assignments",
}

var assignmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new assignment if the subscription allows it",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		if app.UsageService == nil {
			return errors.New("usage tracking not initialized")
		}

		ok, err := app.UsageService.RecordAssignmentCreated(cmd.Context(), app.UserID())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Your trial has ended. Run `tutora upgrade` to keep creating assignments.")
			return errors.New("assignment not allowed")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Assignment created.")
		return nil
	},
}

func init() {
	assignmentCmd.AddCommand(assignmentCreateCmd)
}
