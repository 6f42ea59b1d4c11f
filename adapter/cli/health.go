package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/tutora/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return fmt.Errorf("app not initialized")
		}

		health := app.Health.Check(cmd.Context())
		out := cmd.OutOrStdout()

		if JSONOutput() {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(health)
		}

		names := make([]string, 0, len(health.Checks))
		for name := range health.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(out, "Overall: %s\n", health.Status)
		for _, name := range names {
			res := health.Checks[name]
			fmt.Fprintf(out, "  %-14s %-9s %s\n", name, res.Status, res.Message)
		}

		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
