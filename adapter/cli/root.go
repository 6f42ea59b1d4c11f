package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/tutora/pkg/observability"
	"github.com/spf13/cobra"
)

var (
	userFlag string
	jsonFlag bool
	logger   *slog.Logger
)

type commandStartKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tutora",
	Short: "Tutora - subscription and entitlement core",
	Long: `Tutora manages student subscriptions: trials, upgrades, cancellations,
and the feature access they grant.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		ctx := observability.WithCorrelationID(cmd.Context(), "")
		if a := GetApp(); a != nil {
			ctx = observability.WithUserID(ctx, a.UserID())
		}
		ctx = withStart(ctx, time.Now())
		cmd.SetContext(ctx)
		logger.DebugContext(ctx, "command start", "command", cmd.CommandPath())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		started, ok := startFrom(cmd.Context())
		if !ok {
			return
		}
		logger.DebugContext(cmd.Context(), "command end",
			"command", cmd.CommandPath(),
			observability.DurationKey, time.Since(started).Milliseconds(),
		)
	},
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user to act on (defaults to TUTORA_USER_ID)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "print results as JSON")
}

// AddCommand adds a command to the root command.
func AddCommand(cmds ...*cobra.Command) {
	rootCmd.AddCommand(cmds...)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// JSONOutput reports whether --json was given.
func JSONOutput() bool {
	return jsonFlag
}

// SetJSONOutput overrides --json.
func SetJSONOutput(v bool) {
	jsonFlag = v
}

// SetUserFlag overrides --user.
func SetUserFlag(u string) {
	userFlag = u
}
