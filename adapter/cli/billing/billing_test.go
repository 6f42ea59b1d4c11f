package billing

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	billingApp "github.com/felixgeelhaar/tutora/internal/billing/application"
	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/billing/infrastructure/payment"
	"github.com/felixgeelhaar/tutora/internal/billing/infrastructure/persistence"
	"github.com/felixgeelhaar/tutora/internal/billing/infrastructure/usage"
	"github.com/spf13/cobra"
)

func setupApp(t *testing.T) *cli.App {
	t.Helper()

	engine := billingApp.NewEngine(persistence.NewMemoryRepository(), payment.NewDemoGateway(0, nil), nil)
	app := cli.NewApp(engine, billingApp.NewUsageService(engine, usage.NewMemoryCounter(), nil, nil), nil)
	app.SetCurrentUserID("student-1")

	cli.SetApp(app)
	cli.SetUserFlag("")
	cli.SetJSONOutput(false)
	upgradeMethod, upgradeToken = string(domain.PaymentMethodCard), ""
	t.Cleanup(func() {
		cli.SetApp(nil)
		cli.SetUserFlag("")
		cli.SetJSONOutput(false)
	})
	return app
}

func run(t *testing.T, cmd *cobra.Command) (string, error) {
	t.Helper()
	var out strings.Builder
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	err := cmd.RunE(cmd, nil)
	return out.String(), err
}

func TestCommands_NoApp(t *testing.T) {
	cli.SetApp(nil)

	for _, cmd := range []*cobra.Command{statusCmd, upgradeCmd, cancelCmd, accessCmd, usageCmd, assignmentCreateCmd} {
		_, err := run(t, cmd)
		assert.ErrorIs(t, err, errNoApp, cmd.Name())
	}
}

func TestStatusCmd_NewUserTrial(t *testing.T) {
	setupApp(t)

	out, err := run(t, statusCmd)
	require.NoError(t, err)

	assert.Contains(t, out, "student-1")
	assert.Contains(t, out, "pro (trial)")
	assert.Contains(t, out, "14 day(s) left")
}

func TestStatusCmd_JSONAndUserFlag(t *testing.T) {
	setupApp(t)
	cli.SetJSONOutput(true)
	cli.SetUserFlag("student-2")

	out, err := run(t, statusCmd)
	require.NoError(t, err)

	var view billingApp.StatusView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "student-2", view.UserID)
	assert.Equal(t, domain.SubscriptionTrial, view.Status)
	assert.True(t, view.Entitled)
}

func TestUpgradeCmd(t *testing.T) {
	app := setupApp(t)

	_, err := run(t, upgradeCmd)
	assert.Error(t, err, "missing token")

	upgradeToken = "tok_visa"
	out, err := run(t, upgradeCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "now active")
	assert.Contains(t, out, "Transaction: demo_")

	assert.True(t, app.Engine.CanAccessCalendar(context.Background(), "student-1"))

	out, err = run(t, upgradeCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "already subscribed")
}

func TestCancelCmd(t *testing.T) {
	setupApp(t)

	out, err := run(t, cancelCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "No subscription found")

	_, err = run(t, statusCmd)
	require.NoError(t, err)

	out, err = run(t, cancelCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Subscription cancelled")

	out, err = run(t, accessCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Create assignments: no")
	assert.Contains(t, out, "Calendar:           no")
}

func TestAccessCmd_JSON(t *testing.T) {
	setupApp(t)
	cli.SetJSONOutput(true)

	out, err := run(t, accessCmd)
	require.NoError(t, err)

	var access Access
	require.NoError(t, json.Unmarshal([]byte(out), &access))
	assert.True(t, access.CreateAssignments)
	assert.False(t, access.Calendar)
	assert.Equal(t, 14, access.TrialDaysRemaining)
}

func TestAssignmentCreateAndUsage(t *testing.T) {
	setupApp(t)

	for i := 0; i < 2; i++ {
		out, err := run(t, assignmentCreateCmd)
		require.NoError(t, err)
		assert.Contains(t, out, "Assignment created")
	}

	out, err := run(t, usageCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "2 assignment(s), unlimited")
}

func TestAssignmentCreate_DeniedAfterCancel(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()

	_, err := app.Engine.CheckSubscriptionStatus(ctx, "student-1")
	require.NoError(t, err)
	require.NoError(t, app.Engine.CancelSubscription(ctx, "student-1"))

	out, err := run(t, assignmentCreateCmd)
	assert.Error(t, err)
	assert.Contains(t, out, "tutora upgrade")

	out, err = run(t, usageCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 5 assignment(s), 5 remaining")
}

func TestCommands_Registered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"status", "upgrade", "cancel", "access", "usage", "assignment"} {
		assert.True(t, names[want], want)
	}
}
