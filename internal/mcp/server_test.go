package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tutora/internal/app"
	"github.com/felixgeelhaar/tutora/pkg/config"
)

func newContainer(t *testing.T) *app.Container {
	t.Helper()
	cfg := &config.Config{
		AppEnv:               "test",
		StoreBreakerFailures: 5,
		StoreBreakerTimeout:  30 * time.Second,
		SweepInterval:        time.Hour,
		SweepBatchSize:       10,
	}
	container, err := app.NewContainer(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return container
}

func TestNewServer_RegistersBillingTools(t *testing.T) {
	cliApp := NewCLIApp(newContainer(t), "student-1")
	assert.Equal(t, "student-1", cliApp.CurrentUserID)

	srv, err := NewServer(cliApp, nil)
	require.NoError(t, err)

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	found := false
	for _, tool := range tools {
		if tool["name"] == "billing.upgrade" {
			found = true
			break
		}
	}
	assert.True(t, found, "billing.upgrade tool should be registered")
}

func TestServe_Validation(t *testing.T) {
	ctx := context.Background()
	cliApp := NewCLIApp(newContainer(t), "student-1")

	assert.Error(t, Serve(ctx, nil, cliApp, nil))
	assert.Error(t, Serve(ctx, &config.Config{}, nil, nil))
	assert.EqualError(t,
		Serve(ctx, &config.Config{AppEnv: "production", MCPAddr: "127.0.0.1:0"}, cliApp, nil),
		"MCP_AUTH_TOKEN is required in production")
}
