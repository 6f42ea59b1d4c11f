package migrations_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/migrations"
)

func TestVersions(t *testing.T) {
	for _, driver := range []database.Driver{database.DriverSQLite, database.DriverPostgres} {
		versions, err := migrations.Versions(driver)
		require.NoError(t, err)
		assert.Equal(t, []string{"001_subscriptions", "002_payment_transactions"}, versions, driver)
	}

	_, err := migrations.Versions(database.DriverMemory)
	assert.Error(t, err)
}

func TestRun_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{
		SQLitePath: filepath.Join(t.TempDir(), "tutora.db"),
	})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, migrations.Run(ctx, conn))
	require.NoError(t, migrations.Run(ctx, conn))

	var applied int
	require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)

	var tables int
	require.NoError(t, conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('subscriptions', 'payment_transactions')`,
	).Scan(&tables))
	assert.Equal(t, 2, tables)
}
