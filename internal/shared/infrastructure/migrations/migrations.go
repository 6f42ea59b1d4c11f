// Package migrations holds the embedded schema for the subscription store
// and applies it to a database connection.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var schemaFS embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)`

// Run applies every pending migration for the connection's driver.
// Applied versions are recorded in schema_migrations.
func Run(ctx context.Context, conn database.Connection) error {
	dir, placeholder, err := dialect(conn.Driver())
	if err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, createVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	files, err := upFiles(dir)
	if err != nil {
		return err
	}

	for _, file := range files {
		version := strings.TrimSuffix(file, ".up.sql")

		var applied int
		err := conn.QueryRow(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE version = "+placeholder, version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		body, err := schemaFS.ReadFile(dir + "/" + file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		err = database.InTx(ctx, conn, func(ctx context.Context) error {
			exec := database.ExecutorFromContext(ctx, conn)
			if _, err := exec.Exec(ctx, string(body)); err != nil {
				return err
			}
			_, err := exec.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ("+placeholder+")", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}

// Versions lists the migration versions embedded for a driver, in order.
func Versions(driver database.Driver) ([]string, error) {
	dir, _, err := dialect(driver)
	if err != nil {
		return nil, err
	}
	files, err := upFiles(dir)
	if err != nil {
		return nil, err
	}
	versions := make([]string, len(files))
	for i, f := range files {
		versions[i] = strings.TrimSuffix(f, ".up.sql")
	}
	return versions, nil
}

func dialect(driver database.Driver) (dir, placeholder string, err error) {
	switch driver {
	case database.DriverSQLite:
		return "sqlite", "?", nil
	case database.DriverPostgres:
		return "postgres", "$1", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

func upFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(schemaFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
