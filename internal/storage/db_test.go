package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/kv/kvtest"
)

// openTestDB connects to the database named by LIFTLOG_TEST_POSTGRES_DSN,
// applies migrations, and empties kv_items. Tests skip when it is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("LIFTLOG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIFTLOG_TEST_POSTGRES_DSN not set")
	}

	require.NoError(t, RunMigrations(dsn, migrationsDir()))

	ctx := context.Background()
	db, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Pool.Exec(ctx, `TRUNCATE kv_items`)
	require.NoError(t, err)
	return db
}

// TestPostgresContract verifies the PostgreSQL store against the shared suite.
func TestPostgresContract(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store { return openTestDB(t) })
}

// TestRunMigrationsIdempotent verifies a second migration run is a no-op.
func TestRunMigrationsIdempotent(t *testing.T) {
	openTestDB(t)
	require.NoError(t, RunMigrations(os.Getenv("LIFTLOG_TEST_POSTGRES_DSN"), migrationsDir()))
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
