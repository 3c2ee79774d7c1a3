package testdb

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/imagegen-api/internal/ciutil"
	"github.com/phrazzld/imagegen-api/internal/platform/logger"
	"github.com/phrazzld/imagegen-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// migrateOnce guards schema setup; goose keeps package-level state.
var migrateOnce sync.Mutex

// GetTestDatabaseURL returns the database URL for tests.
// It checks IMAGEGEN_TEST_DATABASE_URL and then DATABASE_URL.
func GetTestDatabaseURL() string {
	return ciutil.TestDatabaseURL(nil)
}

// GetTestDBWithT returns a migrated database connection for testing.
// It skips the test if no database URL is set, unless
// IMAGEGEN_REQUIRE_TEST_DB asks for a hard failure.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		if ciutil.RequireTestDatabase() {
			t.Fatal("IMAGEGEN_REQUIRE_TEST_DB is set but no test database URL is configured")
		}
		t.Skip("IMAGEGEN_TEST_DATABASE_URL or DATABASE_URL not set - skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, dbURL)
	require.NoError(t, err, "Failed to open database connection")
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, log := logger.NewTestLogger(t)
	migrateOnce.Lock()
	err = postgres.Migrate(ctx, db, postgres.MigrateUp, log)
	migrateOnce.Unlock()
	require.NoError(t, err, "Failed to run migrations")

	return db
}

// WithTx executes a test function within a transaction, automatically rolling back
// after the test completes. This ensures test isolation and prevents side effects.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		// sql.ErrTxDone is expected if tx is already committed or rolled back
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
