package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// testDSN returns the database used by store tests, or skips when none is configured.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("Skipping test: TEST_DB_DSN not set")
	}
	return dsn
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database, err := NewDatabase(ctx, testDSN(t))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.AutoMigrate(ctx))
	require.NoError(t, database.AutoMigrate(ctx))

	var n int
	err = database.Conn.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_name IN ('users', 'messages')`).Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMessagesRequireContent(t *testing.T) {
	ctx := context.Background()
	database, err := NewDatabase(ctx, testDSN(t))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.AutoMigrate(ctx))

	_, err = database.Conn.ExecContext(ctx, `INSERT INTO messages (name, room) VALUES ('ghost', 'general')`)
	require.Error(t, err)
}
