// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/require"

	"url-shortener/internal/db"
)

// New returns a migrated in-memory SQLite database closed with the test.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.Open(db.DriverSQLite, ":memory:", 0, nil)
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(conn, db.DriverSQLite, nil), "Failed to migrate test database")
	return conn
}
