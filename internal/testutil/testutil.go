// Package testutil sets up in-memory databases and fixture rows for package tests.
package testutil

import (
	"testing"

	"github.com/AdamBeresnev/tkd-draws/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// SetupTestDB creates an in-memory SQLite database and applies migrations.
// A single connection is kept open because every new connection to :memory: is a fresh database.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}
