// Package testutil provides shared test fixtures.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knolab/knolab/internal/config"
	"github.com/knolab/knolab/internal/repo"
)

// OpenTestDB opens a fresh in-memory sqlite database with all migrations
// applied. Each call gets an isolated database; shared cache keeps it alive
// across the multiple connections database/sql may open.
func OpenTestDB(t *testing.T) *repo.DB {
	t.Helper()

	buf := make([]byte, 8)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	dsn := fmt.Sprintf("file:testdb_%s?mode=memory&cache=shared", hex.EncodeToString(buf))

	db, err := repo.Open(config.DatabaseConfig{Driver: "sqlite", Path: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Connection churn would drop a shared-cache memory db between queries.
	db.SetMaxOpenConns(1)

	require.NoError(t, repo.ApplyMigrations(db, MigrationsDir(t)))
	return db
}

// MigrationsDir locates the repository's migrations directory relative to
// this source file, so tests work from any package directory.
func MigrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
