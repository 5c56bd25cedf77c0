package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/liamcoop/churn/internal/logger"
)

func tableExists(t *testing.T, path, table string) bool {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n))
	return n == 1
}

func TestRun_SQLiteLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.db")
	url := "sqlite://" + path
	log := logger.NewTestLogger(t)

	require.NoError(t, run(url, "version", nil, log))

	require.NoError(t, run(url, "up", nil, log))
	assert.True(t, tableExists(t, path, "predictions"))

	// Already up to date.
	require.NoError(t, run(url, "up", nil, log))
	require.NoError(t, run(url, "version", nil, log))

	require.NoError(t, run(url, "down", nil, log))
	assert.False(t, tableExists(t, path, "predictions"))

	require.NoError(t, run(url, "force", []string{"1"}, log))
}

func TestRun_Errors(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "churn.db")
	log := logger.NewTestLogger(t)

	assert.Error(t, run(url, "sideways", nil, log))
	assert.Error(t, run(url, "force", nil, log))
	assert.Error(t, run(url, "force", []string{"latest"}, log))
	assert.Error(t, run("mysql://localhost/churn", "up", nil, log))
}
