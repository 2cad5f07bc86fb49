package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_indexes.sql", "001_entries.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0755))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_entries.sql", "002_indexes.sql"}, files)
}

func TestMigrationFilesMissingDir(t *testing.T) {
	_, err := migrationFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestShippedMigrationsParse(t *testing.T) {
	files, err := migrationFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.Contains(t, files, "001_entries.sql")
}
