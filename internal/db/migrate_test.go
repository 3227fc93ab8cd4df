package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		version  string
		name     string
		isUp     bool
		ok       bool
	}{
		{"001_initial.up.sql", "001", "initial", true, true},
		{"001_initial.down.sql", "001", "initial", false, true},
		{"002_add_index_on_status.up.sql", "002", "add_index_on_status", true, true},
		{"001_initial.sql", "", "", false, false},
		{"README.md", "", "", false, false},
		{"initial.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.isUp, isUp)
		})
	}
}

func TestLoadMigrations_Ordered(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_second.up.sql":  {Data: []byte("SELECT 2")},
		"m/001_first.up.sql":   {Data: []byte("SELECT 1")},
		"m/001_first.down.sql": {Data: []byte("SELECT -1")},
		"m/notes.txt":          {Data: []byte("ignored")},
	}

	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "SELECT 1", migrations[0].UpSQL)
	assert.Equal(t, "SELECT -1", migrations[0].DownSQL)
	assert.Equal(t, "002", migrations[1].Version)
}

func TestLoadMigrations_MissingUp(t *testing.T) {
	fsys := fstest.MapFS{
		"m/003_orphan.down.sql": {Data: []byte("SELECT 1")},
	}
	_, err := loadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Contains(t, migrations[0].UpSQL, "applications_one_active_idx")
	assert.Contains(t, migrations[0].UpSQL, "WHERE status IN ('pending', 'approved', 'running')")
}
