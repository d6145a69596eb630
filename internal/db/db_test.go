package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/db/models"
)

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	db, err := Open(&config.Config{DB: config.DB{GormEngine: config.EngineSQLite, Name: path}})
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.True(t, db.Migrator().HasTable(&models.JournalEntry{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestDialector(t *testing.T) {
	testCases := []struct {
		engine  string
		name    string
		wantErr error
	}{
		{engine: config.EngineMySQL, name: "mysql"},
		{engine: config.EnginePostgres, name: "postgres"},
		{engine: config.EngineSQLite, name: "sqlite"},
		{engine: "oracle", wantErr: ErrUnsupportedEngine},
	}

	for _, tc := range testCases {
		t.Run(tc.engine, func(t *testing.T) {
			d, err := Dialector(&config.Config{DB: config.DB{GormEngine: tc.engine, Name: ":memory:"}})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.name, d.Name())
		})
	}
}
