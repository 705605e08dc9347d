package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/db/models"
)

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{DB: config.DB{
		GormEngine: config.EngineSQLite,
		Name:       filepath.Join(t.TempDir(), "ldapauth.db"),
	}}

	db, err := Open(cfg)
	require.NoError(t, err)

	for _, table := range []any{&models.Setting{}, &models.Document{}, &models.Object{}, &models.ObjectProperty{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestOpenMemoryEngine(t *testing.T) {
	_, err := Open(&config.Config{DB: config.DB{GormEngine: config.EngineMemory}})
	require.ErrorIs(t, err, ErrNoSQLEngine)
}
