// Package db opens the gorm connection of the configured engine.
package db

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/db/dsn"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/db/models"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store/sqlstore"
)

// ErrNoSQLEngine is returned by Open for the memory engine.
var ErrNoSQLEngine = errors.New("configured engine does not use a database")

// Open connects to the configured database and migrates every table.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		dialector = mysql.Open(dsn.Create(cfg))
	case config.EnginePostgres:
		dialector = postgres.Open(dsn.Create(cfg))
	case config.EngineSQLite:
		dialector = sqlite.Open(dsn.Create(cfg))
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoSQLEngine, cfg.DB.GormEngine)
	}

	logLevel := logger.Warn
	if cfg.DevMode {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		// sqlite allows a single writer
		sqlDB, errDB := db.DB()
		if errDB != nil {
			return nil, fmt.Errorf("failed to access database: %w", errDB)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the settings and document tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		return fmt.Errorf("failed to migrate settings: %w", err)
	}

	if err := sqlstore.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate documents: %w", err)
	}

	return nil
}
