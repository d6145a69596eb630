// Package db opens the journal database.
package db

import (
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/db/dsn"
	"github.com/scim-bridge/scim-bridge/internal/db/models"
	"github.com/scim-bridge/scim-bridge/internal/logger/adapter/stdlogger"
)

const slowQueryThreshold = 200 * time.Millisecond

// ErrUnsupportedEngine is returned for an unknown db.gormEngine.
var ErrUnsupportedEngine = errors.New("unsupported gorm engine")

// Open connects to the configured database and migrates the journal schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(
			stdlogger.New().WithComponent("gorm").WithLevel(zerolog.WarnLevel),
			gormlogger.Config{
				SlowThreshold:             slowQueryThreshold,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect %s database", cfg.DB.GormEngine)
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Dialector selects the gorm driver for the configured engine.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return gormmysql.Open(dsn.Create(cfg)), nil
	case config.EnginePostgres:
		return postgres.Open(dsn.Create(cfg)), nil
	case config.EngineSQLite, "":
		if dir := filepath.Dir(cfg.DB.Name); dir != "." && cfg.DB.Name != ":memory:" {
			if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:mnd
				return nil, errors.Wrap(err, "failed to create sqlite directory")
			}
		}

		return sqlite.Open(dsn.Create(cfg)), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedEngine, "%q", cfg.DB.GormEngine)
	}
}

// Migrate creates or updates the journal tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.JournalEntry{}); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	return nil
}
