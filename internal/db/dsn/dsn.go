// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/scim-bridge/scim-bridge/internal/config"
)

// Create builds the Data Source Name for the configured gorm engine.
// For sqlite the database name is the file path.
func Create(dbCfg *config.Config) string {
	switch dbCfg.DB.GormEngine {
	case config.EngineMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Host,
			dbCfg.DB.Port,
			dbCfg.DB.Name,
			dbCfg.DB.Extras,
		)
	case config.EnginePostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			dbCfg.DB.Host,
			dbCfg.DB.Port,
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Name,
		)

		if extras := strings.TrimSpace(dbCfg.DB.Extras); extras != "" {
			out += " " + extras
		}

		return out
	default:
		if dbCfg.DB.Extras == "" {
			return dbCfg.DB.Name
		}

		return dbCfg.DB.Name + "?" + dbCfg.DB.Extras
	}
}
