// connection.go
//
// A document persistence store for wikis, with versioning, attachments and a recycle bin
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of docstore.
// docstore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// docstore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with docstore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package database

import (
	"fmt"
	"time"

	puresqlite "github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/logger"
	"github.com/localnerve/docstore/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect establishes the single connection pool based on the configured DB_TYPE
func Connect(cfg *config.Config, zl zerolog.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if cfg.Log.Level == "debug" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(zl, level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(cfg.Database.ConnectionLimit)
	sqlDB.SetMaxIdleConns(max(cfg.Database.ConnectionLimit/2, 1))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	zl.Info().Str("type", cfg.Database.Type).Str("database", cfg.Database.Name).Msg("connected to database")

	return db, nil
}

// Dialector builds the GORM dialector for the configured database type
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "mysql", "mariadb":
		mc := mysqldriver.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Host + ":" + cfg.Port
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": cfg.Charset}
		return mysql.Open(mc.FormatDSN()), nil

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
		)
		return postgres.Open(dsn), nil

	case "sqlite":
		// For SQLite, Name is the file path
		return sqlite.Open(cfg.Name), nil

	case "sqlite-pure":
		// Pure Go driver for builds without cgo
		return puresqlite.Open(cfg.Name), nil

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)
		return sqlserver.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
}

// AutoMigrate creates or updates every store table in the current schema
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// AutoMigrateMain also creates the wiki descriptor table, which exists in the main schema only
func AutoMigrateMain(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Wiki{}); err != nil {
		return err
	}
	return AutoMigrate(db)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
