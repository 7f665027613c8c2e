// config.go
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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	Log        LogConfig
	Database   DatabaseConfig
	Store      StoreConfig
	Cache      CacheConfig
	RecycleBin RecycleBinConfig
	Files      FilesConfig
	MinIO      MinIOConfig
}

// LogConfig configures the zerolog logger
type LogConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool
}

// DatabaseConfig configures the connection pool and the wiki addressing
type DatabaseConfig struct {
	Type            string // mysql, mariadb, postgres, sqlite, sqlite-pure, sqlserver
	Host            string
	Port            string
	Name            string // main wiki database (or file path for sqlite)
	User            string
	Password        string
	ConnectionLimit int

	// SchemaMode addresses wikis as schemas of one database instead of separate catalogs
	SchemaMode bool
	// Prefix is prepended to every non-main wiki database name
	Prefix   string
	MainWiki string
	// SchemaVersion is the version every wiki must be migrated to before use
	SchemaVersion int
	Charset       string
	Collation     string
}

// StoreConfig toggles the optional document store features
type StoreConfig struct {
	Versioning              bool
	Backlinks               bool
	DynamicMappings         bool
	AttachmentStore         string // database, file, s3
	ArchiveSnapshotInterval int
}

// CacheConfig sizes the document and existence caches
type CacheConfig struct {
	Capacity      int
	ExistCapacity int
}

// RecycleBinConfig configures deleted document handling
type RecycleBinConfig struct {
	Enabled      bool
	ContentStore string // database, file, s3
}

// FilesConfig locates the filesystem blob store
type FilesConfig struct {
	Dir string
}

// MinIOConfig configures the S3 compatible blob store
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LoadFile loads environment variables from the given .env files, then the configuration
func LoadFile(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return Load()
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "3000"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
		Database: DatabaseConfig{
			Type:            strings.ToLower(getEnv("DB_TYPE", "mysql")),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			Name:            getEnv("DB_DATABASE", ""),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			ConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 10),
			SchemaMode:      getEnvAsBool("DB_SCHEMA_MODE", false),
			Prefix:          getEnv("DB_PREFIX", ""),
			MainWiki:        getEnv("DB_MAIN_WIKI", "xwiki"),
			SchemaVersion:   getEnvAsInt("DB_SCHEMA_VERSION", 1),
			Charset:         getEnv("DB_CHARSET", "utf8mb4"),
			Collation:       getEnv("DB_COLLATION", "utf8mb4_bin"),
		},
		Store: StoreConfig{
			Versioning:              getEnvAsBool("STORE_VERSIONING", true),
			Backlinks:               getEnvAsBool("STORE_BACKLINKS", true),
			DynamicMappings:         getEnvAsBool("STORE_DYNAMIC_MAPPINGS", true),
			AttachmentStore:         getEnv("STORE_ATTACHMENTS", "database"),
			ArchiveSnapshotInterval: getEnvAsInt("ARCHIVE_SNAPSHOT_INTERVAL", 25),
		},
		Cache: CacheConfig{
			Capacity:      getEnvAsInt("CACHE_CAPACITY", 500),
			ExistCapacity: getEnvAsInt("CACHE_EXIST_CAPACITY", 10000),
		},
		RecycleBin: RecycleBinConfig{
			Enabled:      getEnvAsBool("RECYCLEBIN_ENABLED", true),
			ContentStore: getEnv("RECYCLEBIN_STORE", "database"),
		},
		Files: FilesConfig{
			Dir: getEnv("FILES_DIR", "./data/store"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "docstore"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Name == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	if c.Database.Type != "sqlite" && c.Database.Type != "sqlite-pure" && c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.MainWiki == "" {
		return fmt.Errorf("DB_MAIN_WIKI must not be empty")
	}
	if c.Database.ConnectionLimit < 1 {
		return fmt.Errorf("DB_CONNECTION_LIMIT must be positive")
	}
	// custom mapped tables are created on a second connection where DDL commits implicitly
	if (c.Database.Type == "mysql" || c.Database.Type == "mariadb") && c.Store.DynamicMappings && c.Database.ConnectionLimit < 2 {
		return fmt.Errorf("DB_CONNECTION_LIMIT must be at least 2 on %s with dynamic mappings", c.Database.Type)
	}
	if c.Cache.Capacity < 1 || c.Cache.ExistCapacity < 1 {
		return fmt.Errorf("cache capacities must be positive")
	}
	if c.Store.ArchiveSnapshotInterval < 1 {
		return fmt.Errorf("ARCHIVE_SNAPSHOT_INTERVAL must be positive")
	}
	for _, hint := range []string{c.Store.AttachmentStore, c.RecycleBin.ContentStore} {
		switch hint {
		case "database", "file":
		case "s3":
			if c.MinIO.Endpoint == "" {
				return fmt.Errorf("MINIO_ENDPOINT is required for the s3 store")
			}
		default:
			return fmt.Errorf("unsupported content store: %s", hint)
		}
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
