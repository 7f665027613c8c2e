// health.go
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

package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/utils"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Files        string            `json:"files,omitempty"`
	ObjectStore  string            `json:"objectStore,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(component, detail string, err error, log zerolog.Logger) {
	r.Status = "unhealthy"
	r.Details[detail] = err.Error()
	msg := fmt.Sprintf("%s check failed: %v", component, err)
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
	log.Error().Err(err).Str("component", component).Msg("health check failed")
}

// HealthCheck checks the database pool and the configured content stores
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, log zerolog.Logger) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.fail("database", "database_error", err, log)
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := sqlDB.PingContext(pingCtx)
		cancel()
		if err != nil {
			result.Database = "unreachable"
			result.fail("database", "database_ping_error", err, log)
		} else {
			result.Database = "ok"
			result.Details["database_type"] = cfg.Database.Type
			result.Details["database_name"] = cfg.Database.Name
		}
	}

	if uses(cfg, "file") {
		if info, err := os.Stat(cfg.Files.Dir); err != nil {
			result.Files = "unavailable"
			result.fail("files", "files_error", err, log)
		} else if !info.IsDir() {
			result.Files = "unavailable"
			result.fail("files", "files_error", fmt.Errorf("%s is not a directory", cfg.Files.Dir), log)
		} else {
			result.Files = "ok"
			result.Details["files_dir"] = cfg.Files.Dir
		}
	}

	if cfg.MinIO.Endpoint != "" {
		if err := utils.PingObjectStore(ctx, cfg.MinIO.Endpoint, cfg.MinIO.UseSSL); err != nil {
			result.ObjectStore = "unreachable"
			result.fail("objectstore", "objectstore_error", err, log)
		} else {
			result.ObjectStore = "ok"
			result.Details["objectstore_bucket"] = cfg.MinIO.Bucket
		}
	}

	if result.Status == "healthy" {
		log.Debug().Msg("health check passed")
	}

	return result
}

func uses(cfg *config.Config, hint string) bool {
	return cfg.Store.AttachmentStore == hint || (cfg.RecycleBin.Enabled && cfg.RecycleBin.ContentStore == hint)
}
