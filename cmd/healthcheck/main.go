// main.go
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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/logger"
	"github.com/localnerve/docstore/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Log to stderr, the result goes to stdout
	zl := logger.New(logger.Config{Level: cfg.Log.Level, Output: os.Stderr})

	db, err := database.Connect(cfg, zl)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	// Perform health check
	result := services.HealthCheck(context.Background(), cfg, db, zl)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to marshal health check result")
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
