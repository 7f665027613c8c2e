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
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/handlers"
	"github.com/localnerve/docstore/internal/logger"
	"github.com/localnerve/docstore/internal/services"
	"github.com/localnerve/docstore/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	zl := logger.InitGlobal(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	// Connect to the main wiki database
	db, err := database.Connect(cfg, zl)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	// Run auto-migrations on the main wiki
	if err := database.AutoMigrateMain(db); err != nil {
		zl.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	svc, err := services.Build(ctx, cfg, db, prometheus.DefaultRegisterer, zl)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to build the document store")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())

	// Prometheus metrics
	metrics := fiberprometheus.New("docstore")
	metrics.RegisterAt(app, "/metrics")
	app.Use(metrics.Middleware)

	// Read-only admin routes under /api
	handlers.Register(app.Group("/api"), svc, logger.Component(zl, "http"))

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})

	// Graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigs
		zl.Info().Msg("gracefully shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	zl.Info().Str("port", cfg.Port).Str("wiki", cfg.Database.MainWiki).Msg("starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		zl.Fatal().Err(err).Msg("failed to start server")
	}

	zl.Info().Msg("server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.ErrorResponse(c, fe.Message, fe.Code, "http")
	}
	return utils.StoreErrorResponse(c, err)
}
