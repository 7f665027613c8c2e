// builder.go
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

	"github.com/localnerve/docstore/internal/archive"
	"github.com/localnerve/docstore/internal/attachment"
	"github.com/localnerve/docstore/internal/blob"
	"github.com/localnerve/docstore/internal/cache"
	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/events"
	"github.com/localnerve/docstore/internal/logger"
	"github.com/localnerve/docstore/internal/metrics"
	"github.com/localnerve/docstore/internal/recyclebin"
	"github.com/localnerve/docstore/internal/schema"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Services is the document store wired from configuration
type Services struct {
	Config    *config.Config
	DB        *gorm.DB
	Metrics   *metrics.Metrics
	Registry  *schema.Registry
	Gateway   *session.Gateway
	Store     *store.Store
	Cache     *cache.Store
	Archive   *archive.Store
	Bin       *recyclebin.Bin
	Bus       *events.Bus
	Documents *DocumentService

	Files   *blob.Filesystem
	Objects *blob.MinIO
}

// Build wires every component over the pool db. Metrics are registered with reg when it
// is not nil.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, reg prometheus.Registerer, log zerolog.Logger) (*Services, error) {
	s := &Services{Config: cfg, DB: db}
	if reg != nil {
		s.Metrics = metrics.New(reg)
	}

	product := database.ProductFromType(cfg.Database.Type)
	s.Registry = schema.NewRegistry(db, product, schema.OptionsFromConfig(cfg), s.Metrics, logger.Component(log, "schema"))
	s.Gateway = session.NewGateway(db, s.Registry, cfg.Database.MainWiki, logger.Component(log, "session"))
	s.Store = store.New(s.Gateway, s.Registry, store.OptionsFromConfig(cfg), s.Metrics, logger.Component(log, "store"))

	s.Store.RegisterContentStore(attachment.NewDatabaseStore(s.Gateway))
	s.Store.SetAttachmentArchiver(attachment.NewArchiveStore(s.Gateway))

	if uses(cfg, attachment.HintFile) {
		files, err := blob.NewFilesystem(cfg.Files.Dir, logger.Component(log, "files"))
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		s.Files = files
		s.Store.RegisterContentStore(attachment.NewBlobStore(attachment.HintFile, files, s.Gateway, log))
	}
	if cfg.MinIO.Endpoint != "" {
		objects, err := blob.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("failed to open object store: %w", err)
		}
		s.Objects = objects
		s.Store.RegisterContentStore(attachment.NewBlobStore(attachment.HintS3, objects, s.Gateway, log))
	}

	if cfg.Store.Versioning {
		s.Archive = archive.New(s.Gateway, cfg.Store.ArchiveSnapshotInterval, s.Metrics, log)
		s.Store.SetArchiver(s.Archive)
	}

	c, err := cache.New(s.Store, cache.Options{
		Capacity:      cfg.Cache.Capacity,
		ExistCapacity: cfg.Cache.ExistCapacity,
		MainWiki:      cfg.Database.MainWiki,
	}, s.Metrics, log)
	if err != nil {
		return nil, err
	}
	s.Cache = c
	s.Bus = events.NewBus(logger.Component(log, "events"))
	s.Bus.Subscribe(c)

	if cfg.RecycleBin.Enabled {
		s.Bin = recyclebin.New(s.Gateway, cfg.RecycleBin.ContentStore, s.Metrics, log)
		if s.Files != nil {
			s.Bin.RegisterContentStore(recyclebin.NewBlobContent(attachment.HintFile, s.Files))
		}
		if s.Objects != nil {
			s.Bin.RegisterContentStore(recyclebin.NewBlobContent(attachment.HintS3, s.Objects))
		}
	}

	s.Documents = NewDocumentService(DocumentServiceConfig{
		Gateway:     s.Gateway,
		Documents:   s.Cache,
		Attachments: s.Store,
		Archive:     s.Archive,
		Bin:         s.Bin,
		Registry:    s.Registry,
		Bus:         s.Bus,
	}, log)

	log.Info().
		Str("product", product.String()).
		Bool("versioning", cfg.Store.Versioning).
		Bool("recycleBin", cfg.RecycleBin.Enabled).
		Str("attachments", cfg.Store.AttachmentStore).
		Msg("document store ready")
	return s, nil
}

// Health checks the pool and content stores of s
func (s *Services) Health(ctx context.Context, log zerolog.Logger) HealthCheckResult {
	return HealthCheck(ctx, s.Config, s.DB, log)
}
