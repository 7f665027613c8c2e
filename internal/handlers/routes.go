// routes.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/docstore/internal/middleware"
	"github.com/localnerve/docstore/internal/services"
	"github.com/rs/zerolog"
)

// Register mounts the read-only admin routes on api
func Register(api fiber.Router, s *services.Services, log zerolog.Logger) {
	health := &HealthHandler{Services: s, Log: log}
	docs := &DocumentHandler{Docs: s.Documents}
	bin := &RecycleBinHandler{Docs: s.Documents}

	api.Get("/health", health.GetHealth)

	wiki := api.Group("", middleware.Wiki(s.Config.Database.MainWiki))
	wiki.Get("/documents/:space/:page", docs.GetDocument)
	wiki.Get("/documents/:space/:page/versions", docs.GetVersions)
	wiki.Get("/documents/:space/:page/backlinks", docs.GetBacklinks)

	// recycle bin routes name the requesting user for access checks
	wiki.Get("/documents/:space/:page/deleted", middleware.RequireUser(), bin.GetDocumentDeletions)
	wiki.Get("/recyclebin", middleware.RequireUser(), bin.GetDeletedDocuments)
	wiki.Get("/recyclebin/:index", middleware.RequireUser(), bin.GetDeletedDocument)
}
