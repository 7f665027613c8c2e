// recyclebin.go
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
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/docstore/internal/middleware"
	"github.com/localnerve/docstore/internal/recyclebin"
	"github.com/localnerve/docstore/internal/services"
	"github.com/localnerve/docstore/internal/utils"
)

// RecycleBinHandler lists deleted documents. Routes require middleware.RequireUser.
type RecycleBinHandler struct {
	Docs *services.DocumentService
}

// GetDeletedDocuments handles GET /api/recyclebin?limit=&offset=
func (h *RecycleBinHandler) GetDeletedDocuments(c *fiber.Ctx) error {
	limit, okLimit := queryInt(c, "limit", 50)
	offset, okOffset := queryInt(c, "offset", 0)
	if !okLimit || !okOffset {
		return utils.ErrorResponse(c, "Invalid pagination", fiber.StatusBadRequest, "request")
	}

	recs, err := h.Docs.DeletedDocuments(c.UserContext(), middleware.User(c), limit, offset)
	if err != nil {
		return utils.StoreErrorResponse(c, err)
	}
	if len(recs) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return utils.SuccessResponse(c, fiber.Map{"deleted": recs}, fiber.StatusOK)
}

// GetDeletedDocument handles GET /api/recyclebin/:index
func (h *RecycleBinHandler) GetDeletedDocument(c *fiber.Ctx) error {
	index, err := strconv.ParseInt(c.Params("index"), 10, 64)
	if err != nil || index < 1 {
		return utils.ErrorResponse(c, "Invalid recycle bin index", fiber.StatusBadRequest, "request")
	}

	rec, err := h.Docs.DeletedDocument(c.UserContext(), index, middleware.User(c))
	if err != nil {
		return utils.StoreErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, rec, fiber.StatusOK)
}

// GetDocumentDeletions handles GET /api/documents/:space/:page/deleted?locale=
func (h *RecycleBinHandler) GetDocumentDeletions(c *fiber.Ctx) error {
	ref, ok := reference(c)
	if !ok {
		return utils.ErrorResponse(c, "Space and page are required", fiber.StatusBadRequest, "request")
	}
	recs, err := h.Docs.DeletedVersions(c.UserContext(), ref, c.Query("locale"), middleware.User(c))
	if err != nil {
		return utils.StoreErrorResponse(c, err)
	}
	if recs == nil {
		recs = []*recyclebin.Record{}
	}
	return utils.SuccessResponse(c, fiber.Map{"deleted": recs}, fiber.StatusOK)
}
