// documents.go
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
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/docstore/internal/archive"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/services"
	"github.com/localnerve/docstore/internal/utils"
)

// DocumentHandler serves read-only document metadata
type DocumentHandler struct {
	Docs *services.DocumentService
}

// AttachmentMetadata describes one attachment without its content
type AttachmentMetadata struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size"`
	Version  string `json:"version"`
	Author   string `json:"author"`
	Store    string `json:"store"`
}

// DocumentMetadata describes a document without its content
type DocumentMetadata struct {
	Wiki         string               `json:"wiki"`
	FullName     string               `json:"fullName"`
	Locale       string               `json:"locale"`
	Title        string               `json:"title"`
	Version      string               `json:"version"`
	Author       string               `json:"author"`
	Creator      string               `json:"creator"`
	CreationDate time.Time            `json:"creationDate"`
	Date         time.Time            `json:"date"`
	Hidden       bool                 `json:"hidden"`
	Objects      map[string]int       `json:"objects"`
	Attachments  []AttachmentMetadata `json:"attachments"`
	Translations []string             `json:"translations,omitempty"`
}

func metadataOf(doc *document.Document) DocumentMetadata {
	md := DocumentMetadata{
		Wiki:         doc.Ref.Wiki,
		FullName:     doc.FullName(),
		Locale:       doc.Locale,
		Title:        doc.Title,
		Version:      doc.Version.String(),
		Author:       doc.Author,
		Creator:      doc.Creator,
		CreationDate: doc.CreationDate,
		Date:         doc.Date,
		Hidden:       doc.Hidden,
		Objects:      map[string]int{},
		Attachments:  []AttachmentMetadata{},
	}
	for _, className := range doc.ObjectClasses() {
		md.Objects[className] = len(doc.Objects(className))
	}
	for _, a := range doc.Attachments() {
		md.Attachments = append(md.Attachments, AttachmentMetadata{
			Filename: a.Filename,
			MimeType: a.MimeType,
			Size:     a.Size,
			Version:  a.Version.String(),
			Author:   a.Author,
			Store:    a.ContentStore,
		})
	}
	return md
}

// GetDocument handles GET /api/documents/:space/:page?locale=
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	ref, ok := reference(c)
	if !ok {
		return utils.ErrorResponse(c, "Space and page are required", fiber.StatusBadRequest, "request")
	}
	locale := c.Query("locale")

	doc, err := h.Docs.Load(c.UserContext(), ref, locale)
	if err != nil {
		return utils.StoreErrorResponse(c, err)
	}
	if doc.IsNew() {
		return utils.NotFoundResponse(c, "Document '"+ref.String()+"' not found")
	}

	md := metadataOf(doc)
	if locale == "" {
		if md.Translations, err = h.Docs.Translations(c.UserContext(), ref); err != nil {
			return utils.StoreErrorResponse(c, err)
		}
	}
	return utils.SuccessResponse(c, md, fiber.StatusOK)
}

// GetVersions handles GET /api/documents/:space/:page/versions
// Query: locale, author, from, to (RFC 3339), minor (bool), offset, limit
func (h *DocumentHandler) GetVersions(c *fiber.Ctx) error {
	ref, ok := reference(c)
	if !ok {
		return utils.ErrorResponse(c, "Space and page are required", fiber.StatusBadRequest, "request")
	}
	criteria := archive.Criteria{
		Author:       c.Query("author"),
		IncludeMinor: c.QueryBool("minor", false),
	}
	var okFrom, okTo, okOffset, okLimit bool
	criteria.From, okFrom = queryTime(c, "from")
	criteria.To, okTo = queryTime(c, "to")
	criteria.Offset, okOffset = queryInt(c, "offset", 0)
	criteria.Limit, okLimit = queryInt(c, "limit", 50)
	if !okFrom || !okTo || !okOffset || !okLimit {
		return utils.ErrorResponse(c, "Invalid version criteria", fiber.StatusBadRequest, "request")
	}

	revs, total, err := h.Docs.Versions(c.UserContext(), ref, c.Query("locale"), criteria)
	if err != nil {
		return utils.StoreErrorResponse(c, err)
	}
	out := make([]fiber.Map, 0, len(revs))
	for _, r := range revs {
		out = append(out, fiber.Map{
			"version": r.Version.String(),
			"date":    r.Date,
			"author":  r.Author,
			"comment": r.Comment,
			"minor":   r.Minor,
		})
	}
	return utils.SuccessResponse(c, fiber.Map{
		"total":    total,
		"offset":   criteria.Offset,
		"versions": out,
	}, fiber.StatusOK)
}

// GetBacklinks handles GET /api/documents/:space/:page/backlinks
func (h *DocumentHandler) GetBacklinks(c *fiber.Ctx) error {
	ref, ok := reference(c)
	if !ok {
		return utils.ErrorResponse(c, "Space and page are required", fiber.StatusBadRequest, "request")
	}
	links, err := h.Docs.Backlinks(c.UserContext(), ref)
	if err != nil {
		return utils.StoreErrorResponse(c, err)
	}
	if links == nil {
		links = []string{}
	}
	return utils.SuccessResponse(c, fiber.Map{"backlinks": links}, fiber.StatusOK)
}
