// common.go
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
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/docstore/internal/document"
)

// reference builds the document reference of the :space and :page route parameters in
// the wiki selected by the Wiki middleware. Nested spaces are separated by dots.
func reference(c *fiber.Ctx) (document.Reference, bool) {
	space := strings.TrimSpace(c.Params("space"))
	page := strings.TrimSpace(c.Params("page"))
	if space == "" || page == "" {
		return document.Reference{}, false
	}
	wiki, _ := c.Locals("wiki").(string)
	return document.Reference{Wiki: wiki, Space: space, Name: page}, true
}

// queryInt reads a non negative integer query parameter
func queryInt(c *fiber.Ctx, key string, defaultValue int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// queryTime reads an RFC 3339 query parameter; missing values are the zero time
func queryTime(c *fiber.Ctx, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
