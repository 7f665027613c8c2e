// wiki.go
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

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/utils"
)

// WikiHeader selects the wiki a request works on
const WikiHeader = "X-Wiki"

// Wiki reads the X-Wiki header, defaulting to mainWiki, and carries the wiki in the
// request context for the stores
func Wiki(mainWiki string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wiki := strings.TrimSpace(c.Get(WikiHeader, mainWiki))
		if wiki == "" {
			wiki = mainWiki
		}
		if !validWikiID(wiki) {
			return utils.ErrorResponse(c, "Invalid wiki identifier ["+wiki+"]", fiber.StatusBadRequest, "wiki")
		}

		c.Locals("wiki", wiki)
		c.SetUserContext(session.WithWiki(c.UserContext(), wiki))
		return c.Next()
	}
}

// validWikiID accepts the characters a wiki database name is derived from
func validWikiID(id string) bool {
	if len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
