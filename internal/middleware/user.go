// user.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/docstore/internal/utils"
)

// UserHeader names the authenticated user, set by the fronting proxy
const UserHeader = "X-Wiki-User"

// RequireUser rejects requests without a user and stores the user reference in locals
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Get(UserHeader)
		if user == "" {
			return utils.ErrorResponse(c, "Header \""+UserHeader+"\" not found", fiber.StatusForbidden, "authorization")
		}
		c.Locals("user", user)
		return c.Next()
	}
}

// User returns the user stored by RequireUser
func User(c *fiber.Ctx) string {
	user, _ := c.Locals("user").(string)
	return user
}
