// response.go
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

package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/docstore/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Status:    status,
		Message:   message,
		Ok:        false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       c.OriginalURL(),
		Type:      errorType,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, "not-found")
}

// StatusOf maps a store error kind to an HTTP status
func StatusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrVersionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, types.ErrAuthorizationDenied):
		return fiber.StatusForbidden
	case errors.Is(err, types.ErrInvalidArgument), errors.Is(err, types.ErrInvalidMapping),
		errors.Is(err, types.ErrExternalClassReference):
		return fiber.StatusBadRequest
	case errors.Is(err, types.ErrMigrationRequired):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// StoreErrorResponse sends err with the status of its kind and the store error code
func StoreErrorResponse(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	body := ErrorResponseStruct{
		Status:    status,
		Message:   err.Error(),
		Ok:        false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       c.OriginalURL(),
		Type:      "storage",
	}
	if se, ok := types.AsStoreError(err); ok {
		body.Message = se.Message
		body.Code = se.Code
		body.Type = se.Type()
		body.Target = se.Target
	}
	return c.Status(status).JSON(body)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
	Code      int    `json:"code,omitempty"`
	Target    string `json:"target,omitempty"`
}
