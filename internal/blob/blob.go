// blob.go
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

// Package blob stores binary payloads by slash separated key, on the local filesystem or
// in an S3 compatible bucket.
package blob

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotExist is returned by Get for a key holding nothing
var ErrNotExist = errors.New("blob: not found")

// Store is a keyed binary store. Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Move(ctx context.Context, from, to string) error
}

// ReadAll reads the whole payload stored under key
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

const (
	storageDir     = "storage"
	thisDir        = "~this"
	attachmentsDir = "attachments"
	deletedAttDir  = "deleted-attachments"
	deletedDocsDir = "deleted-documents"
)

// segment escapes one key element so it can never add or climb a level
func segment(s string) string {
	switch s {
	case "":
		return "%00"
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(s)
}

// DocumentKey is the directory of a document: storage/<wiki>/<space>/<page>
func DocumentKey(wiki, space, page string) string {
	parts := []string{storageDir, segment(wiki)}
	for _, sp := range strings.Split(space, ".") {
		parts = append(parts, segment(sp))
	}
	parts = append(parts, segment(page))
	return strings.Join(parts, "/")
}

// AttachmentKey locates the current content of an attachment
func AttachmentKey(wiki, space, page, filename string) string {
	return DocumentKey(wiki, space, page) + "/" + thisDir + "/" + attachmentsDir + "/" + segment(filename) + "/content"
}

// AttachmentVersionKey locates an archived content of an attachment
func AttachmentVersionKey(wiki, space, page, filename, version string) string {
	return DocumentKey(wiki, space, page) + "/" + thisDir + "/" + attachmentsDir + "/" + segment(filename) + "/versions/" + segment(version)
}

// DeletedAttachmentKey locates the content of an attachment deleted at when
func DeletedAttachmentKey(wiki, space, page, filename string, when time.Time) string {
	return DocumentKey(wiki, space, page) + "/" + thisDir + "/" + deletedAttDir + "/" +
		segment(filename) + "-" + strconv.FormatInt(when.UnixMilli(), 10)
}

// DeletedDocumentKey locates a recycle bin payload
func DeletedDocumentKey(wiki, space, page string, id int64) string {
	return DocumentKey(wiki, space, page) + "/" + thisDir + "/" + deletedDocsDir + "/" + strconv.FormatInt(id, 10) + ".xml"
}
