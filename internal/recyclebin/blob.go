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

package recyclebin

import (
	"bytes"
	"context"
	"errors"

	"github.com/localnerve/docstore/internal/blob"
	"github.com/localnerve/docstore/internal/types"
)

// BlobContent keeps serialized deleted documents in a blob store, next to the attachments
// of the document
type BlobContent struct {
	hint  string
	blobs blob.Store
}

// NewBlobContent creates a payload store named hint over blobs
func NewBlobContent(hint string, blobs blob.Store) *BlobContent {
	return &BlobContent{hint: hint, blobs: blobs}
}

// Hint names the store
func (c *BlobContent) Hint() string { return c.hint }

func key(rec *Record) string {
	return blob.DeletedDocumentKey(rec.Ref.Wiki, rec.Ref.Space, rec.Ref.Name, rec.Index)
}

// Save writes xml for rec
func (c *BlobContent) Save(ctx context.Context, rec *Record, xml []byte) error {
	return c.blobs.Put(ctx, key(rec), bytes.NewReader(xml), int64(len(xml)))
}

// Load reads the payload of rec
func (c *BlobContent) Load(ctx context.Context, rec *Record) ([]byte, error) {
	data, err := blob.ReadAll(ctx, c.blobs, key(rec))
	if errors.Is(err, blob.ErrNotExist) {
		return nil, types.NewError(types.ErrNotFound, types.CodeRecycleBin, rec.Ref.String(),
			"Deleted document content is missing", err)
	}
	return data, err
}

// Delete removes the payload of rec
func (c *BlobContent) Delete(ctx context.Context, rec *Record) error {
	return c.blobs.Delete(ctx, key(rec))
}
