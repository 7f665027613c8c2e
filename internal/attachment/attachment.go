// attachment.go
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

// Package attachment keeps attachment binaries and their history. Binaries live in the
// database or in a blob store, selected per attachment by its content store hint.
package attachment

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/localnerve/docstore/internal/blob"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Content store hints
const (
	HintDatabase = "database"
	HintFile     = "file"
	HintS3       = "s3"
)

func withWiki(ctx context.Context, a *document.Attachment) context.Context {
	if a.DocRef.Wiki != "" {
		return session.WithWiki(ctx, a.DocRef.Wiki)
	}
	return ctx
}

// DatabaseStore keeps binaries in the attachment_contents table, inside the unit of work
// of the document save
type DatabaseStore struct {
	gateway *session.Gateway
}

// NewDatabaseStore creates the database backend
func NewDatabaseStore(gw *session.Gateway) *DatabaseStore {
	return &DatabaseStore{gateway: gw}
}

// Hint names the backend
func (d *DatabaseStore) Hint() string { return HintDatabase }

// SaveContent writes the in-memory binary of a
func (d *DatabaseStore) SaveContent(ctx context.Context, a *document.Attachment) error {
	data, _ := a.Content()
	return d.gateway.ExecuteWrite(withWiki(ctx, a), func(ctx context.Context, tx *gorm.DB) error {
		row := models.AttachmentContent{AttachmentID: a.ID(), Content: nonNil(data)}
		err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
		return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while saving attachment content")
	})
}

// LoadContent reads the binary of a
func (d *DatabaseStore) LoadContent(ctx context.Context, a *document.Attachment) error {
	return d.gateway.ExecuteRead(withWiki(ctx, a), func(ctx context.Context, tx *gorm.DB) error {
		var row models.AttachmentContent
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("attachment_id = ?", a.ID()).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewError(types.ErrNotFound, types.CodeAttachmentContent, a.Filename, "Attachment content not found", err)
		}
		if err != nil {
			return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while loading attachment content")
		}
		a.SetLoadedContent(row.Content)
		return nil
	})
}

// DeleteContent removes the binary of a
func (d *DatabaseStore) DeleteContent(ctx context.Context, a *document.Attachment) error {
	return d.gateway.ExecuteWrite(withWiki(ctx, a), func(ctx context.Context, tx *gorm.DB) error {
		err := tx.Where("attachment_id = ?", a.ID()).Delete(&models.AttachmentContent{}).Error
		return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while deleting attachment content")
	})
}

// ContentExists reports whether a binary is stored for a
func (d *DatabaseStore) ContentExists(ctx context.Context, a *document.Attachment) (bool, error) {
	return session.Read(withWiki(ctx, a), d.gateway, func(ctx context.Context, tx *gorm.DB) (bool, error) {
		var n int64
		err := tx.Model(&models.AttachmentContent{}).Where("attachment_id = ?", a.ID()).Count(&n).Error
		return n > 0, types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while reading attachment content")
	})
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// BlobStore keeps binaries in a blob store under the attachment directory of their document.
// Blob writes are not part of the database transaction; a rolled back save leaves the new
// binary in place.
type BlobStore struct {
	hint    string
	blobs   blob.Store
	gateway *session.Gateway
	log     zerolog.Logger
}

// NewBlobStore creates a backend named hint over blobs
func NewBlobStore(hint string, blobs blob.Store, gw *session.Gateway, log zerolog.Logger) *BlobStore {
	return &BlobStore{
		hint:    hint,
		blobs:   blobs,
		gateway: gw,
		log:     log.With().Str("component", "attachments-"+hint).Logger(),
	}
}

// Hint names the backend
func (b *BlobStore) Hint() string { return b.hint }

func (b *BlobStore) key(ctx context.Context, a *document.Attachment) string {
	wiki := a.DocRef.Wiki
	if wiki == "" {
		wiki = b.gateway.Wiki(ctx)
	}
	return blob.AttachmentKey(wiki, a.DocRef.Space, a.DocRef.Name, a.Filename)
}

// SaveContent writes the in-memory binary of a
func (b *BlobStore) SaveContent(ctx context.Context, a *document.Attachment) error {
	data, _ := a.Content()
	err := b.blobs.Put(ctx, b.key(ctx, a), bytes.NewReader(data), int64(len(data)))
	return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while saving attachment content")
}

// LoadContent reads the binary of a
func (b *BlobStore) LoadContent(ctx context.Context, a *document.Attachment) error {
	data, err := blob.ReadAll(ctx, b.blobs, b.key(ctx, a))
	if errors.Is(err, blob.ErrNotExist) {
		return types.NewError(types.ErrNotFound, types.CodeAttachmentContent, a.Filename, "Attachment content not found", err)
	}
	if err != nil {
		return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while loading attachment content")
	}
	a.SetLoadedContent(data)
	return nil
}

// DeleteContent moves the binary of a to the deleted attachments of its document
func (b *BlobStore) DeleteContent(ctx context.Context, a *document.Attachment) error {
	wiki := a.DocRef.Wiki
	if wiki == "" {
		wiki = b.gateway.Wiki(ctx)
	}
	to := blob.DeletedAttachmentKey(wiki, a.DocRef.Space, a.DocRef.Name, a.Filename, time.Now())
	err := b.blobs.Move(ctx, b.key(ctx, a), to)
	if errors.Is(err, blob.ErrNotExist) {
		return nil
	}
	if err != nil {
		return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while deleting attachment content")
	}
	b.log.Debug().Str("attachment", a.Filename).Str("key", to).Msg("moved deleted attachment content")
	return nil
}

// ContentExists reports whether a binary is stored for a
func (b *BlobStore) ContentExists(ctx context.Context, a *document.Attachment) (bool, error) {
	ok, err := b.blobs.Exists(ctx, b.key(ctx, a))
	return ok, types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while reading attachment content")
}
