// attachments.go
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

package store

import (
	"context"
	"time"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func attachmentRow(a *document.Attachment) models.Attachment {
	return models.Attachment{
		ID:           a.ID(),
		DocID:        a.DocID,
		Filename:     a.Filename,
		Size:         a.Size,
		MimeType:     a.MimeType,
		Author:       a.Author,
		Version:      a.Version.String(),
		Comment:      a.Comment,
		ContentStore: a.ContentStore,
		Date:         a.Date,
	}
}

func attachmentFromRow(doc *document.Document, row models.Attachment) *document.Attachment {
	a := &document.Attachment{
		DocRef:       doc.Ref,
		DocID:        row.DocID,
		Filename:     row.Filename,
		Size:         row.Size,
		MimeType:     row.MimeType,
		Author:       row.Author,
		Date:         row.Date,
		Comment:      row.Comment,
		ContentStore: row.ContentStore,
	}
	if v, err := document.ParseVersion(row.Version); err == nil {
		a.Version = v
	}
	return a
}

// saveAttachments applies planned removals, then writes every attachment row. Dirty
// binaries go to their content store inside the same unit.
func (s *Store) saveAttachments(ctx context.Context, tx *gorm.DB, doc *document.Document) error {
	for _, a := range doc.AttachmentsToRemove() {
		if doc.Attachment(a.Filename) != nil {
			// replaced under the same name: only the history goes
			if s.attachmentArchiver != nil {
				if err := s.attachmentArchiver.DeleteArchive(ctx, a); err != nil {
					return types.Wrap(err, types.CodeDeletingAttachment, a.Filename, "Exception while deleting attachment history")
				}
			}
			continue
		}
		if err := s.deleteAttachment(ctx, tx, a); err != nil {
			return err
		}
	}
	doc.ClearAttachmentsToRemove()

	for _, a := range doc.Attachments() {
		if err := s.saveAttachment(ctx, tx, doc, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveAttachment(ctx context.Context, tx *gorm.DB, doc *document.Document, a *document.Attachment) error {
	a.DocRef = doc.Ref
	a.DocID = doc.ID()
	if a.ContentStore == "" {
		a.ContentStore = s.opts.ContentStore
	}
	dirty := a.ContentDirty()
	if dirty {
		if a.Version.IsZero() {
			a.Version = document.FirstVersion
		} else {
			a.Version = a.Version.Next(true)
		}
		a.Date = time.Now().Truncate(time.Second)
		if a.Author == "" {
			a.Author = doc.Author
		}
	}

	row := attachmentRow(a)
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return types.Wrap(err, types.CodeSavingAttachment, a.Filename, "Exception while saving attachment")
	}
	if !dirty {
		return nil
	}

	cs, ok := s.contentStore(a.ContentStore)
	if !ok {
		return types.NewError(types.ErrInvalidArgument, types.CodeSavingAttachment, a.Filename,
			"Unknown attachment content store ["+a.ContentStore+"]", nil)
	}
	if err := cs.SaveContent(ctx, a); err != nil {
		return types.Wrap(err, types.CodeSavingAttachment, a.Filename, "Exception while saving attachment content")
	}
	if s.attachmentArchiver != nil {
		if err := s.attachmentArchiver.SaveVersion(ctx, a); err != nil {
			return types.Wrap(err, types.CodeSavingAttachment, a.Filename, "Exception while saving attachment history")
		}
	}
	a.MarkContentClean()
	return nil
}

// deleteAttachment removes the binary, its history and the row
func (s *Store) deleteAttachment(ctx context.Context, tx *gorm.DB, a *document.Attachment) error {
	if cs, ok := s.contentStore(a.ContentStore); ok {
		if err := cs.DeleteContent(ctx, a); err != nil {
			return types.Wrap(err, types.CodeDeletingAttachment, a.Filename, "Exception while deleting attachment content")
		}
	}
	if s.attachmentArchiver != nil {
		if err := s.attachmentArchiver.DeleteArchive(ctx, a); err != nil {
			return types.Wrap(err, types.CodeDeletingAttachment, a.Filename, "Exception while deleting attachment history")
		}
	}
	if err := tx.Where("id = ?", a.ID()).Delete(&models.Attachment{}).Error; err != nil {
		return types.Wrap(err, types.CodeDeletingAttachment, a.Filename, "Exception while deleting attachment")
	}
	a.DropContent()
	return nil
}

func (s *Store) loadAttachments(tx *gorm.DB, doc *document.Document) error {
	var rows []models.Attachment
	if err := tx.Where("doc_id = ?", doc.ID()).Order("filename").Find(&rows).Error; err != nil {
		return types.Wrap(err, types.CodeLoadingAttachment, doc.Ref.String(), "Exception while loading attachments")
	}
	for _, row := range rows {
		doc.AddAttachment(attachmentFromRow(doc, row))
	}
	return nil
}

// LoadAttachmentContent reads the binary of a through the backend named on it
func (s *Store) LoadAttachmentContent(ctx context.Context, a *document.Attachment) error {
	cs, ok := s.contentStore(a.ContentStore)
	if !ok {
		return types.NewError(types.ErrInvalidArgument, types.CodeLoadingAttachment, a.Filename,
			"Unknown attachment content store ["+a.ContentStore+"]", nil)
	}
	if a.DocRef.Wiki != "" {
		ctx = session.WithWiki(ctx, a.DocRef.Wiki)
	}
	return types.Wrap(cs.LoadContent(ctx, a), types.CodeLoadingAttachment, a.Filename, "Exception while loading attachment content")
}
