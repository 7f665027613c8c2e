// delete.go
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
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
)

// Delete removes doc with its attachments, links, objects, lock and archive. Only documents
// loaded from or saved to a store can be deleted.
func (s *Store) Delete(ctx context.Context, doc *document.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", start, err) }()

	if doc.Store() == "" {
		return types.NewError(types.ErrInvalidArgument, types.CodeCannotDeleteUnloadedDoc, doc.Ref.String(),
			"Impossible to delete a document that has not been loaded", nil)
	}

	ctx = s.docContext(ctx, doc)
	err = s.gateway.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return types.Wrap(s.delete(ctx, tx, doc), types.CodeDeletingDoc, doc.Ref.String(), "Exception while deleting document")
	})
	if err != nil {
		return err
	}
	doc.SetOriginal(doc.Clone())
	return nil
}

func (s *Store) delete(ctx context.Context, tx *gorm.DB, doc *document.Document) error {
	id := doc.ID()

	var atts []models.Attachment
	if err := tx.Where("doc_id = ?", id).Find(&atts).Error; err != nil {
		return types.Wrap(err, types.CodeDeletingAttachment, doc.Ref.String(), "Exception while listing attachments")
	}
	for _, row := range atts {
		if err := s.deleteAttachment(ctx, tx, attachmentFromRow(doc, row)); err != nil {
			return err
		}
	}
	for _, a := range doc.Attachments() {
		a.DropContent()
	}

	if err := deleteLinks(tx, id); err != nil {
		return types.Wrap(err, types.CodeDeletingLinks, doc.Ref.String(), "Exception while deleting links")
	}

	// objects belong to the default locale document
	if !doc.Translation {
		if err := s.deleteAllObjects(tx, doc.FullName()); err != nil {
			return types.Wrap(err, types.CodeDeletingObject, doc.Ref.String(), "Exception while deleting objects")
		}
	}

	if err := tx.Where("doc_id = ?", id).Delete(&models.Lock{}).Error; err != nil {
		return types.Wrap(err, types.CodeLocks, doc.Ref.String(), "Exception while deleting lock")
	}

	if s.archive != nil {
		if err := s.archive.Delete(ctx, doc); err != nil {
			return types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while deleting the document archive")
		}
	}

	return tx.Where("id = ?", id).Delete(&models.Document{}).Error
}
