// save.go
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

	"github.com/google/uuid"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
)

// Save persists doc with its objects and attachments in one unit of work, joining the unit
// carried by ctx when there is one. Concurrent saves of the same document are serialized.
// On failure doc is restored to its state before the call.
func (s *Store) Save(ctx context.Context, doc *document.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("save", start, err) }()

	unlock := s.saving.lock(doc.Key())
	defer unlock()

	ctx = s.docContext(ctx, doc)
	wiki := s.wikiOf(ctx, doc)
	target := doc.Ref.WithWiki(wiki).String()

	doc.Comment = abbreviate(doc.Comment, MaxCommentLength)
	if err := checkLocalClasses(doc, wiki); err != nil {
		return err
	}
	if c := doc.Class(); !c.IsEmpty() && c.CustomMapping != "" {
		if _, err := s.registry.InjectMapping(c.Name, c.CustomMapping, c); err != nil {
			return err
		}
	}

	backup := doc.Clone()
	err = s.gateway.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return types.Wrap(s.save(ctx, tx, wiki, doc), types.CodeSavingDoc, target, "Exception while saving document")
	})
	if err != nil {
		*doc = *backup
		return types.Wrap(err, types.CodeSavingDoc, target, "Exception while saving document")
	}

	doc.SetStore(Name)
	doc.SetNew(false)
	doc.SetOriginal(doc.Clone())

	if s.opts.Backlinks {
		s.saveBacklinks(ctx, doc)
	}
	return nil
}

func (s *Store) save(ctx context.Context, tx *gorm.DB, wiki string, doc *document.Document) error {
	if doc.IsNew() && doc.Version.IsZero() {
		doc.MarkMetadataDirty()
	}
	for _, obj := range doc.AllObjects() {
		if obj.GUID == "" {
			obj.GUID = uuid.NewString()
		}
	}

	if doc.IsDirty() {
		now := time.Now().Truncate(time.Second)
		doc.Date = now
		if doc.ContentDirty() {
			doc.ContentUpdateDate = now
			doc.ContentAuthor = doc.Author
		}
		doc.IncrementVersion()
		if s.versioning() {
			if err := s.archive.UpdateArchive(ctx, doc); err != nil {
				return types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while updating the document archive")
			}
		}
		doc.ClearDirty()
	} else if s.versioning() {
		if a := doc.Archive(); a != nil {
			if err := s.archive.SaveArchive(ctx, doc, a); err != nil {
				return types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while saving the document archive")
			}
		}
		found, err := s.archive.ContainsVersion(ctx, doc, doc.Version)
		if err != nil {
			return types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while reading the document archive")
		}
		if !found {
			if err := s.archive.UpdateArchive(ctx, doc); err != nil {
				return types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while updating the document archive")
			}
		}
	}

	if doc.Creator == "" {
		doc.Creator = doc.Author
	}

	var existing int64
	if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID()).Count(&existing).Error; err != nil {
		return err
	}
	if existing == 0 {
		if doc.CreationDate.IsZero() {
			doc.CreationDate = doc.Date
		}
		row, err := documentRow(doc)
		if err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	} else {
		row, err := documentRow(doc)
		if err != nil {
			return err
		}
		if err := tx.Model(&row).Select("*").Updates(&row).Error; err != nil {
			return err
		}
	}

	if err := s.saveAttachments(ctx, tx, doc); err != nil {
		return err
	}

	if rm := doc.ObjectsToRemove(); len(rm) > 0 {
		if err := s.deleteObjects(tx, rm); err != nil {
			return types.Wrap(err, types.CodeDeletingObject, doc.Ref.String(), "Exception while deleting objects")
		}
		doc.ClearObjectsToRemove()
	}

	if class := doc.Class(); !class.IsEmpty() && classChanged(doc) {
		if err := s.migrateClassStorage(tx, class); err != nil {
			return types.Wrap(err, types.CodeMigratingProperty, class.Name, "Exception while migrating class property storage")
		}
	}

	for _, obj := range doc.AllObjects() {
		if err := s.saveObject(ctx, tx, wiki, obj); err != nil {
			return types.Wrap(err, types.CodeSavingObject, obj.ClassName, "Exception while saving object")
		}
	}
	return nil
}

func (s *Store) versioning() bool {
	return s.opts.Versioning && s.archive != nil
}

// saveBacklinks records the outgoing links of doc after its unit of work. Inside a caller's
// unit a savepoint keeps a failure from aborting the caller; otherwise an independent unit
// is used. Failures are only logged.
func (s *Store) saveBacklinks(ctx context.Context, doc *document.Document) {
	work := func(ctx context.Context, tx *gorm.DB) error {
		return tx.Transaction(func(sp *gorm.DB) error {
			return s.saveLinks(sp, doc)
		})
	}
	if session.InUnit(ctx) {
		if err := s.gateway.ExecuteWrite(ctx, work); err != nil {
			s.log.Warn().Err(err).Str("document", doc.Ref.String()).Msg("failed to save links")
		}
		return
	}
	if !s.gateway.FailSafeExecute(ctx, true, work) {
		s.log.Warn().Str("document", doc.Ref.String()).Msg("failed to save links")
	}
}

func checkLocalClasses(doc *document.Document, wiki string) error {
	for _, obj := range doc.AllObjects() {
		if obj.ClassWiki != "" && obj.ClassWiki != wiki {
			return types.NewError(types.ErrExternalClassReference, types.CodeExternalClass, doc.Ref.String(),
				"Objects can only reference classes of the same wiki ["+obj.ClassWiki+":"+obj.ClassName+"]", nil)
		}
	}
	return nil
}

// classChanged reports a class definition differing from the one last loaded or saved
func classChanged(doc *document.Document) bool {
	orig := doc.Original()
	if orig == nil || orig.Class().IsEmpty() {
		return true
	}
	before, err := document.ClassToXML(orig.Class())
	if err != nil {
		return true
	}
	after, err := document.ClassToXML(doc.Class())
	return err != nil || before != after
}

func abbreviate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func documentRow(doc *document.Document) (models.Document, error) {
	classXML := ""
	if c := doc.Class(); !c.IsEmpty() {
		x, err := document.ClassToXML(c)
		if err != nil {
			return models.Document{}, err
		}
		classXML = x
	}
	elements := 0
	if len(doc.Attachments()) > 0 {
		elements |= models.ElementAttachments
	}
	if doc.HasObjects() {
		elements |= models.ElementObjects
	}
	translation := 0
	if doc.Translation {
		translation = 1
	}
	return models.Document{
		ID:                doc.ID(),
		FullName:          doc.FullName(),
		Space:             doc.Ref.Space,
		Name:              doc.Ref.Name,
		Language:          doc.Locale,
		DefaultLanguage:   doc.DefaultLocale,
		Translation:       translation,
		Title:             doc.Title,
		Parent:            doc.Parent,
		Content:           models.LargeText(doc.Content),
		Syntax:            doc.Syntax,
		Author:            doc.Author,
		ContentAuthor:     doc.ContentAuthor,
		Creator:           doc.Creator,
		Comment:           doc.Comment,
		MinorEdit:         doc.MinorEdit,
		Hidden:            doc.Hidden,
		Version:           doc.Version.String(),
		ClassXML:          models.LargeText(classXML),
		Elements:          elements,
		CreationDate:      doc.CreationDate,
		Date:              doc.Date,
		ContentUpdateDate: doc.ContentUpdateDate,
	}, nil
}
