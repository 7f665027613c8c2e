// load.go
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
	"errors"
	"time"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Exists reports whether doc is stored in its locale
func (s *Store) Exists(ctx context.Context, doc *document.Document) (found bool, err error) {
	start := time.Now()
	defer func() { s.observe("exists", start, err) }()

	ctx = s.docContext(ctx, doc)
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) (bool, error) {
		var names []string
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID()).Limit(1).Pluck("full_name", &names).Error; err != nil {
			return false, types.Wrap(err, types.CodeCheckExistsDoc, doc.Ref.String(), "Exception while checking document existence")
		}
		return len(names) == 1 && names[0] == doc.FullName(), nil
	})
}

// Load fills doc from storage and returns it. A document that is not stored comes back
// marked new, with an empty original.
func (s *Store) Load(ctx context.Context, doc *document.Document) (_ *document.Document, err error) {
	start := time.Now()
	defer func() { s.observe("load", start, err) }()

	ctx = s.docContext(ctx, doc)
	err = s.gateway.ExecuteRead(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return types.Wrap(s.load(tx, doc), types.CodeReadingDoc, doc.Ref.String(), "Exception while reading document")
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) load(tx *gorm.DB, doc *document.Document) error {
	var row models.Document
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Where("id = ?", doc.ID()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		doc.SetNew(true)
		doc.SetOriginal(document.New(doc.Ref, doc.Locale))
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.fromRow(&row, doc); err != nil {
		return err
	}
	if row.HasElement(models.ElementAttachments) {
		if err := s.loadAttachments(tx, doc); err != nil {
			return err
		}
	}
	if row.HasElement(models.ElementObjects) {
		if err := s.loadObjects(tx, doc); err != nil {
			return types.Wrap(err, types.CodeLoadingObject, doc.Ref.String(), "Exception while loading objects")
		}
	}

	doc.SetNew(false)
	doc.ClearDirty()
	doc.SetStore(Name)
	doc.SetOriginal(doc.Clone())
	return nil
}

func (s *Store) fromRow(row *models.Document, doc *document.Document) error {
	doc.Locale = row.Language
	doc.DefaultLocale = row.DefaultLanguage
	doc.Translation = row.Translation != 0
	doc.Title = row.Title
	doc.Parent = row.Parent
	doc.Content = string(row.Content)
	doc.Syntax = row.Syntax
	doc.Author = row.Author
	doc.ContentAuthor = row.ContentAuthor
	doc.Creator = row.Creator
	doc.Comment = row.Comment
	doc.MinorEdit = row.MinorEdit
	doc.Hidden = row.Hidden
	doc.CreationDate = row.CreationDate
	doc.Date = row.Date
	doc.ContentUpdateDate = row.ContentUpdateDate

	v, err := document.ParseVersion(row.Version)
	if err != nil {
		return err
	}
	doc.Version = v

	if row.ClassXML == "" {
		return nil
	}
	class, err := document.ClassFromXML(string(row.ClassXML))
	if err != nil {
		return err
	}
	doc.SetClass(class)
	if class.CustomMapping != "" {
		if _, err := s.registry.InjectMapping(class.Name, class.CustomMapping, class); err != nil {
			s.log.Warn().Err(err).Str("class", class.Name).Msg("custom mapping not activated")
		}
	}
	return nil
}
