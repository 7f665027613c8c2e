// archive.go
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

package attachment

import (
	"context"
	"errors"
	"sort"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ArchiveStore keeps every saved binary of an attachment, one row per version
type ArchiveStore struct {
	gateway *session.Gateway
}

// NewArchiveStore creates the attachment history
func NewArchiveStore(gw *session.Gateway) *ArchiveStore {
	return &ArchiveStore{gateway: gw}
}

// SaveVersion records the in-memory binary of a as its current version
func (s *ArchiveStore) SaveVersion(ctx context.Context, a *document.Attachment) error {
	data, _ := a.Content()
	return s.gateway.ExecuteWrite(withWiki(ctx, a), func(ctx context.Context, tx *gorm.DB) error {
		row := models.AttachmentArchive{
			AttachmentID: a.ID(),
			Version:      a.Version.String(),
			Author:       a.Author,
			Date:         a.Date,
			Content:      nonNil(data),
		}
		err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
		return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while archiving attachment")
	})
}

// DeleteArchive removes the whole history of a
func (s *ArchiveStore) DeleteArchive(ctx context.Context, a *document.Attachment) error {
	return s.gateway.ExecuteWrite(withWiki(ctx, a), func(ctx context.Context, tx *gorm.DB) error {
		err := tx.Where("attachment_id = ?", a.ID()).Delete(&models.AttachmentArchive{}).Error
		return types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while deleting attachment history")
	})
}

// Versions lists the archived versions of a, oldest first
func (s *ArchiveStore) Versions(ctx context.Context, a *document.Attachment) ([]document.Version, error) {
	return session.Read(withWiki(ctx, a), s.gateway, func(ctx context.Context, tx *gorm.DB) ([]document.Version, error) {
		var raw []string
		err := tx.Model(&models.AttachmentArchive{}).Where("attachment_id = ?", a.ID()).Pluck("version", &raw).Error
		if err != nil {
			return nil, types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while listing attachment versions")
		}
		out := make([]document.Version, 0, len(raw))
		for _, r := range raw {
			if v, err := document.ParseVersion(r); err == nil {
				out = append(out, v)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
		return out, nil
	})
}

// LoadVersion returns a copy of a holding its binary at version v
func (s *ArchiveStore) LoadVersion(ctx context.Context, a *document.Attachment, v document.Version) (*document.Attachment, error) {
	return session.Read(withWiki(ctx, a), s.gateway, func(ctx context.Context, tx *gorm.DB) (*document.Attachment, error) {
		var row models.AttachmentArchive
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("attachment_id = ? AND version = ?", a.ID(), v.String()).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.ErrVersionNotFound, types.CodeAttachmentContent, a.Filename,
				"Attachment version "+v.String()+" does not exist", err)
		}
		if err != nil {
			return nil, types.Wrap(err, types.CodeAttachmentContent, a.Filename, "Exception while loading attachment version")
		}
		rev := a.Clone()
		rev.Version = v
		rev.Author = row.Author
		rev.Date = row.Date
		rev.SetLoadedContent(row.Content)
		return rev, nil
	})
}
