// locks.go
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
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Lock is the advisory edit lock a user holds on a document
type Lock struct {
	Ref   document.Reference
	DocID int64
	User  string
	Date  time.Time
}

// NewLock creates a lock of user on doc, dated now
func NewLock(doc *document.Document, user string) *Lock {
	return &Lock{Ref: doc.Ref, DocID: doc.ID(), User: user, Date: time.Now().Truncate(time.Second)}
}

// LoadLock returns the lock on doc, or nil when it is not locked
func (s *Store) LoadLock(ctx context.Context, doc *document.Document) (*Lock, error) {
	ctx = s.docContext(ctx, doc)
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) (*Lock, error) {
		var row models.Lock
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("doc_id = ?", doc.ID()).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, types.Wrap(err, types.CodeLocks, doc.Ref.String(), "Exception while loading lock")
		}
		return &Lock{Ref: doc.Ref, DocID: row.DocID, User: row.UserName, Date: row.Date}, nil
	})
}

// SaveLock records lock, replacing any lock on the same document
func (s *Store) SaveLock(ctx context.Context, lock *Lock) error {
	if lock.Ref.Wiki != "" {
		ctx = session.WithWiki(ctx, lock.Ref.Wiki)
	}
	return s.gateway.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		row := models.Lock{DocID: lock.DocID, UserName: lock.User, Date: lock.Date}
		err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
		return types.Wrap(err, types.CodeLocks, lock.Ref.String(), "Exception while saving lock")
	})
}

// DeleteLock removes the lock on doc
func (s *Store) DeleteLock(ctx context.Context, doc *document.Document) error {
	ctx = s.docContext(ctx, doc)
	return s.gateway.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		err := tx.Where("doc_id = ?", doc.ID()).Delete(&models.Lock{}).Error
		return types.Wrap(err, types.CodeLocks, doc.Ref.String(), "Exception while deleting lock")
	})
}

// ReleaseLocks drops every lock held by user in the wiki of ctx and reports how many went.
// It runs in its own unit and never fails; errors are logged.
func (s *Store) ReleaseLocks(ctx context.Context, user string) int64 {
	n, ok := session.FailSafe(ctx, s.gateway, true, func(ctx context.Context, tx *gorm.DB) (int64, error) {
		res := tx.Where("user_name = ?", user).Delete(&models.Lock{})
		return res.RowsAffected, res.Error
	})
	if !ok {
		s.log.Warn().Str("user", user).Msg("failed to release locks")
	}
	return n
}
