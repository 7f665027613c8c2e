// search.go
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
	"strings"
	"time"

	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

const searchComment = "docstore search"

// filterSQL escapes backslashes for the products reading them as escapes in literals
func filterSQL(p database.Product, sql string) string {
	switch p {
	case database.ProductMySQL, database.ProductMariaDB:
		return strings.ReplaceAll(sql, `\`, `\\`)
	}
	return sql
}

// paginate wraps query so limit and offset are applied by the dialect
func paginate(tx *gorm.DB, query string, limit, offset int, params []any) *gorm.DB {
	q := tx.Table("(?) AS q", tx.Raw(query, params...)).
		Clauses(hints.CommentBefore("select", searchComment))
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// Search runs a read-only query in the wiki of ctx and scans the rows into T. Parameters are
// bound positionally; limit and offset apply when positive.
func Search[T any](ctx context.Context, s *Store, query string, limit, offset int, params ...any) ([]T, error) {
	start := time.Now()
	out, err := session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) ([]T, error) {
		var rows []T
		err := paginate(tx, filterSQL(s.registry.Product(), query), limit, offset, params).Scan(&rows).Error
		return rows, types.Wrap(err, types.CodeSearch, query, "Exception while searching")
	})
	s.observe("search", start, err)
	return out, err
}

// SearchDocumentNames returns the distinct document names matching where, a clause
// appended to the documents table such as "WHERE space = ? ORDER BY full_name"
func (s *Store) SearchDocumentNames(ctx context.Context, where string, limit, offset int, params ...any) ([]string, error) {
	return Search[string](ctx, s, "SELECT DISTINCT full_name FROM documents "+where, limit, offset, params...)
}

// SearchDocuments loads the default locale documents named by SearchDocumentNames
func (s *Store) SearchDocuments(ctx context.Context, where string, limit, offset int, params ...any) ([]*document.Document, error) {
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) ([]*document.Document, error) {
		names, err := s.SearchDocumentNames(ctx, where, limit, offset, params...)
		if err != nil {
			return nil, err
		}
		wiki := s.gateway.Wiki(ctx)
		docs := make([]*document.Document, 0, len(names))
		for _, name := range names {
			doc, err := s.Load(ctx, document.New(document.NewReference(wiki, name), ""))
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		return docs, nil
	})
}

// CountDocuments counts the distinct document names matching where
func (s *Store) CountDocuments(ctx context.Context, where string, params ...any) (int64, error) {
	query := filterSQL(s.registry.Product(), "SELECT count(DISTINCT full_name) FROM documents "+where)
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) (int64, error) {
		var n int64
		err := tx.Raw(query, params...).Scan(&n).Error
		return n, types.Wrap(err, types.CodeSearch, query, "Exception while counting documents")
	})
}

// GetClassList returns the names of documents defining a class
func (s *Store) GetClassList(ctx context.Context) ([]string, error) {
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) ([]string, error) {
		var names []string
		err := tx.Model(&models.Document{}).
			Clauses(hints.CommentBefore("select", searchComment)).
			Distinct("full_name").
			Where("class_xml LIKE ?", "<%").
			Order("full_name").
			Pluck("full_name", &names).Error
		return names, types.Wrap(err, types.CodeSearch, "", "Exception while listing classes")
	})
}

// GetTranslationList returns the locales doc is translated to
func (s *Store) GetTranslationList(ctx context.Context, doc *document.Document) ([]string, error) {
	ctx = s.docContext(ctx, doc)
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) ([]string, error) {
		var locales []string
		err := tx.Model(&models.Document{}).
			Where("full_name = ? AND language <> ?", doc.FullName(), "").
			Order("language").
			Pluck("language", &locales).Error
		return locales, types.Wrap(err, types.CodeSearch, doc.Ref.String(), "Exception while listing translations")
	})
}
