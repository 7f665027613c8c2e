// links.go
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
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
)

// LinkExtractor finds the documents a document links to
type LinkExtractor interface {
	Links(doc *document.Document) []string
}

// WikiLinkExtractor scans content for [[label>>Target||params]] links
type WikiLinkExtractor struct{}

var wikiLink = regexp.MustCompile(`\[\[(?:[^\]>]*>>)?([^\]|]+)(?:\|\|[^\]]*)?\]\]`)

// Links returns the unique, sorted targets; queries, anchors and external urls are dropped
func (WikiLinkExtractor) Links(doc *document.Document) []string {
	var out []string
	for _, m := range wikiLink.FindAllStringSubmatch(doc.Content, -1) {
		target := strings.TrimSpace(m[1])
		if i := strings.IndexAny(target, "?#"); i >= 0 {
			target = target[:i]
		}
		if target == "" || strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") {
			continue
		}
		out = append(out, target)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// resolveLink qualifies a target relative to the space of doc, dropping a wiki prefix
func resolveLink(doc *document.Document, target string) string {
	if _, local, ok := strings.Cut(target, ":"); ok {
		target = local
	}
	if !strings.Contains(target, ".") {
		return doc.Ref.Space + "." + target
	}
	return target
}

func (s *Store) saveLinks(tx *gorm.DB, doc *document.Document) error {
	id := doc.ID()
	if err := deleteLinks(tx, id); err != nil {
		return err
	}
	if s.links == nil {
		return nil
	}

	self := doc.FullName()
	seen := map[string]bool{}
	var rows []models.Link
	for _, target := range s.links.Links(doc) {
		link := resolveLink(doc, target)
		if link == self || seen[link] {
			continue
		}
		seen[link] = true
		rows = append(rows, models.Link{DocID: id, Link: link, FullName: self})
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func deleteLinks(tx *gorm.DB, docID int64) error {
	return tx.Where("doc_id = ?", docID).Delete(&models.Link{}).Error
}

// SaveLinks replaces the stored outgoing links of doc
func (s *Store) SaveLinks(ctx context.Context, doc *document.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("save_links", start, err) }()

	ctx = s.docContext(ctx, doc)
	return s.gateway.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return types.Wrap(s.saveLinks(tx, doc), types.CodeSavingLinks, doc.Ref.String(), "Exception while saving links")
	})
}

// LoadLinks returns the stored outgoing links of doc
func (s *Store) LoadLinks(ctx context.Context, doc *document.Document) ([]string, error) {
	ctx = s.docContext(ctx, doc)
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) ([]string, error) {
		var links []string
		err := tx.Model(&models.Link{}).Where("doc_id = ?", doc.ID()).Order("link").Pluck("link", &links).Error
		return links, types.Wrap(err, types.CodeLoadingLinks, doc.Ref.String(), "Exception while loading links")
	})
}

// LoadBacklinks returns the names of documents linking to ref
func (s *Store) LoadBacklinks(ctx context.Context, ref document.Reference) ([]string, error) {
	if ref.Wiki != "" {
		ctx = session.WithWiki(ctx, ref.Wiki)
	}
	return session.Read(ctx, s.gateway, func(ctx context.Context, tx *gorm.DB) ([]string, error) {
		var names []string
		err := tx.Model(&models.Link{}).
			Distinct("full_name").
			Where("link = ?", ref.FullName()).
			Order("full_name").
			Pluck("full_name", &names).Error
		return names, types.Wrap(err, types.CodeLoadingLinks, ref.String(), "Exception while loading backlinks")
	})
}

// DeleteLinks removes the stored outgoing links of doc
func (s *Store) DeleteLinks(ctx context.Context, doc *document.Document) error {
	ctx = s.docContext(ctx, doc)
	return s.gateway.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return types.Wrap(deleteLinks(tx, doc.ID()), types.CodeDeletingLinks, doc.Ref.String(), "Exception while deleting links")
	})
}
