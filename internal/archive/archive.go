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

// Package archive keeps the revision history of documents. Every revision is one row;
// periodic rows hold the full serialized document and the others a patch against the
// revision before them.
package archive

import (
	"context"
	"time"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/metrics"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gorm.io/gorm"
)

// DefaultSnapshotInterval is the distance between full snapshots when none is configured
const DefaultSnapshotInterval = 25

// Criteria filters revision listings. Minor edits are left out unless IncludeMinor is set.
// Offset and Limit select a window of the matching revisions, oldest first; a zero Limit
// means no limit.
type Criteria struct {
	Author       string
	From         time.Time
	To           time.Time
	IncludeMinor bool
	Offset       int
	Limit        int
}

// AllVersions matches every revision
func AllVersions() Criteria {
	return Criteria{IncludeMinor: true}
}

// Store is the database revision archive
type Store struct {
	gateway  *session.Gateway
	interval int
	metrics  *metrics.Metrics
	log      zerolog.Logger
	dmp      *diffmatchpatch.DiffMatchPatch
}

// New creates an archive storing a full snapshot every interval revisions
func New(gw *session.Gateway, interval int, m *metrics.Metrics, log zerolog.Logger) *Store {
	if interval < 1 {
		interval = DefaultSnapshotInterval
	}
	return &Store{
		gateway:  gw,
		interval: interval,
		metrics:  m,
		log:      log.With().Str("component", "archive").Logger(),
		dmp:      diffmatchpatch.New(),
	}
}

func docContext(ctx context.Context, doc *document.Document) context.Context {
	if doc.Ref.Wiki != "" {
		return session.WithWiki(ctx, doc.Ref.Wiki)
	}
	return ctx
}

func nodeVersion(n models.ArchiveNode) document.Version {
	return document.Version{Major: n.Major, Minor: n.Minor}
}

func loadNodes(tx *gorm.DB, docID int64) ([]models.ArchiveNode, error) {
	var nodes []models.ArchiveNode
	err := tx.Where("doc_id = ?", docID).Order("major, minor").Find(&nodes).Error
	return nodes, err
}

// Load returns the archive of doc. A document never archived has an empty archive.
func (s *Store) Load(ctx context.Context, doc *document.Document) (*document.Archive, error) {
	start := time.Now()
	a, err := session.Read(docContext(ctx, doc), s.gateway, func(ctx context.Context, tx *gorm.DB) (*document.Archive, error) {
		nodes, err := loadNodes(tx, doc.ID())
		if err != nil {
			return nil, types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while loading the document archive")
		}
		a := &document.Archive{DocID: doc.ID(), Nodes: make([]*document.ArchiveNode, 0, len(nodes))}
		for _, n := range nodes {
			a.Nodes = append(a.Nodes, &document.ArchiveNode{
				RevisionInfo: revisionInfo(n),
				Diff:         n.Diff,
				Content:      string(n.Patch),
			})
		}
		return a, nil
	})
	s.metrics.ObserveOperation("archive_load", start, err)
	return a, err
}

func revisionInfo(n models.ArchiveNode) document.RevisionInfo {
	return document.RevisionInfo{
		Version: nodeVersion(n),
		Date:    n.Date,
		Author:  n.Author,
		Comment: n.Comment,
		Minor:   n.MinorEdit,
	}
}

// UpdateArchive appends the current state of doc as its revision doc.Version, which must
// be newer than every archived revision
func (s *Store) UpdateArchive(ctx context.Context, doc *document.Document) error {
	start := time.Now()
	err := s.gateway.ExecuteWrite(docContext(ctx, doc), func(ctx context.Context, tx *gorm.DB) error {
		return types.Wrap(s.append(tx, doc), types.CodeArchive, doc.Ref.String(), "Exception while updating the document archive")
	})
	s.metrics.ObserveOperation("archive_update", start, err)
	return err
}

func (s *Store) append(tx *gorm.DB, doc *document.Document) error {
	if doc.Version.IsZero() {
		return types.NewError(types.ErrInvalidArgument, types.CodeArchive, doc.Ref.String(),
			"Cannot archive a document without version", nil)
	}
	content, err := doc.ToXML(document.XMLOptions{})
	if err != nil {
		return err
	}
	nodes, err := loadNodes(tx, doc.ID())
	if err != nil {
		return err
	}

	node := models.ArchiveNode{
		DocID:     doc.ID(),
		Major:     doc.Version.Major,
		Minor:     doc.Version.Minor,
		Date:      doc.Date,
		Author:    doc.Author,
		Comment:   doc.Comment,
		MinorEdit: doc.MinorEdit,
		Patch:     models.LargeText(content),
	}
	if n := len(nodes); n > 0 {
		if latest := nodeVersion(nodes[n-1]); doc.Version.Compare(latest) <= 0 {
			return types.NewError(types.ErrInvalidArgument, types.CodeArchiveVersion, doc.Ref.String(),
				"Version "+doc.Version.String()+" is not newer than archived version "+latest.String(), nil)
		}
		if n%s.interval != 0 {
			prev, err := s.reconstruct(nodes, n-1)
			if err != nil {
				return err
			}
			node.Diff = true
			node.Patch = models.LargeText(s.dmp.PatchToText(s.dmp.PatchMake(prev, string(content))))
		}
	}
	return tx.Create(&node).Error
}

// reconstruct rebuilds the content of nodes[idx] from the nearest full snapshot at or
// before it
func (s *Store) reconstruct(nodes []models.ArchiveNode, idx int) (string, error) {
	base := idx
	for base > 0 && nodes[base].Diff {
		base--
	}
	if nodes[base].Diff {
		return "", types.NewError(types.ErrStorageFailure, types.CodeArchive, "",
			"Archive has no full snapshot before version "+nodeVersion(nodes[idx]).String(), nil)
	}
	content := string(nodes[base].Patch)
	for i := base + 1; i <= idx; i++ {
		patches, err := s.dmp.PatchFromText(string(nodes[i].Patch))
		if err != nil {
			return "", types.NewError(types.ErrStorageFailure, types.CodeArchive, "",
				"Corrupted patch for version "+nodeVersion(nodes[i]).String(), err)
		}
		out, applied := s.dmp.PatchApply(patches, content)
		for _, ok := range applied {
			if !ok {
				return "", types.NewError(types.ErrStorageFailure, types.CodeArchive, "",
					"Patch for version "+nodeVersion(nodes[i]).String()+" does not apply", nil)
			}
		}
		content = out
	}
	return content, nil
}

// SaveArchive replaces the stored archive of doc with a. Versions must be strictly increasing.
func (s *Store) SaveArchive(ctx context.Context, doc *document.Document, a *document.Archive) error {
	start := time.Now()
	err := s.gateway.ExecuteWrite(docContext(ctx, doc), func(ctx context.Context, tx *gorm.DB) error {
		return types.Wrap(s.replace(tx, doc, a), types.CodeArchive, doc.Ref.String(), "Exception while saving the document archive")
	})
	s.metrics.ObserveOperation("archive_save", start, err)
	return err
}

func (s *Store) replace(tx *gorm.DB, doc *document.Document, a *document.Archive) error {
	rows := make([]models.ArchiveNode, 0, len(a.Nodes))
	var last document.Version
	for i, n := range a.Nodes {
		if i == 0 && n.Diff {
			return types.NewError(types.ErrInvalidArgument, types.CodeArchive, doc.Ref.String(),
				"The first revision of an archive must be a full snapshot", nil)
		}
		if i > 0 && n.Version.Compare(last) <= 0 {
			return types.NewError(types.ErrInvalidArgument, types.CodeArchiveVersion, doc.Ref.String(),
				"Archive versions must be strictly increasing at "+n.Version.String(), nil)
		}
		last = n.Version
		rows = append(rows, models.ArchiveNode{
			DocID:     doc.ID(),
			Major:     n.Version.Major,
			Minor:     n.Version.Minor,
			Date:      n.Date,
			Author:    n.Author,
			Comment:   n.Comment,
			MinorEdit: n.Minor,
			Diff:      n.Diff,
			Patch:     models.LargeText(n.Content),
		})
	}
	if err := tx.Where("doc_id = ?", doc.ID()).Delete(&models.ArchiveNode{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, 100).Error
}

// LoadRevision rebuilds doc as it was at version v. A document without any archived
// revision reports NotFound; an archive lacking v reports VersionNotFound.
func (s *Store) LoadRevision(ctx context.Context, doc *document.Document, v document.Version) (*document.Document, error) {
	start := time.Now()
	target := doc.Ref.String()
	rev, err := session.Read(docContext(ctx, doc), s.gateway, func(ctx context.Context, tx *gorm.DB) (*document.Document, error) {
		nodes, err := loadNodes(tx, doc.ID())
		if err != nil {
			return nil, types.Wrap(err, types.CodeArchive, target, "Exception while loading the document archive")
		}
		if len(nodes) == 0 {
			return nil, types.NewError(types.ErrNotFound, types.CodeArchive, target, "Document has no archive", nil)
		}
		idx := -1
		for i, n := range nodes {
			if nodeVersion(n) == v {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, types.NewError(types.ErrVersionNotFound, types.CodeArchiveVersion, target,
				"Version "+v.String()+" does not exist", nil)
		}
		content, err := s.reconstruct(nodes, idx)
		if err != nil {
			return nil, types.Wrap(err, types.CodeArchive, target, "Exception while rebuilding revision")
		}
		rev, err := document.FromXML([]byte(content))
		if err != nil {
			return nil, types.Wrap(err, types.CodeArchive, target, "Exception while parsing revision")
		}
		return rev, nil
	})
	s.metrics.ObserveOperation("archive_load_revision", start, err)
	if err != nil {
		return nil, err
	}
	rev.Version = v
	if rev.Ref.Wiki == "" {
		rev.Ref.Wiki = doc.Ref.Wiki
	}
	return rev, nil
}

// Reset drops the history of doc and archives its current state as a fresh full snapshot
func (s *Store) Reset(ctx context.Context, doc *document.Document) error {
	return s.gateway.ExecuteWrite(docContext(ctx, doc), func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Where("doc_id = ?", doc.ID()).Delete(&models.ArchiveNode{}).Error; err != nil {
			return types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while resetting the document archive")
		}
		return types.Wrap(s.append(tx, doc), types.CodeArchive, doc.Ref.String(), "Exception while resetting the document archive")
	})
}

// Delete removes every archived revision of doc
func (s *Store) Delete(ctx context.Context, doc *document.Document) error {
	return s.gateway.ExecuteWrite(docContext(ctx, doc), func(ctx context.Context, tx *gorm.DB) error {
		err := tx.Where("doc_id = ?", doc.ID()).Delete(&models.ArchiveNode{}).Error
		return types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while deleting the document archive")
	})
}

// ContainsVersion reports whether revision v of doc is archived
func (s *Store) ContainsVersion(ctx context.Context, doc *document.Document, v document.Version) (bool, error) {
	return session.Read(docContext(ctx, doc), s.gateway, func(ctx context.Context, tx *gorm.DB) (bool, error) {
		var n int64
		err := tx.Model(&models.ArchiveNode{}).
			Where("doc_id = ? AND major = ? AND minor = ?", doc.ID(), v.Major, v.Minor).
			Count(&n).Error
		if err != nil {
			return false, types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while reading the document archive")
		}
		return n > 0, nil
	})
}

func criteriaScope(docID int64, c Criteria) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("doc_id = ?", docID)
		if c.Author != "" {
			tx = tx.Where("author = ?", c.Author)
		}
		if !c.From.IsZero() {
			tx = tx.Where("date >= ?", c.From)
		}
		if !c.To.IsZero() {
			tx = tx.Where("date <= ?", c.To)
		}
		if !c.IncludeMinor {
			tx = tx.Where("minor_edit = ?", false)
		}
		return tx
	}
}

// Versions lists the revisions of doc matching c, oldest first, without their content
func (s *Store) Versions(ctx context.Context, doc *document.Document, c Criteria) ([]document.RevisionInfo, error) {
	return session.Read(docContext(ctx, doc), s.gateway, func(ctx context.Context, tx *gorm.DB) ([]document.RevisionInfo, error) {
		q := tx.Model(&models.ArchiveNode{}).
			Select("doc_id", "major", "minor", "date", "author", "comment", "minor_edit", "diff").
			Scopes(criteriaScope(doc.ID(), c)).
			Order("major, minor")
		if c.Offset > 0 {
			q = q.Offset(c.Offset)
		}
		if c.Limit > 0 {
			q = q.Limit(c.Limit)
		}
		var nodes []models.ArchiveNode
		if err := q.Find(&nodes).Error; err != nil {
			return nil, types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while listing revisions")
		}
		out := make([]document.RevisionInfo, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, revisionInfo(n))
		}
		return out, nil
	})
}

// VersionsCount counts the revisions of doc matching c, ignoring its window
func (s *Store) VersionsCount(ctx context.Context, doc *document.Document, c Criteria) (int64, error) {
	return session.Read(docContext(ctx, doc), s.gateway, func(ctx context.Context, tx *gorm.DB) (int64, error) {
		var n int64
		err := tx.Model(&models.ArchiveNode{}).Scopes(criteriaScope(doc.ID(), c)).Count(&n).Error
		if err != nil {
			return 0, types.Wrap(err, types.CodeArchive, doc.Ref.String(), "Exception while counting revisions")
		}
		return n, nil
	})
}
