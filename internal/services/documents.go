// documents.go
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

package services

import (
	"context"
	"time"

	"github.com/localnerve/docstore/internal/archive"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/events"
	"github.com/localnerve/docstore/internal/recyclebin"
	"github.com/localnerve/docstore/internal/schema"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/store"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AttachmentLoader reads attachment binaries on demand
type AttachmentLoader interface {
	LoadAttachmentContent(ctx context.Context, a *document.Attachment) error
}

// DocumentService applies the document lifecycle on top of the stores: deleted documents go
// to the recycle bin, and every change is published on the event bus.
type DocumentService struct {
	gateway     *session.Gateway
	docs        store.DocumentStore
	attachments AttachmentLoader
	archive     *archive.Store
	bin         *recyclebin.Bin
	registry    *schema.Registry
	bus         *events.Bus
	log         zerolog.Logger

	now func() time.Time
}

// DocumentServiceConfig lists the collaborators of a DocumentService. Bin may be nil when
// the recycle bin is disabled; Archive may be nil when versioning is off.
type DocumentServiceConfig struct {
	Gateway     *session.Gateway
	Documents   store.DocumentStore
	Attachments AttachmentLoader
	Archive     *archive.Store
	Bin         *recyclebin.Bin
	Registry    *schema.Registry
	Bus         *events.Bus
}

// NewDocumentService creates the service
func NewDocumentService(cfg DocumentServiceConfig, log zerolog.Logger) *DocumentService {
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus(log)
	}
	return &DocumentService{
		gateway:     cfg.Gateway,
		docs:        cfg.Documents,
		attachments: cfg.Attachments,
		archive:     cfg.Archive,
		bin:         cfg.Bin,
		registry:    cfg.Registry,
		bus:         bus,
		log:         log.With().Str("component", "documents").Logger(),
		now:         time.Now,
	}
}

// Bus returns the event bus the service publishes on
func (s *DocumentService) Bus() *events.Bus {
	return s.bus
}

// RecycleBinEnabled reports whether deleted documents are kept
func (s *DocumentService) RecycleBinEnabled() bool {
	return s.bin != nil
}

func (s *DocumentService) docContext(ctx context.Context, ref document.Reference) context.Context {
	if ref.Wiki != "" {
		return session.WithWiki(ctx, ref.Wiki)
	}
	return ctx
}

func (s *DocumentService) publish(ctx context.Context, kind events.Kind, doc *document.Document) {
	wiki := doc.Ref.Wiki
	if wiki == "" {
		wiki = s.gateway.Wiki(ctx)
	}
	s.bus.Publish(events.Event{
		Kind:      kind,
		Wiki:      wiki,
		Reference: doc.Ref.WithWiki(wiki),
		Locale:    doc.Locale,
	})
}

// Load returns the document at ref in locale. A missing document comes back marked new.
func (s *DocumentService) Load(ctx context.Context, ref document.Reference, locale string) (*document.Document, error) {
	return s.docs.Load(s.docContext(ctx, ref), document.New(ref, locale))
}

// Exists reports whether the document at ref in locale is stored
func (s *DocumentService) Exists(ctx context.Context, ref document.Reference, locale string) (bool, error) {
	return s.docs.Exists(s.docContext(ctx, ref), document.New(ref, locale))
}

// Save stores doc and publishes its creation or update
func (s *DocumentService) Save(ctx context.Context, doc *document.Document) error {
	ctx = s.docContext(ctx, doc.Ref)
	created := doc.IsNew()
	if err := s.docs.Save(ctx, doc); err != nil {
		return err
	}
	if created {
		s.publish(ctx, events.DocumentCreated, doc)
	} else {
		s.publish(ctx, events.DocumentUpdated, doc)
	}
	return nil
}

// loadContents reads every attachment binary of doc so the recycle bin snapshot carries it
func (s *DocumentService) loadContents(ctx context.Context, doc *document.Document) error {
	if s.attachments == nil {
		return nil
	}
	for _, a := range doc.Attachments() {
		if a.ContentLoaded() {
			continue
		}
		if err := s.attachments.LoadAttachmentContent(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes doc on behalf of deleter. With the recycle bin enabled the document is
// recorded there first, in the same unit of work, and the record index is returned.
func (s *DocumentService) Delete(ctx context.Context, doc *document.Document, deleter string) (int64, error) {
	ctx = s.docContext(ctx, doc.Ref)
	var index int64
	err := s.gateway.ExecuteWrite(ctx, func(ctx context.Context, _ *gorm.DB) error {
		if s.bin != nil {
			if err := s.loadContents(ctx, doc); err != nil {
				return err
			}
			idx, err := s.bin.MoveToBin(ctx, doc, deleter, s.now(), "")
			if err != nil {
				return err
			}
			index = idx
		}
		return s.docs.Delete(ctx, doc)
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events.DocumentDeleted, doc)
	return index, nil
}

// DeleteBatch removes docs together. With the recycle bin enabled they share one batch id,
// which is returned. Every document must belong to the same wiki.
func (s *DocumentService) DeleteBatch(ctx context.Context, docs []*document.Document, deleter string) (string, error) {
	if len(docs) == 0 {
		return "", nil
	}
	wiki := docs[0].Ref.Wiki
	for _, doc := range docs[1:] {
		if doc.Ref.Wiki != wiki {
			return "", types.NewError(types.ErrInvalidArgument, types.CodeDeletingDoc, doc.Ref.String(),
				"Documents of a batch must belong to one wiki", nil)
		}
	}

	ctx = s.docContext(ctx, docs[0].Ref)
	var batchID string
	err := s.gateway.ExecuteWrite(ctx, func(ctx context.Context, _ *gorm.DB) error {
		if s.bin != nil {
			for _, doc := range docs {
				if err := s.loadContents(ctx, doc); err != nil {
					return err
				}
			}
			id, _, err := s.bin.MoveBatch(ctx, docs, deleter, s.now())
			if err != nil {
				return err
			}
			batchID = id
		}
		for _, doc := range docs {
			if err := s.docs.Delete(ctx, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	for _, doc := range docs {
		s.publish(ctx, events.DocumentDeleted, doc)
	}
	return batchID, nil
}

func (s *DocumentService) requireBin() error {
	if s.bin == nil {
		return types.NewError(types.ErrInvalidArgument, types.CodeRecycleBin, "", "The recycle bin is disabled", nil)
	}
	return nil
}

// DeletedDocument returns the recycle bin record of index if user may view it
func (s *DocumentService) DeletedDocument(ctx context.Context, index int64, user string) (*recyclebin.Record, error) {
	if err := s.requireBin(); err != nil {
		return nil, err
	}
	rec, err := s.bin.Peek(ctx, index)
	if err != nil {
		return nil, err
	}
	if err := s.bin.CheckAccess(ctx, recyclebin.RightView, user, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeletedDocuments lists the recycle bin, newest first, keeping the records user may view
func (s *DocumentService) DeletedDocuments(ctx context.Context, user string, limit, offset int) ([]*recyclebin.Record, error) {
	if err := s.requireBin(); err != nil {
		return nil, err
	}
	recs, err := s.bin.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, recs, user), nil
}

func (s *DocumentService) visible(ctx context.Context, recs []*recyclebin.Record, user string) []*recyclebin.Record {
	out := recs[:0]
	for _, rec := range recs {
		if s.bin.CheckAccess(ctx, recyclebin.RightView, user, rec) == nil {
			out = append(out, rec)
		}
	}
	return out
}

// DeletedVersions lists the recycle bin records of the document at ref in locale that
// user may view, newest first
func (s *DocumentService) DeletedVersions(ctx context.Context, ref document.Reference, locale, user string) ([]*recyclebin.Record, error) {
	if err := s.requireBin(); err != nil {
		return nil, err
	}
	recs, err := s.bin.ListFor(ctx, document.New(ref, locale))
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, recs, user), nil
}

// Restore brings back the document recorded under index on behalf of user. The document
// must not exist again; its record is purged once it is saved.
func (s *DocumentService) Restore(ctx context.Context, index int64, user string) (*document.Document, error) {
	if err := s.requireBin(); err != nil {
		return nil, err
	}
	rec, err := s.bin.Peek(ctx, index)
	if err != nil {
		return nil, err
	}
	if err := s.bin.CheckAccess(ctx, recyclebin.RightRestore, user, rec); err != nil {
		return nil, err
	}

	ctx = s.docContext(ctx, rec.Ref)
	var doc *document.Document
	err = s.gateway.ExecuteWrite(ctx, func(ctx context.Context, _ *gorm.DB) error {
		restored, err := s.bin.Restore(ctx, index)
		if err != nil {
			return err
		}
		exists, err := s.docs.Exists(ctx, restored)
		if err != nil {
			return err
		}
		if exists {
			return types.NewError(types.ErrInvalidArgument, types.CodeRecycleBin, restored.Ref.String(),
				"A document with the same name already exists", nil)
		}
		if err := s.docs.Save(ctx, restored); err != nil {
			return err
		}
		doc = restored
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.bin.Purge(ctx, index); err != nil {
		s.log.Warn().Err(err).Int64("index", index).Str("document", doc.Ref.String()).
			Msg("restored document is still in the recycle bin")
	}
	s.publish(ctx, events.DocumentCreated, doc)
	return doc, nil
}

// Purge permanently removes the record of index on behalf of user
func (s *DocumentService) Purge(ctx context.Context, index int64, user string) error {
	if err := s.requireBin(); err != nil {
		return err
	}
	rec, err := s.bin.Peek(ctx, index)
	if err != nil {
		return err
	}
	if err := s.bin.CheckAccess(ctx, recyclebin.RightPurge, user, rec); err != nil {
		return err
	}
	return s.bin.Purge(ctx, index)
}

// Versions lists the revisions of the document at ref matching c and counts all of them
func (s *DocumentService) Versions(ctx context.Context, ref document.Reference, locale string, c archive.Criteria) ([]document.RevisionInfo, int64, error) {
	if s.archive == nil {
		return nil, 0, nil
	}
	doc := document.New(ref, locale)
	ctx = s.docContext(ctx, ref)
	total, err := s.archive.VersionsCount(ctx, doc, c)
	if err != nil {
		return nil, 0, err
	}
	revs, err := s.archive.Versions(ctx, doc, c)
	if err != nil {
		return nil, 0, err
	}
	return revs, total, nil
}

// Revision rebuilds the document at ref as it was at version v
func (s *DocumentService) Revision(ctx context.Context, ref document.Reference, locale string, v document.Version) (*document.Document, error) {
	if s.archive == nil {
		return nil, types.NewError(types.ErrNotFound, types.CodeArchive, ref.String(), "Versioning is disabled", nil)
	}
	return s.archive.LoadRevision(s.docContext(ctx, ref), document.New(ref, locale), v)
}

// Backlinks lists the documents linking to ref
func (s *DocumentService) Backlinks(ctx context.Context, ref document.Reference) ([]string, error) {
	return s.docs.LoadBacklinks(s.docContext(ctx, ref), ref)
}

// Translations lists the stored locales of the document at ref
func (s *DocumentService) Translations(ctx context.Context, ref document.Reference) ([]string, error) {
	return s.docs.GetTranslationList(s.docContext(ctx, ref), document.New(ref, ""))
}

// Logout releases every edit lock held by user
func (s *DocumentService) Logout(ctx context.Context, user string) int64 {
	return s.docs.ReleaseLocks(ctx, user)
}
