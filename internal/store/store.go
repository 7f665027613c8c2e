// store.go
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

// Package store persists wiki documents: the document row, typed objects and their
// properties, attachment metadata, outgoing links and edit locks.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/metrics"
	"github.com/localnerve/docstore/internal/property"
	"github.com/localnerve/docstore/internal/schema"
	"github.com/localnerve/docstore/internal/session"
	"github.com/rs/zerolog"
)

// Name is the provenance recorded on documents loaded or saved here
const Name = "database"

// MaxCommentLength bounds the stored edit comment
const MaxCommentLength = 1023

// Persister is the minimal document persistence contract
type Persister interface {
	Exists(ctx context.Context, doc *document.Document) (bool, error)
	Load(ctx context.Context, doc *document.Document) (*document.Document, error)
	Save(ctx context.Context, doc *document.Document) error
	Delete(ctx context.Context, doc *document.Document) error
}

// DocumentStore is every operation of the store. Decorators embed it so the
// operations they do not override pass through.
type DocumentStore interface {
	Persister

	SearchDocumentNames(ctx context.Context, where string, limit, offset int, params ...any) ([]string, error)
	SearchDocuments(ctx context.Context, where string, limit, offset int, params ...any) ([]*document.Document, error)
	CountDocuments(ctx context.Context, where string, params ...any) (int64, error)
	GetClassList(ctx context.Context) ([]string, error)
	GetTranslationList(ctx context.Context, doc *document.Document) ([]string, error)
	MigratePropertyStorage(ctx context.Context, className, field string, to property.Kind) (int, error)

	SaveLinks(ctx context.Context, doc *document.Document) error
	LoadLinks(ctx context.Context, doc *document.Document) ([]string, error)
	LoadBacklinks(ctx context.Context, ref document.Reference) ([]string, error)
	DeleteLinks(ctx context.Context, doc *document.Document) error

	LoadLock(ctx context.Context, doc *document.Document) (*Lock, error)
	SaveLock(ctx context.Context, lock *Lock) error
	DeleteLock(ctx context.Context, doc *document.Document) error
	ReleaseLocks(ctx context.Context, user string) int64
}

// ContentStore keeps attachment binaries; Hint names the backend on the attachment row.
// Implementations join the unit of work carried by ctx.
type ContentStore interface {
	Hint() string
	SaveContent(ctx context.Context, a *document.Attachment) error
	LoadContent(ctx context.Context, a *document.Attachment) error
	DeleteContent(ctx context.Context, a *document.Attachment) error
	ContentExists(ctx context.Context, a *document.Attachment) (bool, error)
}

// AttachmentArchiver keeps past binaries of attachments
type AttachmentArchiver interface {
	SaveVersion(ctx context.Context, a *document.Attachment) error
	DeleteArchive(ctx context.Context, a *document.Attachment) error
}

// Archiver keeps the revision history of documents
type Archiver interface {
	UpdateArchive(ctx context.Context, doc *document.Document) error
	SaveArchive(ctx context.Context, doc *document.Document, archive *document.Archive) error
	ContainsVersion(ctx context.Context, doc *document.Document, v document.Version) (bool, error)
	Delete(ctx context.Context, doc *document.Document) error
}

// Options toggles optional store behavior
type Options struct {
	Versioning bool
	Backlinks  bool
	// ContentStore is the hint used for attachments that name none
	ContentStore string
}

// OptionsFromConfig collects the store options from the application configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Versioning:   cfg.Store.Versioning,
		Backlinks:    cfg.Store.Backlinks,
		ContentStore: cfg.Store.AttachmentStore,
	}
}

// Store is the database document store
type Store struct {
	gateway  *session.Gateway
	registry *schema.Registry
	opts     Options
	metrics  *metrics.Metrics
	log      zerolog.Logger

	archive            Archiver
	contents           map[string]ContentStore
	attachmentArchiver AttachmentArchiver
	links              LinkExtractor

	saving keyedMutex
}

// New creates a store running its units of work through gw
func New(gw *session.Gateway, reg *schema.Registry, opts Options, m *metrics.Metrics, log zerolog.Logger) *Store {
	if opts.ContentStore == "" {
		opts.ContentStore = "database"
	}
	return &Store{
		gateway:  gw,
		registry: reg,
		opts:     opts,
		metrics:  m,
		log:      log,
		contents: map[string]ContentStore{},
		links:    WikiLinkExtractor{},
	}
}

// SetArchiver installs the revision archive used when versioning is on
func (s *Store) SetArchiver(a Archiver) {
	s.archive = a
}

// RegisterContentStore makes an attachment backend available under its hint
func (s *Store) RegisterContentStore(cs ContentStore) {
	s.contents[cs.Hint()] = cs
}

// SetAttachmentArchiver installs the attachment binary history
func (s *Store) SetAttachmentArchiver(a AttachmentArchiver) {
	s.attachmentArchiver = a
}

// SetLinkExtractor replaces the default wiki link scanner
func (s *Store) SetLinkExtractor(l LinkExtractor) {
	s.links = l
}

// Gateway returns the session gateway of the store
func (s *Store) Gateway() *session.Gateway {
	return s.gateway
}

// contentStore returns the backend for hint, falling back to the default hint
func (s *Store) contentStore(hint string) (ContentStore, bool) {
	if hint == "" {
		hint = s.opts.ContentStore
	}
	cs, ok := s.contents[hint]
	return cs, ok
}

// docContext addresses the wiki of doc when the reference names one
func (s *Store) docContext(ctx context.Context, doc *document.Document) context.Context {
	if doc.Ref.Wiki != "" {
		return session.WithWiki(ctx, doc.Ref.Wiki)
	}
	return ctx
}

func (s *Store) wikiOf(ctx context.Context, doc *document.Document) string {
	if doc.Ref.Wiki != "" {
		return doc.Ref.Wiki
	}
	return s.gateway.Wiki(ctx)
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, start, err)
}

// keyedMutex serializes work per key; entries are dropped once unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*refMutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
