// cache.go
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

// Package cache puts two LRU caches in front of a document store: loaded documents and
// existence answers. Entries are dropped on every write, never updated in place.
package cache

import (
	"context"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/events"
	"github.com/localnerve/docstore/internal/metrics"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/store"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
)

// Default capacities
const (
	DefaultCapacity      = 500
	DefaultExistCapacity = 10000
)

// Options sizes the caches. MainWiki keys documents whose reference names no wiki and
// whose context carries none.
type Options struct {
	Capacity      int
	ExistCapacity int
	MainWiki      string
}

// Store is a caching decorator; operations it does not override go to the inner store
type Store struct {
	store.DocumentStore

	docs     *lru.Cache[string, *document.Document]
	exists   *lru.Cache[string, bool]
	mainWiki string
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

var _ events.Listener = (*Store)(nil)

// New wraps inner
func New(inner store.DocumentStore, opts Options, m *metrics.Metrics, log zerolog.Logger) (*Store, error) {
	if opts.Capacity < 1 {
		opts.Capacity = DefaultCapacity
	}
	if opts.ExistCapacity < 1 {
		opts.ExistCapacity = DefaultExistCapacity
	}
	docs, err := lru.New[string, *document.Document](opts.Capacity)
	if err != nil {
		return nil, types.Wrap(err, types.CodeCache, "", "Exception while creating the document cache")
	}
	exists, err := lru.New[string, bool](opts.ExistCapacity)
	if err != nil {
		return nil, types.Wrap(err, types.CodeCache, "", "Exception while creating the existence cache")
	}
	return &Store{
		DocumentStore: inner,
		docs:          docs,
		exists:        exists,
		mainWiki:      opts.MainWiki,
		metrics:       m,
		log:           log.With().Str("component", "cache").Logger(),
	}, nil
}

func (s *Store) wiki(ctx context.Context, ref document.Reference) string {
	if ref.Wiki != "" {
		return ref.Wiki
	}
	if w, ok := session.WikiFromContext(ctx); ok {
		return w
	}
	return s.mainWiki
}

func (s *Store) key(ctx context.Context, doc *document.Document) string {
	return document.Key(doc.Ref.WithWiki(s.wiki(ctx, doc.Ref)), doc.Locale)
}

// Load serves doc from the cache when possible. Cached documents are handed out as copies
// marked as coming from the cache. Results read inside a caller's unit of work are not cached.
func (s *Store) Load(ctx context.Context, doc *document.Document) (*document.Document, error) {
	key := s.key(ctx, doc)
	if cached, ok := s.docs.Get(key); ok {
		s.metrics.CacheHit("document")
		out := cached.Clone()
		out.SetFromCache(true)
		return out, nil
	}
	s.metrics.CacheMiss("document")

	if found, ok := s.exists.Get(key); ok && !found {
		s.metrics.CacheHit("exists")
		doc.SetNew(true)
		doc.SetOriginal(document.New(doc.Ref, doc.Locale))
		doc.SetFromCache(true)
		return doc, nil
	}

	loaded, err := s.DocumentStore.Load(ctx, doc)
	if err != nil {
		return nil, err
	}
	if session.InUnit(ctx) {
		return loaded, nil
	}
	if loaded.IsNew() {
		s.exists.Add(key, false)
		return loaded, nil
	}
	s.docs.Add(key, loaded.Clone())
	s.exists.Add(key, true)
	return loaded, nil
}

// Exists answers from either cache before asking the inner store
func (s *Store) Exists(ctx context.Context, doc *document.Document) (bool, error) {
	key := s.key(ctx, doc)
	if found, ok := s.exists.Get(key); ok {
		s.metrics.CacheHit("exists")
		return found, nil
	}
	if s.docs.Contains(key) {
		s.metrics.CacheHit("exists")
		return true, nil
	}
	s.metrics.CacheMiss("exists")

	found, err := s.DocumentStore.Exists(ctx, doc)
	if err != nil {
		return false, err
	}
	if !session.InUnit(ctx) {
		s.exists.Add(key, found)
	}
	return found, nil
}

// Save writes through and drops the cached entries of doc. Inside a caller's unit of work
// they are dropped again once it commits, since readers outside the unit keep caching the
// previous row until then.
func (s *Store) Save(ctx context.Context, doc *document.Document) error {
	key := s.key(ctx, doc)
	err := s.DocumentStore.Save(ctx, doc)
	s.invalidate(key, "save")
	if err == nil && session.InUnit(ctx) {
		session.AfterCommit(ctx, func() { s.invalidate(key, "commit") })
	}
	return err
}

// Delete writes through and remembers doc as missing once the deletion is committed
func (s *Store) Delete(ctx context.Context, doc *document.Document) error {
	key := s.key(ctx, doc)
	err := s.DocumentStore.Delete(ctx, doc)
	s.invalidate(key, "delete")
	if err == nil {
		session.AfterCommit(ctx, func() {
			s.docs.Remove(key)
			s.exists.Add(key, false)
		})
	}
	return err
}

func (s *Store) invalidate(key, reason string) {
	s.docs.Remove(key)
	s.exists.Remove(key)
	s.metrics.CacheEviction(reason)
}

// OnEvent drops entries changed by another cluster node. Local changes are already handled
// by Save and Delete. A deleted wiki loses every entry.
func (s *Store) OnEvent(e events.Event) {
	if e.Kind == events.WikiDeleted {
		n := s.FlushWiki(e.Wiki)
		s.log.Debug().Str("wiki", e.Wiki).Int("entries", n).Msg("flushed wiki from cache")
		return
	}
	if !e.Remote {
		return
	}
	ref := e.Reference
	if ref.Wiki == "" {
		ref.Wiki = e.Wiki
	}
	s.invalidate(document.Key(ref, e.Locale), "remote")
}

// FlushWiki drops every entry of wiki and reports how many documents were cached
func (s *Store) FlushWiki(wiki string) int {
	prefix := strconv.Itoa(len(wiki)) + ":" + wiki
	n := 0
	for _, k := range s.docs.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.docs.Remove(k)
			n++
		}
	}
	for _, k := range s.exists.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.exists.Remove(k)
		}
	}
	s.metrics.CacheEviction("wiki")
	return n
}

// Purge empties both caches
func (s *Store) Purge() {
	s.docs.Purge()
	s.exists.Purge()
	s.metrics.CacheEviction("purge")
}

// Stats reports the current entry counts
func (s *Store) Stats() (documents, existence int) {
	return s.docs.Len(), s.exists.Len()
}
