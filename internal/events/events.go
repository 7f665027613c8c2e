// events.go
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

// Package events carries document lifecycle notifications between stores and caches.
package events

import (
	"sync"

	"github.com/localnerve/docstore/internal/document"
	"github.com/rs/zerolog"
)

// Kind identifies what happened
type Kind int

const (
	DocumentCreated Kind = iota + 1
	DocumentUpdated
	DocumentDeleted
	WikiDeleted
)

func (k Kind) String() string {
	switch k {
	case DocumentCreated:
		return "document.created"
	case DocumentUpdated:
		return "document.updated"
	case DocumentDeleted:
		return "document.deleted"
	case WikiDeleted:
		return "wiki.deleted"
	}
	return "unknown"
}

// Event describes one change. Remote is set for events received from another cluster node.
type Event struct {
	Kind      Kind
	Wiki      string
	Reference document.Reference
	Locale    string
	Remote    bool
}

// Listener receives events
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Event)

// OnEvent calls f
func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}

// Bus delivers events synchronously to every subscribed listener
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
	log       zerolog.Logger
}

// NewBus creates an empty bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe adds l
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish delivers e to every listener. A panicking listener is logged and skipped.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.RUnlock()

	for _, l := range listeners {
		b.deliver(l, e)
	}
}

func (b *Bus) deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("event", e.Kind.String()).Msg("event listener failed")
		}
	}()
	l.OnEvent(e)
}
