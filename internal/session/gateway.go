// gateway.go
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

// Package session runs units of work against the database: one transaction on one pinned
// connection, switched to the wiki of the caller and switched back afterwards.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Work is a unit of work. ctx carries the unit so nested store calls join it.
type Work func(ctx context.Context, tx *gorm.DB) error

// Switcher validates wikis and points connections at their schema
type Switcher interface {
	CheckWiki(tx *gorm.DB, wikiID string) error
	SwitchToWiki(tx *gorm.DB, wikiID string) (restore func() error, err error)
}

// Gateway opens units of work on the shared pool
type Gateway struct {
	db       *gorm.DB
	switcher Switcher
	mainWiki string
	log      zerolog.Logger
}

type unit struct {
	tx   *gorm.DB
	wiki string

	mu          sync.Mutex
	afterCommit []func()
}

type unitKey struct{}

type wikiKey struct{}

var errRollback = errors.New("session: rollback requested")

// NewGateway creates a gateway; switcher may be nil for single schema setups
func NewGateway(db *gorm.DB, switcher Switcher, mainWiki string, log zerolog.Logger) *Gateway {
	return &Gateway{db: db, switcher: switcher, mainWiki: mainWiki, log: log}
}

// DB returns the pool
func (g *Gateway) DB() *gorm.DB {
	return g.db
}

// MainWiki is the wiki used when the context names none
func (g *Gateway) MainWiki() string {
	return g.mainWiki
}

// WithWiki returns a context addressing wikiID
func WithWiki(ctx context.Context, wikiID string) context.Context {
	return context.WithValue(ctx, wikiKey{}, wikiID)
}

// WikiFromContext returns the wiki set by WithWiki
func WikiFromContext(ctx context.Context) (string, bool) {
	w, ok := ctx.Value(wikiKey{}).(string)
	return w, ok && w != ""
}

// Wiki returns the current wiki of ctx, defaulting to the main wiki
func (g *Gateway) Wiki(ctx context.Context) string {
	if w, ok := WikiFromContext(ctx); ok {
		return w
	}
	return g.mainWiki
}

// InUnit reports whether ctx carries an open unit of work
func InUnit(ctx context.Context) bool {
	u, ok := ctx.Value(unitKey{}).(*unit)
	return ok && u != nil
}

// AfterCommit defers fn until the unit carried by ctx commits. Hooks of a unit that rolls
// back are dropped. Without a unit, fn runs at once.
func AfterCommit(ctx context.Context, fn func()) {
	u, ok := ctx.Value(unitKey{}).(*unit)
	if !ok || u == nil {
		fn()
		return
	}
	u.mu.Lock()
	u.afterCommit = append(u.afterCommit, fn)
	u.mu.Unlock()
}

// Execute runs fn in a unit of work for the wiki of ctx. A unit already carried by ctx is
// joined and neither committed nor rolled back here. Otherwise a new transaction is opened,
// committed when commit is true and fn succeeds, and rolled back in every other case.
func (g *Gateway) Execute(ctx context.Context, commit bool, fn Work) error {
	wiki := g.Wiki(ctx)

	u, ok := ctx.Value(unitKey{}).(*unit)
	if ok && u != nil {
		if u.wiki != wiki {
			return types.NewError(types.ErrStorageFailure, types.CodeSwitchDatabase, wiki,
				"Cannot switch to database ["+wiki+"] in an existing session on ["+u.wiki+"]", nil)
		}
		return types.Wrap(fn(ctx, u.tx), types.CodeSession, wiki, "Exception while executing unit of work")
	}

	err := g.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if g.switcher != nil {
			if err := g.switcher.CheckWiki(conn, wiki); err != nil {
				return err
			}
			restore, err := g.switcher.SwitchToWiki(conn, wiki)
			if err != nil {
				return err
			}
			defer func() {
				if rerr := restore(); rerr != nil {
					g.log.Error().Err(rerr).Str("wiki", wiki).Msg("failed to restore connection schema")
				}
			}()
		}

		return conn.Transaction(func(tx *gorm.DB) error {
			u = &unit{tx: tx, wiki: wiki}
			uctx := context.WithValue(ctx, unitKey{}, u)
			if err := fn(uctx, tx); err != nil {
				return err
			}
			if !commit {
				return errRollback
			}
			return nil
		})
	})
	if errors.Is(err, errRollback) {
		return nil
	}
	if err != nil {
		return types.Wrap(err, types.CodeSession, wiki, "Exception while executing unit of work")
	}
	if u != nil {
		u.mu.Lock()
		hooks := u.afterCommit
		u.afterCommit = nil
		u.mu.Unlock()
		for _, hook := range hooks {
			hook()
		}
	}
	return nil
}

// ExecuteRead runs fn and always rolls back
func (g *Gateway) ExecuteRead(ctx context.Context, fn Work) error {
	return g.Execute(ctx, false, fn)
}

// ExecuteWrite runs fn and commits on success
func (g *Gateway) ExecuteWrite(ctx context.Context, fn Work) error {
	return g.Execute(ctx, true, fn)
}

// FailSafeExecute runs fn in an independent unit, ignoring any unit carried by ctx.
// Failures are logged and reported as false, never returned.
func (g *Gateway) FailSafeExecute(ctx context.Context, commit bool, fn Work) bool {
	detached := context.WithValue(ctx, unitKey{}, (*unit)(nil))
	if err := g.Execute(detached, commit, fn); err != nil {
		g.log.Debug().Err(err).Str("wiki", g.Wiki(ctx)).Msg("fail-safe unit of work failed")
		return false
	}
	return true
}

// Run is Execute for units producing a value
func Run[T any](ctx context.Context, g *Gateway, commit bool, fn func(ctx context.Context, tx *gorm.DB) (T, error)) (T, error) {
	var out T
	err := g.Execute(ctx, commit, func(ctx context.Context, tx *gorm.DB) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Read is Run without commit
func Read[T any](ctx context.Context, g *Gateway, fn func(ctx context.Context, tx *gorm.DB) (T, error)) (T, error) {
	return Run(ctx, g, false, fn)
}

// FailSafe is FailSafeExecute for units producing a value; ok is false on failure
func FailSafe[T any](ctx context.Context, g *Gateway, commit bool, fn func(ctx context.Context, tx *gorm.DB) (T, error)) (T, bool) {
	var out T
	ok := g.FailSafeExecute(ctx, commit, func(ctx context.Context, tx *gorm.DB) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if !ok {
		var zero T
		return zero, false
	}
	return out, true
}
