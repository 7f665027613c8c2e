// registry.go
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

// Package schema resolves wikis to database schemas and holds the custom class mappings.
package schema

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/metrics"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgDuplicateSchema = "42P06"
	mysqlDBExists     = 1007
	mysqlUnknownDB    = 1049
)

// Options configures the registry
type Options struct {
	MainWiki      string
	MainDatabase  string
	Prefix        string
	SchemaMode    bool
	SchemaVersion int
	Charset       string
	Collation     string
	// DynamicMappings allows custom class mappings to be injected at runtime
	DynamicMappings bool
}

// OptionsFromConfig collects the registry options from the application configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MainWiki:        cfg.Database.MainWiki,
		MainDatabase:    cfg.Database.Name,
		Prefix:          cfg.Database.Prefix,
		SchemaMode:      cfg.Database.SchemaMode,
		SchemaVersion:   cfg.Database.SchemaVersion,
		Charset:         cfg.Database.Charset,
		Collation:       cfg.Database.Collation,
		DynamicMappings: cfg.Store.DynamicMappings,
	}
}

// Registry knows where every wiki lives and which custom mappings are active.
// It implements session.Switcher.
type Registry struct {
	db      *gorm.DB
	product database.Product
	opts    Options
	metrics *metrics.Metrics
	log     zerolog.Logger

	// mu serializes mapping injection; readers use snapshot only
	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]

	// wiki id -> migrated schema version
	wikis sync.Map
	// wiki id + class name -> struct{}
	tables sync.Map
}

// NewRegistry creates a registry for the pool db running on product
func NewRegistry(db *gorm.DB, product database.Product, opts Options, m *metrics.Metrics, log zerolog.Logger) *Registry {
	r := &Registry{
		db:      db,
		product: product,
		opts:    opts,
		metrics: m,
		log:     log,
	}
	r.snapshot.Store(&Snapshot{mappings: map[string]*Mapping{}})
	if product == database.ProductUnknown {
		log.Warn().Msg("unrecognized database product, wiki DDL uses the generic catalog statements")
	}
	return r
}

// Product returns the database product
func (r *Registry) Product() database.Product {
	return r.product
}

func (r *Registry) naming() database.NamingOptions {
	return database.NamingOptions{
		MainWiki:     r.opts.MainWiki,
		MainDatabase: r.opts.MainDatabase,
		Prefix:       r.opts.Prefix,
		SchemaMode:   r.opts.SchemaMode,
	}
}

func (r *Registry) isMain(wikiID string) bool {
	return strings.EqualFold(wikiID, r.opts.MainWiki)
}

// singleWiki reports products that keep every table in one database file. Documents of
// different wikis would share rows there, so only the main wiki exists.
func (r *Registry) singleWiki() bool {
	return database.AddressingOf(r.product, r.opts.SchemaMode) == database.AddressNone
}

func (r *Registry) onlyMainWiki(wikiID string, code int) error {
	return types.NewError(types.ErrInvalidArgument, code, wikiID,
		"Only the main wiki is available on "+r.product.String(), database.ErrUnsupported)
}

// SchemaName returns the schema, catalog or user holding wikiID
func (r *Registry) SchemaName(wikiID string) string {
	return database.SchemaName(wikiID, r.product, r.naming())
}

func (r *Registry) escaped(wikiID string) string {
	return database.EscapeName(r.SchemaName(wikiID), r.product)
}

// CheckWiki verifies wikiID is registered and migrated to the required schema version
func (r *Registry) CheckWiki(tx *gorm.DB, wikiID string) error {
	if r.isMain(wikiID) {
		return nil
	}
	if r.singleWiki() {
		return r.onlyMainWiki(wikiID, types.CodeSwitchDatabase)
	}
	if v, ok := r.wikis.Load(wikiID); ok && v.(int) >= r.opts.SchemaVersion {
		return nil
	}

	var w models.Wiki
	err := tx.Where("wiki_id = ?", wikiID).Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewError(types.ErrNotFound, types.CodeWikiNotFound, wikiID, "Wiki does not exist", nil)
	}
	if err != nil {
		return types.Wrap(err, types.CodeSwitchDatabase, wikiID, "Exception while reading wiki descriptor")
	}
	if w.SchemaVersion < r.opts.SchemaVersion {
		return types.NewError(types.ErrMigrationRequired, types.CodeMigrationRequired, wikiID,
			"Wiki schema must be migrated before use", nil)
	}
	r.wikis.Store(wikiID, w.SchemaVersion)
	return nil
}

// SwitchToWiki points the connection of tx at the schema of wikiID. The returned function
// points it back at the main wiki.
func (r *Registry) SwitchToWiki(tx *gorm.DB, wikiID string) (func() error, error) {
	noop := func() error { return nil }

	if r.singleWiki() {
		return noop, nil
	}
	if r.product == database.ProductPostgreSQL && !r.opts.SchemaMode {
		if r.isMain(wikiID) {
			return noop, nil
		}
		return nil, types.NewError(types.ErrStorageFailure, types.CodeSwitchDatabase, wikiID,
			"Cannot switch database", database.ErrUnsupported)
	}

	// postgres accepts a search path naming a missing schema
	if r.product == database.ProductPostgreSQL && !r.isMain(wikiID) {
		var n int64
		err := tx.Raw("SELECT count(*) FROM information_schema.schemata WHERE schema_name = ?", r.SchemaName(wikiID)).Scan(&n).Error
		if err != nil {
			r.metrics.WikiSwitch(err)
			return nil, types.Wrap(err, types.CodeSwitchDatabase, wikiID, "Exception while switching to database")
		}
		if n == 0 {
			err := types.NewError(types.ErrMigrationRequired, types.CodeMigrationRequired, wikiID, "Wiki schema does not exist", nil)
			r.metrics.WikiSwitch(err)
			return nil, err
		}
	}

	if err := r.exec(tx, wikiID); err != nil {
		r.metrics.WikiSwitch(err)
		if isMissingSchema(err) {
			return nil, types.NewError(types.ErrMigrationRequired, types.CodeMigrationRequired, wikiID,
				"Wiki schema does not exist", err)
		}
		return nil, types.Wrap(err, types.CodeSwitchDatabase, wikiID, "Exception while switching to database")
	}
	r.metrics.WikiSwitch(nil)

	if r.isMain(wikiID) {
		return noop, nil
	}
	return func() error {
		return r.exec(tx, r.opts.MainWiki)
	}, nil
}

func (r *Registry) exec(tx *gorm.DB, wikiID string) error {
	stmt, err := database.SwitchStatement(r.product, r.escaped(wikiID), r.opts.SchemaMode)
	if err != nil || stmt == "" {
		return err
	}
	return tx.Exec(stmt).Error
}

func isMissingSchema(err error) bool {
	var myErr *mysqldriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlUnknownDB
}

func isDuplicateSchema(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateSchema
	}
	var myErr *mysqldriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDBExists
}

// CreateSequenceIfRequired creates the identifier sequence in the schema of wikiID when the
// product needs one. Failures are logged and ignored.
func (r *Registry) CreateSequenceIfRequired(tx *gorm.DB, wikiID string) {
	if !r.product.UsesSequences() || database.AddressingOf(r.product, r.opts.SchemaMode) != database.AddressSchema {
		return
	}
	schemaName := r.SchemaName(wikiID)

	if r.product == database.ProductPostgreSQL {
		var n int64
		err := tx.Raw("SELECT count(*) FROM information_schema.sequences WHERE sequence_schema = ? AND sequence_name = ?",
			schemaName, database.SequenceName).Scan(&n).Error
		if err == nil && n > 0 {
			return
		}
	}

	stmt := database.CreateSequenceStatement(database.EscapeName(schemaName, r.product))
	if err := tx.Exec(stmt).Error; err != nil {
		r.log.Debug().Err(err).Str("wiki", wikiID).Msg("failed to create sequence")
	}
}

// IsWikiNameAvailable reports whether wikiID can be created
func (r *Registry) IsWikiNameAvailable(ctx context.Context, wikiID string) (bool, error) {
	if r.isMain(wikiID) || r.singleWiki() {
		return false, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Wiki{}).Where("wiki_id = ?", wikiID).Count(&n).Error; err != nil {
		return false, types.Wrap(err, types.CodeCreateDatabase, wikiID, "Exception while listing wikis")
	}
	return n == 0, nil
}

// CreateWiki creates the schema of wikiID, migrates its tables and registers it
func (r *Registry) CreateWiki(ctx context.Context, wikiID string) error {
	if r.isMain(wikiID) {
		return types.NewError(types.ErrInvalidArgument, types.CodeCreateDatabase, wikiID, "The main wiki already exists", nil)
	}
	if r.singleWiki() {
		return r.onlyMainWiki(wikiID, types.CodeCreateDatabase)
	}

	stmts, err := database.CreateWikiStatements(r.product, r.escaped(wikiID), database.CreateOptions{
		SchemaMode: r.opts.SchemaMode,
		Charset:    r.opts.Charset,
		Collation:  r.opts.Collation,
	})
	if err != nil {
		return types.Wrap(err, types.CodeCreateDatabase, wikiID, "Exception while create wiki database")
	}

	err = r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		for _, stmt := range stmts {
			if err := conn.Exec(stmt).Error; err != nil {
				if isDuplicateSchema(err) {
					return types.NewError(types.ErrInvalidArgument, types.CodeCreateDatabase, wikiID, "Wiki database already exists", err)
				}
				return err
			}
		}
		restore, err := r.SwitchToWiki(conn, wikiID)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := restore(); rerr != nil {
				r.log.Error().Err(rerr).Str("wiki", wikiID).Msg("failed to restore connection schema")
			}
		}()
		if err := database.AutoMigrate(conn); err != nil {
			return err
		}
		r.CreateSequenceIfRequired(conn, wikiID)
		return nil
	})
	if err != nil {
		return types.Wrap(err, types.CodeCreateDatabase, wikiID, "Exception while create wiki database")
	}

	r.log.Info().Str("wiki", wikiID).Str("schema", r.SchemaName(wikiID)).Msg("created wiki")
	return r.MarkMigrated(ctx, wikiID)
}

// DeleteWiki drops the schema of wikiID and forgets it
func (r *Registry) DeleteWiki(ctx context.Context, wikiID string) error {
	if r.isMain(wikiID) {
		return types.NewError(types.ErrInvalidArgument, types.CodeDeleteDatabase, wikiID, "The main wiki cannot be deleted", nil)
	}
	if r.singleWiki() {
		return r.onlyMainWiki(wikiID, types.CodeDeleteDatabase)
	}

	stmts, err := database.DeleteWikiStatements(r.product, r.escaped(wikiID), r.opts.SchemaMode)
	if err != nil {
		return types.Wrap(err, types.CodeDeleteDatabase, wikiID, "Exception while deleting wiki database")
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return tx.Where("wiki_id = ?", wikiID).Delete(&models.Wiki{}).Error
	})
	if err != nil {
		return types.Wrap(err, types.CodeDeleteDatabase, wikiID, "Exception while deleting wiki database")
	}

	r.forget(wikiID)
	r.log.Info().Str("wiki", wikiID).Msg("deleted wiki")
	return nil
}

func (r *Registry) forget(wikiID string) {
	r.wikis.Delete(wikiID)
	prefix := wikiID + "\x00"
	r.tables.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			r.tables.Delete(k)
		}
		return true
	})
}

// RegisterWiki records wikiID at schemaVersion
func (r *Registry) RegisterWiki(ctx context.Context, wikiID string, schemaVersion int) error {
	w := models.Wiki{WikiID: wikiID, SchemaVersion: schemaVersion}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wiki_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"schema_version", "updated_at"}),
	}).Create(&w).Error
	if err != nil {
		return types.Wrap(err, types.CodeCreateDatabase, wikiID, "Exception while registering wiki")
	}
	if schemaVersion >= r.opts.SchemaVersion {
		r.wikis.Store(wikiID, schemaVersion)
	} else {
		r.wikis.Delete(wikiID)
	}
	return nil
}

// MarkMigrated records wikiID as migrated to the required schema version
func (r *Registry) MarkMigrated(ctx context.Context, wikiID string) error {
	return r.RegisterWiki(ctx, wikiID, r.opts.SchemaVersion)
}
