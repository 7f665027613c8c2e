// recyclebin.go
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

// Package recyclebin keeps snapshots of deleted documents so they can be restored or purged.
package recyclebin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/metrics"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// HintDatabase keeps the serialized document inline on the record
const HintDatabase = "database"

// Record describes one deleted document. Index is its identity within the bin.
type Record struct {
	Index   int64              `json:"index"`
	Ref     document.Reference `json:"-"`
	Name    string             `json:"fullName"`
	Locale  string             `json:"locale"`
	Deleter string             `json:"deleter"`
	Date    time.Time          `json:"date"`
	BatchID string             `json:"batchId,omitempty"`
	Store   string             `json:"store"`
}

// ContentStore holds serialized documents outside the record row
type ContentStore interface {
	Hint() string
	Save(ctx context.Context, rec *Record, xml []byte) error
	Load(ctx context.Context, rec *Record) ([]byte, error)
	Delete(ctx context.Context, rec *Record) error
}

// Bin is the database recycle bin
type Bin struct {
	gateway  *session.Gateway
	hint     string
	contents map[string]ContentStore
	rights   RightsChecker
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates a bin storing new payloads through the content store named hint
func New(gw *session.Gateway, hint string, m *metrics.Metrics, log zerolog.Logger) *Bin {
	if hint == "" {
		hint = HintDatabase
	}
	return &Bin{
		gateway:  gw,
		hint:     hint,
		contents: map[string]ContentStore{},
		rights:   DeleterOnly{},
		metrics:  m,
		log:      log.With().Str("component", "recyclebin").Logger(),
	}
}

// RegisterContentStore makes an external payload store available under its hint
func (b *Bin) RegisterContentStore(cs ContentStore) {
	b.contents[cs.Hint()] = cs
}

// SetRightsChecker installs the authorization collaborator
func (b *Bin) SetRightsChecker(rc RightsChecker) {
	b.rights = rc
}

func (b *Bin) recordOf(ctx context.Context, row models.DeletedDocument) *Record {
	ref := document.NewReference(b.gateway.Wiki(ctx), row.FullName)
	return &Record{
		Index:   row.ID,
		Ref:     ref,
		Name:    row.FullName,
		Locale:  row.Language,
		Deleter: row.Deleter,
		Date:    row.Date,
		BatchID: row.BatchID,
		Store:   row.Store,
	}
}

func docContext(ctx context.Context, doc *document.Document) context.Context {
	if doc.Ref.Wiki != "" {
		return session.WithWiki(ctx, doc.Ref.Wiki)
	}
	return ctx
}

// serialize includes loaded attachment binaries so a restore brings them back
func serialize(doc *document.Document) ([]byte, error) {
	return doc.ToXML(document.XMLOptions{AttachmentContent: true})
}

// MoveToBin records doc as deleted by deleter at date and returns the record index.
// batchID groups documents deleted by one action and may be empty.
func (b *Bin) MoveToBin(ctx context.Context, doc *document.Document, deleter string, date time.Time, batchID string) (int64, error) {
	xml, err := serialize(doc)
	if err != nil {
		return 0, types.Wrap(err, types.CodeRecycleBin, doc.Ref.String(), "Exception while serializing deleted document")
	}
	var index int64
	err = b.gateway.ExecuteWrite(docContext(ctx, doc), func(ctx context.Context, tx *gorm.DB) error {
		var err error
		index, err = b.insert(ctx, tx, doc, xml, deleter, date, batchID)
		return err
	})
	if err != nil {
		return 0, err
	}
	b.metrics.RecycleBin("move")
	return index, nil
}

func (b *Bin) insert(ctx context.Context, tx *gorm.DB, doc *document.Document, xml []byte, deleter string, date time.Time, batchID string) (int64, error) {
	target := doc.Ref.String()
	row := models.DeletedDocument{
		FullName: doc.FullName(),
		Language: doc.Locale,
		Deleter:  deleter,
		BatchID:  batchID,
		Store:    b.hint,
		Date:     date,
	}
	var cs ContentStore
	if b.hint == HintDatabase {
		row.XML = models.LargeText(xml)
	} else {
		var ok bool
		if cs, ok = b.contents[b.hint]; !ok {
			return 0, types.NewError(types.ErrInvalidArgument, types.CodeRecycleBin, target,
				"Unknown recycle bin content store ["+b.hint+"]", nil)
		}
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, types.Wrap(err, types.CodeRecycleBin, target, "Exception while recording deleted document")
	}
	if cs != nil {
		if err := cs.Save(ctx, b.recordOf(ctx, row), xml); err != nil {
			return 0, types.Wrap(err, types.CodeRecycleBin, target, "Exception while storing deleted document content")
		}
	}
	return row.ID, nil
}

// MoveBatch records docs as deleted together under a new batch id. Every document of the
// batch is recorded or none is.
func (b *Bin) MoveBatch(ctx context.Context, docs []*document.Document, deleter string, date time.Time) (string, []int64, error) {
	if len(docs) == 0 {
		return "", nil, nil
	}
	payloads := make([][]byte, len(docs))
	g, _ := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			xml, err := serialize(doc)
			if err != nil {
				return types.Wrap(err, types.CodeRecycleBin, doc.Ref.String(), "Exception while serializing deleted document")
			}
			payloads[i] = xml
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	batchID := uuid.NewString()
	indexes := make([]int64, len(docs))
	err := b.gateway.ExecuteWrite(docContext(ctx, docs[0]), func(ctx context.Context, tx *gorm.DB) error {
		for i, doc := range docs {
			idx, err := b.insert(ctx, tx, doc, payloads[i], deleter, date, batchID)
			if err != nil {
				return err
			}
			indexes[i] = idx
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	b.metrics.RecycleBin("move")
	return batchID, indexes, nil
}

func (b *Bin) find(tx *gorm.DB, index int64) (models.DeletedDocument, error) {
	var row models.DeletedDocument
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Where("id = ?", index).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, types.NewError(types.ErrNotFound, types.CodeRecycleBin, "", "Deleted document not found in the recycle bin", err)
	}
	if err != nil {
		return row, types.Wrap(err, types.CodeRecycleBin, "", "Exception while reading the recycle bin")
	}
	return row, nil
}

// Peek returns the record of index without its payload
func (b *Bin) Peek(ctx context.Context, index int64) (*Record, error) {
	return session.Read(ctx, b.gateway, func(ctx context.Context, tx *gorm.DB) (*Record, error) {
		row, err := b.find(tx.Omit("xml"), index)
		if err != nil {
			return nil, err
		}
		return b.recordOf(ctx, row), nil
	})
}

// Restore rebuilds the document recorded under index. The record is left in the bin.
func (b *Bin) Restore(ctx context.Context, index int64) (*document.Document, error) {
	doc, err := session.Read(ctx, b.gateway, func(ctx context.Context, tx *gorm.DB) (*document.Document, error) {
		row, err := b.find(tx, index)
		if err != nil {
			return nil, err
		}
		rec := b.recordOf(ctx, row)
		xml := []byte(row.XML)
		if row.Store != HintDatabase {
			cs, ok := b.contents[row.Store]
			if !ok {
				return nil, types.NewError(types.ErrStorageFailure, types.CodeRecycleBin, rec.Ref.String(),
					"Unknown recycle bin content store ["+row.Store+"]", nil)
			}
			if xml, err = cs.Load(ctx, rec); err != nil {
				return nil, types.Wrap(err, types.CodeRecycleBin, rec.Ref.String(), "Exception while loading deleted document content")
			}
		}
		doc, err := document.FromXML(xml)
		if err != nil {
			return nil, types.Wrap(err, types.CodeRecycleBin, rec.Ref.String(), "Exception while parsing deleted document")
		}
		if doc.Ref.Wiki == "" {
			doc.Ref.Wiki = rec.Ref.Wiki
		}
		return doc, nil
	})
	if err == nil {
		b.metrics.RecycleBin("restore")
	}
	return doc, err
}

func (b *Bin) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*Record, error) {
	return session.Read(ctx, b.gateway, func(ctx context.Context, tx *gorm.DB) ([]*Record, error) {
		var rows []models.DeletedDocument
		if err := scope(tx.Model(&models.DeletedDocument{}).Omit("xml")).Find(&rows).Error; err != nil {
			return nil, types.Wrap(err, types.CodeRecycleBin, "", "Exception while listing the recycle bin")
		}
		out := make([]*Record, 0, len(rows))
		for _, row := range rows {
			out = append(out, b.recordOf(ctx, row))
		}
		return out, nil
	})
}

// ListFor returns the records of doc in its locale, newest first
func (b *Bin) ListFor(ctx context.Context, doc *document.Document) ([]*Record, error) {
	return b.list(docContext(ctx, doc), func(tx *gorm.DB) *gorm.DB {
		return tx.Where("full_name = ? AND language = ?", doc.FullName(), doc.Locale).Order("date DESC, id DESC")
	})
}

// ListForBatch returns the records deleted together under batchID, ordered by name
func (b *Bin) ListForBatch(ctx context.Context, batchID string) ([]*Record, error) {
	return b.list(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("batch_id = ?", batchID).Order("full_name, language")
	})
}

// List returns up to limit records from offset, newest first
func (b *Bin) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	return b.list(ctx, func(tx *gorm.DB) *gorm.DB {
		tx = tx.Order("date DESC, id DESC")
		if limit > 0 {
			tx = tx.Limit(limit).Offset(offset)
		}
		return tx
	})
}

// Purge permanently removes the record of index. The metadata row is deleted even when
// the external payload cannot be; that failure is still reported.
func (b *Bin) Purge(ctx context.Context, index int64) error {
	var payloadErr error
	var target string
	err := b.gateway.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		row, err := b.find(tx.Omit("xml"), index)
		if err != nil {
			return err
		}
		rec := b.recordOf(ctx, row)
		target = rec.Ref.String()

		if row.Store != HintDatabase {
			if cs, ok := b.contents[row.Store]; ok {
				payloadErr = cs.Delete(ctx, rec)
			} else {
				payloadErr = errors.New("unknown content store " + row.Store)
			}
			if payloadErr != nil {
				b.log.Error().Err(payloadErr).Int64("index", index).Str("document", target).
					Msg("failed to delete recycle bin content")
			}
		}
		err = tx.Where("id = ?", index).Delete(&models.DeletedDocument{}).Error
		return types.Wrap(err, types.CodeRecycleBin, target, "Exception while purging deleted document")
	})
	if err != nil {
		return err
	}
	b.metrics.RecycleBin("purge")
	if payloadErr != nil {
		return types.NewError(types.ErrStorageFailure, types.CodeRecycleBin, target,
			"Deleted document content could not be removed", payloadErr)
	}
	return nil
}
