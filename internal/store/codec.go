// codec.go
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
	"strings"
	"time"

	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/property"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storedValue is one value row read back from a kind table
type storedValue struct {
	objectID int64
	name     string
	value    any
}

// codec moves the values of one property kind in and out of its table
type codec struct {
	save func(tx *gorm.DB, objectID int64, p property.Property) error
	load func(tx *gorm.DB, objectIDs []int64) ([]storedValue, error)
	get  func(tx *gorm.DB, objectID int64, name string) (storedValue, bool, error)
	del  func(tx *gorm.DB, objectID int64, name string) error
	// purge removes every value of the objects
	purge func(tx *gorm.DB, objectIDs []int64) error
}

func newCodec[M any](encode func(objectID int64, p property.Property) (*M, error), decode func(*M) (storedValue, error)) codec {
	return codec{
		save: func(tx *gorm.DB, objectID int64, p property.Property) error {
			row, err := encode(objectID, p)
			if err != nil {
				return err
			}
			return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
		},
		load: func(tx *gorm.DB, objectIDs []int64) ([]storedValue, error) {
			if len(objectIDs) == 0 {
				return nil, nil
			}
			var rows []M
			if err := tx.Where("object_id IN ?", objectIDs).Find(&rows).Error; err != nil {
				return nil, err
			}
			out := make([]storedValue, 0, len(rows))
			for i := range rows {
				v, err := decode(&rows[i])
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		},
		get: func(tx *gorm.DB, objectID int64, name string) (storedValue, bool, error) {
			var rows []M
			if err := tx.Where("object_id = ? AND name = ?", objectID, name).Limit(1).Find(&rows).Error; err != nil {
				return storedValue{}, false, err
			}
			if len(rows) == 0 {
				return storedValue{}, false, nil
			}
			v, err := decode(&rows[0])
			return v, err == nil, err
		},
		del: func(tx *gorm.DB, objectID int64, name string) error {
			return tx.Where("object_id = ? AND name = ?", objectID, name).Delete(new(M)).Error
		},
		purge: func(tx *gorm.DB, objectIDs []int64) error {
			if len(objectIDs) == 0 {
				return nil
			}
			return tx.Where("object_id IN ?", objectIDs).Delete(new(M)).Error
		},
	}
}

func valueOf[T any](p property.Property) *T {
	if v, ok := p.Value.(T); ok {
		return &v
	}
	return nil
}

func deref[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

var codecs = map[property.Kind]codec{
	property.KindString: newCodec(
		func(id int64, p property.Property) (*models.StringProperty, error) {
			return &models.StringProperty{ObjectID: id, Name: p.Name, Value: p.String()}, nil
		},
		func(r *models.StringProperty) (storedValue, error) {
			return storedValue{r.ObjectID, r.Name, r.Value}, nil
		}),
	property.KindLargeString: newCodec(
		func(id int64, p property.Property) (*models.LargeStringProperty, error) {
			return &models.LargeStringProperty{ObjectID: id, Name: p.Name, Value: models.LargeText(p.String())}, nil
		},
		func(r *models.LargeStringProperty) (storedValue, error) {
			return storedValue{r.ObjectID, r.Name, string(r.Value)}, nil
		}),
	property.KindInteger: newCodec(
		func(id int64, p property.Property) (*models.IntegerProperty, error) {
			return &models.IntegerProperty{ObjectID: id, Name: p.Name, Value: valueOf[int32](p)}, nil
		},
		func(r *models.IntegerProperty) (storedValue, error) {
			return storedValue{r.ObjectID, r.Name, deref(r.Value)}, nil
		}),
	property.KindLong: newCodec(
		func(id int64, p property.Property) (*models.LongProperty, error) {
			return &models.LongProperty{ObjectID: id, Name: p.Name, Value: valueOf[int64](p)}, nil
		},
		func(r *models.LongProperty) (storedValue, error) {
			return storedValue{r.ObjectID, r.Name, deref(r.Value)}, nil
		}),
	property.KindFloat: newCodec(
		func(id int64, p property.Property) (*models.FloatProperty, error) {
			return &models.FloatProperty{ObjectID: id, Name: p.Name, Value: valueOf[float32](p)}, nil
		},
		func(r *models.FloatProperty) (storedValue, error) {
			return storedValue{r.ObjectID, r.Name, deref(r.Value)}, nil
		}),
	property.KindDouble: newCodec(
		func(id int64, p property.Property) (*models.DoubleProperty, error) {
			return &models.DoubleProperty{ObjectID: id, Name: p.Name, Value: valueOf[float64](p)}, nil
		},
		func(r *models.DoubleProperty) (storedValue, error) {
			return storedValue{r.ObjectID, r.Name, deref(r.Value)}, nil
		}),
	property.KindDate: newCodec(
		func(id int64, p property.Property) (*models.DateProperty, error) {
			return &models.DateProperty{ObjectID: id, Name: p.Name, Value: valueOf[time.Time](p)}, nil
		},
		func(r *models.DateProperty) (storedValue, error) {
			return storedValue{r.ObjectID, r.Name, deref(r.Value)}, nil
		}),
	property.KindStringList: newCodec(
		func(id int64, p property.Property) (*models.StringListProperty, error) {
			return &models.StringListProperty{ObjectID: id, Name: p.Name, Value: models.LargeText(p.String())}, nil
		},
		func(r *models.StringListProperty) (storedValue, error) {
			if r.Value == "" {
				return storedValue{r.ObjectID, r.Name, []string{}}, nil
			}
			return storedValue{r.ObjectID, r.Name, strings.Split(string(r.Value), property.ListSeparator)}, nil
		}),
	property.KindDBStringList: newCodec(
		func(id int64, p property.Property) (*models.DBStringListProperty, error) {
			l, err := models.NewJSONList(p.Strings())
			if err != nil {
				return nil, err
			}
			return &models.DBStringListProperty{ObjectID: id, Name: p.Name, Value: l}, nil
		},
		func(r *models.DBStringListProperty) (storedValue, error) {
			items, err := r.Value.Items()
			if err != nil {
				return storedValue{}, err
			}
			return storedValue{r.ObjectID, r.Name, items}, nil
		}),
}
