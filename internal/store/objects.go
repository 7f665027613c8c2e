// objects.go
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
	"errors"
	"time"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/property"
	"github.com/localnerve/docstore/internal/schema"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type valueKey struct {
	objectID int64
	name     string
}

// saveObject writes the object row, its property descriptors and values, and the custom
// mapped row when its class has an active mapping
func (s *Store) saveObject(ctx context.Context, tx *gorm.DB, wiki string, obj *document.Object) error {
	id := obj.ID()
	row := models.Object{
		ID:        id,
		DocName:   obj.DocRef.FullName(),
		ClassName: obj.ClassName,
		Number:    obj.Number,
		GUID:      obj.GUID,
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return err
	}

	for _, p := range obj.FieldsToRemove() {
		if err := deleteProperty(tx, id, p.Name); err != nil {
			return err
		}
	}

	var stored []models.Property
	if err := tx.Where("object_id = ?", id).Find(&stored).Error; err != nil {
		return err
	}
	storedTypes := make(map[string]string, len(stored))
	for _, sp := range stored {
		storedTypes[sp.Name] = sp.ClassType
	}

	props := make(map[string]property.Property)
	for _, p := range obj.Properties() {
		props[p.Name] = p
		if prev, ok := storedTypes[p.Name]; ok && prev != p.ClassType() {
			if c, ok := codecs[property.ParseKind(prev)]; ok {
				if err := c.del(tx, id, p.Name); err != nil {
					return err
				}
			}
		}
		desc := models.Property{ObjectID: id, Name: p.Name, ClassType: p.ClassType()}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&desc).Error; err != nil {
			return err
		}
		if c, ok := codecs[p.Kind]; ok {
			if err := c.save(tx, id, p); err != nil {
				return err
			}
		}
	}

	if m, ok := s.registry.Mapping(obj.ClassName); ok {
		if err := s.registry.EnsureTable(ctx, tx, wiki, m); err != nil {
			return err
		}
		if err := schema.SaveRow(tx, m, id, props); err != nil {
			return err
		}
	}
	obj.ClearFieldsToRemove()
	return nil
}

func deleteProperty(tx *gorm.DB, objectID int64, name string) error {
	var desc models.Property
	err := tx.Where("object_id = ? AND name = ?", objectID, name).Limit(1).Find(&desc).Error
	if err != nil {
		return err
	}
	if desc.ClassType != "" {
		if c, ok := codecs[property.ParseKind(desc.ClassType)]; ok {
			if err := c.del(tx, objectID, name); err != nil {
				return err
			}
		}
	}
	return tx.Where("object_id = ? AND name = ?", objectID, name).Delete(&models.Property{}).Error
}

// deleteObjectRows removes objects with every value, descriptor and custom mapped row
func (s *Store) deleteObjectRows(tx *gorm.DB, rows []models.Object) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
		if m, ok := s.registry.Mapping(r.ClassName); ok {
			if err := schema.DeleteRow(tx, m, r.ID); err != nil {
				s.log.Debug().Err(err).Str("class", r.ClassName).Msg("custom mapped row not deleted")
			}
		}
	}
	for _, k := range property.Kinds() {
		if err := codecs[k].purge(tx, ids); err != nil {
			return err
		}
	}
	if err := tx.Where("object_id IN ?", ids).Delete(&models.Property{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Object{}).Error
}

func (s *Store) deleteObjects(tx *gorm.DB, objs []*document.Object) error {
	rows := make([]models.Object, 0, len(objs))
	for _, o := range objs {
		rows = append(rows, models.Object{ID: o.ID(), ClassName: o.ClassName})
	}
	return s.deleteObjectRows(tx, rows)
}

// deleteAllObjects removes every object stored for the document name
func (s *Store) deleteAllObjects(tx *gorm.DB, fullName string) error {
	var rows []models.Object
	if err := tx.Where("doc_name = ?", fullName).Find(&rows).Error; err != nil {
		return err
	}
	exact := rows[:0]
	for _, r := range rows {
		if r.DocName == fullName {
			exact = append(exact, r)
		}
	}
	return s.deleteObjectRows(tx, exact)
}

// loadObjects reads the objects of doc. Rows are re-filtered on the exact name since
// some collations compare names case or accent insensitively.
func (s *Store) loadObjects(tx *gorm.DB, doc *document.Document) error {
	fullName := doc.FullName()
	var rows []models.Object
	if err := tx.Where("doc_name = ?", fullName).Order("class_name, number").Find(&rows).Error; err != nil {
		return err
	}

	objects := make(map[int64]*document.Object, len(rows))
	groups := make(map[int64]*document.Object)
	var ids []int64
	for _, r := range rows {
		if r.DocName != fullName {
			continue
		}
		obj := document.NewObject(r.ClassName)
		obj.Number = r.Number
		obj.GUID = r.GUID
		doc.SetObject(obj)
		if r.ClassName == document.GroupsClass {
			groups[r.ID] = obj
			continue
		}
		objects[r.ID] = obj
		ids = append(ids, r.ID)
	}

	if len(ids) > 0 {
		if err := loadProperties(tx, ids, objects); err != nil {
			return err
		}
	}
	if len(groups) > 0 {
		if err := loadGroupMembers(tx, fullName, groups); err != nil {
			return err
		}
	}
	s.migrateOnRead(doc)
	return nil
}

func loadProperties(tx *gorm.DB, ids []int64, objects map[int64]*document.Object) error {
	var descs []models.Property
	if err := tx.Where("object_id IN ?", ids).Find(&descs).Error; err != nil {
		return err
	}

	kinds := make(map[valueKey]property.Kind, len(descs))
	used := make(map[property.Kind]bool)
	for _, d := range descs {
		obj, ok := objects[d.ObjectID]
		if !ok {
			continue
		}
		k := property.ParseKind(d.ClassType)
		if k == property.KindUnknown {
			obj.Set(property.Property{Name: d.Name, Kind: k, LegacyType: d.ClassType})
			continue
		}
		kinds[valueKey{d.ObjectID, d.Name}] = k
		used[k] = true
	}

	for _, k := range property.Kinds() {
		if !used[k] {
			continue
		}
		values, err := codecs[k].load(tx, ids)
		if err != nil {
			return err
		}
		for _, v := range values {
			if kinds[valueKey{v.objectID, v.name}] != k {
				continue
			}
			objects[v.objectID].Set(property.Property{Name: v.name, Kind: k, Value: v.value})
		}
	}
	return nil
}

type groupMember struct {
	ObjectID int64
	Value    string
}

// loadGroupMembers reads the member field of every group object of the document in one query
func loadGroupMembers(tx *gorm.DB, fullName string, groups map[int64]*document.Object) error {
	var members []groupMember
	err := tx.Table("objects o").
		Select("o.id AS object_id, s.value AS value").
		Joins("JOIN string_properties s ON s.object_id = o.id AND s.name = ?", "member").
		Where("o.doc_name = ? AND o.class_name = ?", fullName, document.GroupsClass).
		Scan(&members).Error
	if err != nil {
		return err
	}
	for _, m := range members {
		if obj, ok := groups[m.ObjectID]; ok {
			obj.Set(property.Property{Name: "member", Kind: property.KindString, Value: m.Value})
		}
	}
	return nil
}

// migrateOnRead converts values of the document's own class whose stored kind no longer
// matches the declared field
func (s *Store) migrateOnRead(doc *document.Document) {
	class := doc.Class()
	if class.IsEmpty() {
		return
	}
	for _, obj := range doc.Objects(class.Name) {
		if obj == nil {
			continue
		}
		for _, f := range class.Fields {
			p, ok := obj.Get(f.Name)
			want := f.PropertyKind()
			if !ok || p.Kind == property.KindUnknown || p.Kind == want {
				continue
			}
			converted, err := property.Convert(p, want)
			if err != nil {
				s.log.Warn().Err(err).Str("class", class.Name).Str("field", f.Name).Msg("property value dropped on conversion")
			}
			obj.Set(converted)
		}
	}
}

// migrateProperty rewrites stored values of className.field into the table of kind to
func (s *Store) migrateProperty(tx *gorm.DB, className, field string, to property.Kind) (int, error) {
	if to == property.KindUnknown {
		return 0, types.NewError(types.ErrInvalidArgument, types.CodeMigratingProperty, className+"."+field,
			"Cannot migrate to an unknown property kind", nil)
	}
	var stale []models.Property
	err := tx.Raw("SELECT p.object_id, p.name, p.class_type FROM properties p JOIN objects o ON o.id = p.object_id "+
		"WHERE o.class_name = ? AND p.name = ? AND p.class_type <> ?", className, field, to.String()).
		Scan(&stale).Error
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, row := range stale {
		from := property.ParseKind(row.ClassType)
		src, ok := codecs[from]
		if !ok {
			s.log.Warn().Str("class", className).Str("field", field).Str("type", row.ClassType).Msg("cannot migrate unknown property type")
			continue
		}
		p := property.Property{Name: field, Kind: from}
		v, found, err := src.get(tx, row.ObjectID, field)
		if err != nil {
			return migrated, err
		}
		if found {
			p.Value = v.value
		}
		converted, err := property.Convert(p, to)
		if err != nil && !errors.Is(err, property.ErrLossyConversion) {
			return migrated, err
		} else if err != nil {
			s.log.Warn().Err(err).Int64("object", row.ObjectID).Msg("property value dropped on migration")
		}

		if err := src.del(tx, row.ObjectID, field); err != nil {
			return migrated, err
		}
		if err := codecs[to].save(tx, row.ObjectID, converted); err != nil {
			return migrated, err
		}
		err = tx.Model(&models.Property{}).
			Where("object_id = ? AND name = ?", row.ObjectID, field).
			Update("class_type", to.String()).Error
		if err != nil {
			return migrated, err
		}
		migrated++
	}
	return migrated, nil
}

// migrateClassStorage aligns the stored kind of every field of class
func (s *Store) migrateClassStorage(tx *gorm.DB, class *document.Class) error {
	for _, f := range class.Fields {
		n, err := s.migrateProperty(tx, class.Name, f.Name, f.PropertyKind())
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Info().Str("class", class.Name).Str("field", f.Name).Int("objects", n).Msg("migrated property storage")
		}
	}
	return nil
}

// MigratePropertyStorage moves every stored value of className.field to the table of kind to
// and reports how many objects were rewritten
func (s *Store) MigratePropertyStorage(ctx context.Context, className, field string, to property.Kind) (int, error) {
	start := time.Now()
	n, err := session.Run(ctx, s.gateway, true, func(ctx context.Context, tx *gorm.DB) (int, error) {
		n, err := s.migrateProperty(tx, className, field, to)
		return n, types.Wrap(err, types.CodeMigratingProperty, className+"."+field, "Exception while migrating property storage")
	})
	s.observe("migrate_property", start, err)
	return n, err
}
