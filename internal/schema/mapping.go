// mapping.go
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

package schema

import (
	"context"
	"encoding/xml"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/property"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/types"
	"gorm.io/gorm"
)

// IDColumn is the object id column of every custom mapped table
const IDColumn = "xwo_id"

var (
	stringColumns  = []string{"string", "text", "clob"}
	numberColumns  = []string{"integer", "long", "float", "double", "big_decimal", "big_integer", "yes_no", "true_false"}
	dateColumns    = []string{"date", "time", "timestamp"}
	booleanColumns = []string{"boolean", "yes_no", "true_false", "integer"}

	// field types missing here accept any column type
	validColumnTypes = map[document.FieldType][]string{
		document.FieldString:   stringColumns,
		document.FieldTextArea: stringColumns,
		document.FieldPassword: stringColumns,
		document.FieldNumber:   numberColumns,
		document.FieldDate:     dateColumns,
		document.FieldBoolean:  booleanColumns,
	}
)

// Column maps one class field onto a column of the custom table
type Column struct {
	Property string
	Type     string
	Column   string
}

// Mapping projects the objects of one class into their own table
type Mapping struct {
	ClassName string
	Table     string
	Columns   []Column
}

// Snapshot is an immutable set of mappings
type Snapshot struct {
	Version  uint64
	mappings map[string]*Mapping
}

// Mapping returns the mapping of className
func (s *Snapshot) Mapping(className string) (*Mapping, bool) {
	m, ok := s.mappings[className]
	return m, ok
}

// Len returns the number of mappings
func (s *Snapshot) Len() int {
	return len(s.mappings)
}

// ClassNames returns the mapped classes in name order
func (s *Snapshot) ClassNames() []string {
	return slices.Sorted(maps.Keys(s.mappings))
}

// TableName returns the custom table of className
func TableName(className string) string {
	return "xwikicustom_" + strings.ReplaceAll(className, ".", "_")
}

type xmlColumn struct {
	Name string `xml:"name,attr"`
}

type xmlMappedProperty struct {
	Name    string      `xml:"name,attr"`
	Type    string      `xml:"type,attr"`
	Column  string      `xml:"column,attr"`
	Columns []xmlColumn `xml:"column"`
}

type xmlMapping struct {
	Properties []xmlMappedProperty `xml:"property"`
}

// ParseMapping reads the property list of a custom mapping
func ParseMapping(className, mappingXML string) (*Mapping, error) {
	var x xmlMapping
	if err := xml.Unmarshal([]byte("<mapping>"+mappingXML+"</mapping>"), &x); err != nil {
		return nil, types.NewError(types.ErrInvalidMapping, types.CodeInvalidMapping, className, "Invalid Custom Mapping", err)
	}

	m := &Mapping{ClassName: className, Table: TableName(className)}
	for _, p := range x.Properties {
		if p.Name == "" {
			return nil, types.NewError(types.ErrInvalidMapping, types.CodeInvalidMapping, className,
				"Invalid Custom Mapping", fmt.Errorf("property without name"))
		}
		col := Column{Property: p.Name, Type: strings.ToLower(p.Type), Column: p.Column}
		if col.Column == "" && len(p.Columns) > 0 {
			col.Column = p.Columns[0].Name
		}
		if col.Column == "" {
			col.Column = p.Name
		}
		if col.Type == "" {
			col.Type = "string"
		}
		if _, ok := goTypes[col.Type]; !ok {
			return nil, types.NewError(types.ErrInvalidMapping, types.CodeInvalidMapping, className,
				"Invalid Custom Mapping", fmt.Errorf("unknown column type %q", p.Type))
		}
		m.Columns = append(m.Columns, col)
	}
	return m, nil
}

// Validate checks every mapped property exists in class with a compatible column type
func (m *Mapping) Validate(class *document.Class) error {
	for _, col := range m.Columns {
		f, ok := class.Field(col.Property)
		if !ok {
			return types.NewError(types.ErrInvalidMapping, types.CodeInvalidMapping, m.ClassName, "Invalid Custom Mapping",
				fmt.Errorf("mapping contains invalid field name [%s]", col.Property))
		}
		valid, restricted := validColumnTypes[f.Type]
		if restricted && !slices.Contains(valid, col.Type) {
			return types.NewError(types.ErrInvalidMapping, types.CodeInvalidMapping, m.ClassName, "Invalid Custom Mapping",
				fmt.Errorf("mapping contains invalid type in field [%s]", col.Property))
		}
	}
	return nil
}

// Snapshot returns the current mapping snapshot
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Mapping returns the active mapping of className
func (r *Registry) Mapping(className string) (*Mapping, bool) {
	return r.Snapshot().Mapping(className)
}

// InjectMapping validates the custom mapping of class and makes it active. It reports false
// when dynamic mappings are disabled, the class has no custom mapping or the mapping is
// already active.
func (r *Registry) InjectMapping(className, mappingXML string, class *document.Class) (bool, error) {
	if !r.opts.DynamicMappings || strings.TrimSpace(mappingXML) == "" {
		return false, nil
	}

	m, err := ParseMapping(className, mappingXML)
	if err != nil {
		return false, err
	}
	if err := m.Validate(class); err != nil {
		r.log.Warn().Err(err).Str("class", className).Msg("rejected custom mapping")
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snapshot.Load()
	if _, ok := current.mappings[className]; ok {
		return false, nil
	}
	next := &Snapshot{Version: current.Version + 1, mappings: maps.Clone(current.mappings)}
	next.mappings[className] = m
	r.snapshot.Store(next)

	r.metrics.MappingInjected(next.Len())
	r.log.Info().Str("class", className).Uint64("version", next.Version).Msg("injected custom mapping")
	return true, nil
}

var goTypes = map[string]reflect.Type{
	"string":      reflect.TypeOf((*string)(nil)),
	"text":        reflect.TypeOf((*models.LargeText)(nil)),
	"clob":        reflect.TypeOf((*models.LargeText)(nil)),
	"integer":     reflect.TypeOf((*int32)(nil)),
	"long":        reflect.TypeOf((*int64)(nil)),
	"big_integer": reflect.TypeOf((*int64)(nil)),
	"float":       reflect.TypeOf((*float32)(nil)),
	"double":      reflect.TypeOf((*float64)(nil)),
	"big_decimal": reflect.TypeOf((*float64)(nil)),
	"date":        reflect.TypeOf((*time.Time)(nil)),
	"time":        reflect.TypeOf((*time.Time)(nil)),
	"timestamp":   reflect.TypeOf((*time.Time)(nil)),
	"boolean":     reflect.TypeOf((*bool)(nil)),
	"yes_no":      reflect.TypeOf((*bool)(nil)),
	"true_false":  reflect.TypeOf((*bool)(nil)),
}

// model builds a struct type describing the custom table for the migrator
func (m *Mapping) model() any {
	fields := []reflect.StructField{{
		Name: "XwoID",
		Type: reflect.TypeOf(int64(0)),
		Tag:  reflect.StructTag(`gorm:"column:` + IDColumn + `;primaryKey;autoIncrement:false"`),
	}}
	for i, col := range m.Columns {
		tag := `gorm:"column:` + col.Column
		if col.Type == "string" {
			tag += ";size:255"
		}
		fields = append(fields, reflect.StructField{
			Name: "Col" + strconv.Itoa(i),
			Type: goTypes[col.Type],
			Tag:  reflect.StructTag(tag + `"`),
		})
	}
	return reflect.New(reflect.StructOf(fields)).Interface()
}

// EnsureTable creates the custom table of m in the schema of wikiID, once per wiki. Where DDL
// is transactional the table is created in tx and only remembered once the unit of ctx
// commits. Elsewhere it is created on a connection of its own, since the DDL would commit tx.
func (r *Registry) EnsureTable(ctx context.Context, tx *gorm.DB, wikiID string, m *Mapping) error {
	key := wikiID + "\x00" + m.ClassName
	if _, ok := r.tables.Load(key); ok {
		return nil
	}

	if r.product.TransactionalDDL() {
		if err := tx.Table(m.Table).AutoMigrate(m.model()); err != nil {
			return types.Wrap(err, types.CodeSavingObject, m.ClassName, "Exception while creating custom mapped table")
		}
		session.AfterCommit(ctx, func() { r.tables.Store(key, struct{}{}) })
		return nil
	}

	err := r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		restore, err := r.SwitchToWiki(conn, wikiID)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := restore(); rerr != nil {
				r.log.Error().Err(rerr).Str("wiki", wikiID).Msg("failed to restore connection schema")
			}
		}()
		return conn.Table(m.Table).AutoMigrate(m.model())
	})
	if err != nil {
		return types.Wrap(err, types.CodeSavingObject, m.ClassName, "Exception while creating custom mapped table")
	}
	r.tables.Store(key, struct{}{})
	return nil
}

// Row converts the properties of one object into a row of the custom table
func (m *Mapping) Row(objectID int64, props map[string]property.Property) map[string]any {
	row := map[string]any{IDColumn: objectID}
	for _, col := range m.Columns {
		p, ok := props[col.Property]
		if !ok || p.IsEmpty() {
			row[col.Column] = nil
			continue
		}
		row[col.Column] = columnValue(col.Type, p)
	}
	return row
}

func columnValue(colType string, p property.Property) any {
	switch colType {
	case "string", "text", "clob":
		return p.String()
	case "integer":
		c, _ := property.Convert(p, property.KindInteger)
		return c.Value
	case "long", "big_integer":
		c, _ := property.Convert(p, property.KindLong)
		return c.Value
	case "float":
		c, _ := property.Convert(p, property.KindFloat)
		return c.Value
	case "double", "big_decimal":
		c, _ := property.Convert(p, property.KindDouble)
		return c.Value
	case "date", "time", "timestamp":
		c, _ := property.Convert(p, property.KindDate)
		return c.Value
	case "boolean", "yes_no", "true_false":
		c, _ := property.Convert(p, property.KindLong)
		if n, ok := c.Value.(int64); ok {
			return n != 0
		}
		return nil
	}
	return p.String()
}

// SaveRow replaces the custom row of objectID
func SaveRow(tx *gorm.DB, m *Mapping, objectID int64, props map[string]property.Property) error {
	if err := DeleteRow(tx, m, objectID); err != nil {
		return err
	}
	return tx.Table(m.Table).Create(m.Row(objectID, props)).Error
}

// DeleteRow removes the custom row of objectID
func DeleteRow(tx *gorm.DB, m *Mapping, objectID int64) error {
	return tx.Exec("DELETE FROM "+tx.Statement.Quote(m.Table)+" WHERE "+IDColumn+" = ?", objectID).Error
}
