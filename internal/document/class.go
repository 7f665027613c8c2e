// class.go
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

package document

import (
	"github.com/localnerve/docstore/internal/property"
)

// FieldType is the declared type of a class field
type FieldType string

const (
	FieldString     FieldType = "String"
	FieldTextArea   FieldType = "TextArea"
	FieldPassword   FieldType = "Password"
	FieldNumber     FieldType = "Number"
	FieldDate       FieldType = "Date"
	FieldBoolean    FieldType = "Boolean"
	FieldStaticList FieldType = "StaticList"
	FieldDBList     FieldType = "DBList"
	FieldUsers      FieldType = "Users"
	FieldGroups     FieldType = "Groups"
)

// NumberType refines FieldNumber
type NumberType string

const (
	NumberInteger NumberType = "integer"
	NumberLong    NumberType = "long"
	NumberFloat   NumberType = "float"
	NumberDouble  NumberType = "double"
)

// Field declares one property of a class
type Field struct {
	Name       string
	Type       FieldType
	Pretty     string
	Number     int
	NumberType NumberType
	// Multiple allows several values for list fields
	Multiple bool
	// Relational stores multiple values one per row instead of joined
	Relational bool
}

// PropertyKind is the storage kind used for values of this field
func (f Field) PropertyKind() property.Kind {
	switch f.Type {
	case FieldTextArea:
		return property.KindLargeString
	case FieldNumber:
		switch f.NumberType {
		case NumberLong:
			return property.KindLong
		case NumberFloat:
			return property.KindFloat
		case NumberDouble:
			return property.KindDouble
		}
		return property.KindInteger
	case FieldBoolean:
		return property.KindInteger
	case FieldDate:
		return property.KindDate
	case FieldStaticList, FieldDBList, FieldUsers, FieldGroups:
		switch {
		case f.Multiple && f.Relational:
			return property.KindDBStringList
		case f.Multiple:
			return property.KindStringList
		case f.Type == FieldStaticList || f.Type == FieldDBList:
			return property.KindString
		}
		return property.KindLargeString
	}
	return property.KindString
}

// Class is the definition of a typed object schema, owned by the document of the same name
type Class struct {
	Name          string
	Fields        []*Field
	CustomMapping string
}

// NewClass creates an empty class definition
func NewClass(name string) *Class {
	return &Class{Name: name}
}

// AddField appends a field, numbering it in declaration order
func (c *Class) AddField(f Field) *Class {
	f.Number = len(c.Fields) + 1
	c.Fields = append(c.Fields, &f)
	return c
}

// Field returns the field of that name
func (c *Class) Field(name string) (*Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// IsEmpty reports a class without fields
func (c *Class) IsEmpty() bool {
	return c == nil || len(c.Fields) == 0
}

// Clone deep copies the class
func (c *Class) Clone() *Class {
	if c == nil {
		return nil
	}
	cp := &Class{Name: c.Name, CustomMapping: c.CustomMapping}
	for _, f := range c.Fields {
		fc := *f
		cp.Fields = append(cp.Fields, &fc)
	}
	return cp
}
