// property.go
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

// Package property models typed object property values and the conversions between storage kinds.
package property

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the storage type of one object property
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindLargeString
	KindInteger
	KindLong
	KindFloat
	KindDouble
	KindDate
	KindStringList
	KindDBStringList
)

// ListSeparator joins StringList values in their single column
const ListSeparator = "|"

var kindNames = map[Kind]string{
	KindString:       "StringProperty",
	KindLargeString:  "LargeStringProperty",
	KindInteger:      "IntegerProperty",
	KindLong:         "LongProperty",
	KindFloat:        "FloatProperty",
	KindDouble:       "DoubleProperty",
	KindDate:         "DateProperty",
	KindStringList:   "StringListProperty",
	KindDBStringList: "DBStringListProperty",
}

// Kinds lists every known kind in declaration order
func Kinds() []Kind {
	return []Kind{KindString, KindLargeString, KindInteger, KindLong, KindFloat, KindDouble, KindDate, KindStringList, KindDBStringList}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownProperty"
}

// IsList reports whether values of this kind are string slices
func (k Kind) IsList() bool {
	return k == KindStringList || k == KindDBStringList
}

// ParseKind resolves a stored class type name. Legacy fully qualified names are accepted;
// anything unrecognised yields KindUnknown.
func ParseKind(name string) Kind {
	short := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		short = name[i+1:]
	}
	for k, n := range kindNames {
		if strings.EqualFold(n, short) {
			return k
		}
	}
	return KindUnknown
}

// Property is one named, typed value of an object.
// Value holds string, int32, int64, float32, float64, time.Time or []string according to Kind, or nil.
type Property struct {
	Name  string
	Kind  Kind
	Value any
	// LegacyType keeps the stored class type of a KindUnknown property
	LegacyType string
}

// New builds a property, normalising the value to the Go type of kind
func New(name string, kind Kind, value any) (Property, error) {
	p := Property{Name: name, Kind: kind}
	if value == nil {
		return p, nil
	}
	v, err := normalize(kind, value)
	if err != nil {
		return p, fmt.Errorf("property %s: %w", name, err)
	}
	p.Value = v
	return p, nil
}

// ClassType is the name persisted alongside the value
func (p Property) ClassType() string {
	if p.Kind == KindUnknown {
		return p.LegacyType
	}
	return p.Kind.String()
}

// IsEmpty reports a property without value
func (p Property) IsEmpty() bool {
	return p.Value == nil
}

// String renders the value the way it is shown and compared
func (p Property) String() string {
	return format(p.Value)
}

// Strings returns list values, or a one element list for scalars
func (p Property) Strings() []string {
	switch v := p.Value.(type) {
	case nil:
		return nil
	case []string:
		return v
	}
	return []string{format(p.Value)}
}

// Clone copies the property, including list backing arrays
func (p Property) Clone() Property {
	if l, ok := p.Value.([]string); ok {
		p.Value = append([]string(nil), l...)
	}
	return p
}

// Equal compares name, kind and value
func (p Property) Equal(o Property) bool {
	if p.Name != o.Name || p.Kind != o.Kind {
		return false
	}
	if t, ok := p.Value.(time.Time); ok {
		ot, ok := o.Value.(time.Time)
		return ok && t.Equal(ot)
	}
	if l, ok := p.Value.([]string); ok {
		ol, ok := o.Value.([]string)
		if !ok || len(l) != len(ol) {
			return false
		}
		for i := range l {
			if l[i] != ol[i] {
				return false
			}
		}
		return true
	}
	return p.Value == o.Value
}
