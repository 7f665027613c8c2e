// object.go
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

package models

import (
	"time"
)

// Object is one typed object row; the id derives from document, class and number
type Object struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	DocName   string `gorm:"size:511;not null;index:idx_objects_doc_class,priority:1"`
	ClassName string `gorm:"size:511;not null;index:idx_objects_doc_class,priority:2"`
	Number    int    `gorm:"not null"`
	GUID      string `gorm:"column:guid;size:255"`
}

// TableName overrides the table name for Object
func (Object) TableName() string {
	return "objects"
}

// Property records the name and storage kind of one object property.
// The value lives in the table of its kind.
type Property struct {
	ObjectID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"primaryKey;size:255"`
	ClassType string `gorm:"size:255;not null"`
}

// TableName overrides the table name for Property
func (Property) TableName() string {
	return "properties"
}

// StringProperty holds short string values
type StringProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    string `gorm:"size:768"`
}

// TableName overrides the table name for StringProperty
func (StringProperty) TableName() string {
	return "string_properties"
}

// LargeStringProperty holds text values
type LargeStringProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    LargeText
}

// TableName overrides the table name for LargeStringProperty
func (LargeStringProperty) TableName() string {
	return "large_string_properties"
}

// IntegerProperty holds 32 bit integers and booleans
type IntegerProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    *int32
}

// TableName overrides the table name for IntegerProperty
func (IntegerProperty) TableName() string {
	return "integer_properties"
}

// LongProperty holds 64 bit integers
type LongProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    *int64
}

// TableName overrides the table name for LongProperty
func (LongProperty) TableName() string {
	return "long_properties"
}

// FloatProperty holds single precision values
type FloatProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    *float32
}

// TableName overrides the table name for FloatProperty
func (FloatProperty) TableName() string {
	return "float_properties"
}

// DoubleProperty holds double precision values
type DoubleProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    *float64
}

// TableName overrides the table name for DoubleProperty
func (DoubleProperty) TableName() string {
	return "double_properties"
}

// DateProperty holds timestamps
type DateProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    *time.Time
}

// TableName overrides the table name for DateProperty
func (DateProperty) TableName() string {
	return "date_properties"
}

// StringListProperty holds a list joined with the list separator
type StringListProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    LargeText
}

// TableName overrides the table name for StringListProperty
func (StringListProperty) TableName() string {
	return "string_list_properties"
}

// DBStringListProperty holds a list as a JSON array
type DBStringListProperty struct {
	ObjectID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:255"`
	Value    JSONList
}

// TableName overrides the table name for DBStringListProperty
func (DBStringListProperty) TableName() string {
	return "db_string_list_properties"
}
