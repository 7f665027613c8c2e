// json.go
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
	"bytes"
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSONList is a string list stored as a JSON array through gorm.io/datatypes.JSON.
// Legacy rows holding a single JSON string are read as a one element list.
type JSONList struct {
	datatypes.JSON
}

// NewJSONList encodes items
func NewJSONList(items []string) (JSONList, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return JSONList{}, err
	}
	return JSONList{JSON: datatypes.JSON(b)}, nil
}

// Items decodes the list. NULL and empty columns are an empty list.
func (j JSONList) Items() ([]string, error) {
	data := bytes.TrimSpace(j.JSON)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []string{}, nil
	}
	if data[0] != '[' {
		var item string
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		return []string{item}, nil
	}
	items := []string{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Value promotes the embedded JSON's Value method
func (j JSONList) Value() (driver.Value, error) {
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method
func (j *JSONList) Scan(value interface{}) error {
	return j.JSON.Scan(value)
}

// GormDBDataType ensures the correct data type is used for each database driver.
// This resolves the issue where MSSQL does not support the 'json' data type.
func (JSONList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}

// LargeText is a string column sized for page content on every dialect
type LargeText string

// GormDBDataType picks the unbounded text type of the dialect
func (LargeText) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "MEDIUMTEXT"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	}
	return "TEXT"
}

// All lists every model migrated into a wiki schema
func All() []interface{} {
	return []interface{}{
		&Document{},
		&Link{},
		&Lock{},
		&Object{},
		&Property{},
		&StringProperty{},
		&LargeStringProperty{},
		&IntegerProperty{},
		&LongProperty{},
		&FloatProperty{},
		&DoubleProperty{},
		&DateProperty{},
		&StringListProperty{},
		&DBStringListProperty{},
		&Attachment{},
		&AttachmentContent{},
		&AttachmentArchive{},
		&ArchiveNode{},
		&DeletedDocument{},
	}
}
