// archive.go
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

// ArchiveNode is one revision of a document; the primary key forbids duplicate versions
type ArchiveNode struct {
	DocID     int64 `gorm:"primaryKey;autoIncrement:false"`
	Major     int   `gorm:"primaryKey;autoIncrement:false"`
	Minor     int   `gorm:"primaryKey;autoIncrement:false"`
	Date      time.Time
	Author    string `gorm:"size:255"`
	Comment   string `gorm:"size:1023"`
	MinorEdit bool   `gorm:"not null;default:false"`
	Diff      bool   `gorm:"not null;default:false"`
	Patch     LargeText
}

// TableName overrides the table name for ArchiveNode
func (ArchiveNode) TableName() string {
	return "archive_nodes"
}

// DeletedDocument is one recycle bin record. XML holds the payload when it is stored inline.
type DeletedDocument struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	FullName string `gorm:"size:511;not null;index:idx_deleted_documents_name,priority:1"`
	Language string `gorm:"size:16;not null;default:'';index:idx_deleted_documents_name,priority:2"`
	Deleter  string `gorm:"size:255"`
	BatchID  string `gorm:"size:255;index"`
	Store    string `gorm:"size:32"`
	XML      LargeText
	Date     time.Time `gorm:"index"`
}

// TableName overrides the table name for DeletedDocument
func (DeletedDocument) TableName() string {
	return "deleted_documents"
}
