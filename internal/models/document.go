// document.go
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

// Element flags stored on a document row
const (
	ElementAttachments = 1 << iota
	ElementObjects
)

// Document is one page row, keyed by the id derived from its name and locale
type Document struct {
	ID                int64     `gorm:"primaryKey;autoIncrement:false"`
	FullName          string    `gorm:"size:511;not null;index:idx_documents_full_name"`
	Space             string    `gorm:"size:255;not null;index:idx_documents_space_name,priority:1"`
	Name              string    `gorm:"size:255;not null;index:idx_documents_space_name,priority:2"`
	Language          string    `gorm:"size:16;not null;default:''"`
	DefaultLanguage   string    `gorm:"size:16"`
	Translation       int       `gorm:"not null;default:0"`
	Title             string    `gorm:"size:255"`
	Parent            string    `gorm:"size:511"`
	Content           LargeText `gorm:"column:content"`
	Syntax            string    `gorm:"size:50"`
	Author            string    `gorm:"size:255"`
	ContentAuthor     string    `gorm:"size:255"`
	Creator           string    `gorm:"size:255"`
	Comment           string    `gorm:"size:1023"`
	MinorEdit         bool      `gorm:"not null;default:false"`
	Hidden            bool      `gorm:"not null;default:false"`
	Version           string    `gorm:"size:255;not null"`
	ClassXML          LargeText `gorm:"column:class_xml"`
	Elements          int       `gorm:"not null;default:0"`
	CreationDate      time.Time
	Date              time.Time
	ContentUpdateDate time.Time
}

// TableName overrides the table name for Document
func (Document) TableName() string {
	return "documents"
}

// HasElement reports one of the Element flags
func (d Document) HasElement(flag int) bool {
	return d.Elements&flag != 0
}

// Link is one outgoing wiki link of a document
type Link struct {
	DocID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Link     string `gorm:"primaryKey;size:511"`
	FullName string `gorm:"size:511;not null;index"`
}

// TableName overrides the table name for Link
func (Link) TableName() string {
	return "links"
}

// Lock is the advisory edit lock of a document
type Lock struct {
	DocID    int64  `gorm:"primaryKey;autoIncrement:false"`
	UserName string `gorm:"size:255;not null;index"`
	Date     time.Time
}

// TableName overrides the table name for Lock
func (Lock) TableName() string {
	return "locks"
}

// Wiki records a wiki and the schema version it is migrated to; lives in the main schema
type Wiki struct {
	WikiID        string `gorm:"primaryKey;size:255"`
	SchemaVersion int    `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the table name for Wiki
func (Wiki) TableName() string {
	return "wikis"
}
