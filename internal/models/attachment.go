// attachment.go
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

// Attachment is the metadata row of a document attachment
type Attachment struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	DocID        int64  `gorm:"not null;index"`
	Filename     string `gorm:"size:255;not null"`
	Size         int64  `gorm:"not null;default:0"`
	MimeType     string `gorm:"size:255"`
	Author       string `gorm:"size:255"`
	Version      string `gorm:"size:255;not null"`
	Comment      string `gorm:"size:1023"`
	ContentStore string `gorm:"size:32"`
	Date         time.Time
}

// TableName overrides the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}

// AttachmentContent holds the current binary of an attachment kept in the database
type AttachmentContent struct {
	AttachmentID int64  `gorm:"primaryKey;autoIncrement:false"`
	Content      []byte `gorm:"not null"`
}

// TableName overrides the table name for AttachmentContent
func (AttachmentContent) TableName() string {
	return "attachment_contents"
}

// AttachmentArchive holds one past binary version of an attachment
type AttachmentArchive struct {
	AttachmentID int64  `gorm:"primaryKey;autoIncrement:false"`
	Version      string `gorm:"primaryKey;size:255"`
	Author       string `gorm:"size:255"`
	Date         time.Time
	Content      []byte
}

// TableName overrides the table name for AttachmentArchive
func (AttachmentArchive) TableName() string {
	return "attachment_archives"
}
