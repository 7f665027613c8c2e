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

package document

import (
	"bytes"
	"time"
)

// Attachment is a named binary attached to a document. Content is loaded on demand.
type Attachment struct {
	DocRef   Reference
	DocID    int64
	Filename string
	Size     int64
	MimeType string
	Author   string
	Date     time.Time
	Version  Version
	Comment  string
	// ContentStore names the backend holding the binary
	ContentStore string

	content      []byte
	contentSet   bool
	contentDirty bool
}

// NewAttachment creates an attachment holding data, marked dirty
func NewAttachment(filename string, data []byte) *Attachment {
	a := &Attachment{Filename: filename}
	a.SetContent(data)
	return a
}

// ID derives the attachment row id from the owning document id and the filename
func (a *Attachment) ID() int64 {
	return hashID(localUID(a.DocRef.Space, a.DocRef.Name, a.Filename))
}

// AttachmentID is the row id of filename on the document at ref
func AttachmentID(ref Reference, filename string) int64 {
	return hashID(localUID(ref.Space, ref.Name, filename))
}

// SetContent replaces the binary and marks it dirty
func (a *Attachment) SetContent(data []byte) {
	a.content = append([]byte(nil), data...)
	a.contentSet = true
	a.contentDirty = true
	a.Size = int64(len(data))
}

// SetLoadedContent installs content read from a backend, leaving it clean
func (a *Attachment) SetLoadedContent(data []byte) {
	a.content = data
	a.contentSet = true
	a.contentDirty = false
	a.Size = int64(len(data))
}

// Content returns the binary when loaded
func (a *Attachment) Content() ([]byte, bool) {
	return a.content, a.contentSet
}

// ContentLoaded reports whether content is in memory
func (a *Attachment) ContentLoaded() bool {
	return a.contentSet
}

// ContentDirty reports unsaved content
func (a *Attachment) ContentDirty() bool {
	return a.contentDirty
}

// MarkContentClean is called once content is persisted
func (a *Attachment) MarkContentClean() {
	a.contentDirty = false
}

// DropContent forgets in-memory content, as after delete
func (a *Attachment) DropContent() {
	a.content = nil
	a.contentSet = false
	a.contentDirty = false
}

// Clone copies metadata and content state
func (a *Attachment) Clone() *Attachment {
	if a == nil {
		return nil
	}
	cp := *a
	if a.content != nil {
		cp.content = append([]byte(nil), a.content...)
	}
	return &cp
}

// Equal compares metadata and, when both are loaded, content
func (a *Attachment) Equal(o *Attachment) bool {
	if a == nil || o == nil {
		return a == o
	}
	if a.Filename != o.Filename || a.Size != o.Size || a.MimeType != o.MimeType || a.Author != o.Author ||
		a.Version != o.Version || !a.Date.Equal(o.Date) {
		return false
	}
	if a.contentSet && o.contentSet {
		return bytes.Equal(a.content, o.content)
	}
	return true
}
