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

package document

import (
	"sort"
	"time"
)

// Document is one wiki page in one locale, with its objects, class and attachments
type Document struct {
	Ref           Reference
	Locale        string
	DefaultLocale string
	Translation   bool

	Title         string
	Content       string
	Parent        string
	Syntax        string
	Author        string
	ContentAuthor string
	Creator       string
	Comment       string
	MinorEdit     bool
	Hidden        bool

	CreationDate      time.Time
	Date              time.Time
	ContentUpdateDate time.Time
	Version           Version

	class               *Class
	objects             map[string][]*Object
	objectsToRemove     []*Object
	attachments         []*Attachment
	attachmentsToRemove []*Attachment
	archive             *Archive

	contentDirty  bool
	metadataDirty bool
	isNew         bool
	fromCache     bool
	store         string
	original      *Document
}

// New creates an empty, new document at ref in locale
func New(ref Reference, locale string) *Document {
	return &Document{
		Ref:     ref,
		Locale:  locale,
		objects: map[string][]*Object{},
		isNew:   true,
	}
}

// ID is the numeric row id
func (d *Document) ID() int64 {
	return DocumentID(d.Ref, d.Locale)
}

// Key is the cache key
func (d *Document) Key() string {
	return Key(d.Ref, d.Locale)
}

// FullName is the wiki-local "Space.Name"
func (d *Document) FullName() string {
	return d.Ref.FullName()
}

// SetContent replaces the content and marks the document content-dirty
func (d *Document) SetContent(content string) {
	d.Content = content
	d.contentDirty = true
}

// SetTitle replaces the title and marks metadata dirty
func (d *Document) SetTitle(title string) {
	d.Title = title
	d.metadataDirty = true
}

// MarkMetadataDirty flags a metadata change made through exported fields
func (d *Document) MarkMetadataDirty() {
	d.metadataDirty = true
}

// ContentDirty reports unsaved content changes
func (d *Document) ContentDirty() bool { return d.contentDirty }

// MetadataDirty reports unsaved metadata changes
func (d *Document) MetadataDirty() bool { return d.metadataDirty }

// IsDirty reports any unsaved change
func (d *Document) IsDirty() bool { return d.contentDirty || d.metadataDirty }

// ClearDirty resets both dirty flags
func (d *Document) ClearDirty() {
	d.contentDirty = false
	d.metadataDirty = false
}

// IsNew reports a document not yet stored
func (d *Document) IsNew() bool { return d.isNew }

// SetNew sets the new flag
func (d *Document) SetNew(isNew bool) { d.isNew = isNew }

// FromCache reports a document returned by the cache proxy
func (d *Document) FromCache() bool { return d.fromCache }

// SetFromCache marks cache provenance
func (d *Document) SetFromCache(v bool) { d.fromCache = v }

// Store names the store the document was loaded from or saved to; empty when never persisted
func (d *Document) Store() string { return d.store }

// SetStore records store provenance
func (d *Document) SetStore(name string) { d.store = name }

// Original is the snapshot taken at the last load or save
func (d *Document) Original() *Document { return d.original }

// SetOriginal installs the snapshot
func (d *Document) SetOriginal(o *Document) { d.original = o }

// Class is the document's own class definition, possibly nil
func (d *Document) Class() *Class { return d.class }

// SetClass installs the document's own class definition
func (d *Document) SetClass(c *Class) {
	d.class = c
	d.metadataDirty = true
}

// Archive is the caller supplied or loaded revision history, possibly nil
func (d *Document) Archive() *Archive { return d.archive }

// SetArchive installs a revision history
func (d *Document) SetArchive(a *Archive) { d.archive = a }

// AddObject appends obj to its class list, numbering it after the last object of that class
func (d *Document) AddObject(obj *Object) *Object {
	if d.objects == nil {
		d.objects = map[string][]*Object{}
	}
	list := d.objects[obj.ClassName]
	obj.Number = len(list)
	obj.DocRef = d.Ref
	d.objects[obj.ClassName] = append(list, obj)
	d.metadataDirty = true
	return obj
}

// SetObject places obj at its own number, growing the class list with nil holes as needed
func (d *Document) SetObject(obj *Object) {
	if d.objects == nil {
		d.objects = map[string][]*Object{}
	}
	list := d.objects[obj.ClassName]
	for len(list) <= obj.Number {
		list = append(list, nil)
	}
	obj.DocRef = d.Ref
	list[obj.Number] = obj
	d.objects[obj.ClassName] = list
}

// RemoveObject drops obj and plans its deletion from storage
func (d *Document) RemoveObject(obj *Object) bool {
	list := d.objects[obj.ClassName]
	if obj.Number < 0 || obj.Number >= len(list) || list[obj.Number] != obj {
		return false
	}
	list[obj.Number] = nil
	d.objectsToRemove = append(d.objectsToRemove, obj)
	d.metadataDirty = true
	return true
}

// Objects returns the objects of one class, including nil holes
func (d *Document) Objects(className string) []*Object {
	return d.objects[className]
}

// Object returns the object of className at number
func (d *Document) Object(className string, number int) *Object {
	list := d.objects[className]
	if number < 0 || number >= len(list) {
		return nil
	}
	return list[number]
}

// ObjectClasses lists the classes having objects, sorted
func (d *Document) ObjectClasses() []string {
	names := make([]string, 0, len(d.objects))
	for n := range d.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AllObjects lists every non-nil object, by class then number
func (d *Document) AllObjects() []*Object {
	var out []*Object
	for _, cn := range d.ObjectClasses() {
		for _, o := range d.objects[cn] {
			if o != nil {
				out = append(out, o)
			}
		}
	}
	return out
}

// HasObjects reports at least one non-nil object
func (d *Document) HasObjects() bool {
	for _, list := range d.objects {
		for _, o := range list {
			if o != nil {
				return true
			}
		}
	}
	return false
}

// ObjectsToRemove lists objects planned for deletion
func (d *Document) ObjectsToRemove() []*Object { return d.objectsToRemove }

// ClearObjectsToRemove forgets planned deletions once persisted
func (d *Document) ClearObjectsToRemove() { d.objectsToRemove = nil }

// Attachments lists attachments sorted by filename
func (d *Document) Attachments() []*Attachment { return d.attachments }

// Attachment returns the attachment named filename
func (d *Document) Attachment(filename string) *Attachment {
	for _, a := range d.attachments {
		if a.Filename == filename {
			return a
		}
	}
	return nil
}

// AddAttachment adds or replaces an attachment by filename
func (d *Document) AddAttachment(a *Attachment) {
	a.DocRef = d.Ref
	for i, existing := range d.attachments {
		if existing.Filename == a.Filename {
			d.attachments[i] = a
			return
		}
	}
	d.attachments = append(d.attachments, a)
	sort.Slice(d.attachments, func(i, j int) bool { return d.attachments[i].Filename < d.attachments[j].Filename })
}

// RemoveAttachment drops the named attachment and plans its deletion
func (d *Document) RemoveAttachment(filename string) *Attachment {
	for i, a := range d.attachments {
		if a.Filename == filename {
			d.attachments = append(d.attachments[:i], d.attachments[i+1:]...)
			d.attachmentsToRemove = append(d.attachmentsToRemove, a)
			return a
		}
	}
	return nil
}

// AttachmentsToRemove lists attachments planned for deletion
func (d *Document) AttachmentsToRemove() []*Attachment { return d.attachmentsToRemove }

// ClearAttachmentsToRemove forgets planned deletions once persisted
func (d *Document) ClearAttachmentsToRemove() { d.attachmentsToRemove = nil }

// IncrementVersion moves to the next version per the minor edit flag
func (d *Document) IncrementVersion() {
	if d.Version.IsZero() {
		d.Version = FirstVersion
		return
	}
	d.Version = d.Version.Next(d.MinorEdit)
}

// Clone deep copies the document; the original snapshot is shared, not copied
func (d *Document) Clone() *Document {
	cp := *d
	cp.class = d.class.Clone()
	cp.archive = d.archive.Clone()
	cp.objects = make(map[string][]*Object, len(d.objects))
	for cn, list := range d.objects {
		cl := make([]*Object, len(list))
		for i, o := range list {
			cl[i] = o.Clone()
		}
		cp.objects[cn] = cl
	}
	cp.objectsToRemove = cloneObjects(d.objectsToRemove)
	cp.attachments = cloneAttachments(d.attachments)
	cp.attachmentsToRemove = cloneAttachments(d.attachmentsToRemove)
	return &cp
}

// Equal compares persisted state: metadata, content, class, objects and attachment metadata
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Ref != o.Ref || d.Locale != o.Locale || d.DefaultLocale != o.DefaultLocale || d.Translation != o.Translation ||
		d.Title != o.Title || d.Content != o.Content || d.Parent != o.Parent || d.Syntax != o.Syntax ||
		d.Author != o.Author || d.ContentAuthor != o.ContentAuthor || d.Creator != o.Creator ||
		d.Comment != o.Comment || d.MinorEdit != o.MinorEdit || d.Hidden != o.Hidden || d.Version != o.Version ||
		!d.CreationDate.Equal(o.CreationDate) || !d.Date.Equal(o.Date) || !d.ContentUpdateDate.Equal(o.ContentUpdateDate) {
		return false
	}
	if !classEqual(d.class, o.class) {
		return false
	}
	do, oo := d.AllObjects(), o.AllObjects()
	if len(do) != len(oo) {
		return false
	}
	for i := range do {
		if !do[i].Equal(oo[i]) {
			return false
		}
	}
	if len(d.attachments) != len(o.attachments) {
		return false
	}
	for i := range d.attachments {
		if !d.attachments[i].Equal(o.attachments[i]) {
			return false
		}
	}
	return true
}

func classEqual(a, b *Class) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() == b.IsEmpty()
	}
	if a.Name != b.Name || a.CustomMapping != b.CustomMapping || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if *a.Fields[i] != *b.Fields[i] {
			return false
		}
	}
	return true
}

func cloneObjects(in []*Object) []*Object {
	if in == nil {
		return nil
	}
	out := make([]*Object, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}

func cloneAttachments(in []*Attachment) []*Attachment {
	if in == nil {
		return nil
	}
	out := make([]*Attachment, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
