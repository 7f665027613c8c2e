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

package document

import (
	"sort"
	"strconv"

	"github.com/localnerve/docstore/internal/property"
)

// GroupsClass is the class whose member field is loaded in one batch
const GroupsClass = "XWiki.XWikiGroups"

// Object is one typed instance of a class attached to a document
type Object struct {
	ClassName string
	// ClassWiki is set when the class lives in another wiki than the document
	ClassWiki string
	Number    int
	GUID      string
	DocRef    Reference

	fields         map[string]property.Property
	fieldsToRemove []property.Property
}

// NewObject creates an empty object of className
func NewObject(className string) *Object {
	return &Object{ClassName: className, fields: map[string]property.Property{}}
}

// ID is the stable numeric id of the object within its document
func (o *Object) ID() int64 {
	return ObjectID(o.DocRef, o.ClassName, o.Number)
}

// ObjectID derives the object row id from its document, class and number
func ObjectID(doc Reference, className string, number int) int64 {
	return hashID(localUID(doc.Space, doc.Name, className, strconv.Itoa(number)))
}

// Set stores a property, replacing any previous value of the same name
func (o *Object) Set(p property.Property) {
	if o.fields == nil {
		o.fields = map[string]property.Property{}
	}
	o.fields[p.Name] = p
}

// SetValue builds and stores a property of the given kind
func (o *Object) SetValue(name string, kind property.Kind, value any) error {
	p, err := property.New(name, kind, value)
	if err != nil {
		return err
	}
	o.Set(p)
	return nil
}

// Get returns the named property
func (o *Object) Get(name string) (property.Property, bool) {
	p, ok := o.fields[name]
	return p, ok
}

// Remove drops a property and plans its removal from storage
func (o *Object) Remove(name string) {
	if p, ok := o.fields[name]; ok {
		delete(o.fields, name)
		o.fieldsToRemove = append(o.fieldsToRemove, p)
	}
}

// FieldNames lists property names in sorted order
func (o *Object) FieldNames() []string {
	names := make([]string, 0, len(o.fields))
	for n := range o.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Properties lists properties in name order
func (o *Object) Properties() []property.Property {
	out := make([]property.Property, 0, len(o.fields))
	for _, n := range o.FieldNames() {
		out = append(out, o.fields[n])
	}
	return out
}

// FieldsToRemove lists properties planned for removal
func (o *Object) FieldsToRemove() []property.Property {
	return o.fieldsToRemove
}

// ClearFieldsToRemove forgets planned removals once persisted
func (o *Object) ClearFieldsToRemove() {
	o.fieldsToRemove = nil
}

// Clone deep copies the object
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	cp := *o
	cp.fields = make(map[string]property.Property, len(o.fields))
	for k, p := range o.fields {
		cp.fields[k] = p.Clone()
	}
	cp.fieldsToRemove = append([]property.Property(nil), o.fieldsToRemove...)
	return &cp
}

// Equal compares identity and properties, ignoring planned removals
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.ClassName != other.ClassName || o.Number != other.Number || o.GUID != other.GUID || len(o.fields) != len(other.fields) {
		return false
	}
	for k, p := range o.fields {
		op, ok := other.fields[k]
		if !ok || !p.Equal(op) {
			return false
		}
	}
	return true
}
