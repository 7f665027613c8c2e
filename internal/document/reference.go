// reference.go
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

// Package document holds the in-memory model of wiki documents: metadata, typed objects,
// class definitions, attachments and revision archives.
package document

import (
	"crypto/md5"
	"encoding/binary"
	"strconv"
	"strings"
)

// Reference locates a document: wiki, dotted space path and page name
type Reference struct {
	Wiki  string
	Space string
	Name  string
}

// NewReference builds a reference from a wiki id and a "Space.Name" full name
func NewReference(wiki, fullName string) Reference {
	i := strings.LastIndex(fullName, ".")
	if i < 0 {
		return Reference{Wiki: wiki, Space: "Main", Name: fullName}
	}
	return Reference{Wiki: wiki, Space: fullName[:i], Name: fullName[i+1:]}
}

// FullName is the wiki-local "Space.Name" form
func (r Reference) FullName() string {
	return r.Space + "." + r.Name
}

func (r Reference) String() string {
	if r.Wiki == "" {
		return r.FullName()
	}
	return r.Wiki + ":" + r.FullName()
}

// WithWiki returns the same reference in another wiki
func (r Reference) WithWiki(wiki string) Reference {
	r.Wiki = wiki
	return r
}

// localUID serializes the wiki-local identity as length-prefixed parts
func localUID(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// hashID derives a stable 64 bit identifier from a uid string
func hashID(uid string) int64 {
	sum := md5.Sum([]byte(uid))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// DocumentID is the numeric row id of the document at ref in the given locale
func DocumentID(ref Reference, locale string) int64 {
	return hashID(localUID(ref.Space, ref.Name, locale))
}

// Key is the cache key of a document: wiki, full name and locale
func Key(ref Reference, locale string) string {
	return localUID(ref.Wiki, ref.Space, ref.Name, locale)
}
