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

package document

import "time"

// RevisionInfo describes one revision without its content
type RevisionInfo struct {
	Version Version
	Date    time.Time
	Author  string
	Comment string
	Minor   bool
}

// ArchiveNode is one stored revision. Diff nodes hold a patch against the preceding node,
// others hold the full serialized document.
type ArchiveNode struct {
	RevisionInfo
	Diff    bool
	Content string
}

// Archive is the ordered revision history of one document
type Archive struct {
	DocID int64
	Nodes []*ArchiveNode
}

// Latest returns the newest node, or nil
func (a *Archive) Latest() *ArchiveNode {
	if a == nil || len(a.Nodes) == 0 {
		return nil
	}
	return a.Nodes[len(a.Nodes)-1]
}

// Contains reports whether version is archived
func (a *Archive) Contains(v Version) bool {
	return a.IndexOf(v) >= 0
}

// IndexOf returns the node position of v, or -1
func (a *Archive) IndexOf(v Version) int {
	if a == nil {
		return -1
	}
	for i, n := range a.Nodes {
		if n.Version == v {
			return i
		}
	}
	return -1
}

// Versions lists every archived version in order
func (a *Archive) Versions() []Version {
	if a == nil {
		return nil
	}
	out := make([]Version, 0, len(a.Nodes))
	for _, n := range a.Nodes {
		out = append(out, n.Version)
	}
	return out
}

// Clone deep copies the archive
func (a *Archive) Clone() *Archive {
	if a == nil {
		return nil
	}
	cp := &Archive{DocID: a.DocID, Nodes: make([]*ArchiveNode, 0, len(a.Nodes))}
	for _, n := range a.Nodes {
		nc := *n
		cp.Nodes = append(cp.Nodes, &nc)
	}
	return cp
}
