// version.go
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
	"fmt"
	"strconv"
	"strings"
)

// Version is a revision identifier of the form major.minor
type Version struct {
	Major int
	Minor int
}

// FirstVersion is assigned on the first save of a document
var FirstVersion = Version{Major: 1, Minor: 1}

// ParseVersion parses "1.3"
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	ma, err := strconv.Atoi(major)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	mi, err := strconv.Atoi(minor)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if ma < 1 || mi < 1 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	return Version{Major: ma, Minor: mi}, nil
}

// MustParseVersion is ParseVersion for literals
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// IsZero reports an unset version
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// Next returns the following version; a minor edit bumps the minor part,
// anything else opens the next major line
func (v Version) Next(minorEdit bool) Version {
	if v.IsZero() {
		return FirstVersion
	}
	if minorEdit {
		return Version{Major: v.Major, Minor: v.Minor + 1}
	}
	return Version{Major: v.Major + 1, Minor: 1}
}

// Compare returns -1, 0 or 1
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		if v.Major < o.Major {
			return -1
		}
		return 1
	case v.Minor != o.Minor:
		if v.Minor < o.Minor {
			return -1
		}
		return 1
	}
	return 0
}
