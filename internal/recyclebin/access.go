// access.go
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

package recyclebin

import (
	"context"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/types"
)

// Right is an action on a deleted document
type Right string

const (
	RightView    Right = "view"
	RightRestore Right = "edit"
	RightPurge   Right = "delete"
	RightAdmin   Right = "admin"
)

// RightsChecker answers whether user holds right on the document at ref
type RightsChecker interface {
	HasRight(ctx context.Context, right Right, user string, ref document.Reference) bool
}

// RightsFunc adapts a function to RightsChecker
type RightsFunc func(ctx context.Context, right Right, user string, ref document.Reference) bool

// HasRight calls f
func (f RightsFunc) HasRight(ctx context.Context, right Right, user string, ref document.Reference) bool {
	return f(ctx, right, user, ref)
}

// DeleterOnly grants every right except admin, leaving records to their deleters
type DeleterOnly struct{}

// HasRight reports true for anything but admin
func (DeleterOnly) HasRight(_ context.Context, right Right, _ string, _ document.Reference) bool {
	return right != RightAdmin
}

// CheckAccess allows user to act on rec when they administer its location, or when they
// deleted it and hold right
func (b *Bin) CheckAccess(ctx context.Context, right Right, user string, rec *Record) error {
	if b.rights.HasRight(ctx, RightAdmin, user, rec.Ref) {
		return nil
	}
	if user != "" && user == rec.Deleter && b.rights.HasRight(ctx, right, user, rec.Ref) {
		return nil
	}
	return types.NewError(types.ErrAuthorizationDenied, types.CodeRecycleBinAccess, rec.Ref.String(),
		"User ["+user+"] is not allowed to "+string(right)+" this deleted document", nil)
}
