// error.go
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

package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every StoreError unwraps to exactly one of these.
var (
	ErrNotFound               = errors.New("docstore: not found")
	ErrVersionNotFound        = errors.New("docstore: version not found")
	ErrMigrationRequired      = errors.New("docstore: migration required")
	ErrInvalidMapping         = errors.New("docstore: invalid custom mapping")
	ErrExternalClassReference = errors.New("docstore: class belongs to another wiki")
	ErrStorageFailure         = errors.New("docstore: storage failure")
	ErrAuthorizationDenied    = errors.New("docstore: authorization denied")
	ErrInvalidArgument        = errors.New("docstore: invalid argument")
)

// Error codes, grouped by component.
const (
	CodeSavingDoc               = 3201
	CodeReadingDoc              = 3202
	CodeDeletingDoc             = 3203
	CodeCannotDeleteUnloadedDoc = 3205
	CodeSavingObject            = 3211
	CodeLoadingObject           = 3212
	CodeDeletingObject          = 3213
	CodeSavingAttachment        = 3221
	CodeLoadingAttachment       = 3222
	CodeDeletingAttachment      = 3223
	CodeSearch                  = 3224
	CodeSavingLinks             = 3231
	CodeLoadingLinks            = 3232
	CodeDeletingLinks           = 3233
	CodeCheckExistsDoc          = 3236
	CodeLocks                   = 3241
	CodeMigratingProperty       = 3251
	CodeSwitchDatabase          = 3301
	CodeInvalidMapping          = 3302
	CodeExternalClass           = 3303
	CodeMigrationRequired       = 3304
	CodeWikiNotFound            = 3305
	CodeCreateDatabase          = 3401
	CodeDeleteDatabase          = 3402
	CodeSession                 = 3501
	CodeArchive                 = 13001
	CodeArchiveVersion          = 13002
	CodeAttachmentContent       = 14001
	CodeRecycleBin              = 15001
	CodeRecycleBinAccess        = 15002
	CodeCache                   = 16001
)

// StoreError is the one domain error carried out of every store operation
type StoreError struct {
	Kind    error  `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
	Err     error  `json:"-"`
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%d: %s", e.Code, e.Message)
	if e.Target != "" {
		msg += fmt.Sprintf(" [%s]", e.Target)
	}
	msg += fmt.Sprintf(" [type: %s]", e.Type())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the preserved cause
func (e *StoreError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Type names the error kind for logs and responses
func (e *StoreError) Type() string {
	switch e.Kind {
	case ErrNotFound:
		return "not-found"
	case ErrVersionNotFound:
		return "version-not-found"
	case ErrMigrationRequired:
		return "migration-required"
	case ErrInvalidMapping:
		return "invalid-mapping"
	case ErrExternalClassReference:
		return "external-class"
	case ErrAuthorizationDenied:
		return "authorization"
	case ErrInvalidArgument:
		return "invalid-argument"
	}
	return "storage"
}

// NewError builds a StoreError of the given kind
func NewError(kind error, code int, target, message string, cause error) *StoreError {
	return &StoreError{Kind: kind, Code: code, Message: message, Target: target, Err: cause}
}

// Wrap turns cause into a StorageFailure unless it already is a StoreError, which is returned as is
func Wrap(cause error, code int, target, message string) error {
	if cause == nil {
		return nil
	}
	var se *StoreError
	if errors.As(cause, &se) {
		return cause
	}
	return NewError(ErrStorageFailure, code, target, message, cause)
}

// AsStoreError returns the StoreError in err's chain, if any
func AsStoreError(err error) (*StoreError, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
