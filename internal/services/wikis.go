// wikis.go
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

package services

import (
	"context"

	"github.com/localnerve/docstore/internal/events"
	"github.com/localnerve/docstore/internal/types"
)

// IsWikiNameAvailable reports whether a wiki named wikiID can be created
func (s *DocumentService) IsWikiNameAvailable(ctx context.Context, wikiID string) (bool, error) {
	if s.registry == nil {
		return false, nil
	}
	return s.registry.IsWikiNameAvailable(ctx, wikiID)
}

// CreateWiki creates the database of wikiID and its tables
func (s *DocumentService) CreateWiki(ctx context.Context, wikiID string) error {
	available, err := s.IsWikiNameAvailable(ctx, wikiID)
	if err != nil {
		return err
	}
	if !available {
		return types.NewError(types.ErrInvalidArgument, types.CodeCreateDatabase, wikiID, "The wiki name is not available", nil)
	}
	return s.registry.CreateWiki(ctx, wikiID)
}

// DeleteWiki drops the database of wikiID and tells every listener to forget it
func (s *DocumentService) DeleteWiki(ctx context.Context, wikiID string) error {
	if s.registry == nil {
		return types.NewError(types.ErrInvalidArgument, types.CodeDeleteDatabase, wikiID, "No wiki registry", nil)
	}
	if err := s.registry.DeleteWiki(ctx, wikiID); err != nil {
		return err
	}
	s.bus.Publish(events.Event{Kind: events.WikiDeleted, Wiki: wikiID})
	s.log.Info().Str("wiki", wikiID).Msg("wiki deleted")
	return nil
}
