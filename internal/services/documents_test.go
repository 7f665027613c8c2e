// documents_test.go
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
	"errors"
	"sync"
	"testing"

	"github.com/localnerve/docstore/internal/archive"
	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/events"
	"github.com/localnerve/docstore/internal/recyclebin"
	"github.com/localnerve/docstore/internal/testsupport"
	"github.com/localnerve/docstore/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) OnEvent(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Type:            "sqlite",
			Name:            "docstore.db",
			MainWiki:        "xwiki",
			SchemaVersion:   1,
			ConnectionLimit: 1,
		},
		Store: config.StoreConfig{
			Versioning:              true,
			Backlinks:               true,
			DynamicMappings:         true,
			AttachmentStore:         "file",
			ArchiveSnapshotInterval: 5,
		},
		Cache:      config.CacheConfig{Capacity: 100, ExistCapacity: 100},
		RecycleBin: config.RecycleBinConfig{Enabled: true, ContentStore: "file"},
		Files:      config.FilesConfig{Dir: t.TempDir()},
	}
}

func build(t *testing.T, cfg *config.Config) (*Services, *recorder) {
	t.Helper()
	db := testsupport.OpenSQLite(t)
	s, err := Build(context.Background(), cfg, db, prometheus.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)
	rec := &recorder{}
	s.Bus.Subscribe(rec)
	return s, rec
}

func newPage(fullName string) *document.Document {
	doc := document.New(document.NewReference("xwiki", fullName), "")
	doc.Author = "XWiki.Ada"
	doc.SetTitle("Title of " + fullName)
	doc.SetContent("See [[Main.WebHome]]")
	doc.AddAttachment(document.NewAttachment("notes.txt", []byte("attached")))
	return doc
}

func TestSavePublishes(t *testing.T) {
	s, rec := build(t, testConfig(t))
	ctx := context.Background()
	doc := newPage("Main.Events")

	require.NoError(t, s.Documents.Save(ctx, doc))
	doc.SetContent("second")
	require.NoError(t, s.Documents.Save(ctx, doc))

	assert.Equal(t, []events.Kind{events.DocumentCreated, events.DocumentUpdated}, rec.kinds())
	assert.Equal(t, "xwiki", rec.events[0].Wiki)
	assert.Equal(t, "Main.Events", rec.events[0].Reference.FullName())

	links, err := s.Documents.Backlinks(ctx, document.NewReference("xwiki", "Main.WebHome"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Main.Events"}, links)
}

func TestDeleteAndRestore(t *testing.T) {
	s, rec := build(t, testConfig(t))
	ctx := context.Background()
	require.NoError(t, s.Documents.Save(ctx, newPage("Main.Trash")))

	loaded, err := s.Documents.Load(ctx, document.NewReference("xwiki", "Main.Trash"), "")
	require.NoError(t, err)
	require.False(t, loaded.IsNew())
	require.False(t, loaded.Attachment("notes.txt").ContentLoaded())

	index, err := s.Documents.Delete(ctx, loaded, "XWiki.Ada")
	require.NoError(t, err)
	assert.Positive(t, index)

	exists, err := s.Documents.Exists(ctx, loaded.Ref, "")
	require.NoError(t, err)
	assert.False(t, exists)

	recs, err := s.Documents.DeletedVersions(ctx, loaded.Ref, "", "XWiki.Ada")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "file", recs[0].Store)

	_, err = s.Documents.Restore(ctx, index, "XWiki.Charles")
	assert.True(t, errors.Is(err, types.ErrAuthorizationDenied))

	restored, err := s.Documents.Restore(ctx, index, "XWiki.Ada")
	require.NoError(t, err)
	assert.Equal(t, "See [[Main.WebHome]]", restored.Content)

	again, err := s.Documents.Load(ctx, loaded.Ref, "")
	require.NoError(t, err)
	assert.False(t, again.IsNew())
	a := again.Attachment("notes.txt")
	require.NotNil(t, a)
	require.NoError(t, s.Store.LoadAttachmentContent(ctx, a))
	data, _ := a.Content()
	assert.Equal(t, "attached", string(data))

	_, err = s.Documents.DeletedDocument(ctx, index, "XWiki.Ada")
	assert.True(t, errors.Is(err, types.ErrNotFound), "the record is purged after a restore")

	assert.Equal(t, []events.Kind{events.DocumentCreated, events.DocumentDeleted, events.DocumentCreated}, rec.kinds())
}

func TestRestoreOverExistingDocument(t *testing.T) {
	s, _ := build(t, testConfig(t))
	ctx := context.Background()
	require.NoError(t, s.Documents.Save(ctx, newPage("Main.Twice")))
	loaded, err := s.Documents.Load(ctx, document.NewReference("xwiki", "Main.Twice"), "")
	require.NoError(t, err)
	index, err := s.Documents.Delete(ctx, loaded, "XWiki.Ada")
	require.NoError(t, err)

	require.NoError(t, s.Documents.Save(ctx, newPage("Main.Twice")))
	_, err = s.Documents.Restore(ctx, index, "XWiki.Ada")
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))

	rec, err := s.Documents.DeletedDocument(ctx, index, "XWiki.Ada")
	require.NoError(t, err)
	assert.Equal(t, "Main.Twice", rec.Name)
}

func TestPurgeAccess(t *testing.T) {
	s, _ := build(t, testConfig(t))
	ctx := context.Background()
	require.NoError(t, s.Documents.Save(ctx, newPage("Main.Purge")))
	loaded, err := s.Documents.Load(ctx, document.NewReference("xwiki", "Main.Purge"), "")
	require.NoError(t, err)
	index, err := s.Documents.Delete(ctx, loaded, "XWiki.Ada")
	require.NoError(t, err)

	listed, err := s.Documents.DeletedDocuments(ctx, "XWiki.Charles", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, listed)
	listed, err = s.Documents.DeletedDocuments(ctx, "XWiki.Ada", 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	assert.True(t, errors.Is(s.Documents.Purge(ctx, index, "XWiki.Charles"), types.ErrAuthorizationDenied))

	s.Bin.SetRightsChecker(recyclebin.RightsFunc(func(_ context.Context, _ recyclebin.Right, user string, _ document.Reference) bool {
		return user == "XWiki.Admin"
	}))
	require.NoError(t, s.Documents.Purge(ctx, index, "XWiki.Admin"))
	_, err = s.Documents.DeletedDocument(ctx, index, "XWiki.Admin")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestDeleteBatch(t *testing.T) {
	s, rec := build(t, testConfig(t))
	ctx := context.Background()
	var docs []*document.Document
	for _, name := range []string{"Batch.B", "Batch.A"} {
		require.NoError(t, s.Documents.Save(ctx, newPage(name)))
		loaded, err := s.Documents.Load(ctx, document.NewReference("xwiki", name), "")
		require.NoError(t, err)
		docs = append(docs, loaded)
	}

	batchID, err := s.Documents.DeleteBatch(ctx, docs, "XWiki.Ada")
	require.NoError(t, err)
	require.NotEmpty(t, batchID)

	recs, err := s.Bin.ListForBatch(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Batch.A", recs[0].Name)
	assert.Equal(t, []events.Kind{events.DocumentCreated, events.DocumentCreated, events.DocumentDeleted, events.DocumentDeleted}, rec.kinds())

	other := newPage("Other.Page")
	other.Ref.Wiki = "sub"
	_, err = s.Documents.DeleteBatch(ctx, []*document.Document{docs[0], other}, "XWiki.Ada")
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestVersions(t *testing.T) {
	s, _ := build(t, testConfig(t))
	ctx := context.Background()
	doc := newPage("Main.History")
	require.NoError(t, s.Documents.Save(ctx, doc))
	doc.SetContent("second revision")
	require.NoError(t, s.Documents.Save(ctx, doc))

	revs, total, err := s.Documents.Versions(ctx, doc.Ref, "", archive.AllVersions())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, revs, 2)
	assert.Equal(t, "1.1", revs[0].Version.String())

	first, err := s.Documents.Revision(ctx, doc.Ref, "", document.FirstVersion)
	require.NoError(t, err)
	assert.Equal(t, "See [[Main.WebHome]]", first.Content)

	_, err = s.Documents.Revision(ctx, doc.Ref, "", document.MustParseVersion("7.1"))
	assert.True(t, errors.Is(err, types.ErrVersionNotFound))
}

func TestRecycleBinDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.RecycleBin.Enabled = false
	cfg.Store.AttachmentStore = "database"
	s, _ := build(t, cfg)
	ctx := context.Background()
	assert.Nil(t, s.Files)
	assert.False(t, s.Documents.RecycleBinEnabled())

	require.NoError(t, s.Documents.Save(ctx, newPage("Main.Gone")))
	loaded, err := s.Documents.Load(ctx, document.NewReference("xwiki", "Main.Gone"), "")
	require.NoError(t, err)
	index, err := s.Documents.Delete(ctx, loaded, "XWiki.Ada")
	require.NoError(t, err)
	assert.Zero(t, index)

	_, err = s.Documents.DeletedDocuments(ctx, "XWiki.Ada", 10, 0)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestSubWikiRejectedOnSQLite(t *testing.T) {
	s, rec := build(t, testConfig(t))
	ctx := context.Background()

	ok, err := s.Documents.IsWikiNameAvailable(ctx, "xwiki")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.Documents.IsWikiNameAvailable(ctx, "sub")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, errors.Is(s.Documents.CreateWiki(ctx, "sub"), types.ErrInvalidArgument))

	// same space and page as a main wiki document, which must stay untouched
	home := newPage("Main.Shared")
	require.NoError(t, s.Documents.Save(ctx, home))
	doc := newPage("Main.Shared")
	doc.Ref.Wiki = "sub"
	doc.SetContent("sub wiki content")
	assert.True(t, errors.Is(s.Documents.Save(ctx, doc), types.ErrInvalidArgument))

	loaded, err := s.Documents.Load(ctx, home.Ref, "")
	require.NoError(t, err)
	assert.Equal(t, home.Content, loaded.Content)

	assert.True(t, errors.Is(s.Documents.DeleteWiki(ctx, "sub"), types.ErrInvalidArgument))
	assert.NotContains(t, rec.kinds(), events.WikiDeleted)
}

func TestHealth(t *testing.T) {
	cfg := testConfig(t)
	s, _ := build(t, cfg)
	result := s.Health(context.Background(), zerolog.Nop())
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "ok", result.Files)
	assert.Empty(t, result.ObjectStore)

	cfg.Files.Dir = cfg.Files.Dir + "/missing"
	result = HealthCheck(context.Background(), cfg, s.DB, zerolog.Nop())
	assert.Equal(t, "unhealthy", result.Status)
	assert.Equal(t, "unavailable", result.Files)
	assert.NotEmpty(t, result.ErrorMessage)
}
