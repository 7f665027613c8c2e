package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/schema"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/store"
	"github.com/localnerve/docstore/internal/testsupport"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	archive *Store
	docs    *store.Store
	db      *gorm.DB
}

func newFixture(t *testing.T, interval int) *fixture {
	t.Helper()
	db := testsupport.OpenSQLite(t)
	reg := schema.NewRegistry(db, database.ProductSQLite, schema.Options{MainWiki: "xwiki", SchemaVersion: 1}, nil, zerolog.Nop())
	gw := session.NewGateway(db, reg, "xwiki", zerolog.Nop())
	a := New(gw, interval, nil, zerolog.Nop())
	s := store.New(gw, reg, store.Options{Versioning: true}, nil, zerolog.Nop())
	s.SetArchiver(a)
	return &fixture{archive: a, docs: s, db: db}
}

func (f *fixture) nodes(t *testing.T, doc *document.Document) []models.ArchiveNode {
	t.Helper()
	var nodes []models.ArchiveNode
	require.NoError(t, f.db.Where("doc_id = ?", doc.ID()).Order("major, minor").Find(&nodes).Error)
	return nodes
}

func newPage(fullName string) *document.Document {
	doc := document.New(document.NewReference("xwiki", fullName), "")
	doc.Author = "XWiki.Admin"
	doc.SetContent("first line\nsecond line\n")
	return doc
}

func TestFreshSaveArchivesOneFullNode(t *testing.T) {
	f := newFixture(t, 0)
	doc := newPage("Main.WebHome")
	require.NoError(t, f.docs.Save(context.Background(), doc))

	nodes := f.nodes(t, doc)
	require.Len(t, nodes, 1)
	assert.Equal(t, 1, nodes[0].Major)
	assert.Equal(t, 1, nodes[0].Minor)
	assert.False(t, nodes[0].Diff)
	assert.Contains(t, string(nodes[0].Patch), "first line")
}

func TestRevisionsReplayFromSnapshots(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	doc := newPage("Main.History")

	contents := map[string]string{}
	for i := 0; i < 7; i++ {
		doc.SetContent(fmt.Sprintf("first line\nrevision %d\nsecond line\n", i))
		require.NoError(t, f.docs.Save(ctx, doc))
		contents[doc.Version.String()] = doc.Content
	}

	nodes := f.nodes(t, doc)
	require.Len(t, nodes, 7)
	for i, n := range nodes {
		assert.Equal(t, i%3 != 0, n.Diff, "node %d", i)
	}

	for v, want := range contents {
		rev, err := f.archive.LoadRevision(ctx, doc, document.MustParseVersion(v))
		require.NoError(t, err, v)
		assert.Equal(t, want, rev.Content, v)
		assert.Equal(t, v, rev.Version.String())
		assert.Equal(t, "Main.History", rev.FullName())
	}
}

func TestRevisionsKeepControlCharacters(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	doc := newPage("Main.Binaryish")

	contents := map[string]string{}
	for _, c := range []string{"a\x01b\vc", "plain\n", "a\x01b\vc\x1f\n"} {
		doc.SetContent(c)
		require.NoError(t, f.docs.Save(ctx, doc))
		contents[doc.Version.String()] = c
	}

	for v, want := range contents {
		rev, err := f.archive.LoadRevision(ctx, doc, document.MustParseVersion(v))
		require.NoError(t, err, v)
		assert.Equal(t, want, rev.Content, v)
	}
}

func TestLoadRevisionErrors(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := newPage("Main.Missing")

	_, err := f.archive.LoadRevision(ctx, doc, document.FirstVersion)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.False(t, errors.Is(err, types.ErrVersionNotFound))

	require.NoError(t, f.docs.Save(ctx, doc))
	_, err = f.archive.LoadRevision(ctx, doc, document.MustParseVersion("4.1"))
	assert.True(t, errors.Is(err, types.ErrVersionNotFound))
	assert.False(t, errors.Is(err, types.ErrNotFound))
}

func TestUpdateArchiveRequiresNewerVersion(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := newPage("Main.Order")
	require.NoError(t, f.docs.Save(ctx, doc))

	err := f.archive.UpdateArchive(ctx, doc)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
	assert.Len(t, f.nodes(t, doc), 1)
}

func TestVersionsCriteria(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := newPage("Main.Listed")
	require.NoError(t, f.docs.Save(ctx, doc))

	doc.MinorEdit = true
	doc.SetContent("minor")
	require.NoError(t, f.docs.Save(ctx, doc))

	doc.MinorEdit = false
	doc.Author = "XWiki.Ada"
	doc.SetContent("major")
	require.NoError(t, f.docs.Save(ctx, doc))

	all, err := f.archive.Versions(ctx, doc, AllVersions())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1.1", "1.2", "2.1"},
		[]string{all[0].Version.String(), all[1].Version.String(), all[2].Version.String()})
	assert.True(t, all[1].Minor)

	major, err := f.archive.Versions(ctx, doc, Criteria{})
	require.NoError(t, err)
	assert.Len(t, major, 2)

	byAuthor, err := f.archive.Versions(ctx, doc, Criteria{Author: "XWiki.Ada", IncludeMinor: true})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "2.1", byAuthor[0].Version.String())

	window, err := f.archive.Versions(ctx, doc, Criteria{IncludeMinor: true, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "1.2", window[0].Version.String())

	future, err := f.archive.Versions(ctx, doc, Criteria{From: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)

	n, err := f.archive.VersionsCount(ctx, doc, Criteria{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestLoadAndSaveArchive(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := newPage("Main.Copied")
	require.NoError(t, f.docs.Save(ctx, doc))
	doc.SetContent("changed")
	require.NoError(t, f.docs.Save(ctx, doc))

	a, err := f.archive.Load(ctx, doc)
	require.NoError(t, err)
	require.Len(t, a.Nodes, 2)
	assert.True(t, a.Contains(document.MustParseVersion("2.1")))

	target := newPage("Main.Target")
	require.NoError(t, f.archive.SaveArchive(ctx, target, a))
	rev, err := f.archive.LoadRevision(ctx, target, document.MustParseVersion("2.1"))
	require.NoError(t, err)
	assert.Equal(t, "changed", rev.Content)

	bad := a.Clone()
	bad.Nodes[0], bad.Nodes[1] = bad.Nodes[1], bad.Nodes[0]
	err = f.archive.SaveArchive(ctx, target, bad)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
	assert.Len(t, f.nodes(t, target), 2)

	empty, err := f.archive.Load(ctx, newPage("Main.Nothing"))
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)
}

func TestSaveWithSuppliedArchive(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	source := newPage("Main.Source")
	require.NoError(t, f.docs.Save(ctx, source))
	a, err := f.archive.Load(ctx, source)
	require.NoError(t, err)

	doc, err := f.docs.Load(ctx, document.New(source.Ref, ""))
	require.NoError(t, err)
	require.NoError(t, f.docs.Delete(ctx, doc))
	assert.Empty(t, f.nodes(t, source))

	restored := doc.Clone()
	restored.SetNew(true)
	restored.SetArchive(a)
	require.NoError(t, f.docs.Save(ctx, restored))
	assert.Len(t, f.nodes(t, source), 1)
}

func TestResetAndDelete(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := newPage("Main.Reset")
	require.NoError(t, f.docs.Save(ctx, doc))
	doc.SetContent("again")
	require.NoError(t, f.docs.Save(ctx, doc))
	require.Len(t, f.nodes(t, doc), 2)

	require.NoError(t, f.archive.Reset(ctx, doc))
	nodes := f.nodes(t, doc)
	require.Len(t, nodes, 1)
	assert.Equal(t, 2, nodes[0].Major)
	assert.False(t, nodes[0].Diff)

	ok, err := f.archive.ContainsVersion(ctx, doc, document.MustParseVersion("2.1"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.archive.Delete(ctx, doc))
	ok, err = f.archive.ContainsVersion(ctx, doc, document.MustParseVersion("2.1"))
	require.NoError(t, err)
	assert.False(t, ok)
}
