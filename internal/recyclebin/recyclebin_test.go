package recyclebin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localnerve/docstore/internal/blob"
	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/property"
	"github.com/localnerve/docstore/internal/schema"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/testsupport"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBin(t *testing.T, hint string) (*Bin, *gorm.DB, *blob.Filesystem) {
	t.Helper()
	db := testsupport.OpenSQLite(t)
	reg := schema.NewRegistry(db, database.ProductSQLite, schema.Options{MainWiki: "xwiki", SchemaVersion: 1}, nil, zerolog.Nop())
	gw := session.NewGateway(db, reg, "xwiki", zerolog.Nop())
	files, err := blob.NewFilesystem(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	b := New(gw, hint, nil, zerolog.Nop())
	b.RegisterContentStore(NewBlobContent("file", files))
	return b, db, files
}

func deletedPage(t *testing.T, fullName string) *document.Document {
	t.Helper()
	doc := document.New(document.NewReference("xwiki", fullName), "")
	doc.Author = "XWiki.Admin"
	doc.Version = document.MustParseVersion("3.1")
	doc.SetContent("content of " + fullName)
	o := document.NewObject("XWiki.TagClass")
	require.NoError(t, o.SetValue("tags", property.KindStringList, []string{"a", "b"}))
	doc.AddObject(o)
	doc.AddAttachment(document.NewAttachment("logo.png", []byte{0x89, 'P', 'N', 'G'}))
	return doc
}

func TestMoveToBinAndRestore(t *testing.T) {
	for _, hint := range []string{HintDatabase, "file"} {
		t.Run(hint, func(t *testing.T) {
			b, db, _ := newBin(t, hint)
			ctx := context.Background()
			doc := deletedPage(t, "Main.Gone")

			date := time.Now().Truncate(time.Second)
			index, err := b.MoveToBin(ctx, doc, "XWiki.Ada", date, "")
			require.NoError(t, err)
			assert.Positive(t, index)

			var row models.DeletedDocument
			require.NoError(t, db.First(&row, index).Error)
			assert.Equal(t, hint, row.Store)
			assert.Equal(t, hint == HintDatabase, row.XML != "")

			rec, err := b.Peek(ctx, index)
			require.NoError(t, err)
			assert.Equal(t, "Main.Gone", rec.Name)
			assert.Equal(t, "xwiki", rec.Ref.Wiki)
			assert.Equal(t, "XWiki.Ada", rec.Deleter)
			assert.True(t, rec.Date.Equal(date))

			restored, err := b.Restore(ctx, index)
			require.NoError(t, err)
			assert.Equal(t, doc.Content, restored.Content)
			assert.Equal(t, "3.1", restored.Version.String())
			assert.Len(t, restored.Objects("XWiki.TagClass"), 1)
			data, ok := restored.Attachment("logo.png").Content()
			require.True(t, ok)
			assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
		})
	}
}

func TestRestoreKeepsControlCharacters(t *testing.T) {
	for _, hint := range []string{HintDatabase, "file"} {
		t.Run(hint, func(t *testing.T) {
			b, _, _ := newBin(t, hint)
			ctx := context.Background()
			doc := deletedPage(t, "Main.Control")
			doc.SetTitle("bell\x07")
			doc.SetContent("a\x01b\vc")

			index, err := b.MoveToBin(ctx, doc, "XWiki.Ada", time.Now(), "")
			require.NoError(t, err)

			restored, err := b.Restore(ctx, index)
			require.NoError(t, err)
			assert.Equal(t, "a\x01b\vc", restored.Content)
			assert.Equal(t, "bell\x07", restored.Title)
		})
	}
}

func TestPeekMissing(t *testing.T) {
	b, _, _ := newBin(t, HintDatabase)
	_, err := b.Peek(context.Background(), 42)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	_, err = b.Restore(context.Background(), 42)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestListings(t *testing.T) {
	b, _, _ := newBin(t, HintDatabase)
	ctx := context.Background()
	doc := deletedPage(t, "Main.Often")

	base := time.Now().Truncate(time.Second)
	first, err := b.MoveToBin(ctx, doc, "XWiki.Ada", base, "")
	require.NoError(t, err)
	second, err := b.MoveToBin(ctx, doc, "XWiki.Ada", base.Add(time.Minute), "")
	require.NoError(t, err)

	recs, err := b.ListFor(ctx, doc)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, second, recs[0].Index)
	assert.Equal(t, first, recs[1].Index)

	french := deletedPage(t, "Main.Often")
	french.Locale = "fr"
	recs, err = b.ListFor(ctx, french)
	require.NoError(t, err)
	assert.Empty(t, recs)

	batch := []*document.Document{deletedPage(t, "Zeta.Page"), deletedPage(t, "Alpha.Page"), deletedPage(t, "Mid.Page")}
	batchID, indexes, err := b.MoveBatch(ctx, batch, "XWiki.Charles", base)
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)
	assert.Len(t, indexes, 3)

	recs, err = b.ListForBatch(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"Alpha.Page", "Mid.Page", "Zeta.Page"}, []string{recs[0].Name, recs[1].Name, recs[2].Name})

	all, err := b.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, second, all[0].Index)
}

func TestMoveBatchIsAtomic(t *testing.T) {
	b, db, _ := newBin(t, "missing-store")
	_, _, err := b.MoveBatch(context.Background(), []*document.Document{deletedPage(t, "Main.A"), deletedPage(t, "Main.B")}, "XWiki.Ada", time.Now())
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))

	var n int64
	require.NoError(t, db.Model(&models.DeletedDocument{}).Count(&n).Error)
	assert.Zero(t, n)
}

type failingContent struct{ *BlobContent }

func (failingContent) Delete(context.Context, *Record) error { return errors.New("disk gone") }

func TestPurge(t *testing.T) {
	b, db, files := newBin(t, "file")
	ctx := context.Background()
	doc := deletedPage(t, "Main.Purged")

	index, err := b.MoveToBin(ctx, doc, "XWiki.Ada", time.Now(), "")
	require.NoError(t, err)
	key := blob.DeletedDocumentKey("xwiki", "Main", "Purged", index)
	ok, err := files.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, b.Purge(ctx, index))
	ok, err = files.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = b.Peek(ctx, index)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	assert.True(t, errors.Is(b.Purge(ctx, index), types.ErrNotFound))

	index, err = b.MoveToBin(ctx, doc, "XWiki.Ada", time.Now(), "")
	require.NoError(t, err)
	b.RegisterContentStore(failingContent{NewBlobContent("file", files)})
	err = b.Purge(ctx, index)
	assert.True(t, errors.Is(err, types.ErrStorageFailure))

	var n int64
	require.NoError(t, db.Model(&models.DeletedDocument{}).Where("id = ?", index).Count(&n).Error)
	assert.Zero(t, n, "metadata is removed even when the payload is not")
}

func TestCheckAccess(t *testing.T) {
	b, _, _ := newBin(t, HintDatabase)
	ctx := context.Background()
	rec := &Record{Ref: document.NewReference("xwiki", "Main.Secret"), Deleter: "XWiki.Ada"}

	assert.NoError(t, b.CheckAccess(ctx, RightRestore, "XWiki.Ada", rec))
	err := b.CheckAccess(ctx, RightRestore, "XWiki.Charles", rec)
	assert.True(t, errors.Is(err, types.ErrAuthorizationDenied))
	assert.False(t, errors.Is(err, types.ErrNotFound))

	b.SetRightsChecker(RightsFunc(func(_ context.Context, right Right, user string, _ document.Reference) bool {
		switch user {
		case "XWiki.Admin":
			return true
		case "XWiki.Ada":
			return right == RightView
		}
		return false
	}))
	assert.NoError(t, b.CheckAccess(ctx, RightPurge, "XWiki.Admin", rec))
	assert.NoError(t, b.CheckAccess(ctx, RightView, "XWiki.Ada", rec))
	assert.Error(t, b.CheckAccess(ctx, RightPurge, "XWiki.Ada", rec))
	assert.Error(t, b.CheckAccess(ctx, RightView, "", &Record{Ref: rec.Ref}))
}
