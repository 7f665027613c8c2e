package attachment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/localnerve/docstore/internal/blob"
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
	docs    *store.Store
	db      *gorm.DB
	gw      *session.Gateway
	archive *ArchiveStore
	files   *blob.Filesystem
}

func newFixture(t *testing.T, hint string) *fixture {
	t.Helper()
	db := testsupport.OpenSQLite(t)
	reg := schema.NewRegistry(db, database.ProductSQLite, schema.Options{MainWiki: "xwiki", SchemaVersion: 1}, nil, zerolog.Nop())
	gw := session.NewGateway(db, reg, "xwiki", zerolog.Nop())
	files, err := blob.NewFilesystem(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	s := store.New(gw, reg, store.Options{ContentStore: hint}, nil, zerolog.Nop())
	s.RegisterContentStore(NewDatabaseStore(gw))
	s.RegisterContentStore(NewBlobStore(HintFile, files, gw, zerolog.Nop()))
	archive := NewArchiveStore(gw)
	s.SetAttachmentArchiver(archive)
	return &fixture{docs: s, db: db, gw: gw, archive: archive, files: files}
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func pageWithAttachment(name string, data string) *document.Document {
	doc := document.New(document.NewReference("xwiki", name), "")
	doc.Author = "XWiki.Admin"
	doc.SetContent("page")
	doc.AddAttachment(document.NewAttachment("file.txt", []byte(data)))
	return doc
}

func TestDatabaseContentAndHistory(t *testing.T) {
	f := newFixture(t, HintDatabase)
	ctx := context.Background()

	doc := pageWithAttachment("Main.Files", "v1")
	require.NoError(t, f.docs.Save(ctx, doc))
	a := doc.Attachment("file.txt")
	assert.Equal(t, HintDatabase, a.ContentStore)
	assert.EqualValues(t, 1, f.count(t, &models.AttachmentContent{}, "attachment_id = ?", a.ID()))

	a.SetContent([]byte("version two"))
	require.NoError(t, f.docs.Save(ctx, doc))
	assert.Equal(t, "1.2", a.Version.String())

	loaded, err := f.docs.Load(ctx, document.New(doc.Ref, ""))
	require.NoError(t, err)
	la := loaded.Attachment("file.txt")
	require.NotNil(t, la)
	assert.False(t, la.ContentLoaded())
	require.NoError(t, f.docs.LoadAttachmentContent(ctx, la))
	data, _ := la.Content()
	assert.Equal(t, "version two", string(data))
	assert.EqualValues(t, len("version two"), la.Size)

	versions, err := f.archive.Versions(ctx, la)
	require.NoError(t, err)
	assert.Equal(t, []document.Version{document.MustParseVersion("1.1"), document.MustParseVersion("1.2")}, versions)

	old, err := f.archive.LoadVersion(ctx, la, document.FirstVersion)
	require.NoError(t, err)
	data, _ = old.Content()
	assert.Equal(t, "v1", string(data))

	_, err = f.archive.LoadVersion(ctx, la, document.MustParseVersion("9.1"))
	assert.True(t, errors.Is(err, types.ErrVersionNotFound))

	require.NoError(t, f.docs.Delete(ctx, loaded))
	assert.Zero(t, f.count(t, &models.AttachmentContent{}, "attachment_id = ?", a.ID()))
	assert.Zero(t, f.count(t, &models.AttachmentArchive{}, "attachment_id = ?", a.ID()))
}

func TestDatabaseContentRollsBackWithSave(t *testing.T) {
	f := newFixture(t, HintDatabase)
	ctx := context.Background()
	doc := pageWithAttachment("Main.Rollback", "data")

	boom := errors.New("boom")
	err := f.gw.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		require.NoError(t, f.docs.Save(ctx, doc))
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.Zero(t, f.count(t, &models.AttachmentContent{}, "attachment_id = ?", document.AttachmentID(doc.Ref, "file.txt")))
	assert.Zero(t, f.count(t, &models.Document{}, "id = ?", doc.ID()))
}

func TestDatabaseLoadMissingContent(t *testing.T) {
	f := newFixture(t, HintDatabase)
	a := &document.Attachment{DocRef: document.NewReference("xwiki", "Main.None"), Filename: "x", ContentStore: HintDatabase}

	err := f.docs.LoadAttachmentContent(context.Background(), a)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	ok, err := NewDatabaseStore(f.gw).ContentExists(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileContent(t *testing.T) {
	f := newFixture(t, HintFile)
	ctx := context.Background()

	doc := pageWithAttachment("Main.OnDisk", "bytes on disk")
	require.NoError(t, f.docs.Save(ctx, doc))
	a := doc.Attachment("file.txt")
	assert.Equal(t, HintFile, a.ContentStore)
	assert.Zero(t, f.count(t, &models.AttachmentContent{}, "attachment_id = ?", a.ID()))

	key := blob.AttachmentKey("xwiki", "Main", "OnDisk", "file.txt")
	onDisk, err := os.ReadFile(filepath.Join(f.files.Root(), filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "bytes on disk", string(onDisk))

	loaded, err := f.docs.Load(ctx, document.New(doc.Ref, ""))
	require.NoError(t, err)
	require.NoError(t, f.docs.LoadAttachmentContent(ctx, loaded.Attachment("file.txt")))
	data, _ := loaded.Attachment("file.txt").Content()
	assert.Equal(t, "bytes on disk", string(data))

	require.NoError(t, f.docs.Delete(ctx, loaded))
	ok, err := f.files.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := os.ReadDir(filepath.Join(f.files.Root(), filepath.FromSlash(blob.DocumentKey("xwiki", "Main", "OnDisk")), "~this", "deleted-attachments"))
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	err = f.docs.LoadAttachmentContent(ctx, a)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestMixedContentStores(t *testing.T) {
	f := newFixture(t, HintDatabase)
	ctx := context.Background()

	doc := pageWithAttachment("Main.Mixed", "in database")
	onFile := document.NewAttachment("other.bin", []byte("on file"))
	onFile.ContentStore = HintFile
	doc.AddAttachment(onFile)
	require.NoError(t, f.docs.Save(ctx, doc))

	loaded, err := f.docs.Load(ctx, document.New(doc.Ref, ""))
	require.NoError(t, err)
	for name, want := range map[string]string{"file.txt": "in database", "other.bin": "on file"} {
		a := loaded.Attachment(name)
		require.NotNil(t, a, name)
		require.NoError(t, f.docs.LoadAttachmentContent(ctx, a))
		data, _ := a.Content()
		assert.Equal(t, want, string(data))
	}
	assert.Equal(t, HintFile, loaded.Attachment("other.bin").ContentStore)
}
