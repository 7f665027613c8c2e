package store

import (
	"context"
	"testing"

	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPages(t *testing.T, f *fixture, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, f.store.Save(context.Background(), newPage(n)))
	}
}

func TestSearchDocumentNames(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	seedPages(t, f, "Main.A", "Main.B", "Main.C", "Other.D")

	names, err := f.store.SearchDocumentNames(ctx, "WHERE space = ? ORDER BY full_name", 0, 0, "Main")
	require.NoError(t, err)
	assert.Equal(t, []string{"Main.A", "Main.B", "Main.C"}, names)

	names, err = f.store.SearchDocumentNames(ctx, "WHERE space = ? ORDER BY full_name", 1, 1, "Main")
	require.NoError(t, err)
	assert.Equal(t, []string{"Main.B"}, names)

	n, err := f.store.CountDocuments(ctx, "WHERE space = ?", "Main")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	names, err = f.store.SearchDocumentNames(ctx, "WHERE space = ?", 0, 0, "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSearchDocuments(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	seedPages(t, f, "Main.A", "Main.B")

	docs, err := f.store.SearchDocuments(ctx, "WHERE name = ?", 0, 0, "B")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Main.B", docs[0].FullName())
	assert.Equal(t, "content of Main.B", docs[0].Content)
	assert.False(t, docs[0].IsNew())
}

func TestSearchGeneric(t *testing.T) {
	f := newFixture(t, Options{})
	seedPages(t, f, "Main.A", "Other.B")

	type row struct {
		FullName string
		Version  string
	}
	rows, err := Search[row](context.Background(), f.store, "SELECT full_name, version FROM documents ORDER BY full_name", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []row{{"Main.A", "1.1"}, {"Other.B", "1.1"}}, rows)

	_, err = Search[row](context.Background(), f.store, "SELECT nope FROM missing_table", 0, 0)
	assert.Error(t, err)
}

func TestGetClassAndTranslationLists(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	classDoc := newPage("Test.ZClass")
	classDoc.SetClass(document.NewClass("Test.ZClass").AddField(document.Field{Name: "f", Type: document.FieldString}))
	require.NoError(t, f.store.Save(ctx, classDoc))
	other := newPage("Test.AClass")
	other.SetClass(document.NewClass("Test.AClass").AddField(document.Field{Name: "f", Type: document.FieldString}))
	require.NoError(t, f.store.Save(ctx, other))
	seedPages(t, f, "Main.Plain")

	classes, err := f.store.GetClassList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Test.AClass", "Test.ZClass"}, classes)

	for _, locale := range []string{"fr", "de"} {
		tr := newPage("Main.Plain")
		tr.Locale = locale
		tr.Translation = true
		require.NoError(t, f.store.Save(ctx, tr))
	}
	locales, err := f.store.GetTranslationList(ctx, newPage("Main.Plain"))
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "fr"}, locales)
}

func TestFilterSQL(t *testing.T) {
	q := `WHERE name LIKE 'a\_%'`
	assert.Equal(t, `WHERE name LIKE 'a\\_%'`, filterSQL(database.ProductMySQL, q))
	assert.Equal(t, `WHERE name LIKE 'a\\_%'`, filterSQL(database.ProductMariaDB, q))
	assert.Equal(t, q, filterSQL(database.ProductPostgreSQL, q))
}
