package schema

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/property"
	"github.com/localnerve/docstore/internal/testsupport"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const bookMapping = `<property name="title" type="string" column="title"/>
<property name="pages" type="integer"><column name="page_count"/></property>
<property name="published" type="timestamp"/>`

func bookClass() *document.Class {
	return document.NewClass("Library.BookClass").
		AddField(document.Field{Name: "title", Type: document.FieldString}).
		AddField(document.Field{Name: "pages", Type: document.FieldNumber, NumberType: document.NumberInteger}).
		AddField(document.Field{Name: "published", Type: document.FieldDate})
}

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping("Library.BookClass", bookMapping)
	require.NoError(t, err)

	assert.Equal(t, "xwikicustom_Library_BookClass", m.Table)
	assert.Equal(t, []Column{
		{Property: "title", Type: "string", Column: "title"},
		{Property: "pages", Type: "integer", Column: "page_count"},
		{Property: "published", Type: "timestamp", Column: "published"},
	}, m.Columns)

	_, err = ParseMapping("Bad.Class", `<property name="x" type="blob"/>`)
	assert.ErrorIs(t, err, types.ErrInvalidMapping)

	_, err = ParseMapping("Bad.Class", `<property name="x"`)
	assert.ErrorIs(t, err, types.ErrInvalidMapping)
}

func TestValidateMapping(t *testing.T) {
	tests := []struct {
		name    string
		mapping string
		wantErr bool
	}{
		{"compatible", bookMapping, false},
		{"text onto number", `<property name="title" type="integer"/>`, true},
		{"unknown field", `<property name="isbn" type="string"/>`, true},
		{"boolean column for number", `<property name="pages" type="yes_no"/>`, false},
		{"date onto string", `<property name="published" type="string"/>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMapping("Library.BookClass", tt.mapping)
			require.NoError(t, err)
			err = m.Validate(bookClass())
			if tt.wantErr {
				se, ok := types.AsStoreError(err)
				require.True(t, ok)
				assert.Equal(t, types.CodeInvalidMapping, se.Code)
				assert.Equal(t, "Invalid Custom Mapping", se.Message)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestInjectMapping(t *testing.T) {
	r := NewRegistry(nil, database.ProductSQLite, Options{MainWiki: "xwiki", DynamicMappings: true}, nil, zerolog.Nop())
	before := r.Snapshot()

	injected, err := r.InjectMapping("Library.BookClass", bookMapping, bookClass())
	require.NoError(t, err)
	assert.True(t, injected)

	injected, err = r.InjectMapping("Library.BookClass", bookMapping, bookClass())
	require.NoError(t, err)
	assert.False(t, injected)

	after := r.Snapshot()
	assert.Equal(t, 0, before.Len())
	assert.Equal(t, 1, after.Len())
	assert.Equal(t, before.Version+1, after.Version)
	assert.Equal(t, []string{"Library.BookClass"}, after.ClassNames())

	_, err = r.InjectMapping("Library.Other", `<property name="title" type="integer"/>`, bookClass())
	assert.ErrorIs(t, err, types.ErrInvalidMapping)
	assert.Same(t, after, r.Snapshot())
}

func TestInjectMappingDisabled(t *testing.T) {
	r := NewRegistry(nil, database.ProductSQLite, Options{MainWiki: "xwiki"}, nil, zerolog.Nop())
	injected, err := r.InjectMapping("Library.BookClass", bookMapping, bookClass())
	require.NoError(t, err)
	assert.False(t, injected)
	assert.Zero(t, r.Snapshot().Len())
}

func TestInjectMappingConcurrent(t *testing.T) {
	r := NewRegistry(nil, database.ProductSQLite, Options{MainWiki: "xwiki", DynamicMappings: true}, nil, zerolog.Nop())

	var injected atomic.Int32
	var g errgroup.Group
	for range 16 {
		g.Go(func() error {
			ok, err := r.InjectMapping("Library.BookClass", bookMapping, bookClass())
			if ok {
				injected.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, injected.Load())
	assert.EqualValues(t, 1, r.Snapshot().Version)
}

func TestEnsureTableAndRows(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	r := NewRegistry(db, database.ProductSQLite, Options{MainWiki: "xwiki", DynamicMappings: true}, nil, zerolog.Nop())

	_, err := r.InjectMapping("Library.BookClass", bookMapping, bookClass())
	require.NoError(t, err)
	m, ok := r.Mapping("Library.BookClass")
	require.True(t, ok)

	require.NoError(t, r.EnsureTable(context.Background(), db, "xwiki", m))
	require.NoError(t, r.EnsureTable(context.Background(), db, "xwiki", m))
	assert.True(t, db.Migrator().HasTable(m.Table))

	title, _ := property.New("title", property.KindString, "Dune")
	pages, _ := property.New("pages", property.KindInteger, 412)
	published, _ := property.New("published", property.KindDate, time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC))
	props := map[string]property.Property{"title": title, "pages": pages, "published": published}

	require.NoError(t, SaveRow(db, m, 7, props))
	pages, _ = property.New("pages", property.KindInteger, 500)
	props["pages"] = pages
	require.NoError(t, SaveRow(db, m, 7, props))

	var rows []map[string]any
	require.NoError(t, db.Table(m.Table).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dune", rows[0]["title"])
	assert.EqualValues(t, 500, rows[0]["page_count"])

	require.NoError(t, DeleteRow(db, m, 7))
	var n int64
	require.NoError(t, db.Table(m.Table).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRowConvertsValues(t *testing.T) {
	m := &Mapping{ClassName: "A.B", Table: TableName("A.B"), Columns: []Column{
		{Property: "flag", Type: "boolean", Column: "flag"},
		{Property: "count", Type: "long", Column: "count"},
		{Property: "missing", Type: "string", Column: "missing"},
	}}
	flag, _ := property.New("flag", property.KindInteger, 1)
	count, _ := property.New("count", property.KindString, "12")

	row := m.Row(3, map[string]property.Property{"flag": flag, "count": count})
	assert.Equal(t, map[string]any{IDColumn: int64(3), "flag": true, "count": int64(12), "missing": nil}, row)
}
