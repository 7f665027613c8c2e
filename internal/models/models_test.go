package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestJSONListItems(t *testing.T) {
	l, err := NewJSONList([]string{"a", "b"})
	require.NoError(t, err)
	items, err := l.Items()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)

	legacy := JSONList{JSON: datatypes.JSON(`"solo"`)}
	items, err = legacy.Items()
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, items)

	empty, err := NewJSONList(nil)
	require.NoError(t, err)
	items, err = empty.Items()
	require.NoError(t, err)
	assert.Empty(t, items)

	for _, raw := range []string{"", "null", " [] "} {
		items, err = JSONList{JSON: datatypes.JSON(raw)}.Items()
		require.NoError(t, err, raw)
		assert.Equal(t, []string{}, items, raw)
	}

	_, err = JSONList{JSON: datatypes.JSON(`{"a":1}`)}.Items()
	assert.Error(t, err)
}

func TestAutoMigrateAllModels(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "models.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(All()...))

	for _, table := range []string{"documents", "objects", "properties", "db_string_list_properties", "archive_nodes", "deleted_documents"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	l, err := NewJSONList([]string{"x", "y"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&DBStringListProperty{ObjectID: 1, Name: "tags", Value: l}).Error)

	var back DBStringListProperty
	require.NoError(t, db.First(&back, "object_id = ? AND name = ?", 1, "tags").Error)
	items, err := back.Value.Items()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, items)

	doc := Document{ID: 7, FullName: "Main.WebHome", Space: "Main", Name: "WebHome", Version: "1.1", Content: "hello", Elements: ElementObjects}
	require.NoError(t, db.Create(&doc).Error)
	var loaded Document
	require.NoError(t, db.First(&loaded, 7).Error)
	assert.Equal(t, LargeText("hello"), loaded.Content)
	assert.True(t, loaded.HasElement(ElementObjects))
	assert.False(t, loaded.HasElement(ElementAttachments))
}
