package services

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/docstore/internal/config"
	"github.com/localnerve/docstore/internal/database"
	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/testsupport"
	"github.com/localnerve/docstore/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWithMariaDB runs the document lifecycle against MariaDB and MinIO containers
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	mariadb, dbCfg, err := testsupport.StartMariaDB(ctx)
	if mariadb != nil {
		t.Cleanup(func() {
			if err := mariadb.Terminate(ctx); err != nil {
				t.Logf("Failed to terminate MariaDB container: %v", err)
			}
		})
	}
	require.NoError(t, err)

	cfg := &config.Config{
		Database: dbCfg,
		Store: config.StoreConfig{
			Versioning:              true,
			Backlinks:               true,
			DynamicMappings:         true,
			AttachmentStore:         "s3",
			ArchiveSnapshotInterval: 5,
		},
		Cache:      config.CacheConfig{Capacity: 100, ExistCapacity: 100},
		RecycleBin: config.RecycleBinConfig{Enabled: true, ContentStore: "s3"},
		MinIO:      testsupport.MinIO(t),
	}

	db, err := database.Connect(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrateMain(db))

	s, err := Build(ctx, cfg, db, prometheus.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)

	health := s.Health(ctx, zerolog.Nop())
	assert.Equal(t, "healthy", health.Status, health.ErrorMessage)

	doc := newPage("Main.Integration")
	require.NoError(t, s.Documents.Save(ctx, doc))

	loaded, err := s.Documents.Load(ctx, doc.Ref, "")
	require.NoError(t, err)
	require.False(t, loaded.IsNew())
	require.Len(t, loaded.Attachments(), 1)
	require.NoError(t, s.Store.LoadAttachmentContent(ctx, loaded.Attachments()[0]))
	content, ok := loaded.Attachments()[0].Content()
	require.True(t, ok)
	assert.Equal(t, []byte("attached"), content)

	index, err := s.Documents.Delete(ctx, loaded, "XWiki.Ada")
	require.NoError(t, err)
	restored, err := s.Documents.Restore(ctx, index, "XWiki.Ada")
	require.NoError(t, err)
	assert.Equal(t, "Title of Main.Integration", restored.Title)

	// a second wiki gets its own database
	available, err := s.Documents.IsWikiNameAvailable(ctx, "sub")
	require.NoError(t, err)
	require.True(t, available)
	require.NoError(t, s.Documents.CreateWiki(ctx, "sub"))

	sub := document.New(document.NewReference("sub", "Main.Integration"), "")
	sub.Author = "XWiki.Ada"
	sub.SetContent("in the sub wiki")
	require.NoError(t, s.Documents.Save(ctx, sub))

	fromSub, err := s.Documents.Load(ctx, sub.Ref, "")
	require.NoError(t, err)
	assert.Equal(t, "in the sub wiki", fromSub.Content)

	require.NoError(t, s.Documents.DeleteWiki(ctx, "sub"))
	_, err = s.Documents.Load(ctx, sub.Ref, "")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}
