package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_DATABASE", "docstore.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "xwiki", cfg.Database.MainWiki)
	assert.Equal(t, 500, cfg.Cache.Capacity)
	assert.Equal(t, 10000, cfg.Cache.ExistCapacity)
	assert.True(t, cfg.Store.Versioning)
	assert.Equal(t, "database", cfg.Store.AttachmentStore)
	assert.Equal(t, 25, cfg.Store.ArchiveSnapshotInterval)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database",
			env:  map[string]string{"DB_TYPE": "sqlite"},
			want: "DB_DATABASE is required",
		},
		{
			name: "missing user",
			env:  map[string]string{"DB_TYPE": "mysql", "DB_DATABASE": "xwiki"},
			want: "DB_USER is required",
		},
		{
			name: "single connection mysql",
			env:  map[string]string{"DB_TYPE": "mysql", "DB_DATABASE": "xwiki", "DB_USER": "xwiki", "DB_CONNECTION_LIMIT": "1"},
			want: "DB_CONNECTION_LIMIT must be at least 2 on mysql with dynamic mappings",
		},
		{
			name: "s3 without endpoint",
			env:  map[string]string{"DB_TYPE": "sqlite", "DB_DATABASE": "x.db", "STORE_ATTACHMENTS": "s3"},
			want: "MINIO_ENDPOINT is required for the s3 store",
		},
		{
			name: "unknown store",
			env:  map[string]string{"DB_TYPE": "sqlite", "DB_DATABASE": "x.db", "RECYCLEBIN_STORE": "tape"},
			want: "unsupported content store: tape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DATABASE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_TYPE=sqlite\nDB_DATABASE=from-file.db\nDB_SCHEMA_MODE=true\nCACHE_CAPACITY=42\n"), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"DB_TYPE", "DB_DATABASE", "DB_SCHEMA_MODE", "CACHE_CAPACITY"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.Database.Name)
	assert.True(t, cfg.Database.SchemaMode)
	assert.Equal(t, 42, cfg.Cache.Capacity)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("DOCSTORE_INT", "nope")
	t.Setenv("DOCSTORE_BOOL", "yes-ish")
	assert.Equal(t, 7, getEnvAsInt("DOCSTORE_INT", 7))
	assert.True(t, getEnvAsBool("DOCSTORE_BOOL", true))
	assert.Equal(t, "fallback", getEnv("DOCSTORE_MISSING", "fallback"))
}
