package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsHaveGooseSections(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		raw, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		body := string(raw)
		assert.Contains(t, body, "-- +goose Up", name)
		assert.Contains(t, body, "-- +goose Down", name)
	}
}

func TestInitSchemaGuardsSingletonStorageConfig(t *testing.T) {
	raw, err := fs.ReadFile(FS, "00001_init_schema.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.True(t, strings.Contains(schema, "storage_config_singleton_key UNIQUE (singleton)"))
	assert.True(t, strings.Contains(schema, "WHERE is_published = FALSE AND scheduled_publish_at IS NOT NULL"))
}
