package config_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/celquery/internal/config"
)

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := config.AppFs
	fs := afero.NewMemMapFs()
	config.AppFs = fs
	t.Cleanup(func() { config.AppFs = prev })
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	useMemFs(t)
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "schema.cq", cfg.SchemaPath)
	assert.Equal(t, "sqlite", cfg.Database.Provider)
	assert.Equal(t, "celquery.db", cfg.Database.URL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 512, cfg.Cache.Size)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Translate.TypeCheck)
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/work/.celquery.yaml", []byte(`
schema_path: models/app.cq
required_version: ">= 0.1.0"
database:
  provider: postgres
  url: postgres://localhost/app
translate:
  type_check: true
cache:
  size: 16
  ttl: 30s
entities:
  content:
    model: Content
    blacklist:
      - metadata.datavalue
  meta:
    model: Metadata
`), 0o644))

	cfg, err := config.Load("/work/.celquery.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/work/.celquery.yaml", cfg.File)
	assert.Equal(t, "models/app.cq", cfg.SchemaPath)
	assert.Equal(t, ">= 0.1.0", cfg.RequiredVersion)
	assert.Equal(t, "postgres", cfg.Database.Provider)
	assert.Equal(t, "postgres://localhost/app", cfg.Database.URL)
	assert.True(t, cfg.Translate.TypeCheck)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"content", "meta"}, cfg.EntityNames())
	assert.Equal(t, config.EntityConfig{Model: "Content", Blacklist: []string{"metadata.datavalue"}}, cfg.Entities["content"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	useMemFs(t)
	t.Setenv("CELQUERY_DATABASE_PROVIDER", "mysql")
	t.Setenv("CELQUERY_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost)/app")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Provider)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "user:pass@tcp(localhost)/app", cfg.Database.URL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	useMemFs(t)

	_, err := config.Load("/nope.yaml")
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_Invalid(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/c.yaml", []byte("entities:\n  content:\n    blacklist: [a]\n"), 0o644))

	_, err := config.Load("/c.yaml")
	assert.ErrorContains(t, err, "entities.content.model must be set")
}

func TestSave_RoundTrip(t *testing.T) {
	useMemFs(t)

	cfg := config.Default()
	cfg.Database.URL = "file.db"
	cfg.Entities = map[string]config.EntityConfig{"content": {Model: "Content"}}
	require.NoError(t, config.Save(cfg, "/out/.celquery.yaml"))

	loaded, err := config.Load("/out/.celquery.yaml")
	require.NoError(t, err)
	assert.Equal(t, "file.db", loaded.Database.URL)
	assert.Equal(t, cfg.Cache, loaded.Cache)
	assert.Equal(t, cfg.Server, loaded.Server)
	assert.Equal(t, "Content", loaded.Entities["content"].Model)
}
