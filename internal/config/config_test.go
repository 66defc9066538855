package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Index.ChunkSize)
	assert.Equal(t, 200, cfg.Index.ChunkOverlap)
	assert.Equal(t, 10, cfg.Index.TopKRetrieval)
	assert.Equal(t, 3, cfg.Index.TopKRerank)
	assert.Equal(t, "/api/v1", cfg.Server.RESTAPIPrefix)
	assert.Equal(t, 300, cfg.Agent.TimeoutSecs)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `config:
  index:
    chunk_size: 512
    chunk_overlap: 64
  business_domain: "legal contracts"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Index.ChunkSize)
	assert.Equal(t, 64, cfg.Index.ChunkOverlap)
	assert.Equal(t, "legal contracts", cfg.BusinessDomain)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10, cfg.Index.TopKRetrieval)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `config:
  index:
    chunk_size: 512
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CHUNK_SIZE", "2048")
	t.Setenv("TOP_K_RERANK", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2048, cfg.Index.ChunkSize)
	assert.Equal(t, 5, cfg.Index.TopKRerank)
}

func TestValidateRejectsBadOverlap(t *testing.T) {
	cfg := Default()
	cfg.Index.ChunkOverlap = cfg.Index.ChunkSize

	assert.Error(t, cfg.Validate())
}

func TestPostgresConnString(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, Database: "docs", User: "app", Password: "secret"}
	assert.Equal(t, "postgres://app:secret@db:5432/docs", p.ConnString())

	p.ConnStr = "postgres://elsewhere/other"
	assert.Equal(t, "postgres://elsewhere/other", p.ConnString())
}
