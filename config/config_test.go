package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edmo-corpus/corpus"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "edmo-corpus", cfg.Pipeline.Name)
	assert.Equal(t, "info", cfg.Pipeline.LogLvl)
	assert.Equal(t, "corpora", cfg.Storage.BasePath)
	assert.Equal(t, corpus.StorageDB, cfg.StorageType())
	assert.Empty(t, cfg.Services.NLP.URL)
	assert.Equal(t, time.Minute, DurSeconds(cfg.Services.NLP.Timeout))
}

func TestLoadGuessesByEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")
	require.NoError(t, os.MkdirAll(filepath.Join("config", "test"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("config", "test", "config.yaml"), []byte(`
pipeline:
  name: edmo-test
services:
  nlp:
    url: http://localhost:8004
    timeout: 5
`), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "edmo-test", cfg.Pipeline.Name)
	assert.Equal(t, "http://localhost:8004", cfg.Services.NLP.URL)
	assert.Equal(t, 5, cfg.Services.NLP.Timeout)
	assert.Equal(t, "corpora", cfg.Storage.BasePath, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "edmo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  base_path: /from/file\n  type: mem\n"), 0o644))
	t.Setenv("EDMO_STORAGE_BASE_PATH", "/from/env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Storage.BasePath)
	assert.Equal(t, corpus.StorageMem, cfg.StorageType())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Storage.Type = "redis"
	bad.Pipeline.LogLvl = "loud"
	bad.Services.NLP.Timeout = -1
	err = bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, corpus.ErrUnknownStorage)
	assert.Contains(t, err.Error(), "pipeline.log_level")
	assert.Contains(t, err.Error(), "services.nlp.timeout")
}
