package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsUsable(t *testing.T) {
	cfg := Default()
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.ServerRoot)
	assert.Equal(t, 30, cfg.DefaultPageSize)
}

func TestLoadOverlaysYAMLOntoDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atomstore.yaml")
	require.NoError(t, writeFile(path, "server_root: \"https://data.example.com\"\nlog_level: \"debug\"\n"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://data.example.com", cfg.ServerRoot)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o600)
}
