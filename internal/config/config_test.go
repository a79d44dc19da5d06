package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://split-specs.appspot.com/query", cfg.Endpoint)
	assert.Equal(t, 15, cfg.PageSize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.NextSpecAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.NextSpecBaseDelay)
	assert.Equal(t, filepath.Join(home, ".split-specs.yaml"), cfg.CredentialsFile)
	assert.Equal(t, filepath.Join(home, ".split-specs", "split-specs.log"), cfg.LogFile)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SPLIT_SPECS_ENDPOINT", "http://localhost:8080/query")
	t.Setenv("SPLIT_SPECS_PAGE_SIZE", "5")
	t.Setenv("SPLIT_SPECS_CREDENTIALS_FILE", "/tmp/creds.yaml")
	t.Setenv("SPLIT_SPECS_LOG_FILE", "/tmp/split.log")
	t.Setenv("SPLIT_SPECS_NEXT_SPEC_MAX_DELAY", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/query", cfg.Endpoint)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "/tmp/creds.yaml", cfg.CredentialsFile)
	assert.Equal(t, "/tmp/split.log", cfg.LogFile)
	assert.Equal(t, time.Second, cfg.NextSpecMaxDelay)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPLIT_SPECS_PAGE_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SPLIT_SPECS_PAGE_SIZE", "abc")
	_, err = Load()
	assert.Error(t, err)
}
