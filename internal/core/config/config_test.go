package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvToken, "")
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), dataDir)
	require.NoError(t, err)

	want := DefaultConfig()
	want.DataDir = dataDir
	assert.Equal(t, want, *cfg)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	t.Setenv(EnvToken, "from-env")
	path := writeConfig(t, `
github:
  owner: octo
backend:
  url: https://sentry.example.com/api
  require_request_id: true
  reconnect_delay: 500ms
analysis:
  timeout: 2m
browser:
  hide: []
`)

	cfg, err := Load(path, "/tmp/data")
	require.NoError(t, err)

	assert.Equal(t, "octo", cfg.GitHub.Owner)
	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, "https://api.github.com/", cfg.GitHub.APIURL)
	assert.Equal(t, "https://sentry.example.com/api", cfg.Backend.URL)
	assert.Equal(t, "ws://localhost:8000/ws/analysis/", cfg.Backend.PushURL)
	assert.True(t, cfg.Backend.RequireRequestID)
	assert.Equal(t, 500*time.Millisecond, cfg.Backend.ReconnectDelay)
	assert.Equal(t, 15*time.Second, cfg.Backend.SubmitTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Analysis.Timeout)
	assert.Empty(t, cfg.Browser.Hide, "explicit empty list disables hiding")
	assert.Equal(t, "/tmp/data", cfg.DataDir)
	assert.Equal(t, "/tmp/data/codesentry.log", cfg.LogFile())
}

func TestLoad_ConfigTokenWins(t *testing.T) {
	t.Setenv(EnvToken, "from-env")
	path := writeConfig(t, "github:\n  token: from-file\n")

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GitHub.Token)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		dataDir string
		wantErr string
	}{
		{"bad yaml", "github: [", "/tmp", "parse config file"},
		{"negative timeout", "analysis:\n  timeout: -1s\n", "/tmp", "analysis.timeout cannot be negative"},
		{"no data dir", "", "", "data directory cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), tt.dataDir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/codesentry/config.yaml", DefaultPath())

	t.Setenv(EnvConfigPath, "/explicit.yaml")
	assert.Equal(t, "/explicit.yaml", DefaultPath())
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg-data")
	assert.Equal(t, "/xdg-data/codesentry", DefaultDataDir())
}
