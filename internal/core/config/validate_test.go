package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.GitHub.Token = "token"
	return &cfg
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Browser.Hide = []string{".git/**", "**/*.min.js", "vendor/{a,b}/**"}

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantErr   string
	}{
		{
			name:      "backend url scheme",
			mutate:    func(c *Config) { c.Backend.URL = "ftp://host/api" },
			wantField: "backend.url",
			wantErr:   "scheme",
		},
		{
			name:      "push url must be websocket",
			mutate:    func(c *Config) { c.Backend.PushURL = "http://localhost:8000/ws/analysis/" },
			wantField: "backend.push_url",
			wantErr:   "scheme",
		},
		{
			name:      "api url without host",
			mutate:    func(c *Config) { c.GitHub.APIURL = "https://" },
			wantField: "github.api_url",
			wantErr:   "missing host",
		},
		{
			name:      "invalid glob",
			mutate:    func(c *Config) { c.Browser.Hide = []string{"ok/**", "[unclosed"} },
			wantField: "browser.hide[1]",
			wantErr:   "invalid glob",
		},
		{
			name:      "unknown theme",
			mutate:    func(c *Config) { c.TUI.Theme = "neon" },
			wantField: "tui.theme",
			wantErr:   "unknown theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.ValidateDeep("")

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.wantField, fieldErrs[0].Field)
			assert.Contains(t, fieldErrs[0].Err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDeep_RunsStructuralValidationFirst(t *testing.T) {
	cfg := validConfig(t)
	cfg.DataDir = ""

	err := cfg.ValidateDeep("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory cannot be empty")
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg.DataDir = file

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	assert.Equal(t, "data_dir", fieldErrs[0].Field)
}

func TestValidateDeep_ConfigPathIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(t.TempDir()), &fieldErrs)
	assert.Equal(t, "config_file", fieldErrs[0].Field)
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.GitHub.Token = ""
	cfg.Backend.RequireRequestID = true
	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "token", warnings[0].Item)
	assert.Equal(t, "require_request_id", warnings[1].Item)
}
