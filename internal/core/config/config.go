// Package config handles configuration loading and validation for codesentry.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted while loading.
const (
	EnvConfigPath = "CODESENTRY_CONFIG"
	EnvToken      = "GITHUB_TOKEN"
)

// Config holds the application configuration.
type Config struct {
	GitHub   GitHubConfig   `yaml:"github"`
	Backend  BackendConfig  `yaml:"backend"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Browser  BrowserConfig  `yaml:"browser"`
	TUI      TUIConfig      `yaml:"tui"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// GitHubConfig configures the repository hosting API.
type GitHubConfig struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token"`
	Owner  string `yaml:"owner"` // defaults to the authenticated login
}

// BackendConfig configures the analysis service.
type BackendConfig struct {
	URL              string        `yaml:"url"`      // submission base URL
	PushURL          string        `yaml:"push_url"` // websocket result channel
	RequireRequestID bool          `yaml:"require_request_id"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	SubmitTimeout    time.Duration `yaml:"submit_timeout"`
}

// AnalysisConfig configures request handling.
type AnalysisConfig struct {
	// Timeout abandons a pending request after this long. Zero waits forever.
	Timeout time.Duration `yaml:"timeout"`
}

// BrowserConfig configures directory listings.
type BrowserConfig struct {
	Hide []string `yaml:"hide"` // doublestar patterns matched against entry paths
}

// TUIConfig configures the dashboard.
type TUIConfig struct {
	Theme string `yaml:"theme"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com/",
		},
		Backend: BackendConfig{
			URL:            "http://127.0.0.1:8000/api",
			PushURL:        "ws://localhost:8000/ws/analysis/",
			ReconnectDelay: 2 * time.Second,
			SubmitTimeout:  15 * time.Second,
		},
		Browser: BrowserConfig{
			Hide: []string{".git/**"},
		},
		TUI: TUIConfig{
			Theme: "tokyo-night",
		},
	}
}

// DefaultPath returns the config file location, honoring CODESENTRY_CONFIG
// and XDG_CONFIG_HOME.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "codesentry", "config.yaml")
}

// DefaultDataDir returns the directory for logs and caches.
func DefaultDataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "codesentry")
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "codesentry")
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = defaults.GitHub.APIURL
	}
	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv(EnvToken)
	}
	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.PushURL == "" {
		c.Backend.PushURL = defaults.Backend.PushURL
	}
	if c.Backend.ReconnectDelay == 0 {
		c.Backend.ReconnectDelay = defaults.Backend.ReconnectDelay
	}
	if c.Backend.SubmitTimeout == 0 {
		c.Backend.SubmitTimeout = defaults.Backend.SubmitTimeout
	}
	if c.Browser.Hide == nil {
		c.Browser.Hide = defaults.Browser.Hide
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url cannot be empty")
	}

	if c.Backend.PushURL == "" {
		return fmt.Errorf("backend.push_url cannot be empty")
	}

	if c.Backend.ReconnectDelay < 0 {
		return fmt.Errorf("backend.reconnect_delay cannot be negative")
	}

	if c.Backend.SubmitTimeout < 0 {
		return fmt.Errorf("backend.submit_timeout cannot be negative")
	}

	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis.timeout cannot be negative")
	}

	return nil
}

// LogFile returns the default log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "codesentry.log")
}

// CacheDir returns the directory for cached lookups such as update checks.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}
