package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/codesentry/internal/core/styles"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration
// including URL schemes, glob syntax, theme names and file accessibility.
// The configPath argument specifies the config file location to validate
// (empty string skips the config file check). This calls Validate() first for
// basic structural validation.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateEndpoints(),
		c.validateBrowser(),
		criterio.Run("tui.theme", c.TUI.Theme, knownTheme),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.GitHub.Token == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "GitHub",
			Item:     "token",
			Message:  "no token configured; set github.token, " + EnvToken + " or --token",
		})
	}

	if c.Backend.RequireRequestID {
		warnings = append(warnings, ValidationWarning{
			Category: "Backend",
			Item:     "require_request_id",
			Message:  "results without a request_id will be discarded; the backend must echo it",
		})
	}

	return warnings
}

func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	return criterio.ValidateStruct(
		criterio.Run("github.api_url", c.GitHub.APIURL, urlWithScheme("http", "https")),
		criterio.Run("backend.url", c.Backend.URL, urlWithScheme("http", "https")),
		criterio.Run("backend.push_url", c.Backend.PushURL, urlWithScheme("ws", "wss")),
	)
}

func urlWithScheme(schemes ...string) func(string) error {
	return func(raw string) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if !slices.Contains(schemes, u.Scheme) {
			return fmt.Errorf("scheme %q not allowed, want one of %v", u.Scheme, schemes)
		}
		if u.Host == "" {
			return fmt.Errorf("missing host in %q", raw)
		}
		return nil
	}
}

func (c *Config) validateBrowser() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Browser.Hide {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("browser.hide[%d]", i), fmt.Errorf("invalid glob %q", pattern))
		}
	}
	return errs.ToError()
}

func knownTheme(name string) error {
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown theme %q, available: %v", name, styles.ThemeNames())
	}
	return nil
}
