package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/codesentry/internal/core/config"
)

// ConfigCheck validates the loaded configuration.
type ConfigCheck struct {
	cfg  *config.Config
	path string
}

func NewConfigCheck(cfg *config.Config, path string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, path: path}
}

func (c *ConfigCheck) Name() string { return "Configuration" }

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	switch _, err := os.Stat(c.path); {
	case c.path == "":
		result.Items = append(result.Items, warn("config file", "no path configured, using defaults"))
	case errors.Is(err, os.ErrNotExist):
		result.Items = append(result.Items, warn("config file", c.path+" not found, using defaults"))
	case err != nil:
		result.Items = append(result.Items, fail("config file", err.Error()))
	default:
		result.Items = append(result.Items, pass("config file", c.path))
	}

	err := c.cfg.ValidateDeep(c.path)
	var fieldErrs criterio.FieldErrors
	switch {
	case err == nil:
		result.Items = append(result.Items, pass("validation", ""))
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			result.Items = append(result.Items, fail(fe.Field, fmt.Sprint(fe.Err)))
		}
	default:
		result.Items = append(result.Items, fail("validation", err.Error()))
	}

	for _, w := range c.cfg.Warnings() {
		result.Items = append(result.Items, warn(w.Item, w.Message))
	}

	return result
}
