package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/colonyops/codesentry/internal/codesentry"
	"github.com/colonyops/codesentry/internal/core/config"
	"github.com/colonyops/codesentry/internal/core/styles"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Token      string

	ProfilerPort int

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Version is the build string shown by the version command.
	Version string
}

// OpenApp starts a session. When no token is configured and stdin is a
// terminal the user is prompted for one.
func (f *Flags) OpenApp(ctx context.Context, disablePush bool) (*codesentry.App, error) {
	opts := codesentry.Options{
		Config:      f.Config,
		Token:       f.Token,
		Logger:      log.Logger,
		DisablePush: disablePush,
	}

	app, err := codesentry.New(ctx, opts)
	if !errors.Is(err, codesentry.ErrNoCredential) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return app, err
	}

	token, err := promptToken()
	if err != nil {
		return nil, err
	}
	opts.Token = token
	return codesentry.New(ctx, opts)
}

func promptToken() (string, error) {
	var token string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub token").
				Description("Personal access token with repo read access. Set " + config.EnvToken + " to skip this prompt.").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}).
				Value(&token),
		),
	).WithTheme(styles.FormTheme()).Run()
	if err != nil {
		return "", err
	}
	return token, nil
}
