package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/codesentry/internal/codesentry/updatecheck"
	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/internal/core/logging"
	"github.com/colonyops/codesentry/internal/data/stores"
	"github.com/colonyops/codesentry/internal/printer"
)

type VersionCmd struct {
	flags *Flags
	check bool
}

// NewVersionCmd creates the version command.
func NewVersionCmd(flags *Flags) *VersionCmd {
	return &VersionCmd{flags: flags}
}

// Register adds the version command to the application.
func (cmd *VersionCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "version",
		Usage:     "Print the version and optionally check for updates",
		UsageText: "codesentry version [--check]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "check",
				Usage:       "look up the latest release (cached for a day)",
				Destination: &cmd.check,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *VersionCmd) run(ctx context.Context, c *cli.Command) error {
	_, _ = fmt.Fprintf(c.Root().Writer, "codesentry %s\n", cmd.flags.Version)
	if !cmd.check {
		return nil
	}

	cfg := cmd.flags.Config
	gh, err := hosting.NewGitHub(hosting.GitHubOptions{
		APIURL:  cfg.GitHub.APIURL,
		Token:   cfg.GitHub.Token,
		Timeout: 10 * time.Second,
		Logger:  logging.Component("hosting"),
	})
	if err != nil {
		return err
	}

	database, err := stores.OpenCache(cfg.CacheDir(), logging.Component("cache"))
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = database.Close() }()

	res, err := updatecheck.Check(ctx, stores.NewKVStore(database), gh, versionTag(cmd.flags.Version))
	if err != nil {
		log.Debug().Err(err).Msg("update check failed")
	}

	p := printer.Ctx(ctx)
	if res == nil {
		p.Successf("Up to date")
		return nil
	}
	p.Infof("Update available: %s -> %s", res.Current, res.Latest)
	return nil
}

// versionTag returns the leading version of a build string such as
// "v1.2.3 (abc1234) 2025-01-01".
func versionTag(build string) string {
	v, _, _ := strings.Cut(build, " ")
	return v
}
