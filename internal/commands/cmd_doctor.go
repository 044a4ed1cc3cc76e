package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/codesentry/internal/codesentry"
	"github.com/colonyops/codesentry/internal/core/doctor"
	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/internal/core/styles"
	"github.com/colonyops/codesentry/internal/printer"
	"github.com/colonyops/codesentry/pkg/iojson"
)

type DoctorCmd struct {
	flags  *Flags
	format string
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your codesentry setup",
		UsageText:   "codesentry doctor [options]",
		Description: "Checks the configuration, the GitHub token, the analysis backend and its push channel.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	client, clientErr := cmd.hostingClient()

	results := doctor.RunAll(ctx, []doctor.Check{
		doctor.NewConfigCheck(cfg, cmd.flags.ConfigPath),
		doctor.NewGitHubCheck(client, clientErr),
		doctor.NewBackendCheck(cfg.Backend.URL, cfg.Backend.PushURL),
		doctor.NewClipboardCheck(),
	})

	if cmd.format == "json" {
		return cmd.outputJSON(c, results)
	}

	return cmd.outputText(ctx, results)
}

// hostingClient builds a client without prompting; doctor reports a missing
// token instead of asking for one.
func (cmd *DoctorCmd) hostingClient() (hosting.Client, error) {
	cfg := cmd.flags.Config
	token := cmd.flags.Token
	if token == "" {
		token = cfg.GitHub.Token
	}
	if token == "" {
		return nil, codesentry.ErrNoCredential
	}
	return hosting.NewGitHub(hosting.GitHubOptions{
		APIURL:    cfg.GitHub.APIURL,
		Token:     token,
		UserAgent: "codesentry",
		Timeout:   doctor.DefaultTimeout,
		Logger:    log.Logger,
	})
}

type summaryJSON struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	passed, warned, failed := doctor.Summary(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary summaryJSON     `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: failed == 0,
		Summary: summaryJSON{Passed: passed, Warned: warned, Failed: failed},
		Checks:  results,
	}

	if err := iojson.WriteWith(c.Root().Writer, os.Stderr, out); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) outputText(ctx context.Context, results []doctor.Result) error {
	p := printer.Ctx(ctx)

	p.Printf("")
	p.Section("codesentry doctor")
	p.Printf("")

	for _, result := range results {
		p.Section(result.Name)
		for _, item := range result.Items {
			switch item.Status {
			case doctor.StatusPass:
				p.CheckItem(item.Label, item.Detail)
			case doctor.StatusWarn:
				p.WarnItem(item.Label, item.Detail)
			case doctor.StatusFail:
				p.FailItem(item.Label, item.Detail)
			}
		}
		p.Printf("")
	}

	passed, warned, failed := doctor.Summary(results)
	p.Printf("%s  %s  %s",
		styles.CopiedStyle.Render(fmt.Sprintf("%d passed", passed)),
		styles.PendingStyle.Render(fmt.Sprintf("%d warnings", warned)),
		styles.ErrorStyle.Render(fmt.Sprintf("%d failed", failed)),
	)

	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
