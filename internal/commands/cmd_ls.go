package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/pkg/iojson"
)

type LsCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List repositories or the contents of a directory",
		UsageText: "codesentry ls [--json] [repo[/path]]",
		Description: `Without arguments, lists the repositories of the authenticated user.

With a repository, lists the entries of the given directory. Entries matching
browser.hide patterns are omitted. Use --json for one object per line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		ShellComplete: RepositoryCompleter(cmd.flags),
		Action:        cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	app, err := cmd.flags.OpenApp(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	out := c.Root().Writer

	if !c.Args().Present() {
		repos, err := app.Repositories(ctx)
		if err != nil {
			return fmt.Errorf("list repositories: %w", err)
		}
		return cmd.printRepos(out, repos)
	}

	repo, dir := splitTarget(app.Owner, c.Args().First())
	if err := app.OpenPath(ctx, repo, dir); err != nil {
		return err
	}

	state := app.State()
	if state.ActiveFile != nil {
		return fmt.Errorf("%s is a file", state.ActiveFile.Path)
	}
	return cmd.printEntries(out, state.Listing)
}

func (cmd *LsCmd) printRepos(out io.Writer, repos []hosting.Repository) error {
	if len(repos) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No repositories found\n")
		}
		return nil
	}

	if cmd.jsonOutput {
		lines := iojson.NewLines(out)
		for _, r := range repos {
			if err := lines.Write(r); err != nil {
				return fmt.Errorf("encode repository: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPO\tVISIBILITY\tDESCRIPTION")
	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.FullName, visibility, r.Description)
	}
	return w.Flush()
}

func (cmd *LsCmd) printEntries(out io.Writer, entries []hosting.TreeEntry) error {
	if cmd.jsonOutput {
		lines := iojson.NewLines(out)
		for _, e := range entries {
			if err := lines.Write(e); err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tSIZE\tPATH")
	for _, e := range entries {
		size := "-"
		if !e.IsDir() {
			size = fmt.Sprint(e.Size)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Kind, size, e.Path)
	}
	return w.Flush()
}

// splitTarget splits "repo/path" or "owner/repo/path" into a repository
// name and a path. A leading segment equal to owner is treated as the owner.
func splitTarget(owner, target string) (repo, rest string) {
	target = strings.Trim(target, "/")
	first, remainder, _ := strings.Cut(target, "/")
	if first == owner && remainder != "" {
		second, tail, _ := strings.Cut(remainder, "/")
		return owner + "/" + second, tail
	}
	return first, remainder
}
