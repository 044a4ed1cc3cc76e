package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// RepositoryCompleter returns a ShellCompleteFunc that suggests repository
// names as the first positional argument.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func RepositoryCompleter(flags *Flags) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		// Delegate to default flag completion when typing a flag
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
			return
		}

		if flags.Config == nil || (flags.Config.GitHub.Token == "" && flags.Token == "") {
			return
		}

		app, err := flags.OpenApp(ctx, true)
		if err != nil {
			return
		}
		defer func() { _ = app.Close() }()

		repos, err := app.Repositories(ctx)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, r := range repos {
			if r.Owner == app.Owner {
				_, _ = fmt.Fprintln(w, r.Name)
				continue
			}
			_, _ = fmt.Fprintln(w, r.FullName)
		}
	}
}
