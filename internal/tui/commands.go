package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/colonyops/codesentry/internal/core/analysis"
	"github.com/colonyops/codesentry/internal/core/backend"
	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/internal/core/logging"
	"github.com/colonyops/codesentry/internal/core/navigator"
	"github.com/colonyops/codesentry/internal/core/push"
)

type reposLoadedMsg struct {
	repos []hosting.Repository
	err   error
}

type navResultMsg struct {
	res *navigator.Result
}

type submittedMsg struct {
	sub *analysis.Submission
	err error
}

type pushMsg struct {
	msg push.Message
}

type pushClosedMsg struct{}

type expireMsg struct {
	requestID string
}

type copiedMsg struct {
	what string
	err  error
}

func loadRepos(ctx context.Context, client hosting.Client) tea.Cmd {
	return func() tea.Msg {
		repos, err := client.ListRepositories(ctx)
		return reposLoadedMsg{repos: repos, err: err}
	}
}

func runFetch(ctx context.Context, f *navigator.Fetch) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		return navResultMsg{res: f.Run(ctx)}
	}
}

func submit(ctx context.Context, sub *analysis.Submission, b backend.Submitter) tea.Cmd {
	return func() tea.Msg {
		ctx := logging.WithRequestID(ctx, sub.RequestID)
		return submittedMsg{sub: sub, err: sub.Run(ctx, b)}
	}
}

// waitForPush reads one message from ch. The model re-arms it after every
// delivery so exactly one read is outstanding.
func waitForPush(ch <-chan push.Message) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return pushClosedMsg{}
		}
		return pushMsg{msg: msg}
	}
}

func expireAfter(requestID string, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return expireMsg{requestID: requestID}
	})
}

func copyText(write func(string) error, what, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{what: what, err: write(text)}
	}
}
