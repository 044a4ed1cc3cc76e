package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/colonyops/codesentry/internal/core/analysis"
	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/internal/core/navigator"
	"github.com/colonyops/codesentry/internal/tui/diff"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.layout()
		return m, nil
	}

	switch m.nav.Mode() {
	case navigator.ModeRepoList:
		return m.handleRepoListKey(msg)
	case navigator.ModeDirectoryList:
		return m.handleDirectoryKey(msg)
	case navigator.ModeFileView:
		if m.showDiff {
			return m.handleDiffKey(msg)
		}
		return m.handleFileKey(msg)
	}
	return m, nil
}

func (m Model) handleRepoListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, len(m.repos))
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, len(m.repos))
	case key.Matches(msg, m.keys.Refresh):
		m.reposLoading = true
		return m, loadRepos(m.ctx, m.app.Hosting)
	case key.Matches(msg, m.keys.Open):
		if m.cursor >= len(m.repos) || m.nav.Loading() {
			return m, nil
		}
		repo := m.repos[m.cursor]
		return m, runFetch(m.ctx, m.nav.BeginEnterRepository(m.repoName(repo)))
	}
	return m, nil
}

// repoName returns the name passed to the navigator; repositories of other
// owners keep their prefix.
func (m Model) repoName(r hosting.Repository) string {
	if r.Owner == "" || r.Owner == m.app.Owner {
		return r.Name
	}
	return r.FullName
}

func (m Model) handleDirectoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.visibleEntries()

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, len(entries))
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, len(entries))
	case key.Matches(msg, m.keys.Home):
		m.goHome()
	case key.Matches(msg, m.keys.Back):
		f := m.nav.GoBack()
		m.cursor = 0
		return m, runFetch(m.ctx, f)
	case key.Matches(msg, m.keys.Open):
		if m.cursor >= len(entries) {
			return m, nil
		}
		f, err := m.nav.BeginEnterEntry(entries[m.cursor])
		if err != nil {
			return m, m.notify(toastError, err.Error())
		}
		return m, runFetch(m.ctx, f)
	}
	return m, nil
}

func (m Model) handleFileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Home):
		m.goHome()
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.closeFile()
		m.nav.GoBack()
		return m, nil
	case key.Matches(msg, m.keys.Analyze):
		return m.start(analysis.KindAnalyze)
	case key.Matches(msg, m.keys.Fix):
		return m.start(analysis.KindFix)
	case key.Matches(msg, m.keys.Diff):
		return m.openDiff()
	case key.Matches(msg, m.keys.Focus):
		if m.focus == paneCode {
			m.focus = paneResult
		} else {
			m.focus = paneCode
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		a, ok := m.orch.Analysis()
		if !ok {
			return m, m.notify(toastInfo, "nothing to copy yet")
		}
		return m, copyText(m.clipboard, "explanation", a.Explanation)
	case key.Matches(msg, m.keys.CopyCode):
		a, ok := m.orch.Analysis()
		if !ok || len(a.CodeBlocks) == 0 {
			return m, m.notify(toastInfo, "no code block to copy")
		}
		block := a.CodeBlocks[m.codeBlock%len(a.CodeBlocks)]
		return m, copyText(m.clipboard, "code block", block.Body)
	case key.Matches(msg, m.keys.NextCode):
		if a, ok := m.orch.Analysis(); ok && len(a.CodeBlocks) > 0 {
			m.codeBlock = (m.codeBlock + 1) % len(a.CodeBlocks)
			m.renderResult()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == paneCode {
		m.code, cmd = m.code.Update(msg)
	} else {
		m.result, cmd = m.result.Update(msg)
	}
	return m, cmd
}

func (m Model) handleDiffKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Diff) {
		m.showDiff = false
		return m, nil
	}
	var cmd tea.Cmd
	m.diff, cmd = m.diff.Update(msg)
	return m, cmd
}

func (m *Model) moveCursor(delta, n int) {
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
}

func (m *Model) goHome() {
	m.closeFile()
	m.nav.Reset()
	m.cursor = 0
}

// closeFile drops request state and views that belong to the open file.
func (m *Model) closeFile() {
	m.orch.Discard()
	m.showDiff = false
	m.focus = paneCode
	m.codeBlock = 0
	m.code.SetContent("")
	m.result.SetContent("")
}

// visibleEntries is the current listing without hidden paths.
func (m Model) visibleEntries() []hosting.TreeEntry {
	return m.app.Filter.Apply(m.nav.State().Listing)
}

func (m Model) start(kind analysis.Kind) (tea.Model, tea.Cmd) {
	s := m.nav.State()

	var (
		sub *analysis.Submission
		err error
	)
	if kind == analysis.KindFix {
		sub, err = m.orch.BeginFix(s.FileKey(), s.Content)
	} else {
		sub, err = m.orch.BeginAnalyze(s.FileKey(), s.Content)
	}
	if errors.Is(err, analysis.ErrAlreadyPending) {
		return m, m.notify(toastInfo, "a request is already pending")
	}
	if err != nil {
		return m, m.notify(toastError, err.Error())
	}

	if kind == analysis.KindFix {
		m.showDiff = false
	} else {
		m.codeBlock = 0
	}
	m.renderCode()
	m.renderResult()

	return m, tea.Batch(submit(m.ctx, sub, m.app.Backend), m.spinner.Tick)
}

func (m Model) openDiff() (tea.Model, tea.Cmd) {
	view, ok := m.orch.Diff()
	if !ok {
		return m, m.notify(toastInfo, "run a fix first")
	}
	title := "Fix"
	if f := m.nav.State().ActiveFile; f != nil {
		title = f.Path
	}
	m.diff = diff.New(title, view)
	m.showDiff = true
	m.layout()
	return m, nil
}

func (m Model) handleRepos(msg reposLoadedMsg) (tea.Model, tea.Cmd) {
	m.reposLoading = false
	m.reposErr = msg.err
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("failed to list repositories")
		return m, m.notify(toastError, "failed to list repositories")
	}
	m.repos = msg.repos
	if m.nav.Mode() == navigator.ModeRepoList {
		m.moveCursor(0, len(m.repos))
	}
	return m, nil
}

func (m Model) handleNavResult(msg navResultMsg) (tea.Model, tea.Cmd) {
	err := m.nav.Apply(msg.res)
	switch {
	case errors.Is(err, navigator.ErrStaleResponse):
		return m, nil
	case err != nil:
		return m, m.notify(toastError, err.Error())
	}

	m.cursor = 0
	if m.nav.Mode() == navigator.ModeFileView {
		m.focus = paneCode
		m.code.GotoTop()
		m.result.GotoTop()
		m.renderCode()
		m.renderResult()
	}
	return m, nil
}

func (m Model) handleSubmitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	if err := m.orch.CompleteSubmission(msg.sub, msg.err); err != nil {
		m.renderResult()
		return m, m.notify(toastError, fmt.Sprintf("%s rejected: %v", msg.sub.Kind, err))
	}

	timeout := m.orch.Timeout()
	if pending, ok := m.orch.Pending(); timeout > 0 && ok && pending.ID == msg.sub.RequestID {
		return m, expireAfter(pending.ID, timeout)
	}
	return m, nil
}

func (m Model) handlePush(msg pushMsg) (tea.Model, tea.Cmd) {
	next := m.nextPush()

	if m.orch.HandlePush(msg.msg) != analysis.OutcomeApplied {
		return m, next
	}

	m.renderCode()
	m.renderResult()

	text := "analysis ready"
	if msg.msg.Type == analysis.KindFix.ResultType() {
		text = "fix ready, press d for the diff"
	}
	return m, tea.Batch(next, m.notify(toastSuccess, text))
}

func (m Model) handleExpire(msg expireMsg) (tea.Model, tea.Cmd) {
	if !m.orch.Expire(msg.requestID) {
		return m, nil
	}
	m.renderResult()
	return m, m.notify(toastError, "request timed out")
}

// nextPush re-arms the push reader.
func (m Model) nextPush() tea.Cmd {
	if m.app.Push == nil {
		return nil
	}
	return waitForPush(m.app.Push.Messages())
}
