package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/colonyops/codesentry/internal/core/analysis"
	"github.com/colonyops/codesentry/internal/core/annotate"
	"github.com/colonyops/codesentry/internal/core/navigator"
	"github.com/colonyops/codesentry/internal/core/render"
	"github.com/colonyops/codesentry/internal/core/styles"
	"github.com/colonyops/codesentry/internal/core/textparse"
)

const (
	headerHeight = 2
	footerHeight = 2
	tabWidth     = 4
)

// layout sizes the panes for the current window.
func (m *Model) layout() {
	bodyH := max(m.height-headerHeight-footerHeight, 0)

	paneW := m.width / 2
	// Border plus the title line.
	innerH := max(bodyH-3, 0)

	m.code.Width = max(paneW-2, 0)
	m.code.Height = innerH
	m.result.Width = max(m.width-paneW-2, 0)
	m.result.Height = innerH
	m.diff.SetSize(m.width, bodyH)

	if m.nav.Mode() == navigator.ModeFileView {
		m.renderCode()
		m.renderResult()
	}
}

// renderCode fills the code pane: numbered, highlighted lines with issue
// markers and their messages underneath.
func (m *Model) renderCode() {
	s := m.nav.State()
	if s.ActiveFile == nil {
		m.code.SetContent("")
		return
	}

	lines := m.highlight.GetOrCompute(s.FileKey(), func() []string {
		return render.HighlightLines(s.ActiveFile.Name, expandTabs(s.Content))
	})

	var notes annotate.Annotations
	if m.orch.FileKey() == s.FileKey() {
		notes = m.orch.Annotations()
	}

	numW := len(fmt.Sprint(len(lines)))
	width := m.code.Width

	var b strings.Builder
	for i, line := range lines {
		n := i + 1
		msgs, flagged := notes.Lookup(n)

		num := fmt.Sprintf("%*d", numW, n)
		mark := " "
		if flagged {
			num = styles.IssueLineStyle.Render(num)
			mark = styles.IssueMarkStyle.Render("●")
		} else {
			num = styles.LineNumberStyle.Render(num)
		}

		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fit(num+mark+" "+line, width))

		for _, msg := range msgs {
			b.WriteString("\n")
			indent := strings.Repeat(" ", numW+2)
			b.WriteString(fit(indent+styles.IssueTextStyle.Render("▲ "+msg), width))
		}
	}
	m.code.SetContent(b.String())
}

// renderResult fills the result pane from the orchestrator state.
func (m *Model) renderResult() {
	width := max(m.result.Width, 20)

	var sections []string

	if pending, ok := m.orch.Pending(); ok {
		what := "analysis"
		if pending.Kind == analysis.KindFix {
			what = "fix"
		}
		sections = append(sections, m.spinner.View()+" "+styles.PendingStyle.Render("Waiting for "+what+"…"))
	}

	for _, kind := range []analysis.Kind{analysis.KindAnalyze, analysis.KindFix} {
		if req, ok := m.orch.Request(kind); ok && req.Status == analysis.StatusRejected {
			sections = append(sections, styles.ErrorStyle.Render(fmt.Sprintf("%s failed: %v", kind, req.Err)))
		}
	}

	if a, ok := m.orch.Analysis(); ok {
		req, _ := m.orch.Request(analysis.KindAnalyze)
		sections = append(sections, m.renderAnalysis(req.ID, a, width))
	}

	if view, ok := m.orch.Diff(); ok {
		st := view.Stats()
		line := fmt.Sprintf("%sFix ready: +%d -%d. Press d for the diff.", styles.IconWrench, st.Added, st.Removed)
		if !view.Changed() {
			line = styles.IconWrench + "Fix made no changes."
		}
		sections = append(sections, styles.CopiedStyle.Render(line))
	}

	if len(sections) == 0 {
		sections = append(sections, styles.MutedStyle.Render("Press a to analyze or f to fix this file."))
	}

	m.result.SetContent(strings.Join(sections, "\n\n"))
}

func (m *Model) renderAnalysis(requestID string, a textparse.Analysis, width int) string {
	var b strings.Builder

	if a.Explanation != "" {
		cacheKey := fmt.Sprintf("%s:%d", requestID, width)
		b.WriteString(m.markdown.GetOrCompute(cacheKey, func() string {
			return render.Markdown(a.Explanation, width)
		}))
	}

	for i, block := range a.CodeBlocks {
		b.WriteString("\n\n")
		label := fmt.Sprintf("[%d/%d] %s", i+1, len(a.CodeBlocks), block.Language)
		if i == m.codeBlock%len(a.CodeBlocks) {
			b.WriteString(styles.PaneTitleStyle.Render("▶ " + label))
		} else {
			b.WriteString(styles.MutedStyle.Render("  " + label))
		}
		b.WriteString("\n")
		b.WriteString(render.Code(block.Language, expandTabs(block.Body)))
	}

	notes := m.orch.Annotations()
	if n := notes.Len(); n > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.IssueMarkStyle.Render(fmt.Sprintf("%s%d issue(s)", styles.IconIssue, n)))
		for _, line := range notes.Lines() {
			msgs, _ := notes.Lookup(line)
			for _, msg := range msgs {
				fmt.Fprintf(&b, "\n  %s %s", styles.LineNumberStyle.Render(fmt.Sprintf("Line %d:", line)), msg)
			}
		}
	}

	if len(notes.OutOfRange) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.UnplacedStyle.Render("Unplaced issues"))
		for _, issue := range notes.OutOfRange {
			fmt.Fprintf(&b, "\n  Line %d: %s", issue.Line, issue.Message)
		}
	}

	return strings.TrimLeft(b.String(), "\n")
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := clampLines(m.renderBody(bodyH), bodyH)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	title := styles.HeaderStyle.Render(styles.IconGithub + "codesentry")
	welcome := styles.MutedStyle.Render("Welcome, " + m.app.User.Login)

	right := ""
	if m.update != nil {
		right = styles.PendingStyle.Render(fmt.Sprintf("update available: %s → %s", m.update.Current, m.update.Latest))
	} else if m.version != "" {
		right = styles.MutedStyle.Render(m.version)
	}

	left := title + " " + welcome
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-1, 1)
	top := left + strings.Repeat(" ", gap) + right

	return fit(top, m.width) + "\n" + fit(styles.BreadcrumbStyle.Render(" "+m.breadcrumb()), m.width)
}

func (m Model) breadcrumb() string {
	s := m.nav.State()
	if s.Mode == navigator.ModeRepoList {
		crumb := "repositories"
		if m.nav.Loading() {
			crumb += " · loading…"
		}
		return crumb
	}

	parts := append([]string{s.Owner + "/" + s.Repo}, s.PathStack...)
	if s.ActiveFile != nil {
		parts = append(parts, s.ActiveFile.Name)
	}
	crumb := strings.Join(parts, " / ")
	if m.nav.Loading() {
		crumb += " · loading…"
	}
	return crumb
}

func (m Model) renderBody(height int) string {
	switch m.nav.Mode() {
	case navigator.ModeRepoList:
		return m.renderRepoList(height)
	case navigator.ModeDirectoryList:
		return m.renderDirectory(height)
	default:
		if m.showDiff {
			return m.diff.View()
		}
		return m.renderFileView()
	}
}

func (m Model) renderRepoList(height int) string {
	switch {
	case m.reposLoading:
		return styles.StatusStyle.Render("Loading repositories…")
	case m.reposErr != nil:
		return styles.StatusErrStyle.Render("Failed to list repositories: " + m.reposErr.Error())
	case len(m.repos) == 0:
		return styles.StatusStyle.Render("No repositories")
	}

	rows := make([]string, len(m.repos))
	for i, r := range m.repos {
		icon := styles.IconRepo
		if r.Private {
			icon = styles.IconLock
		}
		label := icon + m.repoName(r)
		if r.Description != "" {
			label += "  " + styles.MutedStyle.Render(r.Description)
		}
		rows[i] = label
	}
	return m.renderList(rows, height)
}

func (m Model) renderDirectory(height int) string {
	entries := m.visibleEntries()
	if len(entries) == 0 {
		return styles.StatusStyle.Render("Nothing to show here")
	}

	rows := make([]string, len(entries))
	for i, e := range entries {
		if e.IsDir() {
			rows[i] = styles.DirStyle.Render(styles.IconFolderClosed + e.Name + "/")
		} else {
			rows[i] = styles.IconForFile(e.Name) + e.Name
		}
	}
	return m.renderList(rows, height)
}

// renderList renders rows with the cursor row selected, scrolled so the
// cursor stays visible.
func (m Model) renderList(rows []string, height int) string {
	start := 0
	if height > 0 && m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+max(height, 1), len(rows))

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		style := styles.ItemStyle
		if i == m.cursor {
			style = styles.ItemSelectedStyle
		}
		out = append(out, fit(style.Render(rows[i]), m.width))
	}
	return strings.Join(out, "\n")
}

func (m Model) renderFileView() string {
	name := ""
	if f := m.nav.State().ActiveFile; f != nil {
		name = f.Name
	}

	codeTitle := styles.PaneTitleStyle.Render(styles.IconForFile(name) + name)
	resultTitle := styles.PaneTitleStyle.Render(styles.IconBrain + "Review")
	if _, ok := m.orch.Pending(); ok {
		resultTitle += " " + m.spinner.View()
	}

	codeStyle, resultStyle := styles.PaneStyle, styles.PaneStyle
	if m.focus == paneCode {
		codeStyle = styles.PaneFocusStyle
	} else {
		resultStyle = styles.PaneFocusStyle
	}

	left := codeStyle.Width(m.code.Width).Render(codeTitle + "\n" + m.code.View())
	right := resultStyle.Width(m.result.Width).Render(resultTitle + "\n" + m.result.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) renderFooter() string {
	status := m.toasts.View()
	if status == "" {
		status = styles.StatusStyle.Render(m.statusLine())
	}

	m.help.ShowAll = m.showHelp
	return status + "\n" + styles.HelpStyle.Render(m.help.View(m.helpKeys()))
}

func (m Model) statusLine() string {
	switch m.nav.Mode() {
	case navigator.ModeRepoList:
		return fmt.Sprintf("%d repositories", len(m.repos))
	case navigator.ModeDirectoryList:
		return fmt.Sprintf("%d entries", len(m.visibleEntries()))
	}

	s := m.nav.State()
	status := fmt.Sprintf("%d lines", analysis.LineCount(s.Content))
	if n := m.orch.Annotations().Len(); n > 0 {
		status += fmt.Sprintf(" · %d issue(s)", n)
	}
	return status
}

func (m Model) helpKeys() keyHelp {
	k := m.keys
	switch {
	case m.nav.Mode() == navigator.ModeRepoList:
		short := []key.Binding{k.Up, k.Down, k.Open, k.Refresh, k.Help, k.Quit}
		return keyHelp{short: short, full: [][]key.Binding{short}}
	case m.nav.Mode() == navigator.ModeDirectoryList:
		short := []key.Binding{k.Up, k.Down, k.Open, k.Back, k.Home, k.Help, k.Quit}
		return keyHelp{short: short, full: [][]key.Binding{short}}
	case m.showDiff:
		short := []key.Binding{k.Up, k.Down, k.Back, k.Quit}
		return keyHelp{short: short, full: [][]key.Binding{short}}
	default:
		return keyHelp{
			short: []key.Binding{k.Analyze, k.Fix, k.Diff, k.Back, k.Help, k.Quit},
			full: [][]key.Binding{
				{k.Analyze, k.Fix, k.Diff},
				{k.Up, k.Down, k.Focus},
				{k.Copy, k.CopyCode, k.NextCode},
				{k.Back, k.Home, k.Quit},
			},
		}
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// fit truncates s to width cells; a zero width leaves s untouched.
func fit(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// clampLines pads or cuts s to exactly n lines.
func clampLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
