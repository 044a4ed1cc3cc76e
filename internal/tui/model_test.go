package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/codesentry/internal/codesentry"
	"github.com/colonyops/codesentry/internal/core/backend"
	"github.com/colonyops/codesentry/internal/core/config"
	"github.com/colonyops/codesentry/internal/core/hosting/hostingtest"
	"github.com/colonyops/codesentry/internal/core/navigator"
	"github.com/colonyops/codesentry/internal/core/push"
	"github.com/colonyops/codesentry/pkg/tuitest"
)

const mainPy = "import os  \nprint(os.getcwd())\n"

type stubBackend struct {
	err error

	mu    sync.Mutex
	calls []string
}

func (b *stubBackend) Submit(_ context.Context, kind backend.Kind, requestID, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, string(kind)+" "+requestID)
	return b.err
}

func (b *stubBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type fixture struct {
	backend *stubBackend
	copied  []string
}

func newTestModel(t *testing.T) (Model, *fixture) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Browser.Hide = []string{"*.lock"}

	client := hostingtest.New("octo").
		AddFile("octo", "demo", "src/main.py", mainPy).
		AddFile("octo", "demo", "poetry.lock", "locked\n")

	fx := &fixture{backend: &stubBackend{}}
	app, err := codesentry.New(context.Background(), codesentry.Options{
		Config:      &cfg,
		Hosting:     client,
		Backend:     fx.backend,
		Logger:      zerolog.Nop(),
		DisablePush: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	m := New(context.Background(), Deps{
		App:     app,
		Version: "v1.2.3",
		Clipboard: func(s string) error {
			fx.copied = append(fx.copied, s)
			return nil
		},
	})

	m, _ = update(m, tuitest.WindowSize(120, 40))
	m = settle(m, m.Init())
	return m, fx
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// settle runs cmd and feeds the results of fetches, submissions and copies
// back into the model. Tick messages are dropped, so the first toast waits
// one tick interval and the toast loop stays armed afterwards.
func settle(m Model, cmd tea.Cmd) Model {
	for _, msg := range tuitest.Drain(cmd) {
		switch msg.(type) {
		case reposLoadedMsg, navResultMsg, submittedMsg, copiedMsg:
			m, _ = update(m, msg)
		}
	}
	return m
}

func press(m Model, msg tea.KeyMsg) Model {
	m, cmd := update(m, msg)
	return settle(m, cmd)
}

func view(m Model) string {
	return tuitest.StripANSI(m.View())
}

// openMainPy navigates demo -> src -> main.py.
func openMainPy(t *testing.T, m Model) Model {
	t.Helper()
	m = press(m, tuitest.KeyEnter())
	require.Equal(t, navigator.ModeDirectoryList, m.Mode())
	m = press(m, tuitest.KeyEnter())
	m = press(m, tuitest.KeyEnter())
	require.Equal(t, navigator.ModeFileView, m.Mode())
	return m
}

func pendingID(t *testing.T, m Model) string {
	t.Helper()
	req, ok := m.orch.Pending()
	require.True(t, ok, "no pending request")
	return req.ID
}

func TestModel_RepoList(t *testing.T) {
	m, _ := newTestModel(t)

	out := view(m)
	assert.Contains(t, out, "Welcome, octo")
	assert.Contains(t, out, "v1.2.3")
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "1 repositories")
}

func TestModel_NavigateToFile(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tuitest.KeyEnter())
	out := view(m)
	assert.Contains(t, out, "octo/demo")
	assert.Contains(t, out, "src/")
	assert.NotContains(t, out, "poetry.lock")

	m = press(m, tuitest.KeyEnter())
	m = press(m, tuitest.KeyEnter())
	require.Equal(t, navigator.ModeFileView, m.Mode())

	out = view(m)
	assert.Contains(t, out, "octo/demo / src / main.py")
	assert.Contains(t, out, "print(os.getcwd())")
	assert.Contains(t, out, "Press a to analyze or f to fix this file.")
}

func TestModel_BackAndHome(t *testing.T) {
	m, _ := newTestModel(t)
	m = openMainPy(t, m)

	m = press(m, tuitest.KeyEsc())
	assert.Equal(t, navigator.ModeDirectoryList, m.Mode())
	assert.Equal(t, []string{"src"}, m.nav.State().PathStack)

	m = press(m, tuitest.KeyPress('H'))
	assert.Equal(t, navigator.ModeRepoList, m.Mode())
}

func TestModel_LateListingIsDiscarded(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(m, tuitest.KeyEnter())

	m, slow := update(m, tuitest.KeyEnter())
	m = press(m, tuitest.KeyEsc())
	require.Equal(t, navigator.ModeRepoList, m.Mode())

	m = settle(m, slow)
	assert.Equal(t, navigator.ModeRepoList, m.Mode())
	assert.Empty(t, m.nav.State().Repo)
}

func TestModel_Analyze(t *testing.T) {
	m, fx := newTestModel(t)
	m = openMainPy(t, m)

	m = press(m, tuitest.KeyPress('a'))
	id := pendingID(t, m)
	assert.Equal(t, []string{"analyze " + id}, fx.backend.Calls())
	assert.Contains(t, view(m), "Waiting for analysis…")

	// A result for another request changes nothing.
	m, _ = update(m, pushMsg{msg: push.Message{Type: push.TypeAnalysisResult, Message: "nope", RequestID: "other"}})
	assert.Contains(t, view(m), "Waiting for analysis…")

	m, _ = update(m, pushMsg{msg: push.Message{
		Type:      push.TypeAnalysisResult,
		Message:   "Looks mostly fine.\n- Line 1: trailing whitespace\n- Line 9: gone",
		RequestID: id,
	}})

	out := view(m)
	assert.NotContains(t, out, "Waiting for analysis")
	assert.Contains(t, out, "Looks mostly fine.")
	assert.Contains(t, out, "▲ trailing whitespace")
	assert.Contains(t, out, "2 issue(s)")
	assert.Contains(t, out, "Unplaced issues")
	assert.Contains(t, out, "Line 9: gone")
	assert.Contains(t, out, "analysis ready")
}

func TestModel_AlreadyPending(t *testing.T) {
	m, fx := newTestModel(t)
	m = openMainPy(t, m)

	m = press(m, tuitest.KeyPress('a'))
	m = press(m, tuitest.KeyPress('f'))

	assert.Len(t, fx.backend.Calls(), 1)
	assert.Contains(t, view(m), "a request is already pending")
}

func TestModel_Rejected(t *testing.T) {
	m, fx := newTestModel(t)
	fx.backend.err = errors.New("backend down")
	m = openMainPy(t, m)

	m = press(m, tuitest.KeyPress('a'))

	_, pending := m.orch.Pending()
	assert.False(t, pending)
	out := view(m)
	assert.Contains(t, out, "analyze failed: backend down")
	assert.Contains(t, out, "analyze rejected: backend down")
}

func TestModel_Expire(t *testing.T) {
	m, _ := newTestModel(t)
	m = openMainPy(t, m)
	m = press(m, tuitest.KeyPress('a'))
	id := pendingID(t, m)

	m, _ = update(m, expireMsg{requestID: "other"})
	_, pending := m.orch.Pending()
	require.True(t, pending)

	m, _ = update(m, expireMsg{requestID: id})
	_, pending = m.orch.Pending()
	assert.False(t, pending)
	assert.Contains(t, view(m), "request timed out")
}

func TestModel_LeavingFileDiscardsRequest(t *testing.T) {
	m, _ := newTestModel(t)
	m = openMainPy(t, m)
	m = press(m, tuitest.KeyPress('a'))
	id := pendingID(t, m)

	m = press(m, tuitest.KeyEsc())
	m, _ = update(m, pushMsg{msg: push.Message{Type: push.TypeAnalysisResult, Message: "- Line 1: late", RequestID: id}})

	m = press(m, tuitest.KeyEnter())
	require.Equal(t, navigator.ModeFileView, m.Mode())
	out := view(m)
	assert.NotContains(t, out, "late")
	assert.Contains(t, out, "Press a to analyze or f to fix this file.")
}

func TestModel_FixAndDiff(t *testing.T) {
	m, fx := newTestModel(t)
	m = openMainPy(t, m)

	m = press(m, tuitest.KeyPress('d'))
	assert.Contains(t, view(m), "run a fix first")

	m = press(m, tuitest.KeyPress('f'))
	id := pendingID(t, m)
	assert.Equal(t, []string{"fix " + id}, fx.backend.Calls())

	m, _ = update(m, pushMsg{msg: push.Message{
		Type:      push.TypeFixResult,
		Message:   "import os\nprint(os.getcwd())\n",
		RequestID: id,
	}})
	assert.Contains(t, view(m), "Fix ready: +1 -1. Press d for the diff.")

	m = press(m, tuitest.KeyPress('d'))
	require.True(t, m.showDiff)
	out := view(m)
	assert.Contains(t, out, "original")
	assert.Contains(t, out, "fixed")
	assert.Contains(t, out, "+1 -1")

	m = press(m, tuitest.KeyEsc())
	assert.False(t, m.showDiff)
	assert.Equal(t, navigator.ModeFileView, m.Mode())
}

func TestModel_Copy(t *testing.T) {
	m, fx := newTestModel(t)
	m = openMainPy(t, m)

	m = press(m, tuitest.KeyPress('y'))
	assert.Empty(t, fx.copied)

	m = press(m, tuitest.KeyPress('a'))
	id := pendingID(t, m)
	m, _ = update(m, pushMsg{msg: push.Message{
		Type:      push.TypeAnalysisResult,
		Message:   "Use this:\n```python\nimport os\n```\nor this:\n```\nprint(1)\n```",
		RequestID: id,
	}})

	m = press(m, tuitest.KeyPress('y'))
	m = press(m, tuitest.KeyPress('c'))
	m = press(m, tuitest.KeyPress(']'))
	m = press(m, tuitest.KeyPress('c'))

	assert.Equal(t, []string{"Use this:\n\nor this:", "import os\n", "print(1)\n"}, fx.copied)
	assert.Contains(t, view(m), "copied code block")
}

func TestModel_HelpToggle(t *testing.T) {
	m, _ := newTestModel(t)
	m = openMainPy(t, m)

	assert.NotContains(t, view(m), "copy code")
	m = press(m, tuitest.KeyPress('?'))
	assert.Contains(t, view(m), "copy code")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := update(m, tuitest.KeyPress('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
