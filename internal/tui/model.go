// Package tui implements the interactive dashboard: repository list,
// directory listing, file view with analysis results, and the fix diff.
//
// The bubbletea Update loop owns the navigator and the orchestrator. Network
// calls run in tea.Cmds and come back as messages; results whose ticket is no
// longer current are dropped by the core types.
package tui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/colonyops/codesentry/internal/codesentry"
	"github.com/colonyops/codesentry/internal/codesentry/updatecheck"
	"github.com/colonyops/codesentry/internal/core/analysis"
	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/internal/core/logging"
	"github.com/colonyops/codesentry/internal/core/navigator"
	"github.com/colonyops/codesentry/internal/core/styles"
	"github.com/colonyops/codesentry/internal/tui/diff"
	"github.com/colonyops/codesentry/pkg/kv"
)

const highlightCacheSize = 32

// Deps are the dependencies of the dashboard.
type Deps struct {
	App     *codesentry.App
	Version string
	// Update is shown in the header when a newer release exists.
	Update *updatecheck.Result
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

type pane int

const (
	paneCode pane = iota
	paneResult
)

// Model is the dashboard model.
type Model struct {
	ctx  context.Context
	app  *codesentry.App
	nav  *navigator.Navigator
	orch *analysis.Orchestrator
	log  zerolog.Logger

	version   string
	update    *updatecheck.Result
	clipboard func(string) error

	keys     KeyMap
	help     help.Model
	showHelp bool
	spinner  spinner.Model
	toasts   *ToastController

	width  int
	height int

	repos        []hosting.Repository
	reposLoading bool
	reposErr     error
	cursor       int

	code      viewport.Model
	result    viewport.Model
	focus     pane
	codeBlock int

	showDiff bool
	diff     diff.Model

	// highlight caches highlighted lines per file key; markdown caches
	// rendered explanations per request and width.
	highlight *kv.Store[string, []string]
	markdown  *kv.Store[string, string]
}

// New creates the dashboard model.
func New(ctx context.Context, deps Deps) Model {
	clip := deps.Clipboard
	if clip == nil {
		clip = clipboard.WriteAll
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.PendingStyle

	return Model{
		ctx:       ctx,
		app:       deps.App,
		nav:       deps.App.Navigator(),
		orch:      deps.App.Orchestrator(),
		log:       logging.Component("tui"),
		version:   deps.Version,
		update:    deps.Update,
		clipboard: clip,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		toasts:    NewToastController(),
		code:      viewport.New(0, 0),
		result:    viewport.New(0, 0),
		highlight: kv.NewBounded[string, []string](highlightCacheSize),
		markdown:  kv.NewBounded[string, string](highlightCacheSize),

		reposLoading: true,
	}
}

// Init loads the repository list and subscribes to push results.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadRepos(m.ctx, m.app.Hosting), m.nextPush())
}

// Mode returns the current navigation mode.
func (m Model) Mode() navigator.Mode { return m.nav.Mode() }

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case reposLoadedMsg:
		return m.handleRepos(msg)

	case navResultMsg:
		return m.handleNavResult(msg)

	case submittedMsg:
		return m.handleSubmitted(msg)

	case pushMsg:
		return m.handlePush(msg)

	case pushClosedMsg:
		m.log.Debug().Msg("push channel closed")
		return m, nil

	case expireMsg:
		return m.handleExpire(msg)

	case copiedMsg:
		if msg.err != nil {
			return m, m.notify(toastError, "copy failed: "+msg.err.Error())
		}
		return m, m.notify(toastSuccess, "copied "+msg.what)

	case spinner.TickMsg:
		if _, pending := m.orch.Pending(); !pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.renderResult()
		return m, cmd

	case toastTickMsg:
		return m, m.toasts.onTick()
	}

	return m, nil
}

func (m *Model) notify(level toastLevel, message string) tea.Cmd {
	m.toasts.Push(level, message)
	return m.toasts.schedule()
}
