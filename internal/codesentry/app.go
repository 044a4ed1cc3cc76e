// Package codesentry ties the core components into one session.
//
// App is created once a credential is available and owns the process-wide
// resources: the hosting client, the backend client and the push channel.
// The TUI drives Navigator and Orchestrator directly from its event loop.
// Headless callers use the synchronous methods instead, which serialize
// access with a mutex because push results are applied from the pump
// goroutine.
package codesentry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/codesentry/internal/codesentry/updatecheck"
	"github.com/colonyops/codesentry/internal/core/analysis"
	"github.com/colonyops/codesentry/internal/core/annotate"
	"github.com/colonyops/codesentry/internal/core/backend"
	"github.com/colonyops/codesentry/internal/core/config"
	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/internal/core/kv"
	"github.com/colonyops/codesentry/internal/core/linediff"
	"github.com/colonyops/codesentry/internal/core/logging"
	"github.com/colonyops/codesentry/internal/core/navigator"
	"github.com/colonyops/codesentry/internal/core/push"
	"github.com/colonyops/codesentry/internal/core/textparse"
	"github.com/colonyops/codesentry/internal/data/db"
	"github.com/colonyops/codesentry/internal/data/stores"
)

var (
	// ErrNoCredential is returned by New when no token is configured.
	ErrNoCredential = errors.New("no GitHub token configured")
	// ErrNoActiveFile is returned when analyze or fix is started outside the
	// file view.
	ErrNoActiveFile = errors.New("no file is open")
	// ErrAbandoned is returned by Wait when the request was discarded or
	// timed out before a result arrived.
	ErrAbandoned = errors.New("request abandoned before a result arrived")
)

// Options configures New. Hosting and Backend override the clients built
// from Config.
type Options struct {
	Config  *config.Config
	Token   string
	Hosting hosting.Client
	Backend backend.Submitter
	Logger  zerolog.Logger
	// DisablePush skips opening the push channel.
	DisablePush bool
}

// App is the session context.
type App struct {
	Config  *config.Config
	Hosting hosting.Client
	Backend backend.Submitter
	Push    *push.Channel
	Cache   kv.KV
	Filter  Filter
	User    hosting.User
	Owner   string

	log      zerolog.Logger
	database *db.DB

	mu      sync.Mutex
	nav     *navigator.Navigator
	orch    *analysis.Orchestrator
	changed chan struct{}
	timers  map[string]*time.Timer

	pumpOnce sync.Once
	pumpDone chan struct{}
}

// New authenticates against the hosting API and opens the session.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	log := opts.Logger

	token := opts.Token
	if token == "" {
		token = cfg.GitHub.Token
	}

	client := opts.Hosting
	if client == nil {
		if token == "" {
			return nil, ErrNoCredential
		}
		gh, err := hosting.NewGitHub(hosting.GitHubOptions{
			APIURL:    cfg.GitHub.APIURL,
			Token:     token,
			UserAgent: "codesentry",
			Timeout:   30 * time.Second,
			Logger:    logging.Sub(log, "hosting"),
		})
		if err != nil {
			return nil, err
		}
		client = gh
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	owner := cfg.GitHub.Owner
	if owner == "" {
		owner = user.Login
	}

	submitter := opts.Backend
	if submitter == nil {
		submitter = backend.New(cfg.Backend.URL, cfg.Backend.SubmitTimeout, logging.Sub(log, "backend"))
	}

	app := &App{
		Config:  cfg,
		Hosting: client,
		Backend: submitter,
		Filter:  NewFilter(cfg.Browser.Hide),
		User:    user,
		Owner:   owner,
		log:     logging.Sub(log, "app"),
		nav:     navigator.New(client, owner, logging.Sub(log, "navigator")),
		orch: analysis.New(analysis.Options{
			RequireRequestID: cfg.Backend.RequireRequestID,
			Timeout:          cfg.Analysis.Timeout,
			Logger:           logging.Sub(log, "analysis"),
		}),
		changed:  make(chan struct{}),
		timers:   make(map[string]*time.Timer),
		pumpDone: make(chan struct{}),
	}

	if database, err := stores.OpenCache(cfg.CacheDir(), logging.Sub(log, "cache")); err != nil {
		app.log.Warn().Err(err).Msg("cache unavailable")
	} else {
		app.database = database
		app.Cache = stores.NewKVStore(database)
	}

	if !opts.DisablePush {
		app.Push = push.Open(context.WithoutCancel(ctx), cfg.Backend.PushURL, push.Options{
			ReconnectDelay: cfg.Backend.ReconnectDelay,
			Logger:         logging.Sub(log, "push"),
		})
	}

	app.log.Info().Str("login", user.Login).Str("owner", owner).Msg("session started")
	return app, nil
}

// Navigator returns the navigation state machine. It must only be used from
// one goroutine and not mixed with the synchronous methods.
func (a *App) Navigator() *navigator.Navigator { return a.nav }

// Orchestrator returns the request orchestrator, with the same restriction
// as Navigator.
func (a *App) Orchestrator() *analysis.Orchestrator { return a.orch }

// Close tears down the session.
func (a *App) Close() error {
	a.mu.Lock()
	for id, t := range a.timers {
		t.Stop()
		delete(a.timers, id)
	}
	a.mu.Unlock()

	var errs []error
	if a.Push != nil {
		if err := a.Push.Close(); err != nil {
			errs = append(errs, err)
		} else {
			a.pumpOnce.Do(func() { close(a.pumpDone) })
			<-a.pumpDone
		}
	}
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CheckUpdate reports a newer release when the hosting client can look
// releases up.
func (a *App) CheckUpdate(ctx context.Context, version string) (*updatecheck.Result, error) {
	src, ok := a.Hosting.(updatecheck.ReleaseSource)
	if !ok || a.Cache == nil {
		return nil, nil
	}
	return updatecheck.Check(ctx, a.Cache, src, version)
}

// Serve applies push messages to the orchestrator until the push channel
// closes. Headless callers start it once; the TUI reads the channel itself.
func (a *App) Serve() {
	if a.Push == nil {
		return
	}
	started := false
	a.pumpOnce.Do(func() {
		started = true
		go func() {
			defer close(a.pumpDone)
			for msg := range a.Push.Messages() {
				a.HandlePush(msg)
			}
		}()
	})
	if !started {
		a.log.Debug().Msg("push pump already running")
	}
}

// HandlePush applies one push message.
func (a *App) HandlePush(msg push.Message) analysis.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	outcome := a.orch.HandlePush(msg)
	if outcome == analysis.OutcomeApplied {
		a.stopTimer(msg.RequestID)
		a.broadcast()
	}
	return outcome
}

// broadcast wakes Wait callers. Callers must hold mu.
func (a *App) broadcast() {
	close(a.changed)
	a.changed = make(chan struct{})
}

// stopTimer cancels the timeout for requestID, or every timeout when the
// ID is empty. Callers must hold mu.
func (a *App) stopTimer(requestID string) {
	for id, t := range a.timers {
		if requestID == "" || id == requestID {
			t.Stop()
			delete(a.timers, id)
		}
	}
}

// State returns the navigation state with hidden entries filtered out.
func (a *App) State() navigator.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.nav.State()
	s.Listing = a.Filter.Apply(s.Listing)
	return s
}

// Repositories lists the repositories of the authenticated user.
func (a *App) Repositories(ctx context.Context) ([]hosting.Repository, error) {
	return a.Hosting.ListRepositories(ctx)
}

// EnterRepository opens the root of repository name.
func (a *App) EnterRepository(ctx context.Context, name string) error {
	a.mu.Lock()
	fetch := a.nav.BeginEnterRepository(name)
	a.mu.Unlock()

	return a.apply(fetch.Run(ctx))
}

// EnterEntry opens a directory or file of the current listing.
func (a *App) EnterEntry(ctx context.Context, entry hosting.TreeEntry) error {
	a.mu.Lock()
	fetch, err := a.nav.BeginEnterEntry(entry)
	a.mu.Unlock()
	if err != nil {
		return err
	}

	return a.apply(fetch.Run(ctx))
}

// EnterName opens the entry called name in the current listing.
func (a *App) EnterName(ctx context.Context, name string) error {
	a.mu.Lock()
	entry, ok := a.nav.Find(name)
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%q not found in current directory", name)
	}
	return a.EnterEntry(ctx, entry)
}

// OpenPath opens repo and walks filePath one segment at a time.
func (a *App) OpenPath(ctx context.Context, repo, filePath string) error {
	if err := a.EnterRepository(ctx, repo); err != nil {
		return err
	}
	for _, seg := range strings.Split(strings.Trim(filePath, "/"), "/") {
		if seg == "" {
			continue
		}
		if err := a.EnterName(ctx, seg); err != nil {
			return err
		}
	}
	return nil
}

// GoBack moves one level up. Leaving a file discards its requests.
func (a *App) GoBack(ctx context.Context) error {
	a.mu.Lock()
	leavingFile := a.nav.Mode() == navigator.ModeFileView
	fetch := a.nav.GoBack()
	if leavingFile {
		a.orch.Discard()
		a.stopTimer("")
		a.broadcast()
	}
	a.mu.Unlock()

	if fetch == nil {
		return nil
	}
	return a.apply(fetch.Run(ctx))
}

// Reset returns to the repository list.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nav.Reset()
	a.orch.Discard()
	a.stopTimer("")
	a.broadcast()
}

func (a *App) apply(res *navigator.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nav.Apply(res)
}

// StartAnalyze submits the open file for analysis and returns the request ID.
func (a *App) StartAnalyze(ctx context.Context) (string, error) {
	return a.start(ctx, analysis.KindAnalyze)
}

// StartFix submits the open file for fixing and returns the request ID.
func (a *App) StartFix(ctx context.Context) (string, error) {
	return a.start(ctx, analysis.KindFix)
}

func (a *App) start(ctx context.Context, kind analysis.Kind) (string, error) {
	a.mu.Lock()
	state := a.nav.State()
	if state.Mode != navigator.ModeFileView {
		a.mu.Unlock()
		return "", ErrNoActiveFile
	}

	begin := a.orch.BeginAnalyze
	if kind == analysis.KindFix {
		begin = a.orch.BeginFix
	}
	sub, err := begin(state.FileKey(), state.Content)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}

	ctx = logging.WithRepo(ctx, state.Owner+"/"+state.Repo)
	ctx = logging.WithRequestID(ctx, sub.RequestID)
	runErr := sub.Run(ctx, a.Backend)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.orch.CompleteSubmission(sub, runErr); err != nil {
		a.broadcast()
		return "", err
	}

	pending, ok := a.orch.Pending()
	if timeout := a.orch.Timeout(); timeout > 0 && ok && pending.ID == sub.RequestID {
		id := sub.RequestID
		a.timers[id] = time.AfterFunc(timeout, func() { a.expire(id) })
	}
	return sub.RequestID, nil
}

func (a *App) expire(requestID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.timers, requestID)
	if a.orch.Expire(requestID) {
		a.broadcast()
	}
}

// Wait blocks until the request with requestID is fulfilled or rejected.
func (a *App) Wait(ctx context.Context, requestID string) (analysis.Request, error) {
	for {
		a.mu.Lock()
		req, found := a.requestByID(requestID)
		changed := a.changed
		a.mu.Unlock()

		if !found {
			return analysis.Request{}, ErrAbandoned
		}
		if req.Status != analysis.StatusPending {
			return req, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return analysis.Request{}, ctx.Err()
		}
	}
}

func (a *App) requestByID(id string) (analysis.Request, bool) {
	for _, kind := range []analysis.Kind{analysis.KindAnalyze, analysis.KindFix} {
		if r, ok := a.orch.Request(kind); ok && r.ID == id {
			return r, true
		}
	}
	return analysis.Request{}, false
}

// Analysis returns the parsed analysis for the open file.
func (a *App) Analysis() (textparse.Analysis, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Analysis()
}

// Annotations returns the issue overlay for the open file.
func (a *App) Annotations() annotate.Annotations {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Annotations()
}

// FixedText returns the fixed file text.
func (a *App) FixedText() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.FixedText()
}

// Diff returns the diff between the open file and its fix.
func (a *App) Diff() (linediff.View, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Diff()
}
