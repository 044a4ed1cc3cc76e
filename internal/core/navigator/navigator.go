// Package navigator implements the repository browsing state machine:
// RepoList -> DirectoryList -> FileView and back.
//
// Network-backed transitions are split in two so they can be driven from an
// event loop. Begin* records the intent and returns a Fetch; Fetch.Run does
// the remote call and may run anywhere; Apply commits the result on the
// owning goroutine. Every transition bumps a generation counter, so a result
// that arrives after the user moved on is rejected with ErrStaleResponse and
// never touches the state.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/codesentry/internal/core/hosting"
)

// Mode is the current browsing level.
type Mode int

const (
	ModeRepoList Mode = iota
	ModeDirectoryList
	ModeFileView
)

func (m Mode) String() string {
	switch m {
	case ModeRepoList:
		return "repos"
	case ModeDirectoryList:
		return "directory"
	case ModeFileView:
		return "file"
	default:
		return "unknown"
	}
}

var (
	// ErrStaleResponse is returned by Apply for a fetch that was superseded.
	ErrStaleResponse = errors.New("stale navigation response")
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current mode.
	ErrInvalidTransition = errors.New("invalid navigation transition")
)

// State is a snapshot of the navigation state.
type State struct {
	Mode      Mode
	Owner     string
	Repo      string
	PathStack []string
	// Listing is the most recent successful directory fetch for PathStack.
	Listing []hosting.TreeEntry
	// ActiveFile and Content are set only in ModeFileView.
	ActiveFile *hosting.TreeEntry
	Content    string
}

// Path returns PathStack joined with "/".
func (s State) Path() string {
	return hosting.JoinPath(s.PathStack)
}

// FileKey identifies the open file, or "" outside ModeFileView.
func (s State) FileKey() string {
	if s.ActiveFile == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s@%s", s.Owner, s.Repo, s.ActiveFile.Path, s.ActiveFile.SHA)
}

type fetchKind int

const (
	fetchListing fetchKind = iota
	fetchFile
)

// Fetch is a pending remote call issued by a transition.
type Fetch struct {
	gen    uint64
	kind   fetchKind
	client hosting.Client
	owner  string
	repo   string
	path   []string
	entry  hosting.TreeEntry
}

// Describe returns a short human readable target for status lines.
func (f *Fetch) Describe() string {
	if f.kind == fetchFile {
		return f.entry.Path
	}
	if len(f.path) == 0 {
		return f.owner + "/" + f.repo
	}
	return f.owner + "/" + f.repo + "/" + hosting.JoinPath(f.path)
}

// Result is the outcome of Fetch.Run.
type Result struct {
	fetch   *Fetch
	listing []hosting.TreeEntry
	content string
	Err     error
}

// Run performs the remote call. It does not touch navigator state and is safe
// to call from any goroutine.
func (f *Fetch) Run(ctx context.Context) *Result {
	res := &Result{fetch: f}

	switch f.kind {
	case fetchListing:
		res.listing, res.Err = f.client.ListDirectory(ctx, f.owner, f.repo, hosting.JoinPath(f.path))
	case fetchFile:
		c, err := f.client.GetFileContent(ctx, f.owner, f.repo, f.entry.Handle)
		if err != nil {
			res.Err = err
			break
		}
		res.content, res.Err = hosting.Decode(f.entry.Path, c)
	}

	return res
}

// Navigator owns the navigation state. It is not safe for concurrent use:
// all methods except Fetch.Run must be called from one goroutine.
type Navigator struct {
	client hosting.Client
	owner  string
	log    zerolog.Logger

	state    State
	gen      uint64
	inflight *Fetch
}

// New creates a navigator in ModeRepoList. owner is used for repository
// names given without an "owner/" prefix.
func New(client hosting.Client, owner string, log zerolog.Logger) *Navigator {
	return &Navigator{
		client: client,
		owner:  owner,
		log:    log,
		state:  State{Mode: ModeRepoList},
	}
}

// SetOwner changes the default owner for EnterRepository.
func (n *Navigator) SetOwner(owner string) { n.owner = owner }

// State returns a copy of the current state.
func (n *Navigator) State() State {
	s := n.state
	s.PathStack = slices.Clone(s.PathStack)
	s.Listing = slices.Clone(s.Listing)
	if s.ActiveFile != nil {
		f := *s.ActiveFile
		s.ActiveFile = &f
	}
	return s
}

// Mode returns the current mode.
func (n *Navigator) Mode() Mode { return n.state.Mode }

// Loading reports whether a fetch is outstanding.
func (n *Navigator) Loading() bool { return n.inflight != nil }

func (n *Navigator) begin(f *Fetch) *Fetch {
	n.gen++
	f.gen = n.gen
	f.client = n.client
	n.inflight = f
	return f
}

// invalidate drops any outstanding fetch.
func (n *Navigator) invalidate() {
	n.gen++
	n.inflight = nil
}

// BeginEnterRepository starts opening the root of repository name, given as
// "repo" or "owner/repo". The mode stays unchanged until Apply succeeds.
func (n *Navigator) BeginEnterRepository(name string) *Fetch {
	owner, repo := n.owner, name
	if o, r, ok := strings.Cut(name, "/"); ok {
		owner, repo = o, r
	}

	n.log.Debug().Str("owner", owner).Str("repo", repo).Msg("enter repository")
	return n.begin(&Fetch{kind: fetchListing, owner: owner, repo: repo, path: []string{}})
}

// BeginEnterEntry starts opening entry from the current listing. Directories
// are always refetched, even when visited before.
func (n *Navigator) BeginEnterEntry(entry hosting.TreeEntry) (*Fetch, error) {
	if n.state.Mode != ModeDirectoryList {
		return nil, fmt.Errorf("%w: enter %q from %s", ErrInvalidTransition, entry.Name, n.state.Mode)
	}

	f := &Fetch{owner: n.state.Owner, repo: n.state.Repo, entry: entry}
	if entry.IsDir() {
		f.kind = fetchListing
		f.path = append(slices.Clone(n.state.PathStack), entry.Name)
	} else {
		f.kind = fetchFile
		f.path = slices.Clone(n.state.PathStack)
	}

	n.log.Debug().Str("entry", entry.Path).Str("kind", string(entry.Kind)).Msg("enter entry")
	return n.begin(f), nil
}

// GoBack moves one level up. Leaving a file returns to the last listing
// without a fetch. In a subdirectory the parent is refetched and returned as
// a Fetch. At the repository root the navigator returns to ModeRepoList.
// Any outstanding fetch is invalidated. The returned Fetch is nil when the
// transition completed synchronously.
func (n *Navigator) GoBack() *Fetch {
	n.invalidate()

	switch n.state.Mode {
	case ModeFileView:
		n.state.Mode = ModeDirectoryList
		n.state.ActiveFile = nil
		n.state.Content = ""
		return nil

	case ModeDirectoryList:
		if len(n.state.PathStack) == 0 {
			n.Reset()
			return nil
		}
		parent := slices.Clone(n.state.PathStack[:len(n.state.PathStack)-1])
		return n.begin(&Fetch{
			kind:  fetchListing,
			owner: n.state.Owner,
			repo:  n.state.Repo,
			path:  parent,
		})

	default:
		return nil
	}
}

// Reset returns to ModeRepoList from anywhere.
func (n *Navigator) Reset() {
	n.invalidate()
	n.state = State{Mode: ModeRepoList}
}

// Apply commits a fetch result. Superseded results return ErrStaleResponse.
// Failed results return the fetch error and leave the state unchanged.
func (n *Navigator) Apply(res *Result) error {
	if res == nil || res.fetch == nil || res.fetch.gen != n.gen {
		n.log.Debug().Msg("discarding stale navigation response")
		return ErrStaleResponse
	}

	f := res.fetch
	n.inflight = nil

	if res.Err != nil {
		n.log.Warn().Err(res.Err).Str("target", f.Describe()).Msg("navigation fetch failed")
		return res.Err
	}

	switch f.kind {
	case fetchListing:
		n.state = State{
			Mode:      ModeDirectoryList,
			Owner:     f.owner,
			Repo:      f.repo,
			PathStack: f.path,
			Listing:   res.listing,
		}
	case fetchFile:
		entry := f.entry
		n.state.Mode = ModeFileView
		n.state.ActiveFile = &entry
		n.state.Content = res.content
	}

	return nil
}

// EnterRepository opens a repository synchronously.
func (n *Navigator) EnterRepository(ctx context.Context, name string) error {
	return n.Apply(n.BeginEnterRepository(name).Run(ctx))
}

// EnterEntry opens a directory or file synchronously.
func (n *Navigator) EnterEntry(ctx context.Context, entry hosting.TreeEntry) error {
	f, err := n.BeginEnterEntry(entry)
	if err != nil {
		return err
	}
	return n.Apply(f.Run(ctx))
}

// GoBackSync moves one level up, waiting for the parent listing if needed.
func (n *Navigator) GoBackSync(ctx context.Context) error {
	f := n.GoBack()
	if f == nil {
		return nil
	}
	return n.Apply(f.Run(ctx))
}

// Find returns the entry called name in the current listing.
func (n *Navigator) Find(name string) (hosting.TreeEntry, bool) {
	for _, e := range n.state.Listing {
		if e.Name == name {
			return e, true
		}
	}
	return hosting.TreeEntry{}, false
}
