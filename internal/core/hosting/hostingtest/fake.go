// Package hostingtest provides an in-memory hosting.Client for tests.
// It serves a fixed tree, records every call, and can inject failures.
package hostingtest

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/colonyops/codesentry/internal/core/hosting"
)

// Client is a fake hosting.Client backed by a map of file paths to content.
type Client struct {
	User  hosting.User
	Repos []hosting.Repository

	mu    sync.Mutex
	files map[string]string // "owner/repo/path" -> text
	raw   map[string]hosting.Content
	errs  map[string]error
	calls []string
}

var _ hosting.Client = (*Client)(nil)

// New creates a fake client for user login.
func New(login string) *Client {
	return &Client{
		User:  hosting.User{Login: login},
		files: make(map[string]string),
		raw:   make(map[string]hosting.Content),
		errs:  make(map[string]error),
	}
}

// AddFile adds a text file; parent directories are implied.
func (c *Client) AddFile(owner, repo, filePath, text string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[owner+"/"+repo+"/"+filePath] = text
	c.ensureRepo(owner, repo)
	return c
}

// AddRawFile adds a file with explicit transport content.
func (c *Client) AddRawFile(owner, repo, filePath string, content hosting.Content) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := owner + "/" + repo + "/" + filePath
	c.files[key] = ""
	c.raw[key] = content
	c.ensureRepo(owner, repo)
	return c
}

func (c *Client) ensureRepo(owner, repo string) {
	for _, r := range c.Repos {
		if r.Owner == owner && r.Name == repo {
			return
		}
	}
	c.Repos = append(c.Repos, hosting.Repository{Owner: owner, Name: repo, FullName: owner + "/" + repo})
}

// FailOn makes the call identified by key return err. Keys have the form
// "list owner/repo/path" or "get owner/repo/path".
func (c *Client) FailOn(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[key] = err
}

// Calls returns the recorded call keys in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CountCalls returns how many times key was called.
func (c *Client) CountCalls(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.calls {
		if k == key {
			n++
		}
	}
	return n
}

func (c *Client) record(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, key)
	return c.errs[key]
}

func (c *Client) CurrentUser(context.Context) (hosting.User, error) {
	if err := c.record("user"); err != nil {
		return hosting.User{}, err
	}
	return c.User, nil
}

func (c *Client) ListRepositories(context.Context) ([]hosting.Repository, error) {
	if err := c.record("repos"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hosting.Repository(nil), c.Repos...), nil
}

func (c *Client) ListDirectory(_ context.Context, owner, repo, dir string) ([]hosting.TreeEntry, error) {
	prefix := owner + "/" + repo + "/"
	key := "list " + strings.TrimSuffix(prefix+dir, "/")
	if err := c.record(key); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	base := prefix
	if dir != "" {
		base += dir + "/"
	}

	seen := map[string]hosting.TreeEntry{}
	found := dir == ""
	for full := range c.files {
		if !strings.HasPrefix(full, base) {
			continue
		}
		found = true
		rest := strings.TrimPrefix(full, base)
		name, _, isDir := strings.Cut(rest, "/")
		p := path.Join(dir, name)
		kind := hosting.KindFile
		if isDir {
			kind = hosting.KindDir
		}
		seen[name] = hosting.TreeEntry{Name: name, Path: p, Kind: kind, Handle: p, SHA: c.sha(prefix + p)}
	}
	if !found {
		return nil, &hosting.FetchError{Op: "list directory", Status: http.StatusNotFound, Body: "Not Found"}
	}

	entries := make([]hosting.TreeEntry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// sha derives a stable identifier from the current content under key.
// Callers must hold mu.
func (c *Client) sha(key string) string {
	if text, ok := c.files[key]; ok {
		return fmt.Sprintf("%x", len(text)*31+len(key))
	}
	return fmt.Sprintf("d%x", len(key))
}

func (c *Client) GetFileContent(_ context.Context, owner, repo, handle string) (hosting.Content, error) {
	key := owner + "/" + repo + "/" + handle
	if err := c.record("get " + key); err != nil {
		return hosting.Content{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if raw, ok := c.raw[key]; ok {
		return raw, nil
	}
	text, ok := c.files[key]
	if !ok {
		return hosting.Content{}, &hosting.FetchError{Op: "get file content", Status: http.StatusNotFound, Body: "Not Found"}
	}
	return hosting.Content{Encoding: "base64", Data: base64.StdEncoding.EncodeToString([]byte(text))}, nil
}
