// Package hosting defines the source-hosting collaborator: the repository
// tree, file contents, and the errors surfaced when the remote call fails.
package hosting

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind is the type of a tree entry.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// TreeEntry is one node of a repository tree. Entries are immutable once
// fetched.
type TreeEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	SHA  string `json:"sha"`
	// Handle is passed back to GetFileContent to read a file entry.
	Handle string `json:"handle"`
	Size   int    `json:"size"`
}

// IsDir reports whether the entry is a directory.
func (e TreeEntry) IsDir() bool { return e.Kind == KindDir }

// Repository is a repository visible to the authenticated user.
type Repository struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description,omitempty"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// User is the authenticated account.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// Content is file content as delivered by the API, still in its transport
// encoding.
type Content struct {
	Encoding string
	Data     string
}

// Client is the subset of the hosting API the dashboard needs. Every call is
// authenticated with the session's bearer credential.
type Client interface {
	CurrentUser(ctx context.Context) (User, error)
	ListRepositories(ctx context.Context) ([]Repository, error)
	ListDirectory(ctx context.Context, owner, repo, path string) ([]TreeEntry, error)
	GetFileContent(ctx context.Context, owner, repo, handle string) (Content, error)
}

// FetchError is returned when a hosting API call fails. Status is zero when
// no HTTP response was received.
type FetchError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError is returned when file content cannot be decoded from its
// transport encoding into text.
type DecodeError struct {
	Path     string
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (%s): %v", e.Path, e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrBinaryContent is wrapped by DecodeError when decoded bytes are not text.
var ErrBinaryContent = errors.New("content is not valid UTF-8 text")

// Decode converts content from its transport encoding to text.
func Decode(path string, c Content) (string, error) {
	var raw []byte
	switch strings.ToLower(c.Encoding) {
	case "":
		raw = []byte(c.Data)
	case "base64":
		// The API wraps base64 payloads at 60 columns.
		cleaned := strings.Map(func(r rune) rune {
			switch r {
			case '\n', '\r', ' ', '\t':
				return -1
			}
			return r
		}, c.Data)
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return "", &DecodeError{Path: path, Encoding: c.Encoding, Err: err}
		}
		raw = decoded
	default:
		return "", &DecodeError{Path: path, Encoding: c.Encoding, Err: fmt.Errorf("unsupported encoding %q", c.Encoding)}
	}

	if !utf8.Valid(raw) {
		return "", &DecodeError{Path: path, Encoding: c.Encoding, Err: ErrBinaryContent}
	}

	return string(raw), nil
}

// JoinPath joins path segments with "/", the separator of the hosting API.
func JoinPath(segments []string) string {
	return strings.Join(segments, "/")
}
