package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/github"
	"github.com/rs/zerolog"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com/"

const reposPerPage = 100

// GitHubOptions configures a GitHub client.
type GitHubOptions struct {
	// APIURL overrides the REST base URL (GitHub Enterprise, tests).
	APIURL string
	// Token is the bearer credential sent with every request.
	Token     string
	UserAgent string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// GitHub implements Client against the GitHub REST API.
type GitHub struct {
	gh  *github.Client
	log zerolog.Logger
}

var _ Client = (*GitHub)(nil)

// NewGitHub creates a GitHub client authenticated with opts.Token.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	httpClient := &http.Client{
		Timeout:   opts.Timeout,
		Transport: &bearerTransport{token: opts.Token, base: http.DefaultTransport},
	}

	gh := github.NewClient(httpClient)

	if opts.APIURL != "" {
		base := opts.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse api url: %w", err)
		}
		gh.BaseURL = u
	}
	if opts.UserAgent != "" {
		gh.UserAgent = opts.UserAgent
	}

	return &GitHub{gh: gh, log: opts.Logger}, nil
}

// CurrentUser returns the account the token belongs to.
func (g *GitHub) CurrentUser(ctx context.Context) (User, error) {
	u, _, err := g.gh.Users.Get(ctx, "")
	if err != nil {
		return User{}, fetchError("get user", err)
	}
	return User{Login: u.GetLogin(), Name: u.GetName()}, nil
}

// ListRepositories returns every repository of the authenticated user,
// following pagination.
func (g *GitHub) ListRepositories(ctx context.Context) ([]Repository, error) {
	opts := &github.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: reposPerPage},
	}

	var repos []Repository
	for {
		page, resp, err := g.gh.Repositories.List(ctx, "", opts)
		if err != nil {
			return nil, fetchError("list repositories", err)
		}

		for _, r := range page {
			repos = append(repos, Repository{
				Owner:         r.GetOwner().GetLogin(),
				Name:          r.GetName(),
				FullName:      r.GetFullName(),
				Description:   r.GetDescription(),
				Private:       r.GetPrivate(),
				DefaultBranch: r.GetDefaultBranch(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	g.log.Debug().Int("count", len(repos)).Msg("listed repositories")
	return repos, nil
}

// ListDirectory returns the entries of path ("" for the repository root).
func (g *GitHub) ListDirectory(ctx context.Context, owner, repo, path string) ([]TreeEntry, error) {
	file, dir, _, err := g.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		return nil, fetchError("list directory", err)
	}
	if file != nil {
		return nil, &FetchError{Op: "list directory", Err: fmt.Errorf("%s is a file", path)}
	}

	entries := make([]TreeEntry, 0, len(dir))
	for _, c := range dir {
		kind := KindFile
		if c.GetType() == "dir" {
			kind = KindDir
		}
		entries = append(entries, TreeEntry{
			Name:   c.GetName(),
			Path:   c.GetPath(),
			Kind:   kind,
			SHA:    c.GetSHA(),
			Handle: c.GetPath(),
			Size:   c.GetSize(),
		})
	}

	g.log.Debug().
		Str("repo", owner+"/"+repo).
		Str("path", path).
		Int("entries", len(entries)).
		Msg("listed directory")
	return entries, nil
}

// GetFileContent reads the file addressed by handle. The data is returned in
// its transport encoding; see Decode.
func (g *GitHub) GetFileContent(ctx context.Context, owner, repo, handle string) (Content, error) {
	file, _, _, err := g.gh.Repositories.GetContents(ctx, owner, repo, handle, nil)
	if err != nil {
		return Content{}, fetchError("get file content", err)
	}
	if file == nil {
		return Content{}, &FetchError{Op: "get file content", Err: fmt.Errorf("%s is a directory", handle)}
	}

	var data string
	if file.Content != nil {
		data = *file.Content
	}
	return Content{Encoding: file.GetEncoding(), Data: data}, nil
}

// LatestRelease returns the tag name of the newest published release.
func (g *GitHub) LatestRelease(ctx context.Context, owner, repo string) (string, error) {
	rel, _, err := g.gh.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return "", fetchError("get latest release", err)
	}
	return rel.GetTagName(), nil
}

func fetchError(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &FetchError{
			Op:     op,
			Status: ghErr.Response.StatusCode,
			Body:   ghErr.Message,
			Err:    err,
		}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &FetchError{
			Op:     op,
			Status: rateErr.Response.StatusCode,
			Body:   rateErr.Message,
			Err:    err,
		}
	}

	return &FetchError{Op: op, Err: err}
}

// bearerTransport adds the session credential to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}
