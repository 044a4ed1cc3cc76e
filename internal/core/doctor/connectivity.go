package doctor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gobwas/ws"

	"github.com/colonyops/codesentry/internal/core/hosting"
)

// DefaultTimeout bounds each network probe.
const DefaultTimeout = 5 * time.Second

// GitHubCheck verifies the token against the hosting API.
type GitHubCheck struct {
	client hosting.Client
	err    error
}

// NewGitHubCheck creates a check for client. A non-nil err (typically a
// missing credential) is reported as a failure without a request.
func NewGitHubCheck(client hosting.Client, err error) *GitHubCheck {
	return &GitHubCheck{client: client, err: err}
}

func (c *GitHubCheck) Name() string { return "GitHub" }

func (c *GitHubCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}
	if c.err != nil || c.client == nil {
		detail := "no client"
		if c.err != nil {
			detail = c.err.Error()
		}
		result.Items = append(result.Items, fail("token", detail))
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		result.Items = append(result.Items, fail("authentication", err.Error()))
		return result
	}
	result.Items = append(result.Items, pass("authentication", "signed in as "+user.Login))
	return result
}

// BackendCheck probes the submission endpoint and the push channel.
type BackendCheck struct {
	url     string
	pushURL string
	client  *http.Client
}

func NewBackendCheck(url, pushURL string) *BackendCheck {
	return &BackendCheck{
		url:     url,
		pushURL: pushURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

func (c *BackendCheck) Name() string { return "Backend" }

func (c *BackendCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}
	result.Items = append(result.Items, c.probeHTTP(ctx), c.probePush(ctx))
	return result
}

// probeHTTP treats any HTTP response as reachable; the base URL itself is
// not a route on most backends.
func (c *BackendCheck) probeHTTP(ctx context.Context) CheckItem {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fail("submission", err.Error())
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fail("submission", err.Error())
	}
	_ = resp.Body.Close()
	return pass("submission", fmt.Sprintf("%s (status %d)", c.url, resp.StatusCode))
}

func (c *BackendCheck) probePush(ctx context.Context) CheckItem {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	conn, _, _, err := ws.Dial(ctx, c.pushURL)
	if err != nil {
		return fail("push channel", fmt.Sprintf("%s: %v", c.pushURL, err))
	}
	_ = conn.Close()
	return pass("push channel", c.pushURL)
}

// clipboardUnsupported reports whether no clipboard utility is available.
// Package-level variable to allow test overrides.
var clipboardUnsupported = func() bool { return clipboard.Unsupported }

// ClipboardCheck reports whether copy actions in the dashboard can work.
type ClipboardCheck struct{}

func NewClipboardCheck() *ClipboardCheck { return &ClipboardCheck{} }

func (c *ClipboardCheck) Name() string { return "Environment" }

func (c *ClipboardCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}
	if clipboardUnsupported() {
		result.Items = append(result.Items, warn("clipboard", "no clipboard utility found (install xclip, xsel or wl-clipboard)"))
	} else {
		result.Items = append(result.Items, pass("clipboard", ""))
	}
	return result
}
