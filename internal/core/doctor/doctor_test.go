package doctor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/codesentry/internal/core/config"
	"github.com/colonyops/codesentry/internal/core/hosting"
	"github.com/colonyops/codesentry/internal/core/hosting/hostingtest"
)

type staticCheck struct {
	name  string
	items []CheckItem
}

func (c staticCheck) Name() string { return c.name }

func (c staticCheck) Run(context.Context) Result {
	return Result{Name: c.name, Items: c.items}
}

func TestRunAllAndSummary(t *testing.T) {
	results := RunAll(context.Background(), []Check{
		staticCheck{name: "a", items: []CheckItem{pass("x", ""), warn("y", "")}},
		staticCheck{name: "b", items: []CheckItem{fail("z", ""), pass("w", "")}},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Name)

	passed, warned, failed := Summary(results)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, warned)
	assert.Equal(t, 1, failed)
}

func TestConfigCheck(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.Config)
		writeFile  bool
		wantStatus []Status
	}{
		{
			name:       "defaults without file",
			mutate:     func(c *config.Config) { c.GitHub.Token = "t" },
			wantStatus: []Status{StatusWarn, StatusPass},
		},
		{
			name:       "file present",
			mutate:     func(c *config.Config) { c.GitHub.Token = "t" },
			writeFile:  true,
			wantStatus: []Status{StatusPass, StatusPass},
		},
		{
			name: "bad theme and missing token",
			mutate: func(c *config.Config) {
				c.TUI.Theme = "nope"
			},
			writeFile:  true,
			wantStatus: []Status{StatusPass, StatusFail, StatusWarn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.DataDir = t.TempDir()
			tt.mutate(&cfg)

			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.writeFile {
				require.NoError(t, os.WriteFile(path, []byte("tui:\n  theme: x\n"), 0o644))
			}

			result := NewConfigCheck(&cfg, path).Run(context.Background())

			got := make([]Status, 0, len(result.Items))
			for _, item := range result.Items {
				got = append(got, item.Status)
			}
			assert.Equal(t, tt.wantStatus, got)
		})
	}
}

func TestGitHubCheck(t *testing.T) {
	ctx := context.Background()

	res := NewGitHubCheck(nil, errors.New("no GitHub token configured")).Run(ctx)
	require.Len(t, res.Items, 1)
	assert.Equal(t, StatusFail, res.Items[0].Status)
	assert.Equal(t, "no GitHub token configured", res.Items[0].Detail)

	res = NewGitHubCheck(hostingtest.New("octo"), nil).Run(ctx)
	require.Len(t, res.Items, 1)
	assert.Equal(t, StatusPass, res.Items[0].Status)
	assert.Equal(t, "signed in as octo", res.Items[0].Detail)

	client := hostingtest.New("octo")
	client.FailOn("user", &hosting.FetchError{Op: "get user", Status: 401, Body: "Bad credentials"})
	res = NewGitHubCheck(client, nil).Run(ctx)
	assert.Equal(t, StatusFail, res.Items[0].Status)
	assert.Contains(t, res.Items[0].Detail, "Bad credentials")
}

func TestBackendCheck(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	pushURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analysis/"
	res := NewBackendCheck(srv.URL+"/api", pushURL).Run(context.Background())

	require.Len(t, res.Items, 2)
	assert.Equal(t, StatusPass, res.Items[0].Status, "any HTTP response counts as reachable")
	assert.Contains(t, res.Items[0].Detail, "status 404")
	assert.Equal(t, StatusFail, res.Items[1].Status, "a plain 404 is not a websocket upgrade")
}

func TestBackendCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewBackendCheck(url, "ws"+strings.TrimPrefix(url, "http")).Run(context.Background())
	assert.Equal(t, StatusFail, res.Items[0].Status)
	assert.Equal(t, StatusFail, res.Items[1].Status)
}

func TestClipboardCheck(t *testing.T) {
	orig := clipboardUnsupported
	t.Cleanup(func() { clipboardUnsupported = orig })

	clipboardUnsupported = func() bool { return true }
	res := NewClipboardCheck().Run(context.Background())
	assert.Equal(t, StatusWarn, res.Items[0].Status)

	clipboardUnsupported = func() bool { return false }
	res = NewClipboardCheck().Run(context.Background())
	assert.Equal(t, StatusPass, res.Items[0].Status)
}
