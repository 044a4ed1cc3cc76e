package hosting

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHub(t *testing.T, mux *http.ServeMux) *GitHub {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh, err := NewGitHub(GitHubOptions{APIURL: srv.URL, Token: "secret", Logger: zerolog.Nop()})
	require.NoError(t, err)
	return gh
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGitHub_ListDirectory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo/contents/src", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(t, w, []map[string]any{
			{"name": "lib", "path": "src/lib", "type": "dir", "sha": "d1"},
			{"name": "main.py", "path": "src/main.py", "type": "file", "sha": "f1", "size": 12},
		})
	})

	gh := newTestGitHub(t, mux)

	entries, err := gh.ListDirectory(context.Background(), "octo", "demo", "src")
	require.NoError(t, err)

	assert.Equal(t, []TreeEntry{
		{Name: "lib", Path: "src/lib", Kind: KindDir, SHA: "d1", Handle: "src/lib"},
		{Name: "main.py", Path: "src/main.py", Kind: KindFile, SHA: "f1", Handle: "src/main.py", Size: 12},
	}, entries)
}

func TestGitHub_ListDirectory_Root(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo/contents/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"name": "README.md", "path": "README.md", "type": "file", "sha": "r"}})
	})

	gh := newTestGitHub(t, mux)

	entries, err := gh.ListDirectory(context.Background(), "octo", "demo", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "README.md", entries[0].Name)
}

func TestGitHub_ListDirectory_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo/contents/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(t, w, map[string]string{"message": "Not Found"})
	})

	gh := newTestGitHub(t, mux)

	_, err := gh.ListDirectory(context.Background(), "octo", "demo", "missing")
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.Equal(t, "Not Found", fetchErr.Body)
	assert.Equal(t, "list directory: status 404: Not Found", fetchErr.Error())
}

func TestGitHub_GetFileContent(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("print('hi')\n"))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo/contents/src/main.py", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"type": "file", "name": "main.py", "path": "src/main.py",
			"encoding": "base64", "content": payload[:8] + "\n" + payload[8:],
		})
	})

	gh := newTestGitHub(t, mux)

	c, err := gh.GetFileContent(context.Background(), "octo", "demo", "src/main.py")
	require.NoError(t, err)
	assert.Equal(t, "base64", c.Encoding)

	text, err := Decode("src/main.py", c)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", text)
}

func TestGitHub_ListRepositories_Paginates(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, []map[string]any{{"name": "two", "full_name": "octo/two", "owner": map[string]any{"login": "octo"}}})
			return
		}
		w.Header().Set("Link", `<`+srvURL+`/user/repos?page=2>; rel="next"`)
		writeJSON(t, w, []map[string]any{{"name": "one", "full_name": "octo/one", "private": true, "owner": map[string]any{"login": "octo"}}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	gh, err := NewGitHub(GitHubOptions{APIURL: srv.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	repos, err := gh.ListRepositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, Repository{Owner: "octo", Name: "one", FullName: "octo/one", Private: true}, repos[0])
	assert.Equal(t, "two", repos[1].Name)
}

func TestGitHub_CurrentUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"login": "octo", "name": "Octo Cat"})
	})

	gh := newTestGitHub(t, mux)

	u, err := gh.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, User{Login: "octo", Name: "Octo Cat"}, u)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
		wantErr error
	}{
		{"base64", Content{Encoding: "base64", Data: base64.StdEncoding.EncodeToString([]byte("a\nb"))}, "a\nb", nil},
		{"wrapped base64", Content{Encoding: "base64", Data: "YQpi\n"}, "a\nb", nil},
		{"plain", Content{Data: "raw"}, "raw", nil},
		{"binary", Content{Encoding: "base64", Data: base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe})}, "", ErrBinaryContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode("f", tt.content)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode("main.go", Content{Encoding: "base64", Data: "!!not base64!!"})

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "main.go", decodeErr.Path)

	_, err = Decode("main.go", Content{Encoding: "rot13", Data: "x"})
	require.ErrorAs(t, err, &decodeErr)
	assert.False(t, errors.Is(err, ErrBinaryContent))
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "", JoinPath(nil))
	assert.Equal(t, "a/b", JoinPath([]string{"a", "b"}))
}
