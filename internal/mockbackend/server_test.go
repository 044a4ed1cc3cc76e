package mockbackend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/codesentry/internal/core/backend"
	"github.com/colonyops/codesentry/internal/core/push"
)

type fixture struct {
	srv     *Server
	http    *httptest.Server
	backend *backend.Client
	push    *push.Channel
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	opts.Logger = zerolog.Nop()

	srv := New(opts)
	ts := httptest.NewServer(srv.Handler())

	ch := push.Open(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+PathPush, push.Options{
		ReconnectDelay: 20 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(func() {
		_ = ch.Close()
		srv.Close()
		ts.Close()
	})

	require.Eventually(t, func() bool { return srv.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	return &fixture{
		srv:     srv,
		http:    ts,
		backend: backend.New(ts.URL+"/api", time.Second, zerolog.Nop()),
		push:    ch,
	}
}

func (f *fixture) next(t *testing.T) push.Message {
	t.Helper()
	select {
	case msg := <-f.push.Messages():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no push message received")
		return push.Message{}
	}
}

func TestServer_AnalyzeRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.backend.Submit(context.Background(), backend.KindAnalyze, "req-1", "x = 1  \n# TODO: rename\n")
	require.NoError(t, err)

	msg := f.next(t)
	assert.Equal(t, push.TypeAnalysisResult, msg.Type)
	assert.Equal(t, "req-1", msg.RequestID)
	assert.Contains(t, msg.Message, "Line 1: trailing whitespace")
	assert.Contains(t, msg.Message, "Line 2: unresolved TODO")
}

func TestServer_FixRoundTrip(t *testing.T) {
	f := newFixture(t, Options{OmitRequestID: true})

	err := f.backend.Submit(context.Background(), backend.KindFix, "req-2", "a \nb")
	require.NoError(t, err)

	msg := f.next(t)
	assert.Equal(t, push.TypeFixResult, msg.Type)
	assert.Empty(t, msg.RequestID)
	assert.Equal(t, "a\nb\n", msg.Message)
}

func TestServer_EmptyContentRejected(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.backend.Submit(context.Background(), backend.KindAnalyze, "", "")

	var rejected *backend.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.Status)
	assert.Equal(t, "No content provided", rejected.Message)
}

func TestServer_InvalidJSON(t *testing.T) {
	srv := New(Options{Logger: zerolog.Nop()})
	t.Cleanup(srv.Close)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, PathAnalyze, strings.NewReader("{"))
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON body")
}

func TestServer_Hello(t *testing.T) {
	srv := New(Options{Logger: zerolog.Nop()})
	t.Cleanup(srv.Close)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathHello, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello")
}

func TestServer_CloseCancelsPendingDelivery(t *testing.T) {
	f := newFixture(t, Options{Delay: time.Hour})

	require.NoError(t, f.backend.Submit(context.Background(), backend.KindAnalyze, "", "x\n"))

	done := make(chan struct{})
	go func() {
		f.srv.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a pending delivery")
	}
}

func TestAnalyze(t *testing.T) {
	clean := Analyze("package main\n")
	assert.Contains(t, clean, "Reviewed 1 lines.")
	assert.Contains(t, clean, "No issues found")
	assert.NotContains(t, clean, "```")

	long := Analyze(strings.Repeat("x", 101) + "\n")
	assert.Contains(t, long, "Line 1: line longer than 100 characters")
	assert.Contains(t, long, "```\n")
}

func TestFix(t *testing.T) {
	assert.Equal(t, "", Fix(""))
	assert.Equal(t, "a\n\tb\n", Fix("a\t\n\tb  \n"))
}
