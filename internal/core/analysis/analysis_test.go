package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/codesentry/internal/core/backend"
	"github.com/colonyops/codesentry/internal/core/linediff"
	"github.com/colonyops/codesentry/internal/core/push"
	"github.com/colonyops/codesentry/internal/core/textparse"
)

type submitCall struct {
	Kind      backend.Kind
	RequestID string
	Content   string
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []submitCall
	err   error
}

func (f *fakeBackend) Submit(_ context.Context, kind backend.Kind, requestID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submitCall{kind, requestID, content})
	return f.err
}

func newOrchestrator(opts Options) *Orchestrator {
	n := 0
	opts.Logger = zerolog.Nop()
	opts.NewID = func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
	return New(opts)
}

func start(t *testing.T, o *Orchestrator, b *fakeBackend, kind Kind, fileKey, content string) *Submission {
	t.Helper()
	begin := o.BeginAnalyze
	if kind == KindFix {
		begin = o.BeginFix
	}
	s, err := begin(fileKey, content)
	require.NoError(t, err)
	require.NoError(t, o.CompleteSubmission(s, s.Run(context.Background(), b)))
	return s
}

const analysisText = "Intro\n```py\nprint(1)\n```\nLine 3: unused var"

func TestAnalyze_Fulfilled(t *testing.T) {
	o := newOrchestrator(Options{})
	b := &fakeBackend{}

	s := start(t, o, b, KindAnalyze, "octo/demo/a.py@1", "a\nb\nc\n")
	assert.Equal(t, []submitCall{{backend.KindAnalyze, "req-1", "a\nb\nc\n"}}, b.calls)

	p, ok := o.Pending()
	require.True(t, ok)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, s.RequestID, p.ID)

	outcome := o.HandlePush(push.Message{Type: push.TypeAnalysisResult, Message: analysisText})
	assert.Equal(t, OutcomeApplied, outcome)

	_, pending := o.Pending()
	assert.False(t, pending)

	req, ok := o.Request(KindAnalyze)
	require.True(t, ok)
	assert.Equal(t, StatusFulfilled, req.Status)
	assert.Equal(t, analysisText, req.Result)

	parsed, ok := o.Analysis()
	require.True(t, ok)
	assert.Equal(t, "Intro", parsed.Explanation)
	assert.Equal(t, []textparse.CodeBlock{{Language: "py", Body: "print(1)\n"}}, parsed.CodeBlocks)
	assert.Equal(t, []textparse.Issue{{Line: 3, Message: "unused var"}}, parsed.Issues)

	ann := o.Annotations()
	msgs, ok := ann.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, []string{"unused var"}, msgs)
}

func TestFix_FulfilledProducesDiff(t *testing.T) {
	o := newOrchestrator(Options{})
	b := &fakeBackend{}

	start(t, o, b, KindFix, "k", "a\nb\nc")
	require.Equal(t, OutcomeApplied, o.HandlePush(push.Message{Type: push.TypeFixResult, Message: "a\nx\nc"}))

	fixed, ok := o.FixedText()
	require.True(t, ok)
	assert.Equal(t, "a\nx\nc", fixed)

	view, ok := o.Diff()
	require.True(t, ok)
	kinds := make([]linediff.Kind, 0, len(view))
	for _, l := range view {
		kinds = append(kinds, l.Kind)
	}
	assert.Equal(t, []linediff.Kind{linediff.Unchanged, linediff.Removed, linediff.Added, linediff.Unchanged}, kinds)
	assert.Equal(t, "a\nb\nc", view.Original())
	assert.Equal(t, "a\nx\nc", view.Fixed())
}

func TestBegin_AlreadyPendingDoesNotContactBackend(t *testing.T) {
	o := newOrchestrator(Options{})
	b := &fakeBackend{}
	start(t, o, b, KindAnalyze, "k", "x")

	for _, begin := range []func(string, string) (*Submission, error){o.BeginAnalyze, o.BeginFix} {
		s, err := begin("k", "x")
		require.ErrorIs(t, err, ErrAlreadyPending)
		assert.Nil(t, s)
	}

	assert.Len(t, b.calls, 1)
	p, _ := o.Pending()
	assert.Equal(t, "req-1", p.ID)
}

func TestCompleteSubmission_Rejected(t *testing.T) {
	o := newOrchestrator(Options{})
	b := &fakeBackend{err: &backend.RejectedError{Status: 400, Message: "No content provided"}}

	s, err := o.BeginAnalyze("k", "")
	require.NoError(t, err)

	err = o.CompleteSubmission(s, s.Run(context.Background(), b))
	var rejected *backend.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "No content provided", rejected.Message)

	_, pending := o.Pending()
	assert.False(t, pending)
	req, ok := o.Request(KindAnalyze)
	require.True(t, ok)
	assert.Equal(t, StatusRejected, req.Status)
	require.ErrorAs(t, req.Err, &rejected)

	// No result is expected for a rejected request.
	assert.Equal(t, OutcomeStale, o.HandlePush(push.Message{Type: push.TypeAnalysisResult, Message: "late"}))

	// Idle again: a new request can start.
	b.err = nil
	start(t, o, b, KindAnalyze, "k", "x")
}

func TestCompleteSubmission_AbandonedTicketIgnored(t *testing.T) {
	o := newOrchestrator(Options{})

	s, err := o.BeginFix("k", "x")
	require.NoError(t, err)
	o.Discard()

	assert.NoError(t, o.CompleteSubmission(s, errors.New("connection refused")))
	_, ok := o.Request(KindFix)
	assert.False(t, ok)
}

func TestHandlePush_Routing(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		pending   Kind
		msg       push.Message
		want      Outcome
		fulfilled bool
	}{
		{
			name:    "kind mismatch is stale",
			pending: KindAnalyze,
			msg:     push.Message{Type: push.TypeFixResult, Message: "fixed"},
			want:    OutcomeStale,
		},
		{
			name:    "unknown type is ignored",
			pending: KindAnalyze,
			msg:     push.Message{Type: "progress", Message: "50%"},
			want:    OutcomeIgnored,
		},
		{
			name:    "request id mismatch is stale",
			pending: KindAnalyze,
			msg:     push.Message{Type: push.TypeAnalysisResult, Message: "old", RequestID: "req-0"},
			want:    OutcomeStale,
		},
		{
			name:      "matching request id applies",
			pending:   KindAnalyze,
			msg:       push.Message{Type: push.TypeAnalysisResult, Message: "ok", RequestID: "req-1"},
			want:      OutcomeApplied,
			fulfilled: true,
		},
		{
			name:      "missing request id applies by kind",
			pending:   KindFix,
			msg:       push.Message{Type: push.TypeFixResult, Message: "ok"},
			want:      OutcomeApplied,
			fulfilled: true,
		},
		{
			name:    "missing request id is stale when required",
			opts:    Options{RequireRequestID: true},
			pending: KindFix,
			msg:     push.Message{Type: push.TypeFixResult, Message: "ok"},
			want:    OutcomeStale,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(tt.opts)
			start(t, o, &fakeBackend{}, tt.pending, "k", "x\n")

			assert.Equal(t, tt.want, o.HandlePush(tt.msg))

			req, ok := o.Request(tt.pending)
			require.True(t, ok)
			if tt.fulfilled {
				assert.Equal(t, StatusFulfilled, req.Status)
				assert.Equal(t, tt.msg.Message, req.Result)
				return
			}
			assert.Equal(t, StatusPending, req.Status)
			assert.Empty(t, req.Result)
			_, ok = o.Analysis()
			assert.False(t, ok)
			_, ok = o.FixedText()
			assert.False(t, ok)
		})
	}
}

func TestHandlePush_NoPendingIsStale(t *testing.T) {
	o := newOrchestrator(Options{})
	assert.Equal(t, OutcomeStale, o.HandlePush(push.Message{Type: push.TypeAnalysisResult, Message: "x"}))
	_, ok := o.Analysis()
	assert.False(t, ok)
}

func TestDiscard_LateResultDoesNotLeakIntoNextFile(t *testing.T) {
	o := newOrchestrator(Options{})
	b := &fakeBackend{}

	start(t, o, b, KindAnalyze, "octo/demo/a.py@1", "a\n")
	o.Discard()
	assert.Empty(t, o.FileKey())

	// Late result for a.py after the user left the file.
	assert.Equal(t, OutcomeStale, o.HandlePush(push.Message{Type: push.TypeAnalysisResult, Message: "about a.py"}))

	start(t, o, b, KindAnalyze, "octo/demo/b.py@2", "b\n")
	_, ok := o.Analysis()
	assert.False(t, ok)
	assert.Equal(t, "octo/demo/b.py@2", o.FileKey())
}

func TestBegin_ClearsPriorResultOfSameKindOnly(t *testing.T) {
	o := newOrchestrator(Options{})
	b := &fakeBackend{}

	start(t, o, b, KindAnalyze, "k", "a\n")
	require.Equal(t, OutcomeApplied, o.HandlePush(push.Message{Type: push.TypeAnalysisResult, Message: "first"}))
	start(t, o, b, KindFix, "k", "a\n")
	require.Equal(t, OutcomeApplied, o.HandlePush(push.Message{Type: push.TypeFixResult, Message: "b\n"}))

	// A new fix clears the previous fix but keeps the analysis.
	start(t, o, b, KindFix, "k", "a\n")
	_, ok := o.FixedText()
	assert.False(t, ok)
	_, ok = o.Diff()
	assert.False(t, ok)
	parsed, ok := o.Analysis()
	require.True(t, ok)
	assert.Equal(t, "first", parsed.Explanation)
}

func TestBegin_OtherFileResetsState(t *testing.T) {
	o := newOrchestrator(Options{})
	b := &fakeBackend{}

	start(t, o, b, KindAnalyze, "a", "a\n")
	require.Equal(t, OutcomeApplied, o.HandlePush(push.Message{Type: push.TypeAnalysisResult, Message: "about a"}))

	start(t, o, b, KindFix, "b", "b\n")
	_, ok := o.Analysis()
	assert.False(t, ok)
}

func TestExpire(t *testing.T) {
	o := newOrchestrator(Options{Timeout: time.Minute})
	b := &fakeBackend{}
	assert.Equal(t, time.Minute, o.Timeout())

	s := start(t, o, b, KindAnalyze, "k", "x")

	assert.False(t, o.Expire("req-other"))
	assert.True(t, o.Expire(s.RequestID))
	assert.False(t, o.Expire(s.RequestID))

	_, pending := o.Pending()
	assert.False(t, pending)
	_, ok := o.Request(KindAnalyze)
	assert.False(t, ok)

	// A late result for the expired request is stale.
	assert.Equal(t, OutcomeStale, o.HandlePush(push.Message{Type: push.TypeAnalysisResult, Message: "late", RequestID: s.RequestID}))

	start(t, o, b, KindAnalyze, "k", "x")
}

func TestAnnotations_OutOfRangeRetained(t *testing.T) {
	o := newOrchestrator(Options{})
	start(t, o, &fakeBackend{}, KindAnalyze, "k", "one\ntwo\n")
	require.Equal(t, OutcomeApplied, o.HandlePush(push.Message{
		Type:    push.TypeAnalysisResult,
		Message: "Line 2: fine\nLine 9: shifted",
	}))

	ann := o.Annotations()
	assert.Equal(t, 2, ann.LineCount)
	assert.Equal(t, []int{2}, ann.Lines())
	assert.Equal(t, []textparse.Issue{{Line: 9, Message: "shifted"}}, ann.OutOfRange)
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"\n", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LineCount(tt.in), "%q", tt.in)
	}
}
