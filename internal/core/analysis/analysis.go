// Package analysis owns the lifecycle of analyze and fix requests for the
// active file and correlates their results, which arrive out of band on the
// push channel.
//
// At most one request is pending at a time. A push message is applied only
// when it matches the pending request's kind and, when present, its request
// ID. Everything else is reported as stale and leaves the state untouched.
//
// The Orchestrator is not safe for concurrent use.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/codesentry/internal/core/annotate"
	"github.com/colonyops/codesentry/internal/core/backend"
	"github.com/colonyops/codesentry/internal/core/linediff"
	"github.com/colonyops/codesentry/internal/core/push"
	"github.com/colonyops/codesentry/internal/core/textparse"
)

// ErrAlreadyPending is returned when a request is started while another one
// is still waiting for its result.
var ErrAlreadyPending = errors.New("a request is already pending")

// Kind is the type of work requested.
type Kind string

const (
	KindAnalyze Kind = "analyze"
	KindFix     Kind = "fix"
)

// ResultType returns the push message type that fulfils k.
func (k Kind) ResultType() string {
	if k == KindFix {
		return push.TypeFixResult
	}
	return push.TypeAnalysisResult
}

func kindForType(t string) (Kind, bool) {
	switch t {
	case push.TypeAnalysisResult:
		return KindAnalyze, true
	case push.TypeFixResult:
		return KindFix, true
	default:
		return "", false
	}
}

// Status is the lifecycle state of a request.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusFulfilled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Request is one analyze or fix submission.
type Request struct {
	ID      string
	Kind    Kind
	FileKey string
	Content string
	Status  Status
	// Err is the rejection reason when Status is StatusRejected.
	Err error
	// Result is the raw result text when Status is StatusFulfilled.
	Result    string
	StartedAt time.Time
}

// Outcome classifies what HandlePush did with a message.
type Outcome int

const (
	// OutcomeApplied means the message fulfilled the pending request.
	OutcomeApplied Outcome = iota
	// OutcomeStale means the message had a known type but matched no pending
	// request. Nothing changed.
	OutcomeStale
	// OutcomeIgnored means the message type is unknown.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeStale:
		return "stale"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Options configures an Orchestrator.
type Options struct {
	// RequireRequestID treats push messages without a request_id as stale.
	RequireRequestID bool
	// Timeout abandons a pending request after this long. Zero disables it.
	Timeout time.Duration
	Logger  zerolog.Logger
	// NewID generates request identifiers. Defaults to uuid.NewString.
	NewID func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator tracks requests for the active file.
type Orchestrator struct {
	opts Options
	log  zerolog.Logger

	fileKey  string
	pending  *Request
	requests map[Kind]*Request

	parsed      textparse.Analysis
	annotations annotate.Annotations
	diff        linediff.View
}

// New creates an idle orchestrator.
func New(opts Options) *Orchestrator {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		opts:     opts,
		log:      opts.Logger,
		requests: make(map[Kind]*Request),
	}
}

// Timeout returns the configured pending timeout, zero when disabled.
func (o *Orchestrator) Timeout() time.Duration { return o.opts.Timeout }

// Submission is the ticket for one backend submission.
type Submission struct {
	RequestID string
	Kind      Kind
	FileKey   string
	content   string
}

// Run performs the synchronous submission. It does not touch orchestrator
// state and may run on any goroutine.
func (s *Submission) Run(ctx context.Context, b backend.Submitter) error {
	bk := backend.KindAnalyze
	if s.Kind == KindFix {
		bk = backend.KindFix
	}
	return b.Submit(ctx, bk, s.RequestID, s.content)
}

// BeginAnalyze starts an analyze request for the file identified by fileKey.
func (o *Orchestrator) BeginAnalyze(fileKey, content string) (*Submission, error) {
	return o.begin(KindAnalyze, fileKey, content)
}

// BeginFix starts a fix request for the file identified by fileKey.
func (o *Orchestrator) BeginFix(fileKey, content string) (*Submission, error) {
	return o.begin(KindFix, fileKey, content)
}

func (o *Orchestrator) begin(kind Kind, fileKey, content string) (*Submission, error) {
	if o.pending != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrAlreadyPending, o.pending.Kind, o.pending.ID)
	}

	if fileKey != o.fileKey {
		o.reset()
		o.fileKey = fileKey
	}

	req := &Request{
		ID:        o.opts.NewID(),
		Kind:      kind,
		FileKey:   fileKey,
		Content:   content,
		Status:    StatusPending,
		StartedAt: o.opts.Now(),
	}
	o.requests[kind] = req
	o.pending = req
	o.derive(kind)

	o.log.Info().
		Str("kind", string(kind)).
		Str("request_id", req.ID).
		Str("file", fileKey).
		Msg("request started")

	return &Submission{RequestID: req.ID, Kind: kind, FileKey: fileKey, content: content}, nil
}

func (o *Orchestrator) current(s *Submission) bool {
	return s != nil && o.pending != nil && o.pending.ID == s.RequestID
}

// CompleteSubmission records the outcome of Submission.Run. An accepted
// submission stays pending. A failed one marks the request rejected, returns
// the orchestrator to idle, and returns err. Tickets that are no longer
// current are ignored and nil is returned.
func (o *Orchestrator) CompleteSubmission(s *Submission, err error) error {
	if !o.current(s) {
		if s != nil {
			o.log.Debug().Str("request_id", s.RequestID).Msg("ignoring completion for abandoned request")
		}
		return nil
	}
	if err == nil {
		return nil
	}

	req := o.pending
	req.Status = StatusRejected
	req.Err = err
	o.pending = nil

	o.log.Info().Err(err).Str("kind", string(req.Kind)).Str("request_id", req.ID).Msg("request rejected")
	return err
}

// HandlePush routes a push message to the pending request.
func (o *Orchestrator) HandlePush(msg push.Message) Outcome {
	kind, ok := kindForType(msg.Type)
	if !ok {
		o.log.Debug().Str("type", msg.Type).Msg("ignoring push message of unknown type")
		return OutcomeIgnored
	}

	req := o.pending
	switch {
	case req == nil || req.Kind != kind:
		o.logStale(msg, "no pending request of this kind")
		return OutcomeStale
	case msg.RequestID != "" && msg.RequestID != req.ID:
		o.logStale(msg, "request id mismatch")
		return OutcomeStale
	case msg.RequestID == "" && o.opts.RequireRequestID:
		o.logStale(msg, "missing request id")
		return OutcomeStale
	}

	req.Status = StatusFulfilled
	req.Result = msg.Message
	o.pending = nil
	o.derive(kind)

	o.log.Info().
		Str("kind", string(kind)).
		Str("request_id", req.ID).
		Dur("elapsed", o.opts.Now().Sub(req.StartedAt)).
		Msg("request fulfilled")
	return OutcomeApplied
}

func (o *Orchestrator) logStale(msg push.Message, reason string) {
	o.log.Debug().
		Str("type", msg.Type).
		Str("request_id", msg.RequestID).
		Str("reason", reason).
		Msg("discarding stale push result")
}

// Discard drops all request state. It is called when the active file is
// closed; results that arrive later are stale.
func (o *Orchestrator) Discard() {
	if o.pending != nil {
		o.log.Debug().Str("request_id", o.pending.ID).Msg("abandoning pending request")
	}
	o.reset()
	o.fileKey = ""
}

// Expire abandons the pending request if its ID is requestID. It reports
// whether anything was discarded. Expiry has the same effect on results as
// Discard: a late result for the request is stale.
func (o *Orchestrator) Expire(requestID string) bool {
	if o.pending == nil || o.pending.ID != requestID {
		return false
	}

	req := o.pending
	o.log.Info().Str("kind", string(req.Kind)).Str("request_id", req.ID).Msg("request timed out")
	delete(o.requests, req.Kind)
	o.pending = nil
	o.derive(req.Kind)
	return true
}

func (o *Orchestrator) reset() {
	o.pending = nil
	clear(o.requests)
	o.derive(KindAnalyze)
	o.derive(KindFix)
}

// derive recomputes the views that depend on the request of kind.
func (o *Orchestrator) derive(kind Kind) {
	switch kind {
	case KindAnalyze:
		o.parsed = textparse.Analysis{}
		o.annotations = annotate.Annotations{}
		if r := o.fulfilled(KindAnalyze); r != nil {
			o.parsed = textparse.Parse(r.Result)
			o.annotations = annotate.Map(o.parsed.Issues, LineCount(r.Content))
		}
	case KindFix:
		o.diff = nil
		if r := o.fulfilled(KindFix); r != nil {
			o.diff = linediff.Compute(r.Content, r.Result)
		}
	}
}

func (o *Orchestrator) fulfilled(kind Kind) *Request {
	r := o.requests[kind]
	if r == nil || r.Status != StatusFulfilled {
		return nil
	}
	return r
}

// FileKey returns the file the current requests belong to.
func (o *Orchestrator) FileKey() string { return o.fileKey }

// Pending returns a copy of the pending request.
func (o *Orchestrator) Pending() (Request, bool) {
	if o.pending == nil {
		return Request{}, false
	}
	return *o.pending, true
}

// Request returns a copy of the latest request of kind.
func (o *Orchestrator) Request(kind Kind) (Request, bool) {
	r := o.requests[kind]
	if r == nil {
		return Request{}, false
	}
	return *r, true
}

// Analysis returns the parsed analysis result.
func (o *Orchestrator) Analysis() (textparse.Analysis, bool) {
	return o.parsed, o.fulfilled(KindAnalyze) != nil
}

// Annotations returns the issue overlay for the analyzed content.
func (o *Orchestrator) Annotations() annotate.Annotations {
	return o.annotations
}

// FixedText returns the fixed file text.
func (o *Orchestrator) FixedText() (string, bool) {
	r := o.fulfilled(KindFix)
	if r == nil {
		return "", false
	}
	return r.Result, true
}

// Diff returns the line diff between the submitted content and the fix.
func (o *Orchestrator) Diff() (linediff.View, bool) {
	return o.diff, o.fulfilled(KindFix) != nil
}

// LineCount returns the number of lines in text as shown in a code view.
func LineCount(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
