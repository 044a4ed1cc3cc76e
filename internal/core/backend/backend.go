// Package backend submits analyze and fix jobs to the analysis service.
// Submissions are acknowledged synchronously; results arrive later on the
// push channel.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Kind selects the backend operation.
type Kind string

const (
	KindAnalyze Kind = "analyze"
	KindFix     Kind = "fix"
)

// Endpoint paths relative to the configured base URL.
const (
	AnalyzePath = "/analyze/"
	FixPath     = "/fix-file/"
)

// Path returns the endpoint path for k.
func (k Kind) Path() string {
	if k == KindFix {
		return FixPath
	}
	return AnalyzePath
}

// Submitter starts backend work. A nil error means the job was accepted.
type Submitter interface {
	Submit(ctx context.Context, kind Kind, requestID, content string) error
}

// RejectedError is returned when the backend does not accept a submission.
// Message carries the server-provided reason.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Status == 0 {
		return "submission rejected: " + e.Message
	}
	return fmt.Sprintf("submission rejected (%d): %s", e.Status, e.Message)
}

// Request is the JSON body of a submission.
type Request struct {
	Content   string `json:"content"`
	RequestID string `json:"request_id,omitempty"`
}

// Response is the JSON body returned by the backend for both outcomes.
type Response struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client is the HTTP implementation of Submitter.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ Submitter = (*Client)(nil)

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Submit posts content to the endpoint for kind. Only 202 Accepted counts as
// success; any other status yields a *RejectedError.
func (c *Client) Submit(ctx context.Context, kind Kind, requestID, content string) error {
	body, err := json.Marshal(Request{Content: content, RequestID: requestID})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+kind.Path(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit %s: %w", kind, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug().Err(err).Msg("close submission response body")
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read %s response: %w", kind, err)
	}

	var decoded Response
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode != http.StatusAccepted {
		msg := decoded.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.log.Info().
			Str("kind", string(kind)).
			Int("status", resp.StatusCode).
			Str("error", msg).
			Msg("submission rejected")
		return &RejectedError{Status: resp.StatusCode, Message: msg}
	}

	c.log.Debug().
		Str("kind", string(kind)).
		Str("request_id", requestID).
		Str("message", decoded.Message).
		Msg("submission accepted")
	return nil
}
