// Package push maintains the websocket subscription that delivers analysis
// and fix results. The channel is read-only from the client side: it dials,
// decodes JSON messages into a Go channel, and redials after a fixed delay
// until closed.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"
)

// Message types sent by the backend.
const (
	TypeAnalysisResult = "analysis_result"
	TypeFixResult      = "fix_result"
)

// Message is one result delivered on the push channel. RequestID is only
// present when the backend echoes the submission identifier.
type Message struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// DefaultReconnectDelay is used when Options.ReconnectDelay is zero.
const DefaultReconnectDelay = 2 * time.Second

// Options configures a Channel.
type Options struct {
	ReconnectDelay time.Duration
	// Buffer is the capacity of the Messages channel.
	Buffer int
	Logger zerolog.Logger
}

// Channel is a long-lived push subscription.
type Channel struct {
	url   string
	delay time.Duration
	log   zerolog.Logger

	msgs      chan Message
	connected atomic.Bool
	dials     atomic.Int64

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Open starts the subscription to url in the background. The returned channel
// keeps reconnecting until Close is called or ctx is cancelled.
func Open(ctx context.Context, url string, opts Options) *Channel {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		url:    url,
		delay:  opts.ReconnectDelay,
		log:    opts.Logger,
		msgs:   make(chan Message, opts.Buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go c.run(ctx)
	return c
}

// Messages returns the stream of decoded messages. It is closed after Close.
func (c *Channel) Messages() <-chan Message { return c.msgs }

// Connected reports whether a websocket connection is currently open.
func (c *Channel) Connected() bool { return c.connected.Load() }

// Dials returns the number of successful connections made so far.
func (c *Channel) Dials() int64 { return c.dials.Load() }

// Close stops the subscription and waits for the reader to exit.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.msgs)

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Str("url", c.url).Dur("retry_in", c.delay).Msg("push channel disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
		}
	}
}

// session dials once and reads until the connection drops.
func (c *Channel) session(ctx context.Context) error {
	conn, br, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.dials.Add(1)
	c.connected.Store(true)
	defer c.connected.Store(false)
	c.log.Info().Str("url", c.url).Msg("push channel connected")

	var r io.Reader = conn
	if br != nil {
		r = io.MultiReader(br, conn)
		defer ws.PutReader(br)
	}

	return c.read(ctx, readWriter{Reader: r, Writer: conn})
}

type readWriter struct {
	io.Reader
	io.Writer
}

func (c *Channel) read(ctx context.Context, rw io.ReadWriter) error {
	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			if errors.Is(err, net.ErrClosed) && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed push message")
			continue
		}

		c.log.Debug().Str("type", msg.Type).Str("request_id", msg.RequestID).Msg("push message received")

		select {
		case c.msgs <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
