// Package mockbackend is a local stand-in for the analysis service. It
// accepts submissions with 202, then pushes a canned result to every
// websocket subscriber after a delay.
package mockbackend

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/codesentry/internal/core/backend"
	"github.com/colonyops/codesentry/internal/core/push"
)

// Route paths served by the mock.
const (
	PathHello   = "/api/hello/"
	PathAnalyze = "/api" + backend.AnalyzePath
	PathFix     = "/api" + backend.FixPath
	PathPush    = "/ws/analysis/"
)

// Options configures a Server.
type Options struct {
	// Delay before a result is pushed.
	Delay time.Duration
	// OmitRequestID drops request_id from pushed results, like the
	// original service.
	OmitRequestID bool
	Logger        zerolog.Logger
}

// Server implements the HTTP and websocket endpoints.
type Server struct {
	opts Options
	log  zerolog.Logger
	hub  *Hub
	mux  *http.ServeMux

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server.
func New(opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:   opts,
		log:    opts.Logger,
		hub:    NewHub(opts.Logger),
		mux:    http.NewServeMux(),
		ctx:    ctx,
		cancel: cancel,
	}

	s.mux.HandleFunc("GET "+PathHello, s.handleHello)
	s.mux.HandleFunc("POST "+PathAnalyze, s.handleSubmit(push.TypeAnalysisResult, Analyze))
	s.mux.HandleFunc("POST "+PathFix, s.handleSubmit(push.TypeFixResult, Fix))
	s.mux.HandleFunc("GET "+PathPush, s.handlePush)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Hub returns the subscriber hub.
func (s *Server) Hub() *Hub { return s.hub }

// Close cancels pending deliveries and disconnects subscribers.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
	s.hub.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, backend.Response{Message: "Hello from the analysis API!"})
}

func (s *Server) handleSubmit(resultType string, produce func(string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backend.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, backend.Response{Error: "Invalid JSON body"})
			return
		}
		if req.Content == "" {
			writeJSON(w, http.StatusBadRequest, backend.Response{Error: "No content provided"})
			return
		}

		job := req.RequestID
		if job == "" {
			job = uuid.NewString()
		}
		s.log.Info().Str("type", resultType).Str("job", job).Int("bytes", len(req.Content)).Msg("job accepted")

		msg := push.Message{Type: resultType, Message: produce(req.Content)}
		if !s.opts.OmitRequestID {
			msg.RequestID = req.RequestID
		}
		s.deliver(job, msg)

		text := "Analysis has been started!"
		if resultType == push.TypeFixResult {
			text = "Fix has been started!"
		}
		writeJSON(w, http.StatusAccepted, backend.Response{Message: text})
	}
}

func (s *Server) deliver(job string, msg push.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("encode result")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.opts.Delay > 0 {
			t := time.NewTimer(s.opts.Delay)
			defer t.Stop()
			select {
			case <-s.ctx.Done():
				return
			case <-t.C:
			}
		}

		n := s.hub.Broadcast(data)
		s.log.Info().Str("job", job).Str("type", msg.Type).Int("subscribers", n).Msg("result pushed")
	}()
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.Attach(conn)
}
