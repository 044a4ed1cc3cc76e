package mockbackend

import (
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"
)

// Hub tracks websocket subscribers and broadcasts results to all of them.
type Hub struct {
	log zerolog.Logger

	mu    sync.Mutex
	conns map[*subscriber]struct{}
}

type subscriber struct {
	mu   sync.Mutex
	conn net.Conn
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wsutil.WriteServerText(s.conn, data)
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{log: log, conns: make(map[*subscriber]struct{})}
}

// Attach registers conn and blocks reading from it until the client goes
// away. Control frames are answered by the reader.
func (h *Hub) Attach(conn net.Conn) {
	sub := &subscriber{conn: conn}

	h.mu.Lock()
	h.conns[sub] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Info().Int("subscribers", n).Msg("websocket connected")

	defer h.detach(sub)

	for {
		if _, _, err := wsutil.ReadClientData(conn); err != nil {
			return
		}
	}
}

func (h *Hub) detach(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.conns[sub]
	delete(h.conns, sub)
	n := len(h.conns)
	h.mu.Unlock()

	if ok {
		_ = sub.conn.Close()
		h.log.Info().Int("subscribers", n).Msg("websocket disconnected")
	}
}

// Broadcast sends data to every subscriber and returns how many received it.
func (h *Hub) Broadcast(data []byte) int {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.conns))
	for s := range h.conns {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	sent := 0
	for _, s := range subs {
		if err := s.write(data); err != nil {
			h.log.Debug().Err(err).Msg("dropping subscriber after write failure")
			h.detach(s)
			continue
		}
		sent++
	}
	return sent
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every subscriber with a normal closure frame.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.conns))
	for s := range h.conns {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		_ = ws.WriteFrame(s.conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "server shutdown")))
		s.mu.Unlock()
		h.detach(s)
	}
}
