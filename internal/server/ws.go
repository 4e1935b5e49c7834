package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
)

// handleEvents streams run lifecycle events over a websocket. Each client
// gets its own buffered subscription; a client that stops reading loses
// events rather than blocking a job.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	// No client messages are expected; CloseRead surfaces disconnects as
	// context cancellation.
	ctx := conn.CloseRead(r.Context())

	sub := s.bus.Subscribe(eventBuffer)
	defer s.bus.Unsubscribe(sub)

	s.logger.Debug("event stream client connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				s.logger.Debug("event stream client dropped", "error", err)
				return
			}
		}
	}
}
