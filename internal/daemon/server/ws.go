package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/daemon/store"
	"github.com/grovetools/lombridge/pkg/protocol"
)

const wsIdleTimeout = 5 * time.Minute

// handleWebSocket upgrades the request and serves one command per text
// message, replying with one response message.
func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "host shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wg.Done()
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	s.serveWebSocket(conn)
}

func (s *HTTPServer) serveWebSocket(conn *websocket.Conn) {
	defer s.wg.Done()
	log := s.logger.WithField("remote", conn.RemoteAddr().String())
	s.metrics.ConnectionOpened("ws")
	s.trackConnection(1)
	log.Debug("Websocket client connected")

	stop := make(chan struct{})
	defer func() {
		close(stop)
		_ = conn.Close()
		s.metrics.ConnectionClosed("ws")
		s.trackConnection(-1)
		log.Debug("Websocket client disconnected")
	}()

	go func() {
		select {
		case <-s.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "host shutting down"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("Websocket read failed")
			}
			return
		}

		var resp protocol.Response
		if kind != websocket.TextMessage {
			s.metrics.RecordProtocolError()
			resp = protocol.Failure(errors.Protocol("websocket commands must be text messages", nil))
		} else {
			resp = Execute(s.ctx, s.submitter, data, s.timeout, s.store, "ws", log)
		}

		if err := conn.WriteMessage(websocket.TextMessage, protocol.EncodeResponse(resp)); err != nil {
			log.WithError(err).Debug("Websocket write failed")
			return
		}
	}
}

func (s *HTTPServer) trackConnection(delta int) {
	if s.store == nil {
		return
	}
	s.store.ApplyUpdate(store.Update{Type: store.UpdateConnection, Source: "ws", Payload: delta})
}
