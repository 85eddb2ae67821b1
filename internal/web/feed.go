package web

// feed.go streams dispatch records to websocket clients as they happen.
//
// Each client gets its own subscription to the dispatch history. Slow
// clients miss records rather than slowing dispatches down; the feed is
// an observation surface, not a durable queue.

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// feedWriteWait bounds a single websocket write.
	feedWriteWait = 10 * time.Second

	// feedPingPeriod keeps idle connections alive through proxies.
	feedPingPeriod = 30 * time.Second
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with API keys, not cookies; any origin may
	// connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleFeed upgrades the connection and streams dispatch records until
// the client disconnects.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		slog.Debug("feed upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.Close()

	id, records := s.service.Subscribe()
	defer s.service.Unsubscribe(id)

	// The client sends nothing we use, but reading is required to
	// process close frames and notice disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
