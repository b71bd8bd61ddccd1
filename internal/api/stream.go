package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Gallery frontends are served from other origins in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// @Title: Asset Stream
// @Route: GET /ws
// @Description: Websocket feed pushing the full asset view whenever the index changes
// @Response: JSON array of asset records per message
func (s *Service) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("API: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := s.broker.register()
	defer s.broker.unregister(updates)

	if err := s.pushAssets(conn); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-updates:
			if err := s.pushAssets(conn); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Service) pushAssets(conn *websocket.Conn) error {
	assets, err := s.store.Assets()
	if err != nil {
		s.logger.Errorf("API: stream read failed: %v", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(assets)
}
