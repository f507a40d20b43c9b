package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader accepts any origin: the stats feed carries no credentials
// and the dashboard may be served from a different port at the venue.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// statsMessage is one frame on the live feed: the latest check-in plus
// the refreshed counters.
type statsMessage struct {
	Type  string `json:"type"`
	Event any    `json:"event,omitempty"`
	Stats any    `json:"stats"`
}

// WSStats handles GET /api/ws/stats: a websocket that pushes a snapshot
// on connect and a fresh frame after every check-in.
func (s *Server) WSStats(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()

	send := func(ev any) error {
		stats, err := s.Store.Stats(r.Context())
		if err != nil {
			return err
		}
		msg := statsMessage{Type: "stats", Stats: stats}
		if ev != nil {
			msg.Type = "check_in"
			msg.Event = ev
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(msg)
	}

	if err := send(nil); err != nil {
		return
	}

	events, cancel := s.Bus.Subscribe()
	defer cancel()

	// Drain reads so close frames are processed and dead peers detected.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		if err := send(ev); err != nil {
			return
		}
	}
}
