package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/fundcompare/backend/internal/session"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	// views queued per client before the oldest pending push is dropped
	pushBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Push streams the session view to a WebSocket client after every change.
// The current view is sent first.
// GET /api/sessions/{id}/ws
func (h *SessionHandler) Push(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithSession(s.ID).WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.recorder.PushClients(1)
	defer h.recorder.PushClients(-1)

	views := make(chan session.View, pushBuffer)
	unsubscribe := s.Subscribe(func(v session.View) {
		select {
		case views <- v:
		default:
			// slow client: drop the oldest queued view, keep the newest
			select {
			case <-views:
			default:
			}
			select {
			case views <- v:
			default:
			}
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go h.readPump(conn, done)

	log := h.logger.WithSession(s.ID)
	log.Debug("Push client connected")
	defer log.Debug("Push client disconnected")

	h.writePump(conn, s.View(), views, done)
}

// readPump discards client frames and notices when the client goes away
func (h *SessionHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *SessionHandler) writePump(conn *websocket.Conn, first session.View, views <-chan session.View, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(v session.View) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	if err := write(first); err != nil {
		return
	}
	sent := first.Seq

	for {
		select {
		case <-done:
			return
		case v := <-views:
			// queued before the first view was taken
			if v.Seq <= sent {
				continue
			}
			if err := write(v); err != nil {
				return
			}
			sent = v.Seq
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
