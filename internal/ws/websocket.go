package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS attaches a game screen to an existing session and drives it until
// the connection drops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		sessionID: strings.ToLower(strings.TrimSpace(sessionID)),
		conn:      conn,
		send:      make(chan []byte, 64),
	}

	h.sessions.Attach(client.sessionID)
	h.register <- client
	go client.writePump()

	client.sendJSON(Envelope{Type: "session_state", Payload: sess.Snapshot()})
	client.readPump(sess)
}
