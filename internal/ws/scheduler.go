package ws

import (
	"time"

	"github.com/ranne1/guitar-codes/internal/game"
)

// scheduleTimeout resolves the round started under gen once its countdown
// runs out, unless the player answered or restarted first.
func (h *Hub) scheduleTimeout(sess *game.Session, sessionID string, gen int64) {
	deadline := sess.Deadline()
	if deadline.IsZero() {
		return
	}

	wait := time.Until(deadline)
	if wait < 0 {
		wait = 0
	}
	time.Sleep(wait)

	if !h.isCurrentGen(sessionID, gen) {
		return
	}
	if sess.ExpireIfTimedOut() {
		h.Send(sessionID, Envelope{Type: "round_timeout", Payload: sess.Snapshot()})
	}
}
