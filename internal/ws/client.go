package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ranne1/guitar-codes/internal/game"
	"go.uber.org/zap"
)

type Client struct {
	hub       *Hub
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

func (c *Client) sendJSON(env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		c.hub.log.Error("ws send marshal failed",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
		return
	}
	select {
	case c.send <- b:
	default:
		// readPump notices the closed conn and unregisters
		_ = c.conn.Close()
	}
}

func (c *Client) sendError(msg string) {
	c.sendJSON(Envelope{Type: "error", Payload: map[string]string{"message": msg}})
}

func (c *Client) readPump(sess *game.Session) {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()

		c.hub.log.Info("ws connection closed", zap.String("session_id", c.sessionID))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg clientMsg
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("ws read failed",
					zap.String("session_id", c.sessionID),
					zap.Error(err),
				)
			}
			break
		}

		c.hub.log.Debug("ws message received",
			zap.String("session_id", c.sessionID),
			zap.String("type", msg.Type),
		)

		switch msg.Type {
		case "start":
			if err := sess.Start(); err != nil {
				c.hub.log.Warn("start failed", zap.String("session_id", c.sessionID), zap.Error(err))
				c.sendError(err.Error())
				continue
			}
			c.sendJSON(Envelope{Type: "session_state", Payload: sess.Snapshot()})

			gen := c.hub.bumpRoundGen(c.sessionID)
			go c.hub.scheduleTimeout(sess, c.sessionID, gen)

		case "answer":
			var p AnswerPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.hub.log.Warn("answer bad payload", zap.String("session_id", c.sessionID), zap.Error(err))
				c.sendError("bad payload")
				continue
			}

			var (
				points int
				err    error
			)
			if p.Correct {
				points, err = sess.HandleCorrectAnswer()
			} else {
				points, err = sess.HandleWrongAnswer()
			}
			switch {
			case errors.Is(err, game.ErrTimedOut):
				c.hub.bumpRoundGen(c.sessionID)
				c.sendJSON(Envelope{Type: "round_timeout", Payload: sess.Snapshot()})
				continue
			case err != nil:
				c.sendError(err.Error())
				continue
			}

			// a resolved round no longer needs its countdown
			c.hub.bumpRoundGen(c.sessionID)
			c.sendJSON(Envelope{Type: "round_resolved", Payload: RoundResolvedPayload{
				Correct: p.Correct,
				Points:  points,
				Session: sess.Snapshot(),
			}})

		case "bonus":
			bonus, err := sess.AddCompletionBonus()
			if err != nil {
				c.sendError(err.Error())
				continue
			}
			c.sendJSON(Envelope{Type: "bonus_applied", Payload: map[string]interface{}{
				"bonus":   bonus,
				"session": sess.Snapshot(),
			}})

		case "set_name":
			var p NamePayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.sendError("bad payload")
				continue
			}
			sess.SetPlayerName(p.PlayerName)
			c.sendJSON(Envelope{Type: "session_state", Payload: sess.Snapshot()})

		case "complete":
			var p CompletePayload
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &p); err != nil {
					c.sendError("bad payload")
					continue
				}
			}
			if p.PlayerName != nil {
				sess.SetPlayerName(*p.PlayerName)
			}
			c.hub.bumpRoundGen(c.sessionID)

			ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
			done := sess.CompleteRound(ctx, sess.TotalScore())
			cancel()

			if done.Err != nil {
				c.hub.log.Warn("score not persisted",
					zap.String("session_id", c.sessionID),
					zap.String("game_mode", sess.GameMode),
					zap.Int("score", done.FinalScore),
					zap.Error(done.Err),
				)
			} else {
				c.hub.log.Info("round completed",
					zap.String("session_id", c.sessionID),
					zap.String("game_mode", sess.GameMode),
					zap.Int("score", done.FinalScore),
					zap.Bool("new_record", done.IsNewRecord),
				)
			}
			c.sendJSON(Envelope{Type: "completed", Payload: done})

		case "reset":
			c.hub.bumpRoundGen(c.sessionID)
			sess.ResetGame()
			c.sendJSON(Envelope{Type: "session_state", Payload: sess.Snapshot()})

		default:
			c.hub.log.Warn("unknown ws message type",
				zap.String("session_id", c.sessionID),
				zap.String("type", msg.Type),
			)
			c.sendError("unknown message type")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Warn("ws write failed", zap.String("session_id", c.sessionID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.log.Warn("ws ping failed", zap.String("session_id", c.sessionID), zap.Error(err))
				return
			}
		}
	}
}
