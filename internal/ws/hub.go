package ws

import (
	"encoding/json"
	"sync"

	"github.com/ranne1/guitar-codes/internal/game"
	"go.uber.org/zap"
)

// Hub owns the live connection of every session driven over a websocket.
// One session has at most one connected game screen.
type Hub struct {
	sessions *game.SessionManager
	log      *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	outbox     chan sessionMessage

	roundGenMu sync.Mutex
	roundGen   map[string]int64
}

type sessionMessage struct {
	sessionID string
	data      []byte
}

func NewHub(sessions *game.SessionManager, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		sessions:   sessions,
		log:        log,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbox:     make(chan sessionMessage, 256),
		roundGen:   make(map[string]int64),
	}
	go h.run()
	return h
}

func (h *Hub) Send(sessionID string, env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		h.log.Error("ws send marshal failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	h.outbox <- sessionMessage{sessionID: sessionID, data: b}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.sessionID]; ok && old != c {
				// a reconnect replaces the previous screen
				_ = old.conn.Close()
			}
			h.clients[c.sessionID] = c
			h.mu.Unlock()

			h.log.Info("ws client registered", zap.String("session_id", c.sessionID))

		case c := <-h.unregister:
			h.mu.Lock()
			current := false
			if cur, ok := h.clients[c.sessionID]; ok && cur == c {
				delete(h.clients, c.sessionID)
				current = true
			}
			close(c.send)
			h.mu.Unlock()

			if current {
				// leaving the game screen discards the session unsaved
				h.sessions.Remove(c.sessionID)
				h.forgetRoundGen(c.sessionID)
			}

			h.log.Info("ws client unregistered", zap.String("session_id", c.sessionID))

		case msg := <-h.outbox:
			h.mu.RLock()
			c, ok := h.clients[msg.sessionID]
			h.mu.RUnlock()
			if !ok {
				continue
			}
			select {
			case c.send <- msg.data:
			default:
				h.log.Warn("ws send buffer full", zap.String("session_id", msg.sessionID))
				_ = c.conn.Close()
			}
		}
	}
}

func (h *Hub) bumpRoundGen(sessionID string) int64 {
	h.roundGenMu.Lock()
	defer h.roundGenMu.Unlock()
	h.roundGen[sessionID]++
	return h.roundGen[sessionID]
}

func (h *Hub) isCurrentGen(sessionID string, gen int64) bool {
	h.roundGenMu.Lock()
	defer h.roundGenMu.Unlock()
	return h.roundGen[sessionID] == gen
}

func (h *Hub) forgetRoundGen(sessionID string) {
	h.roundGenMu.Lock()
	defer h.roundGenMu.Unlock()
	delete(h.roundGen, sessionID)
}
