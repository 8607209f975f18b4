package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ranne1/guitar-codes/internal/game"
	"github.com/ranne1/guitar-codes/internal/ws"
	"go.uber.org/zap"
)

type createSessionReq struct {
	GameMode   string `json:"gameMode"`
	PlayerName string `json:"playerName"`
}

func RegisterSessionHandlers(mux *http.ServeMux, sessions *game.SessionManager, hub *ws.Hub, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}

		var req createSessionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Warn("create session bad json", zap.Error(err))
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if strings.TrimSpace(req.GameMode) == "" {
			writeError(w, http.StatusBadRequest, "gameMode is required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		s := sessions.Create(ctx, req.GameMode, req.PlayerName)
		log.Info("session created", zap.String("session_id", s.ID), zap.String("game_mode", s.GameMode))
		writeJSON(w, http.StatusOK, s.Snapshot())
	})

	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}

		id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/sessions/"))
		s, ok := sessions.Get(id)
		if !ok {
			log.Warn("session not found", zap.String("session_id", id))
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	})

	mux.HandleFunc("/ws/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ws/")
		log.Info("ws connect attempt", zap.String("session_id", id))
		hub.ServeWS(w, r, id)
	})
}
