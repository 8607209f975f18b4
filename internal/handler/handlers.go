package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ranne1/guitar-codes/internal/service"
	"go.uber.org/zap"
)

const requestTimeout = 5 * time.Second

type submitFailure struct {
	service.SubmitResult
	Error string `json:"error"`
}

func RegisterHandlers(mux *http.ServeMux, rec service.RecordService, lb service.LeaderboardService, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	mux.HandleFunc("/scores", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		switch r.Method {
		case http.MethodGet:
			mode := r.URL.Query().Get("gameMode")
			best := rec.BestScore(ctx, mode)
			log.Info("best score fetched", zap.String("game_mode", mode), zap.Int("best", best))
			writeJSON(w, http.StatusOK, map[string]int{"bestScore": best})

		case http.MethodPost:
			var in service.SubmitInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				log.Warn("submit score bad json", zap.Error(err))
				writeError(w, http.StatusBadRequest, "bad json")
				return
			}
			if mode := r.URL.Query().Get("gameMode"); strings.TrimSpace(mode) != "" {
				in.GameMode = mode
			}

			res, err := rec.Submit(ctx, in)
			switch {
			case errors.Is(err, service.ErrMissingField):
				log.Warn("submit score rejected", zap.String("game_mode", in.GameMode))
				writeError(w, http.StatusBadRequest, err.Error())
			case err != nil:
				log.Error("submit score failed", zap.String("game_mode", in.GameMode), zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, submitFailure{SubmitResult: res, Error: err.Error()})
			default:
				writeJSON(w, http.StatusOK, res)
			}
		}
	})

	mux.HandleFunc("/scores/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/scores/"), "/"), "/")

		switch {
		case len(parts) == 1 && parts[0] != "":
			if !allowMethods(w, r, http.MethodGet) {
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			defer cancel()

			best := rec.BestScore(ctx, parts[0])
			log.Info("best score fetched", zap.String("game_mode", parts[0]), zap.Int("best", best))
			writeJSON(w, http.StatusOK, map[string]int{"bestScore": best})

		case len(parts) == 2 && parts[0] != "" && parts[1] == "leaderboard":
			if !allowMethods(w, r, http.MethodGet) {
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			defer cancel()

			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			board := lb.Leaderboard(ctx, parts[0], limit)
			log.Info("leaderboard fetched", zap.String("game_mode", parts[0]), zap.Int("count", len(board)))
			writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": board})

		default:
			log.Warn("score route not found", zap.String("path", r.URL.Path))
			http.NotFound(w, r)
		}
	})
}
