package service

import (
	"context"
	"strings"

	"github.com/ranne1/guitar-codes/internal/storage"
	"go.uber.org/zap"
)

const DefaultLeaderboardLimit = 10

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	Timestamp  string `json:"timestamp"`
}

type LeaderboardService interface {
	Leaderboard(ctx context.Context, gameMode string, limit int) []LeaderboardEntry
}

type leaderboardService struct {
	store storage.ScoreStore
	cap   int
	log   *zap.Logger
}

func NewLeaderboardService(store storage.ScoreStore, ledgerCap int, log *zap.Logger) LeaderboardService {
	if ledgerCap <= 0 {
		ledgerCap = DefaultLedgerCap
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &leaderboardService{store: store, cap: ledgerCap, log: log}
}

// Leaderboard ranks the stored ledger by position. Unreadable storage yields
// an empty board rather than an error.
func (l *leaderboardService) Leaderboard(ctx context.Context, gameMode string, limit int) []LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > l.cap {
		limit = l.cap
	}

	out := make([]LeaderboardEntry, 0)
	mode := strings.TrimSpace(gameMode)
	if mode == "" {
		return out
	}

	recs, err := l.store.Ledger(ctx, mode)
	if err != nil {
		l.log.Warn("leaderboard read failed", zap.String("game_mode", mode), zap.Error(err))
		return out
	}

	for i, r := range recs {
		if i >= limit {
			break
		}
		out = append(out, LeaderboardEntry{
			Rank:       i + 1,
			PlayerName: r.PlayerName,
			Score:      r.Score,
			Timestamp:  r.Timestamp,
		})
	}
	return out
}
