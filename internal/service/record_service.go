package service

import (
	"context"
	"errors"
	"time"

	"github.com/ranne1/guitar-codes/internal/storage"
)

const (
	DefaultLedgerCap = 100
	DefaultPlayer    = "Anonymous"
	MaxPlayerName    = 20
)

var (
	ErrMissingField = errors.New("gameMode and score are required")
	ErrStorage      = errors.New("score storage unavailable")
)

type SubmitInput struct {
	GameMode   string `json:"gameMode"`
	PlayerName string `json:"playerName"`
	Score      *int   `json:"score"`
}

type SubmitResult struct {
	Accepted     bool   `json:"success"`
	IsNewRecord  bool   `json:"isNewRecord"`
	PreviousBest int    `json:"previousBest"`
	NewScore     int    `json:"newScore"`
	Rank         int    `json:"rank"`
	Ranked       bool   `json:"ranked"`
	PlayerName   string `json:"playerName"`

	Record storage.ScoreRecord `json:"-"`
}

type Config struct {
	LedgerCap int
	Now       func() time.Time
}

// RecordService persists completed runs. Submit returns ErrMissingField on
// validation failure (nothing written) and ErrStorage when the ledger could
// not be updated (result has Accepted=false).
type RecordService interface {
	Submit(ctx context.Context, in SubmitInput) (SubmitResult, error)
	BestScore(ctx context.Context, gameMode string) int
}
