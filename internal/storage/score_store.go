package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StorageKey names the shared document (or key prefix) that holds every
// game mode's ledger.
const StorageKey = "guitar-codes-scores"

var (
	ErrCorruptDocument = errors.New("corrupt score document")
	ErrConflict        = errors.New("ledger update conflict")
)

type ScoreRecord struct {
	ID         int64  `json:"id"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	Timestamp  string `json:"timestamp"`
}

// LedgerFunc receives a private copy of a game mode's ledger and returns the
// ledger that replaces it. Returning an error aborts the write.
type LedgerFunc func(current []ScoreRecord) ([]ScoreRecord, error)

// ScoreStore is a keyed store of ledgers. UpdateLedger is an atomic
// read-modify-write of one game mode's whole ledger: concurrent updates of the
// same mode never lose each other's writes, and a failed update leaves the
// stored ledger untouched.
type ScoreStore interface {
	Ledger(ctx context.Context, gameMode string) ([]ScoreRecord, error)
	UpdateLedger(ctx context.Context, gameMode string, fn LedgerFunc) error
}

func decodeLedger(raw []byte) ([]ScoreRecord, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var recs []ScoreRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return recs, nil
}

func encodeLedger(recs []ScoreRecord) ([]byte, error) {
	if recs == nil {
		recs = []ScoreRecord{}
	}
	return json.Marshal(recs)
}

func cloneLedger(recs []ScoreRecord) []ScoreRecord {
	if recs == nil {
		return nil
	}
	out := make([]ScoreRecord, len(recs))
	copy(out, recs)
	return out
}
