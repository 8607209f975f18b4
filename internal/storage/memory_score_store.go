package storage

import (
	"context"
	"sync"
)

type MemoryScoreStore struct {
	mu      sync.Mutex
	ledgers map[string][]ScoreRecord
}

func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{ledgers: make(map[string][]ScoreRecord)}
}

func (s *MemoryScoreStore) Ledger(ctx context.Context, gameMode string) ([]ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneLedger(s.ledgers[gameMode]), nil
}

func (s *MemoryScoreStore) UpdateLedger(ctx context.Context, gameMode string, fn LedgerFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneLedger(s.ledgers[gameMode]))
	if err != nil {
		return err
	}
	s.ledgers[gameMode] = cloneLedger(next)
	return nil
}
