package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS score_ledgers (
	game_mode  TEXT PRIMARY KEY,
	records    TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

type SQLiteScoreStore struct {
	db *sql.DB
	mu sync.Mutex
}

func OpenSQLiteScoreStore(ctx context.Context, path string) (*SQLiteScoreStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// one writer connection; sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteScoreStore{db: db}, nil
}

func (s *SQLiteScoreStore) Ledger(ctx context.Context, gameMode string) ([]ScoreRecord, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT records FROM score_ledgers WHERE game_mode = ?`, gameMode,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeLedger([]byte(raw))
}

func (s *SQLiteScoreStore) UpdateLedger(ctx context.Context, gameMode string, fn LedgerFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current []ScoreRecord
	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT records FROM score_ledgers WHERE game_mode = ?`, gameMode,
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if current, err = decodeLedger([]byte(raw)); err != nil {
			return err
		}
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	data, err := encodeLedger(next)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO score_ledgers (game_mode, records, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(game_mode) DO UPDATE SET
			records = excluded.records,
			updated_at = CURRENT_TIMESTAMP
	`, gameMode, string(data))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteScoreStore) Close() error {
	return s.db.Close()
}
