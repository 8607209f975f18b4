package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS score_ledgers (
	game_mode  TEXT PRIMARY KEY,
	records    JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresScoreStore struct {
	db *pgxpool.Pool
}

func NewPostgresScoreStore(db *pgxpool.Pool) *PostgresScoreStore {
	return &PostgresScoreStore{db: db}
}

func (s *PostgresScoreStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *PostgresScoreStore) Ledger(ctx context.Context, gameMode string) ([]ScoreRecord, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT records
		FROM score_ledgers
		WHERE game_mode = $1
	`, gameMode).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeLedger(raw)
}

// UpdateLedger locks the game mode's row for the whole read-modify-write, so
// submitters on other server processes queue behind each other.
func (s *PostgresScoreStore) UpdateLedger(ctx context.Context, gameMode string, fn LedgerFunc) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO score_ledgers (game_mode)
		VALUES ($1)
		ON CONFLICT (game_mode) DO NOTHING
	`, gameMode)
	if err != nil {
		return err
	}

	var raw []byte
	err = tx.QueryRow(ctx, `
		SELECT records
		FROM score_ledgers
		WHERE game_mode = $1
		FOR UPDATE
	`, gameMode).Scan(&raw)
	if err != nil {
		return err
	}
	current, err := decodeLedger(raw)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	data, err := encodeLedger(next)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE score_ledgers
		SET records = $2, updated_at = now()
		WHERE game_mode = $1
	`, gameMode, string(data))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
