package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisMaxRetries = 8

// RedisScoreStore stores each ledger as a JSON array under
// "guitar-codes-scores:<gameMode>" and updates it optimistically with WATCH.
type RedisScoreStore struct {
	rdb *redis.Client
}

func NewRedisScoreStore(ctx context.Context, redisURL string) (*RedisScoreStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisScoreStore{rdb: rdb}, nil
}

func ledgerKey(gameMode string) string {
	return StorageKey + ":" + gameMode
}

func (s *RedisScoreStore) Ledger(ctx context.Context, gameMode string) ([]ScoreRecord, error) {
	raw, err := s.rdb.Get(ctx, ledgerKey(gameMode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeLedger(raw)
}

func (s *RedisScoreStore) UpdateLedger(ctx context.Context, gameMode string, fn LedgerFunc) error {
	key := ledgerKey(gameMode)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
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

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *RedisScoreStore) Close() error {
	return s.rdb.Close()
}
