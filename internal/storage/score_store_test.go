package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) ScoreStore

func storeDrivers() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) ScoreStore {
			return NewMemoryScoreStore()
		},
		"file": func(t *testing.T) ScoreStore {
			return NewFileScoreStore(filepath.Join(t.TempDir(), "data", "scores.json"))
		},
		"sqlite": func(t *testing.T) ScoreStore {
			s, err := OpenSQLiteScoreStore(context.Background(), filepath.Join(t.TempDir(), "scores.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func appendRecord(rec ScoreRecord) LedgerFunc {
	return func(cur []ScoreRecord) ([]ScoreRecord, error) {
		return append(cur, rec), nil
	}
}

func TestScoreStore_EmptyLedger(t *testing.T) {
	for name, factory := range storeDrivers() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			recs, err := s.Ledger(context.Background(), "fretboard-match")
			require.NoError(t, err)
			require.Empty(t, recs)
		})
	}
}

func TestScoreStore_UpdateThenRead(t *testing.T) {
	for name, factory := range storeDrivers() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			rec := ScoreRecord{ID: 1, PlayerName: "Ann", Score: 80, Timestamp: "2024-05-01T10:00:00.000Z"}
			require.NoError(t, s.UpdateLedger(ctx, "fretboard-match", appendRecord(rec)))
			require.NoError(t, s.UpdateLedger(ctx, "chord-input", appendRecord(ScoreRecord{ID: 2, PlayerName: "Bo", Score: 30})))

			got, err := s.Ledger(ctx, "fretboard-match")
			require.NoError(t, err)
			require.Equal(t, []ScoreRecord{rec}, got)

			other, err := s.Ledger(ctx, "chord-input")
			require.NoError(t, err)
			require.Len(t, other, 1)
			require.Equal(t, "Bo", other[0].PlayerName)
		})
	}
}

func TestScoreStore_FailedUpdateWritesNothing(t *testing.T) {
	for name, factory := range storeDrivers() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			require.NoError(t, s.UpdateLedger(ctx, "m", appendRecord(ScoreRecord{ID: 1, Score: 10})))

			boom := errors.New("boom")
			err := s.UpdateLedger(ctx, "m", func(cur []ScoreRecord) ([]ScoreRecord, error) {
				cur[0].Score = 999
				return nil, boom
			})
			require.ErrorIs(t, err, boom)

			got, err := s.Ledger(ctx, "m")
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, 10, got[0].Score)
		})
	}
}

func TestScoreStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	for name, factory := range storeDrivers() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			const n = 20
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- s.UpdateLedger(ctx, "m", appendRecord(ScoreRecord{ID: int64(i + 1), Score: i}))
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			got, err := s.Ledger(ctx, "m")
			require.NoError(t, err)
			require.Len(t, got, n)
		})
	}
}

func TestFileScoreStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := NewFileScoreStore(path)
	ctx := context.Background()

	_, err := s.Ledger(ctx, "fretboard-match")
	require.ErrorIs(t, err, ErrCorruptDocument)

	err = s.UpdateLedger(ctx, "fretboard-match", appendRecord(ScoreRecord{ID: 1, Score: 5}))
	require.ErrorIs(t, err, ErrCorruptDocument)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(data))
}

func TestFileScoreStore_LedgerNotArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fretboard-match": {"score": 1}}`), 0o644))
	s := NewFileScoreStore(path)

	_, err := s.Ledger(context.Background(), "fretboard-match")
	require.ErrorIs(t, err, ErrCorruptDocument)
}

func TestFileScoreStore_KeepsOtherModesAndDottedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	seed := `{"chord-input":[{"id":7,"playerName":"Cy","score":40,"timestamp":"2024-01-01T00:00:00.000Z"}]}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))
	s := NewFileScoreStore(path)
	ctx := context.Background()

	odd := "mode.with.dots"
	require.NoError(t, s.UpdateLedger(ctx, odd, appendRecord(ScoreRecord{ID: 1, PlayerName: "Ann", Score: 90})))

	kept, err := s.Ledger(ctx, "chord-input")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.Equal(t, int64(7), kept[0].ID)

	got, err := s.Ledger(ctx, odd)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 90, got[0].Score)
}

func TestMemoryScoreStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryScoreStore()
	ctx := context.Background()
	require.NoError(t, s.UpdateLedger(ctx, "m", appendRecord(ScoreRecord{ID: 1, Score: 10})))

	got, err := s.Ledger(ctx, "m")
	require.NoError(t, err)
	got[0].Score = 999

	again, err := s.Ledger(ctx, "m")
	require.NoError(t, err)
	require.Equal(t, 10, again[0].Score)
}

func TestLedgerKey(t *testing.T) {
	require.Equal(t, fmt.Sprintf("%s:%s", StorageKey, "chord-input"), ledgerKey("chord-input"))
}
