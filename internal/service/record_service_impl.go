package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ranne1/guitar-codes/internal/storage"
	"go.uber.org/zap"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

type recordService struct {
	store storage.ScoreStore
	cfg   Config
	log   *zap.Logger

	ids   idSource
	locks modeLocks
}

func NewRecordService(store storage.ScoreStore, cfg Config, log *zap.Logger) RecordService {
	if cfg.LedgerCap <= 0 {
		cfg.LedgerCap = DefaultLedgerCap
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &recordService{
		store: store,
		cfg:   cfg,
		log:   log,
		ids:   idSource{now: cfg.Now},
		locks: modeLocks{m: make(map[string]*sync.Mutex)},
	}
}

func (s *recordService) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	mode := strings.TrimSpace(in.GameMode)
	if mode == "" || in.Score == nil || *in.Score < 0 {
		return SubmitResult{}, ErrMissingField
	}
	score := *in.Score
	name := NormalizePlayerName(in.PlayerName)

	unlock := s.locks.lock(mode)
	defer unlock()

	var res SubmitResult
	err := s.store.UpdateLedger(ctx, mode, func(cur []storage.ScoreRecord) ([]storage.ScoreRecord, error) {
		now := s.cfg.Now()
		rec := storage.ScoreRecord{
			ID:         s.ids.next(maxID(cur)),
			PlayerName: name,
			Score:      score,
			Timestamp:  now.UTC().Format(timestampLayout),
		}

		prev := bestOf(cur)
		next, pos := insertRanked(cur, rec)
		if len(next) > s.cfg.LedgerCap {
			next = next[:s.cfg.LedgerCap]
		}

		res = SubmitResult{
			Accepted:     true,
			IsNewRecord:  score > prev,
			PreviousBest: prev,
			NewScore:     score,
			Rank:         pos + 1,
			Ranked:       pos < s.cfg.LedgerCap,
			PlayerName:   name,
			Record:       rec,
		}
		return next, nil
	})
	if err != nil {
		s.log.Warn("score submit failed",
			zap.String("game_mode", mode),
			zap.Int("score", score),
			zap.Error(err),
		)
		return SubmitResult{NewScore: score, PlayerName: name}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.log.Info("score recorded",
		zap.String("game_mode", mode),
		zap.String("player", name),
		zap.Int("score", score),
		zap.Int("rank", res.Rank),
		zap.Bool("new_record", res.IsNewRecord),
	)
	return res, nil
}

func (s *recordService) BestScore(ctx context.Context, gameMode string) int {
	mode := strings.TrimSpace(gameMode)
	if mode == "" {
		return 0
	}
	recs, err := s.store.Ledger(ctx, mode)
	if err != nil {
		s.log.Warn("best score read failed", zap.String("game_mode", mode), zap.Error(err))
		return 0
	}
	return bestOf(recs)
}

// NormalizePlayerName trims the name, caps it at MaxPlayerName runes and
// substitutes DefaultPlayer for blanks.
func NormalizePlayerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultPlayer
	}
	if utf8.RuneCountInString(name) > MaxPlayerName {
		name = strings.TrimSpace(string([]rune(name)[:MaxPlayerName]))
	}
	return name
}

func bestOf(recs []storage.ScoreRecord) int {
	best := 0
	for _, r := range recs {
		if r.Score > best {
			best = r.Score
		}
	}
	return best
}

func maxID(recs []storage.ScoreRecord) int64 {
	var m int64
	for _, r := range recs {
		if r.ID > m {
			m = r.ID
		}
	}
	return m
}

// insertRanked appends rec and re-sorts by score descending. The sort is
// stable, so rec lands after every record it ties with.
func insertRanked(cur []storage.ScoreRecord, rec storage.ScoreRecord) ([]storage.ScoreRecord, int) {
	next := append(cur, rec)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Score > next[j].Score
	})
	for i, r := range next {
		if r.ID == rec.ID {
			return next, i
		}
	}
	return next, len(next) - 1
}

// idSource hands out millisecond-based ids that never repeat and always
// exceed the ids already present in a ledger.
type idSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (g *idSource) next(floor int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	if id <= floor {
		id = floor + 1
	}
	g.last = id
	return id
}

type modeLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *modeLocks) lock(mode string) func() {
	l.mu.Lock()
	mu, ok := l.m[mode]
	if !ok {
		mu = &sync.Mutex{}
		l.m[mode] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}
