package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ranne1/guitar-codes/internal/scoring"
	"github.com/ranne1/guitar-codes/internal/service"
)

const DefaultMaxTime = 10 * time.Second

// Recorder is the persistence side a Session completes into.
type Recorder interface {
	Submit(ctx context.Context, in service.SubmitInput) (service.SubmitResult, error)
	BestScore(ctx context.Context, gameMode string) int
}

type Options struct {
	MaxTime time.Duration
	Now     func() time.Time
}

// Session is the in-memory state of one game screen. It is never persisted;
// only CompleteRound writes anything.
type Session struct {
	ID       string
	GameMode string

	mu         sync.Mutex
	state      State
	startTime  time.Time
	tally      scoring.Tally
	bestScore  int
	newRecord  bool
	playerName string

	maxTime time.Duration
	now     func() time.Time
	rec     Recorder
}

type SessionSnapshot struct {
	ID           string `json:"id"`
	GameMode     string `json:"gameMode"`
	State        State  `json:"state"`
	CurrentScore int    `json:"currentScore"`
	TotalScore   int    `json:"totalScore"`
	BestScore    int    `json:"bestScore"`
	IsActive     bool   `json:"isActive"`
	IsNewRecord  bool   `json:"isNewRecord"`
	PlayerName   string `json:"playerName"`
	TimeLeftMs   int64  `json:"timeLeftMs"`
	Deadline     int64  `json:"deadline,omitempty"`
}

// Completion is what a finished play reports back to the game screen.
// Persisted=false means the store did not accept the run and IsNewRecord
// came from the session's own best-score cache.
type Completion struct {
	FinalScore   int    `json:"finalScore"`
	IsNewRecord  bool   `json:"isNewRecord"`
	Persisted    bool   `json:"persisted"`
	PreviousBest int    `json:"previousBest"`
	BestScore    int    `json:"bestScore"`
	Rank         int    `json:"rank,omitempty"`
	Ranked       bool   `json:"ranked"`
	PlayerName   string `json:"playerName"`

	Err error `json:"-"`
}

func NewSession(id, gameMode string, rec Recorder, opts Options) *Session {
	if opts.MaxTime <= 0 {
		opts.MaxTime = DefaultMaxTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		ID:       id,
		GameMode: gameMode,
		state:    StateIdle,
		maxTime:  opts.MaxTime,
		now:      opts.Now,
		rec:      rec,
	}
}

// LoadBestScore primes the best-score cache from the ledger.
func (s *Session) LoadBestScore(ctx context.Context) int {
	if s.rec == nil {
		return 0
	}
	best := s.rec.BestScore(ctx, s.GameMode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if best > s.bestScore {
		s.bestScore = best
	}
	return s.bestScore
}

func (s *Session) SetPlayerName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerName = strings.TrimSpace(name)
}

// Start begins timing a round on the player's first input. Calling it while
// a round is already timing changes nothing.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateTiming:
		return nil
	case StateIdle, StateResolved:
	default:
		return ErrBadState
	}

	s.startTime = s.now()
	s.state = StateTiming
	return nil
}

func (s *Session) HandleCorrectAnswer() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTiming {
		return 0, ErrBadState
	}
	now := s.now()
	if s.expiredLocked(now) {
		s.resolveLocked()
		return 0, ErrTimedOut
	}

	points := s.tally.Correct(scoring.PointsBetween(s.startTime, now))
	s.state = StateResolved
	s.startTime = time.Time{}
	return points, nil
}

func (s *Session) HandleWrongAnswer() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTiming {
		return 0, ErrBadState
	}
	s.resolveLocked()
	return 0, nil
}

// ExpireIfTimedOut resolves a round whose countdown has run out. The round
// earns nothing; the total is kept.
func (s *Session) ExpireIfTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTiming || !s.expiredLocked(s.now()) {
		return false
	}
	s.resolveLocked()
	return true
}

func (s *Session) TimeLeft() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeftLocked(s.now())
}

// Deadline is the instant the current round times out, zero when not timing.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTiming {
		return time.Time{}
	}
	return s.startTime.Add(s.maxTime)
}

// AddCompletionBonus credits the bonus for matching every item of the round
// set. It applies once per play.
func (s *Session) AddCompletionBonus() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCompleted {
		return 0, ErrBadState
	}
	if !s.tally.Bonus() {
		return 0, ErrBonusApplied
	}
	return scoring.CompletionBonus, nil
}

func (s *Session) TotalScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tally.Total()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CompleteRound ends the play and submits finalScore. A storage failure never
// fails the call: the session falls back to its own best-score cache.
func (s *Session) CompleteRound(ctx context.Context, finalScore int) Completion {
	s.mu.Lock()
	s.state = StateCompleted
	s.startTime = time.Time{}
	name := s.playerName
	best := s.bestScore
	s.mu.Unlock()

	var (
		res service.SubmitResult
		err error
	)
	if s.rec != nil {
		res, err = s.rec.Submit(ctx, service.SubmitInput{
			GameMode:   s.GameMode,
			PlayerName: name,
			Score:      &finalScore,
		})
	} else {
		err = ErrNoRecorder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := Completion{
		FinalScore: finalScore,
		PlayerName: service.NormalizePlayerName(name),
	}
	if err == nil && res.Accepted {
		c.Persisted = true
		c.IsNewRecord = res.IsNewRecord
		c.PreviousBest = res.PreviousBest
		c.Rank = res.Rank
		c.Ranked = res.Ranked
		c.PlayerName = res.PlayerName
		s.bestScore = max(s.bestScore, res.PreviousBest, finalScore)
	} else {
		c.Err = err
		c.PreviousBest = best
		c.IsNewRecord = finalScore > best
		if c.IsNewRecord {
			s.bestScore = finalScore
		}
	}

	s.newRecord = c.IsNewRecord
	if c.IsNewRecord {
		s.playerName = c.PlayerName
	}
	c.BestScore = s.bestScore
	return c
}

// ResetGame returns to Idle for a fresh play. The best-score cache and the
// player name survive.
func (s *Session) ResetGame() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateIdle
	s.startTime = time.Time{}
	s.tally.Reset()
	s.newRecord = false
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := SessionSnapshot{
		ID:           s.ID,
		GameMode:     s.GameMode,
		State:        s.state,
		CurrentScore: s.tally.Last(),
		TotalScore:   s.tally.Total(),
		BestScore:    s.bestScore,
		IsActive:     s.state == StateTiming,
		IsNewRecord:  s.newRecord,
		PlayerName:   s.playerName,
		TimeLeftMs:   s.timeLeftLocked(now).Milliseconds(),
	}
	if s.state == StateTiming {
		snap.Deadline = s.startTime.Add(s.maxTime).UnixMilli()
	}
	return snap
}

func (s *Session) expiredLocked(now time.Time) bool {
	return !now.Before(s.startTime.Add(s.maxTime))
}

func (s *Session) timeLeftLocked(now time.Time) time.Duration {
	if s.state != StateTiming {
		return s.maxTime
	}
	left := s.startTime.Add(s.maxTime).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) resolveLocked() {
	s.tally.Miss()
	s.state = StateResolved
	s.startTime = time.Time{}
}
