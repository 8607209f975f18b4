package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultAttachGrace is how long a session may wait for its game screen to
// connect before SweepDetached drops it.
const DefaultAttachGrace = 2 * time.Minute

type sessionEntry struct {
	s        *Session
	created  time.Time
	attached bool
}

// SessionManager tracks the sessions of connected game screens.
type SessionManager struct {
	rec  Recorder
	opts Options
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewSessionManager(rec Recorder, opts Options) *SessionManager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		rec:      rec,
		opts:     opts,
		now:      now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create registers a session and primes its best-score cache. An unreadable
// ledger leaves the cache at zero.
func (sm *SessionManager) Create(ctx context.Context, gameMode, playerName string) *Session {
	s := NewSession(uuid.NewString(), strings.TrimSpace(gameMode), sm.rec, sm.opts)
	s.SetPlayerName(playerName)
	s.LoadBestScore(ctx)

	sm.mu.Lock()
	sm.sessions[s.ID] = &sessionEntry{s: s, created: sm.now()}
	sm.mu.Unlock()

	return s
}

func (sm *SessionManager) Get(id string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	e, ok := sm.sessions[normalizeID(id)]
	if !ok {
		return nil, false
	}
	return e.s, true
}

// Attach marks a session as driven by a live connection. Attached sessions
// are left to Remove.
func (sm *SessionManager) Attach(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	e, ok := sm.sessions[normalizeID(id)]
	if ok {
		e.attached = true
	}
	return ok
}

// SweepDetached drops sessions that never got a connection within grace and
// returns how many were dropped.
func (sm *SessionManager) SweepDetached(grace time.Duration) int {
	cutoff := sm.now().Add(-grace)

	sm.mu.Lock()
	defer sm.mu.Unlock()

	n := 0
	for id, e := range sm.sessions {
		if !e.attached && e.created.Before(cutoff) {
			delete(sm.sessions, id)
			n++
		}
	}
	return n
}

// Remove discards a session without persisting anything.
func (sm *SessionManager) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, normalizeID(id))
}

func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
