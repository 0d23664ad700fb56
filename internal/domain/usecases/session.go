package usecases

import (
	"sync"
	"time"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

// SessionStore owns all per-session conversation history: bounded per
// session, with idle sessions evicted opportunistically on append. Pure
// data-structure manipulation, no external calls.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string][]entities.ConversationTurn
	maxTurns    int
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates a store keeping at most maxTurns turns per session
// and dropping sessions idle for longer than idleTimeout.
func NewSessionStore(maxTurns int, idleTimeout time.Duration) *SessionStore {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if idleTimeout <= 0 {
		idleTimeout = time.Hour
	}
	return &SessionStore{
		sessions:    make(map[string][]entities.ConversationTurn),
		maxTurns:    maxTurns,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// AppendTurn sweeps idle sessions, then appends a turn to the session and
// truncates it to the most recent maxTurns.
func (s *SessionStore) AppendTurn(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	turns := append(s.sessions[sessionID], entities.ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[sessionID] = turns
}

// History returns a copy of the session's turns, oldest first. Unknown
// sessions yield an empty history.
func (s *SessionStore) History(sessionID string) []entities.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[sessionID]
	out := make([]entities.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes the session entirely, reporting whether it existed.
func (s *SessionStore) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// sweepLocked deletes sessions whose most recent turn is older than the idle
// timeout. Caller holds s.mu.
func (s *SessionStore) sweepLocked(now time.Time) {
	for id, turns := range s.sessions {
		if len(turns) == 0 {
			delete(s.sessions, id)
			continue
		}
		if now.Sub(turns[len(turns)-1].Timestamp) > s.idleTimeout {
			delete(s.sessions, id)
		}
	}
}
