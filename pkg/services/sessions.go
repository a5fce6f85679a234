package services

import (
	"sync"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// SessionStore keeps per-session conversation history in memory. Each session
// holds a bounded FIFO of turns; when the bound is reached the oldest turn is
// dropped. Safe for concurrent use.
type SessionStore struct {
	limit    int
	mu       sync.RWMutex
	sessions map[string][]models.ConversationTurn
}

// NewSessionStore creates a session store keeping at most limit turns per
// session. A non-positive limit falls back to 20.
func NewSessionStore(limit int) *SessionStore {
	if limit <= 0 {
		limit = 20
	}
	return &SessionStore{
		limit:    limit,
		sessions: make(map[string][]models.ConversationTurn),
	}
}

// Append records a turn at the tail of the session's history, evicting the
// oldest turn when the session is at capacity.
func (s *SessionStore) Append(sessionID string, turn models.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], turn)
	if len(turns) > s.limit {
		turns = turns[len(turns)-s.limit:]
	}
	s.sessions[sessionID] = turns
}

// Recent returns a copy of the last window turns for a session, oldest first.
// Returns nil for an unknown session or non-positive window. Callers may
// freely modify the returned slice.
func (s *SessionStore) Recent(sessionID string, window int) []models.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if window <= 0 || len(turns) == 0 {
		return nil
	}
	if window > len(turns) {
		window = len(turns)
	}
	out := make([]models.ConversationTurn, window)
	copy(out, turns[len(turns)-window:])
	return out
}

// Len returns the number of turns currently held for a session.
func (s *SessionStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

// Clear drops a session's history.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
