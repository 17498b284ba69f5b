package rag

import (
	"sync"

	"github.com/google/uuid"
	"github.com/xhad/sage/internal/models"
)

// SessionStore keeps a bounded window of prior exchanges per session, in
// memory only. Sessions die with the process.
type SessionStore struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string][]models.Exchange
}

func NewSessionStore(maxHistory int) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	return &SessionStore{
		maxHistory: maxHistory,
		sessions:   make(map[string][]models.Exchange),
	}
}

// NewSessionID mints an opaque session identifier.
func (s *SessionStore) NewSessionID() string {
	return uuid.NewString()
}

// History returns a copy of the most recent exchanges for a session,
// oldest first.
func (s *SessionStore) History(sessionID string) []models.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := s.sessions[sessionID]
	out := make([]models.Exchange, len(exchanges))
	copy(out, exchanges)
	return out
}

// Append records one completed exchange, evicting the oldest entries past
// the history bound. Appends are serialized so concurrent requests on the
// same session cannot overwrite each other.
func (s *SessionStore) Append(sessionID, query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := append(s.sessions[sessionID], models.Exchange{Query: query, Answer: answer})
	if len(exchanges) > s.maxHistory {
		exchanges = exchanges[len(exchanges)-s.maxHistory:]
	}
	s.sessions[sessionID] = exchanges
}

// Clear forgets one session entirely.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
