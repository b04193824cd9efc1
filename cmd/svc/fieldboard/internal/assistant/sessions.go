package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tecnotop/backend/libs/clock"
)

const (
	sessionIdleTTL     = time.Hour
	sessionMaxMessages = 40
)

// sessionStore keeps per-session conversation history in memory.
// Sessions idle past sessionIdleTTL are dropped lazily on access.
type sessionStore struct {
	clk clock.Clock

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	messages []Message
	touched  time.Time
}

func newSessionStore(clk clock.Clock) *sessionStore {
	return &sessionStore{
		clk:      clk,
		sessions: make(map[string]*session),
	}
}

// NewSessionID returns a fresh session identifier for a client that
// does not have one yet.
func NewSessionID() string {
	return uuid.New().String()
}

func (s *sessionStore) history(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	sess := s.sessions[id]
	if sess == nil {
		return nil
	}
	out := make([]Message, len(sess.messages))
	copy(out, sess.messages)
	return out
}

func (s *sessionStore) append(id string, m Message) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.messages = append(sess.messages, m)
	if len(sess.messages) > sessionMaxMessages {
		sess.messages = sess.messages[len(sess.messages)-sessionMaxMessages:]
	}
	sess.touched = s.clk.Now()
}

func (s *sessionStore) expireLocked() {
	cutoff := s.clk.Now().Add(-sessionIdleTTL)
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
