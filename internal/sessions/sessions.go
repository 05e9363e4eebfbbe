// Package sessions keeps one conversational agent per chat session.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/agent"
)

// DefaultMaxIdle is how long a session may sit unused before the sweeper
// evicts it.
const DefaultMaxIdle = time.Hour

// DefaultSweepInterval is how often the sweeper checks for idle sessions.
const DefaultSweepInterval = 10 * time.Minute

// Session wraps one agent with a lock. The agent itself is single-threaded;
// the lock serializes concurrent requests carrying the same session id.
type Session struct {
	ID       string
	mu       sync.Mutex
	agent    *agent.Agent
	lastSeen time.Time
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Chat runs one turn, serialized against other callers of the same session.
func (s *Session) Chat(ctx context.Context, input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.agent.Chat(ctx, input)
}

// Reset clears the conversation history, keeping the session alive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agent.Reset()
}

// Store is an in-memory session registry. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  func() *agent.Agent
}

// NewStore builds a registry; factory creates a fresh agent per session.
func NewStore(factory func() *agent.Agent) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// GetOrCreate returns the session for id, creating it on first use. An
// empty id allocates a new session with a generated id.
func (s *Store) GetOrCreate(id string) *Session {
	if id != "" {
		s.mu.RLock()
		session, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return session
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	} else if session, ok := s.sessions[id]; ok {
		return session
	}

	session := &Session{ID: id, agent: s.factory(), lastSeen: time.Now()}
	s.sessions[id] = session
	log.Info().Str("session_id", id).Msg("session created")
	return session
}

// Get returns the session for id, or nil when it does not exist.
func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session entirely.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune evicts every session idle for longer than maxIdle and reports how
// many were removed. A session's conversation history goes with it.
func (s *Store) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Int("remaining", len(s.sessions)).Msg("idle sessions pruned")
	}
	return removed
}

// Sweep prunes idle sessions on a ticker until ctx is cancelled. Run it in
// its own goroutine.
func (s *Store) Sweep(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(maxIdle)
		}
	}
}
