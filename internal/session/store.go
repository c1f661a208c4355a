package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	log      *slog.Logger
}

func NewStore(ttl time.Duration, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		log:      log,
	}
}

func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Delete removes and closes a session. It reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.close(sess)
	}
	return ok
}

// Cleanup closes and removes sessions idle for longer than the TTL.
func (s *Store) Cleanup() int {
	now := time.Now()
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUsed()) > s.ttl {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		s.close(sess)
	}
	return len(expired)
}

// CloseAll closes every session. Used on shutdown.
func (s *Store) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		s.close(sess)
	}
}

func (s *Store) close(sess *Session) {
	if err := sess.Close(); err != nil {
		s.log.Warn("session cleanup incomplete", "session_id", sess.ID, "error", err)
	}
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(); n > 0 {
				s.log.Info("evicted idle sessions", "count", n)
			}
		}
	}
}
