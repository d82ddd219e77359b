package session

import (
	"context"
	"sync"
	"time"
)

// Store is the persistence driver behind the Manager. The memory driver is
// the default; the Redis driver exists for deployments that want sessions to
// survive a restart.
type Store interface {
	// Load returns the session for id, or nil if absent.
	Load(ctx context.Context, id string) (*Session, error)
	// Save persists the session. For the memory driver this is an insert;
	// drivers that serialize must be called after every turn.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Sweep removes sessions idle longer than ttl and reports the removed
	// ids. Drivers with server-side expiry return nil.
	Sweep(ctx context.Context, ttl time.Duration) ([]string, error)
	Close() error
}

// MemoryStore keeps sessions in a mutex-guarded map.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id], nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, ttl time.Duration) ([]string, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive()) > ttl {
			removed = append(removed, id)
			delete(s.sessions, id)
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*Session)
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
