package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

type sessionEntry struct {
	session   prediction.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Updates are serialized by a single mutex.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

// Create implements prediction.SessionStore.
func (s *MemoryStore) Create(_ context.Context, session prediction.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = sessionEntry{session: session, expiresAt: s.expiry(ttl)}
	return nil
}

// Get implements prediction.SessionStore.
func (s *MemoryStore) Get(_ context.Context, id string) (prediction.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookupLocked(id)
	if !ok {
		return prediction.Session{}, false, nil
	}
	return entry.session, true, nil
}

// Update implements prediction.SessionStore.
func (s *MemoryStore) Update(_ context.Context, id string, ttl time.Duration, fn prediction.UpdateFunc) (prediction.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookupLocked(id)
	if !ok {
		return prediction.Session{}, prediction.ErrSessionNotFound
	}
	next, err := fn(entry.session)
	if err != nil {
		return entry.session, err
	}
	s.sessions[id] = sessionEntry{session: next, expiresAt: s.expiry(ttl)}
	return next, nil
}

func (s *MemoryStore) lookupLocked(id string) (sessionEntry, bool) {
	entry, ok := s.sessions[id]
	if !ok {
		return sessionEntry{}, false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.sessions, id)
		return sessionEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

var _ prediction.SessionStore = (*MemoryStore)(nil)
