package session

import (
	"context"
	"sync"
	"time"
)

// Minimum time between two sweeps of expired entries.
const sweepInterval = time.Minute

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are dropped
// on access, and Save sweeps all of them at most once per sweepInterval.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]memoryEntry{},
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}

	result := entry.sess
	result.Flashes = append([]Flash(nil), entry.sess.Flashes...)

	return &result, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}

	stored := *sess
	stored.Flashes = append([]Flash(nil), sess.Flashes...)
	s.sessions[sess.ID] = memoryEntry{
		sess:      stored,
		expiresAt: now.Add(ttl),
	}

	return nil
}

// sweep must be called with s.mu held.
func (s *MemoryStore) sweep(now time.Time) {
	for id, entry := range s.sessions {
		if !entry.expiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
	s.lastSweep = now
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)

	return nil
}
