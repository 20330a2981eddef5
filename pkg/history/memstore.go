package history

import (
	"context"
	"sync"
	"time"
)

// Compile-time assertions that MemStore satisfies both contracts.
var (
	_ Store        = (*MemStore)(nil)
	_ ProfileStore = (*MemStore)(nil)
)

// MemStore is an in-memory Store and ProfileStore. It backs DB-less runs and
// tests; turns are held per session in append order. Safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	turns    map[string][]Turn
	profiles map[string]Profile

	// now is swappable for deterministic timestamps in tests.
	now func() time.Time
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		turns:    make(map[string][]Turn),
		profiles: make(map[string]Profile),
		now:      time.Now,
	}
}

// AppendTurn implements Store.
func (s *MemStore) AppendTurn(_ context.Context, sessionID, userText, assistantText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[sessionID] = append(s.turns[sessionID], Turn{
		SessionID:     sessionID,
		UserText:      userText,
		AssistantText: assistantText,
		CreatedAt:     s.now(),
	})
	return nil
}

// RecentTurns implements Store. Turns are returned most recent first.
func (s *MemStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.turns[sessionID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	out := make([]Turn, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Profile implements ProfileStore.
func (s *MemStore) Profile(_ context.Context, sessionID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[sessionID]
	if !ok {
		return Profile{}, ErrSessionNotFound
	}
	return p, nil
}

// SaveProfile implements ProfileStore.
func (s *MemStore) SaveProfile(_ context.Context, sessionID string, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[sessionID] = profile
	return nil
}

// SetClock replaces the timestamp source. Intended for tests.
func (s *MemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
