package session

import (
	"context"
	"sync"
	"time"
)

// memoryEntry stores an admin binding with expiry.
type memoryEntry struct {
	adminID uint64
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Suitable for single-node
// deployments and tests; replicated deployments use RedisStore.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryEntry)}
}

// Set stores the admin binding with expiry.
func (s *MemoryStore) Set(_ context.Context, sessionID string, adminID uint64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sessionID] = memoryEntry{adminID: adminID, expires: time.Now().Add(ttl)}
	return nil
}

// Get returns the admin bound to the session if present and not expired.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[sessionID]
	if !ok {
		return 0, false, nil
	}
	if time.Now().After(entry.expires) {
		delete(s.items, sessionID)
		return 0, false, nil
	}
	return entry.adminID, true, nil
}

// Delete removes a session entry.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}
