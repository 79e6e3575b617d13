package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore remembers revoked token ids until the tokens expire.
type RevocationStore interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type revocationEntry struct {
	ExpiresAt time.Time
	UserID    string
}

// MemoryRevocationStore keeps revoked JTIs in process. Used when REDIS_URL is
// unset; revocations do not survive a restart or span replicas.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]revocationEntry
	now     func() time.Time
	done    chan struct{}
}

// NewMemoryRevocationStore starts a goroutine that drops expired entries
// every interval. Call Close to stop it.
func NewMemoryRevocationStore(interval time.Duration) *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: make(map[string]revocationEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.cleanupLoop(interval)
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = revocationEntry{ExpiresAt: expiresAt, UserID: userID}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok, nil
}

// Count returns the number of tracked revocations.
func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *MemoryRevocationStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *MemoryRevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, jti)
		}
	}
}
