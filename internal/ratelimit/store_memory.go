package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/checkvibe/gatekeeper/internal/clock"
)

const sweepEvery = 1024

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is a process-local Store for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]memoryEntry
	ops     int
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemoryStore{
		clock:   clk,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops++
	if s.ops%sweepEvery == 0 {
		s.sweep(now)
	}

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryEntry{expiresAt: now.Add(ttl)}
	}
	entry.count++
	s.entries[key] = entry
	return entry.count, nil
}

// Len reports the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.clock.Now())
	return len(s.entries)
}

func (s *MemoryStore) sweep(now time.Time) {
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
