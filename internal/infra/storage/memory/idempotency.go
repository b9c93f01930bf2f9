package memory

import (
	"context"
	"sync"
	"time"

	"ereft/internal/app/middleware"
)

type idempotencyRecord struct {
	result    any
	expiresAt time.Time
}

// IdempotencyStore keeps command results in memory with per-record expiry.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]idempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]idempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, commandKey, idemKey string) (any, bool, error) {
	s.mu.RLock()
	rec, ok := s.items[commandKey+"|"+idemKey]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !rec.expiresAt.IsZero() && time.Now().After(rec.expiresAt) {
		s.mu.Lock()
		delete(s.items, commandKey+"|"+idemKey)
		s.mu.Unlock()
		return nil, false, nil
	}
	return rec.result, true, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, commandKey, idemKey string, result any, ttl time.Duration) error {
	rec := idempotencyRecord{result: result}
	if ttl > 0 {
		rec.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.items[commandKey+"|"+idemKey] = rec
	s.mu.Unlock()
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
