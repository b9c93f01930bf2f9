package memory

import (
	"context"
	"sync"
	"time"

	"ereft/internal/app/lease"
)

// Lease is a per-property mutex with a bounded wait, for single-process
// deployments and tests.
type Lease struct {
	mu      sync.Mutex
	slots   map[string]chan struct{}
	Timeout time.Duration
}

func NewLease(timeout time.Duration) *Lease {
	return &Lease{slots: make(map[string]chan struct{}), Timeout: timeout}
}

func (l *Lease) Acquire(ctx context.Context, propertyID string) (lease.Release, error) {
	slot := l.slot(propertyID)

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-slot })
		}, nil
	case <-timer.C:
		return nil, lease.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lease) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	return slot
}

var _ lease.Service = (*Lease)(nil)
