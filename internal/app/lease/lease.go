package lease

import (
	"context"
	"errors"
)

// ErrTimeout means the per-property critical section could not be entered
// within the configured wait; the caller may safely retry.
var ErrTimeout = errors.New("lease: acquisition timed out")

// Release gives the lease back. It must be called exactly once and is safe to
// defer.
type Release func()

// Service hands out per-property leases. Every write path that can create
// booking-origin calendar entries runs under the lease for that property, so
// two concurrent guests cannot both take the same nights.
type Service interface {
	Acquire(ctx context.Context, propertyID string) (Release, error)
}
