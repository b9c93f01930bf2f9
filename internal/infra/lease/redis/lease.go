package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ereft/internal/app/lease"
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lease taken over by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lease implements the per-property lock on Redis with SET NX PX, for
// multi-process deployments.
type Lease struct {
	Client    *redis.Client
	TTL       time.Duration
	WaitLimit time.Duration
	PollEvery time.Duration
}

func NewLease(client *redis.Client, waitLimit time.Duration) *Lease {
	return &Lease{
		Client:    client,
		TTL:       10 * time.Second,
		WaitLimit: waitLimit,
		PollEvery: 25 * time.Millisecond,
	}
}

func (l *Lease) Acquire(ctx context.Context, propertyID string) (lease.Release, error) {
	key := "lease:property:" + propertyID
	token := uuid.NewString()

	waitLimit := l.WaitLimit
	if waitLimit <= 0 {
		waitLimit = 2 * time.Second
	}
	poll := l.PollEvery
	if poll <= 0 {
		poll = 25 * time.Millisecond
	}
	deadline := time.Now().Add(waitLimit)

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.ttl()).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.Client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, lease.ErrTimeout
		}
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Lease) ttl() time.Duration {
	if l.TTL <= 0 {
		return 10 * time.Second
	}
	return l.TTL
}

var _ lease.Service = (*Lease)(nil)
