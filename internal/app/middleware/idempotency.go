package middleware

import (
	"context"
	"errors"
	"time"

	"ereft/internal/app/commands"
)

// IdempotentCommand marks commands that carry a client-supplied idempotency
// key. Replays with the same key return the stored first result instead of
// re-executing the handler.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
}

// IdempotencyStore persists results keyed by (command key, idempotency key).
type IdempotencyStore interface {
	Get(ctx context.Context, commandKey, idemKey string) (any, bool, error)
	Put(ctx context.Context, commandKey, idemKey string, result any, ttl time.Duration) error
}

var ErrIdempotencyStoreNil = errors.New("middleware: idempotency store required")

// Idempotency short-circuits replayed commands. Commands without a key pass
// straight through.
func Idempotency(store IdempotencyStore, ttl time.Duration) CommandMiddleware {
	if store == nil {
		panic(ErrIdempotencyStoreNil)
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idem, ok := cmd.(IdempotentCommand)
			if !ok || idem.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			if cached, found, err := store.Get(ctx, cmd.Key(), idem.IdempotencyKey()); err == nil && found {
				return cached, nil
			}
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			_ = store.Put(ctx, cmd.Key(), idem.IdempotencyKey(), res, ttl)
			return res, nil
		})
	}
}
