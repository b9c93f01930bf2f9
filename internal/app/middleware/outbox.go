package middleware

import (
	"context"
	"log/slog"

	"ereft/internal/app/commands"
	"ereft/internal/app/outbox"
)

// OutboxFlush nudges the outbox after a successful command so recorded events
// leave the store without waiting for the next poll tick. Flush errors are
// logged, not returned; the worker will pick the records up later.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if box != nil {
				if flushErr := box.Flush(ctx); flushErr != nil && logger != nil {
					logger.WarnContext(ctx, "outbox flush failed",
						slog.String("command", cmd.Key()),
						slog.String("error", flushErr.Error()))
				}
			}
			return res, nil
		})
	}
}
