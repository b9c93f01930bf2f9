package middleware

import (
	"context"
	"log/slog"
	"time"

	"ereft/internal/app/commands"
	"ereft/internal/domain/shared/fault"
)

// Retry re-dispatches a command once when the failure is transient (lost
// storage connection, aborted session). Validation and conflict errors are
// never retried.
func Retry(logger *slog.Logger, backoff time.Duration) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err == nil || !fault.IsTransient(err) {
				return res, err
			}
			if logger != nil {
				logger.WarnContext(ctx, "transient failure, retrying command",
					slog.String("command", cmd.Key()),
					slog.String("error", err.Error()))
			}
			if backoff > 0 {
				timer := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C:
				}
			}
			return nextFn(ctx, cmd)
		})
	}
}
