package middleware

import (
	"context"
	"log/slog"

	"carrental/internal/app/commands"
	"carrental/internal/app/outbox"
)

// OutboxFlush asks the relay to publish right after a successful command. It must sit outside
// Transaction so records are already committed. Flush errors are logged; the poller retries.
func OutboxFlush(f outbox.Flusher, logger *slog.Logger) CommandMiddleware {
	if f == nil {
		panic("middleware: outbox flusher required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := f.Flush(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
