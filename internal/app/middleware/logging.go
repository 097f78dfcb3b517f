package middleware

import (
	"context"
	"log/slog"
	"time"

	"carrental/internal/app/apperr"
	"carrental/internal/app/commands"
	"carrental/internal/app/queries"
)

func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), start, err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			logOutcome(ctx, logger, "query", q.Key(), start, err)
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, start time.Time, err error) {
	attrs := []any{kind, key, "duration", time.Since(start)}
	if err == nil {
		logger.DebugContext(ctx, kind+" handled", attrs...)
		return
	}
	errKind := apperr.KindOf(err)
	attrs = append(attrs, "kind", errKind, "error", err)
	switch errKind {
	case apperr.KindIntegrity:
		logger.ErrorContext(ctx, kind+" failed: manual reconciliation required", attrs...)
	case apperr.KindInternal, apperr.KindUnavailable:
		logger.ErrorContext(ctx, kind+" failed", attrs...)
	default:
		logger.InfoContext(ctx, kind+" rejected", attrs...)
	}
}
