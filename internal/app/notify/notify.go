package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carrental/internal/app/uow"
	domainnotification "carrental/internal/domain/notification"
)

// Notifier delivers user notifications after the surrounding unit commits.
// Delivery failures are logged and never reach the caller.
type Notifier struct {
	Sink   domainnotification.Sink
	Logger *slog.Logger
	Now    func() time.Time
}

func (n *Notifier) Send(ctx context.Context, userID, title, message string, typ domainnotification.Type) {
	if n == nil || n.Sink == nil || userID == "" {
		return
	}
	note := domainnotification.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: n.now(),
	}
	uow.AfterCommit(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				n.logger().Error("notification sink panicked", "user_id", userID, "title", title, "panic", r)
			}
		}()
		if err := n.Sink.Notify(context.WithoutCancel(ctx), note); err != nil {
			n.logger().Warn("notification dropped", "user_id", userID, "title", title, "error", err)
		}
	})
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now().UTC()
	}
	return time.Now().UTC()
}

func (n *Notifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
