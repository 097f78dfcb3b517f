package notify

import (
	"context"

	"carrental/internal/app/uow"
	domainnotification "carrental/internal/domain/notification"
)

// StoreSink writes notifications straight into the user's inbox in its own unit.
type StoreSink struct {
	Factory uow.UoWFactory
}

func (s StoreSink) Notify(ctx context.Context, n domainnotification.Notification) error {
	return uow.Run(ctx, s.Factory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Notifications().Add(ctx, n)
	})
}

var _ domainnotification.Sink = StoreSink{}
