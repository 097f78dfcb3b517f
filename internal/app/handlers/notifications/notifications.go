package notifications

import (
	"context"
	"sort"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/queries"
	"carrental/internal/app/uow"
	domainuser "carrental/internal/domain/user"
)

const (
	listNotificationsKey = "notification.list"
	markReadKey          = "notification.mark_read"
)

type ListNotificationsQuery struct {
	Viewer domainuser.Principal
}

func (q ListNotificationsQuery) Key() string { return listNotificationsKey }

type MarkReadCommand struct {
	Actor          domainuser.Principal
	NotificationID string `validate:"required"`
}

func (c MarkReadCommand) Key() string { return markReadKey }

type ListNotificationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListNotificationsHandler) Handle(ctx context.Context, q ListNotificationsQuery) (dto.NotificationCollection, error) {
	var out dto.NotificationCollection
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		items, err := unit.Notifications().ListByUser(ctx, q.Viewer.ID)
		if err != nil {
			return err
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
		out = dto.MapNotifications(items)
		return nil
	})
	return out, err
}

type MarkReadHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MarkReadHandler) Handle(ctx context.Context, cmd MarkReadCommand) (struct{}, error) {
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Notifications().MarkRead(ctx, cmd.Actor.ID, cmd.NotificationID)
	})
	return struct{}{}, err
}

func Register(cmds *commands.Registry, qs *queries.Registry, factory uow.UoWFactory) {
	commands.Register[MarkReadCommand, struct{}](cmds, markReadKey, &MarkReadHandler{UoWFactory: factory})
	queries.Register[ListNotificationsQuery, dto.NotificationCollection](qs, listNotificationsKey, &ListNotificationsHandler{UoWFactory: factory})
}
