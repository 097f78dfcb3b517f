package uow

import (
	"context"

	"carrental/internal/app/outbox"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Transactions() domaintransaction.Repository
	Cars() domaincars.Catalog
	Users() domainuser.Directory
	Notifications() domainnotification.Repository
	// Outbox stages event records that commit together with the unit.
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
