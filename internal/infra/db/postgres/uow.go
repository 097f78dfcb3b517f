package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Factory struct {
	Pool *pgxpool.Pool
}

// Begin opens a read committed transaction. Write units lock rows they read.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, translate(err)
	}
	return &Unit{tx: tx, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	tx       pgx.Tx
	readOnly bool
}

func (u *Unit) Bookings() domainbooking.Repository {
	return &BookingRepository{q: u.tx, lock: !u.readOnly, readOnly: u.readOnly}
}

func (u *Unit) Transactions() domaintransaction.Repository {
	return &TransactionRepository{q: u.tx, readOnly: u.readOnly}
}

func (u *Unit) Cars() domaincars.Catalog {
	return &CarCatalog{q: u.tx}
}

func (u *Unit) Users() domainuser.Directory {
	return &UserDirectory{q: u.tx}
}

func (u *Unit) Notifications() domainnotification.Repository {
	return &NotificationRepository{q: u.tx, readOnly: u.readOnly}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return &outboxWriter{q: u.tx, readOnly: u.readOnly}
}

func (u *Unit) Commit(ctx context.Context) error {
	return translate(u.tx.Commit(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return translate(err)
}

var _ uow.UoWFactory = Factory{}
