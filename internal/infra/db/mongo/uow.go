package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	appoutbox "carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a session. Write units also start a snapshot transaction; read-only units
// read with majority concern outside a transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, translate(err)
	}
	if !opts.ReadOnly {
		txnOpts := options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority())
		if err := session.StartTransaction(txnOpts); err != nil {
			session.EndSession(ctx)
			return nil, translate(err)
		}
	}
	return &Unit{db: f.DB, session: session, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool
}

func (u *Unit) Bookings() domainbooking.Repository {
	return &BookingRepository{col: u.db.Collection(colBookings), readOnly: u.readOnly}
}

func (u *Unit) Transactions() domaintransaction.Repository {
	return &TransactionRepository{col: u.db.Collection(colTransactions), readOnly: u.readOnly}
}

func (u *Unit) Cars() domaincars.Catalog {
	return &CarCatalog{col: u.db.Collection(colCars)}
}

func (u *Unit) Users() domainuser.Directory {
	return &UserDirectory{col: u.db.Collection(colUsers)}
}

func (u *Unit) Notifications() domainnotification.Repository {
	return &NotificationRepository{col: u.db.Collection(colNotifications), readOnly: u.readOnly}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return &outboxWriter{col: u.db.Collection(colOutbox), readOnly: u.readOnly}
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	err := u.session.CommitTransaction(ctx)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		// write conflict with a concurrent transaction on the same booking
		return domainbooking.ErrConcurrentUpdate
	}
	return translate(err)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return translate(u.session.AbortTransaction(ctx))
}

// InjectContext ensures the Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
