package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"carrental/internal/app/apperr"
	"carrental/internal/app/notify"
	"carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	domainpricing "carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/events"
	"carrental/internal/domain/shared/interval"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
)

// Ledger owns booking records. Every mutation runs in one unit of work and persists with an
// optimistic version check, so concurrent modify and cancel calls on a booking serialize.
type Ledger struct {
	Factory  uow.UoWFactory
	Quoter   domainpricing.Quoter
	Policy   domainbooking.CancellationPolicy
	Encoder  outbox.EventEncoder
	Notifier *notify.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

type QuoteInput struct {
	CarID      string
	Interval   interval.RentalInterval
	WithDriver bool
	Discount   int64
}

type Quote struct {
	Car       *domaincars.Car
	Breakdown domainpricing.Breakdown
}

type CreateInput struct {
	Actor          domainuser.Principal
	CarID          string
	Interval       interval.RentalInterval
	WithDriver     bool
	Discount       int64
	CouponCode     string
	PickupLocation string
	ReturnLocation string
}

type ModifyInput struct {
	BookingID string
	Actor     domainuser.Principal
	Interval  interval.RentalInterval
	// WithDriver and Discount keep their current value when nil.
	WithDriver     *bool
	Discount       *int64
	PickupLocation string
	ReturnLocation string
}

type CancelInput struct {
	BookingID string
	Actor     domainuser.Principal
	Reason    string
}

// Preview prices a rental without writing anything. Create uses the same quote path.
func (l *Ledger) Preview(ctx context.Context, in QuoteInput) (Quote, error) {
	var quote Quote
	err := uow.Run(ctx, l.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		quote, err = l.quote(ctx, unit, in)
		return err
	})
	return quote, err
}

func (l *Ledger) Create(ctx context.Context, in CreateInput) (*domainbooking.Booking, error) {
	userID := strings.TrimSpace(in.Actor.ID)
	if userID == "" {
		return nil, domainbooking.ErrUserRequired
	}
	if strings.TrimSpace(in.CarID) == "" {
		return nil, domainbooking.ErrCarRequired
	}
	if err := in.Interval.Validate(); err != nil {
		return nil, err
	}
	now := l.now()
	if in.Interval.Pickup.Before(now) {
		return nil, domainbooking.ErrPickupInPast
	}

	var created *domainbooking.Booking
	err := uow.Run(ctx, l.Factory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		quote, err := l.quote(ctx, unit, QuoteInput{
			CarID:      in.CarID,
			Interval:   in.Interval,
			WithDriver: in.WithDriver,
			Discount:   in.Discount,
		})
		if err != nil {
			return err
		}
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:             domainbooking.BookingID(l.newID()),
			UserID:         userID,
			Car:            quote.Car,
			Interval:       in.Interval,
			WithDriver:     in.WithDriver,
			Price:          quote.Breakdown,
			CouponCode:     strings.TrimSpace(in.CouponCode),
			PickupLocation: strings.TrimSpace(in.PickupLocation),
			ReturnLocation: strings.TrimSpace(in.ReturnLocation),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		if err := l.save(ctx, unit, b); err != nil {
			return err
		}
		// a caller's unit may still roll back, so log once it commits
		uow.AfterCommit(ctx, func(context.Context) {
			l.logger().Info("booking created", "booking_id", b.ID, "user_id", b.UserID, "car_id", b.CarID, "total", b.Price.Total.Amount)
		})
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Modify reprices the booking with the car's current rate and replaces its terms.
func (l *Ledger) Modify(ctx context.Context, in ModifyInput) (*domainbooking.Booking, error) {
	var modified *domainbooking.Booking
	err := uow.Run(ctx, l.Factory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(in.BookingID))
		if err != nil {
			return err
		}
		if !canManage(in.Actor, b) {
			return apperr.ErrForbidden
		}
		now := l.now()
		switch b.StatusAt(now) {
		case domainbooking.StateCancelled, domainbooking.StateCompleted:
			return domainbooking.ErrInvalidState
		}
		if b.Interval.Elapsed(now) {
			return domainbooking.ErrInvalidState
		}
		if err := in.Interval.Validate(); err != nil {
			return err
		}
		if !in.Interval.Pickup.Equal(b.Interval.Pickup) && in.Interval.Pickup.Before(now) {
			return domainbooking.ErrPickupInPast
		}
		withDriver := b.WithDriver
		if in.WithDriver != nil {
			withDriver = *in.WithDriver
		}
		discount := b.Price.RequestedDiscount.Amount
		if in.Discount != nil {
			discount = *in.Discount
		}
		quote, err := l.quote(ctx, unit, QuoteInput{
			CarID:      string(b.CarID),
			Interval:   in.Interval,
			WithDriver: withDriver,
			Discount:   discount,
		})
		if err != nil {
			return err
		}
		if err := b.Modify(domainbooking.Changes{
			Interval:       in.Interval,
			WithDriver:     withDriver,
			Price:          quote.Breakdown,
			PickupLocation: strings.TrimSpace(in.PickupLocation),
			ReturnLocation: strings.TrimSpace(in.ReturnLocation),
		}, now); err != nil {
			return err
		}
		if err := l.save(ctx, unit, b); err != nil {
			return err
		}
		uow.AfterCommit(ctx, func(context.Context) {
			l.logger().Info("booking modified", "booking_id", b.ID, "actor_id", in.Actor.ID, "total", b.Price.Total.Amount)
		})
		modified = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return modified, nil
}

// Cancel is terminal. A paid booking gets one refunded transaction row for everything captured.
func (l *Ledger) Cancel(ctx context.Context, in CancelInput) (*domainbooking.Booking, error) {
	var cancelled *domainbooking.Booking
	err := uow.Run(ctx, l.Factory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(in.BookingID))
		if err != nil {
			return err
		}
		if !canManage(in.Actor, b) {
			return apperr.ErrForbidden
		}
		now := l.now()
		byAdmin := in.Actor.IsAdmin() && b.ManagedBy(domaincars.OwnerID(in.Actor.ID))
		if err := l.Policy.Check(b, byAdmin, now); err != nil {
			return err
		}
		wasPaid := b.PaymentStatus == domainbooking.PaymentPaid
		if err := b.Cancel(in.Actor.ID, strings.TrimSpace(in.Reason), now); err != nil {
			return err
		}
		if err := l.save(ctx, unit, b); err != nil {
			return err
		}
		if wasPaid {
			// refund what was captured, not the current price: a modify reprices without settling
			txs, err := unit.Transactions().ListByBooking(ctx, string(b.ID))
			if err != nil {
				return err
			}
			held, err := domaintransaction.Captured(txs, b.Price.Total.Currency)
			if err != nil {
				return err
			}
			if held.IsNegative() {
				return domaintransaction.ErrNegativeAmount
			}
			if held.IsZero() {
				l.logger().Warn("paid booking has nothing captured", "booking_id", b.ID, "order_id", b.PaymentOrderID)
			}
			refund, err := domaintransaction.New(domaintransaction.NewParams{
				ID:        domaintransaction.ID(l.newID()),
				BookingID: string(b.ID),
				UserID:    b.UserID,
				Amount:    held,
				OrderRef:  b.PaymentOrderID,
				Status:    domaintransaction.StatusRefunded,
				Reason:    strings.TrimSpace(in.Reason),
				At:        now,
			})
			if err != nil {
				return err
			}
			if err := unit.Transactions().Insert(ctx, refund); err != nil {
				return err
			}
			if err := l.record(ctx, unit, []events.DomainEvent{domaintransaction.RecordedEvent(refund)}); err != nil {
				return err
			}
		}
		l.Notifier.Send(ctx, b.UserID, "Booking Cancelled", cancellationMessage(b, wasPaid), domainnotification.TypeBooking)
		uow.AfterCommit(ctx, func(context.Context) {
			l.logger().Info("booking cancelled", "booking_id", b.ID, "actor_id", in.Actor.ID, "refunded", wasPaid)
		})
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*domainbooking.Booking, error) {
	var b *domainbooking.Booking
	err := uow.Run(ctx, l.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		b, err = unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
		return err
	})
	return b, err
}

func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domainbooking.ErrUserRequired
	}
	var out []*domainbooking.Booking
	err := uow.Run(ctx, l.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Bookings().ListByUser(ctx, userID)
		return err
	})
	return out, err
}

// ListForAdmin returns bookings for cars listed by adminID.
func (l *Ledger) ListForAdmin(ctx context.Context, adminID string) ([]*domainbooking.Booking, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, domainbooking.ErrUserRequired
	}
	var out []*domainbooking.Booking
	err := uow.Run(ctx, l.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Bookings().ListByOwner(ctx, domaincars.OwnerID(adminID))
		return err
	})
	return out, err
}

// Save persists b in the unit from ctx and stages its pending events.
func (l *Ledger) Save(ctx context.Context, b *domainbooking.Booking) error {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return uow.ErrUnitOfWorkMissing
	}
	return l.save(ctx, unit, b)
}

func (l *Ledger) quote(ctx context.Context, unit uow.UnitOfWork, in QuoteInput) (Quote, error) {
	if strings.TrimSpace(in.CarID) == "" {
		return Quote{}, domainbooking.ErrCarRequired
	}
	car, err := unit.Cars().ByID(ctx, domaincars.CarID(in.CarID))
	if err != nil {
		return Quote{}, err
	}
	breakdown, err := l.Quoter.Quote(car, in.Interval, in.WithDriver, in.Discount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Car: car, Breakdown: breakdown}, nil
}

func (l *Ledger) save(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	return l.record(ctx, unit, b.Drain())
}

func (l *Ledger) record(ctx context.Context, unit uow.UnitOfWork, evs []events.DomainEvent) error {
	return outbox.RecordDomainEvents(ctx, unit.Outbox(), l.Encoder, evs)
}

// canManage reports whether actor is the renter or the admin listing the car.
func canManage(actor domainuser.Principal, b *domainbooking.Booking) bool {
	if b.OwnedBy(actor.ID) {
		return true
	}
	return actor.IsAdmin() && b.ManagedBy(domaincars.OwnerID(actor.ID))
}

func cancellationMessage(b *domainbooking.Booking, refunded bool) string {
	msg := "Your booking " + string(b.ID) + " has been cancelled."
	if refunded {
		msg += " A refund of " + b.Price.Total.String() + " has been recorded."
	}
	return msg
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *Ledger) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

func (l *Ledger) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
