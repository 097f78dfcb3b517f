package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"carrental/internal/app/apperr"
	"carrental/internal/app/ledger"
	"carrental/internal/app/notify"
	"carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domainnotification "carrental/internal/domain/notification"
	"carrental/internal/domain/shared/events"
	"carrental/internal/domain/shared/interval"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
)

// Draft carries the booking terms the client priced before paying. When BookingID names an
// existing pending booking it is confirmed instead of creating a new one.
type Draft struct {
	BookingID      string
	CarID          string
	Interval       interval.RentalInterval
	WithDriver     bool
	Discount       int64
	CouponCode     string
	PickupLocation string
	ReturnLocation string
	// QuotedTotal is what the client was shown. The booking is always priced server-side.
	QuotedTotal *int64
}

type ConfirmInput struct {
	Actor     domainuser.Principal
	OrderID   string
	PaymentID string
	Signature string
	Draft     Draft
}

type ConfirmResult struct {
	Booking     *domainbooking.Booking
	Transaction *domaintransaction.Transaction
}

type FailureInput struct {
	Actor     domainuser.Principal
	BookingID string
	OrderID   string
	PaymentID string
	Signature string
	Reason    string
}

type FailureResult struct {
	Booking     *domainbooking.Booking
	Transaction *domaintransaction.Transaction
}

// Reconciler turns verified gateway payments into confirmed bookings.
type Reconciler struct {
	Signer   Signer
	Factory  uow.UoWFactory
	Ledger   *ledger.Ledger
	Encoder  outbox.EventEncoder
	Notifier *notify.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

// VerifyAndConfirm checks the signature before touching the store, then creates or loads the
// booking, confirms it and records the paid transaction in one unit of work.
func (r *Reconciler) VerifyAndConfirm(ctx context.Context, in ConfirmInput) (ConfirmResult, error) {
	if err := r.Signer.Verify(in.OrderID, in.PaymentID, in.Signature); err != nil {
		r.logger().Warn("payment signature rejected", "order_id", in.OrderID, "payment_id", in.PaymentID, "user_id", in.Actor.ID)
		return ConfirmResult{}, err
	}

	var result ConfirmResult
	err := uow.Run(ctx, r.Factory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		now := r.now()
		b, err := r.resolveBooking(ctx, unit, in, now)
		if err != nil {
			return err
		}
		if in.Draft.QuotedTotal != nil && *in.Draft.QuotedTotal != b.Price.Total.Amount {
			r.logger().Warn("quoted total drifted from booking price",
				"booking_id", b.ID, "order_id", in.OrderID, "quoted", *in.Draft.QuotedTotal, "priced", b.Price.Total.Amount)
		}
		if err := b.Confirm(in.OrderID, now); err != nil {
			return err
		}
		if err := r.Ledger.Save(ctx, b); err != nil {
			return err
		}
		tx, err := r.insertTransaction(ctx, unit, domaintransaction.NewParams{
			BookingID:  string(b.ID),
			UserID:     b.UserID,
			Amount:     b.Price.Total,
			PaymentRef: in.PaymentID,
			OrderRef:   in.OrderID,
			Status:     domaintransaction.StatusPaid,
			At:         now,
		})
		if err != nil {
			return err
		}
		r.Notifier.Send(ctx, b.UserID, "Payment Confirmed",
			"Your payment of "+b.Price.Total.String()+" for booking "+string(b.ID)+" was successful.",
			domainnotification.TypePayment)
		result = ConfirmResult{Booking: b, Transaction: tx}
		return nil
	})
	if err != nil {
		var integrity *apperr.IntegrityError
		if errors.As(err, &integrity) {
			r.logger().Error("payment captured without booking",
				"order_id", in.OrderID, "payment_id", in.PaymentID, "user_id", in.Actor.ID, "car_id", in.Draft.CarID, "error", integrity.Err)
		}
		return ConfirmResult{}, err
	}
	r.logger().Info("payment confirmed", "booking_id", result.Booking.ID, "transaction_id", result.Transaction.ID, "order_id", in.OrderID)
	return result, nil
}

// ReportFailure records a failed gateway attempt against an existing booking.
func (r *Reconciler) ReportFailure(ctx context.Context, in FailureInput) (FailureResult, error) {
	if err := r.Signer.Verify(in.OrderID, in.PaymentID, in.Signature); err != nil {
		r.logger().Warn("payment failure signature rejected", "order_id", in.OrderID, "payment_id", in.PaymentID)
		return FailureResult{}, err
	}
	if strings.TrimSpace(in.BookingID) == "" {
		return FailureResult{}, apperr.Validation("booking_id", "booking id is required")
	}

	var result FailureResult
	err := uow.Run(ctx, r.Factory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(in.BookingID))
		if err != nil {
			return err
		}
		if !b.OwnedBy(in.Actor.ID) {
			return apperr.ErrForbidden
		}
		now := r.now()
		reason := strings.TrimSpace(in.Reason)
		if err := b.MarkPaymentFailed(in.OrderID, reason, now); err != nil {
			return err
		}
		if err := r.Ledger.Save(ctx, b); err != nil {
			return err
		}
		tx, err := r.insertTransaction(ctx, unit, domaintransaction.NewParams{
			BookingID:  string(b.ID),
			UserID:     b.UserID,
			Amount:     b.Price.Total,
			PaymentRef: in.PaymentID,
			OrderRef:   in.OrderID,
			Status:     domaintransaction.StatusFailed,
			Reason:     reason,
			At:         now,
		})
		if err != nil {
			return err
		}
		r.Notifier.Send(ctx, b.UserID, "Payment Failed",
			"Your payment for booking "+string(b.ID)+" did not go through. You can retry from your bookings.",
			domainnotification.TypePayment)
		result = FailureResult{Booking: b, Transaction: tx}
		return nil
	})
	if err != nil {
		return FailureResult{}, err
	}
	r.logger().Info("payment failure recorded", "booking_id", result.Booking.ID, "order_id", in.OrderID)
	return result, nil
}

func (r *Reconciler) resolveBooking(ctx context.Context, unit uow.UnitOfWork, in ConfirmInput, now time.Time) (*domainbooking.Booking, error) {
	if id := strings.TrimSpace(in.Draft.BookingID); id != "" {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
		if err != nil {
			return nil, err
		}
		if !b.OwnedBy(in.Actor.ID) {
			return nil, apperr.ErrForbidden
		}
		if b.State == domainbooking.StatePaymentFailed {
			if err := b.RetryPayment(now); err != nil {
				return nil, err
			}
		}
		return b, nil
	}
	b, err := r.Ledger.Create(ctx, ledger.CreateInput{
		Actor:          in.Actor,
		CarID:          in.Draft.CarID,
		Interval:       in.Draft.Interval,
		WithDriver:     in.Draft.WithDriver,
		Discount:       in.Draft.Discount,
		CouponCode:     in.Draft.CouponCode,
		PickupLocation: in.Draft.PickupLocation,
		ReturnLocation: in.Draft.ReturnLocation,
	})
	if err != nil {
		return nil, &apperr.IntegrityError{OrderID: in.OrderID, PaymentID: in.PaymentID, Err: err}
	}
	return b, nil
}

func (r *Reconciler) insertTransaction(ctx context.Context, unit uow.UnitOfWork, params domaintransaction.NewParams) (*domaintransaction.Transaction, error) {
	params.ID = domaintransaction.ID(r.newID())
	params.Method = domaintransaction.MethodRazorpay
	tx, err := domaintransaction.New(params)
	if err != nil {
		return nil, err
	}
	if err := unit.Transactions().Insert(ctx, tx); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), r.Encoder, []events.DomainEvent{domaintransaction.RecordedEvent(tx)}); err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Reconciler) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
