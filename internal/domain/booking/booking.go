package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"carrental/internal/domain/cars"
	"carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/events"
	"carrental/internal/domain/shared/interval"
)

var (
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrInvalidState      = errors.New("booking: invalid state transition")
	ErrAlreadyCancelled  = errors.New("booking: already cancelled")
	ErrConcurrentUpdate  = errors.New("booking: concurrent update detected")
	ErrUserRequired      = errors.New("booking: user id required")
	ErrCarRequired       = errors.New("booking: car id required")
	ErrPickupInPast      = errors.New("booking: pickup time is in the past")
	ErrNegativeTotal     = errors.New("booking: total cannot be negative")
	ErrPaymentRefMissing = errors.New("booking: payment reference required")
)

type BookingID string

type State string

const (
	StatePendingPayment State = "pending_payment"
	StatePaymentFailed  State = "payment_failed"
	StateConfirmed      State = "confirmed"
	StateCancelled      State = "cancelled"
	// StateCompleted is never stored; it is derived from a confirmed booking whose return time elapsed.
	StateCompleted State = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID             BookingID
	UserID         string
	CarID          cars.CarID
	CarOwnerID     cars.OwnerID
	Interval       interval.RentalInterval
	WithDriver     bool
	Price          pricing.Breakdown
	CouponCode     string
	PickupLocation string
	ReturnLocation string
	State          State
	PaymentStatus  PaymentStatus
	PaymentOrderID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Save persists the booking when its Version still matches the stored one and bumps it.
	Save(ctx context.Context, booking *Booking) error
	ListByUser(ctx context.Context, userID string) ([]*Booking, error)
	ListByOwner(ctx context.Context, owner cars.OwnerID) ([]*Booking, error)
}

type CreateParams struct {
	ID             BookingID
	UserID         string
	Car            *cars.Car
	Interval       interval.RentalInterval
	WithDriver     bool
	Price          pricing.Breakdown
	CouponCode     string
	PickupLocation string
	ReturnLocation string
	CreatedAt      time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.UserID) == "" {
		return nil, ErrUserRequired
	}
	if params.Car == nil || params.Car.ID == "" {
		return nil, ErrCarRequired
	}
	if err := params.Interval.Validate(); err != nil {
		return nil, err
	}
	if params.Price.Total.IsNegative() {
		return nil, ErrNegativeTotal
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:             params.ID,
		UserID:         params.UserID,
		CarID:          params.Car.ID,
		CarOwnerID:     params.Car.OwnerID,
		Interval:       params.Interval,
		WithDriver:     params.WithDriver,
		Price:          params.Price,
		CouponCode:     params.CouponCode,
		PickupLocation: params.PickupLocation,
		ReturnLocation: params.ReturnLocation,
		State:          StatePendingPayment,
		PaymentStatus:  PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	b.Record(BookingCreated{BookingID: b.ID, UserID: b.UserID, CarID: b.CarID, Interval: b.Interval, Total: b.Price.Total, At: now})
	return b, nil
}

// StatusAt reports the lifecycle state as observed at now, including the derived completed state.
func (b *Booking) StatusAt(now time.Time) State {
	if b.State == StateConfirmed && b.Interval.Elapsed(now) {
		return StateCompleted
	}
	return b.State
}

// OwnedBy reports whether userID made the booking.
func (b *Booking) OwnedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

// ManagedBy reports whether ownerID lists the booked car.
func (b *Booking) ManagedBy(owner cars.OwnerID) bool {
	return owner != "" && b.CarOwnerID == owner
}

// Confirm marks a pending booking as paid.
func (b *Booking) Confirm(orderID string, now time.Time) error {
	if b.State != StatePendingPayment {
		return ErrInvalidState
	}
	if strings.TrimSpace(orderID) == "" {
		return ErrPaymentRefMissing
	}
	b.State = StateConfirmed
	b.PaymentStatus = PaymentPaid
	b.PaymentOrderID = orderID
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, UserID: b.UserID, CarID: b.CarID, OrderID: orderID, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

// MarkPaymentFailed records an unsuccessful payment attempt.
func (b *Booking) MarkPaymentFailed(orderID, reason string, now time.Time) error {
	if b.State != StatePendingPayment && b.State != StatePaymentFailed {
		return ErrInvalidState
	}
	b.State = StatePaymentFailed
	b.PaymentStatus = PaymentFailed
	b.PaymentOrderID = orderID
	b.UpdatedAt = now.UTC()
	b.Record(PaymentFailedRecorded{BookingID: b.ID, OrderID: orderID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// RetryPayment moves a failed booking back to pending so it can be paid again.
func (b *Booking) RetryPayment(now time.Time) error {
	if b.State != StatePaymentFailed {
		return ErrInvalidState
	}
	b.State = StatePendingPayment
	b.PaymentStatus = PaymentPending
	b.UpdatedAt = now.UTC()
	return nil
}

type Changes struct {
	Interval       interval.RentalInterval
	WithDriver     bool
	Price          pricing.Breakdown
	PickupLocation string
	ReturnLocation string
}

// Modify replaces the rental terms. Cancelled and fully consumed bookings are immutable.
func (b *Booking) Modify(ch Changes, now time.Time) error {
	if b.State == StateCancelled || b.Interval.Elapsed(now) {
		return ErrInvalidState
	}
	if err := ch.Interval.Validate(); err != nil {
		return err
	}
	if ch.Price.Total.IsNegative() {
		return ErrNegativeTotal
	}
	previous := b.Price.Total
	b.Interval = ch.Interval
	b.WithDriver = ch.WithDriver
	b.Price = ch.Price
	if ch.PickupLocation != "" {
		b.PickupLocation = ch.PickupLocation
	}
	if ch.ReturnLocation != "" {
		b.ReturnLocation = ch.ReturnLocation
	}
	b.UpdatedAt = now.UTC()
	b.Record(BookingModified{BookingID: b.ID, Interval: b.Interval, PreviousTotal: previous, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

// Cancel is terminal. A second call fails with ErrAlreadyCancelled.
func (b *Booking) Cancel(actorID, reason string, now time.Time) error {
	switch b.StatusAt(now) {
	case StateCancelled:
		return ErrAlreadyCancelled
	case StateCompleted:
		return ErrInvalidState
	}
	refund := b.PaymentStatus == PaymentPaid
	b.State = StateCancelled
	if refund {
		b.PaymentStatus = PaymentRefunded
	}
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, UserID: b.UserID, ActorID: actorID, Reason: reason, Refunded: refund, At: b.UpdatedAt})
	return nil
}
