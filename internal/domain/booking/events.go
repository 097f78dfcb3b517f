package booking

import (
	"time"

	"carrental/internal/domain/cars"
	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
)

type BookingCreated struct {
	BookingID BookingID               `json:"booking_id"`
	UserID    string                  `json:"user_id"`
	CarID     cars.CarID              `json:"car_id"`
	Interval  interval.RentalInterval `json:"interval"`
	Total     money.Money             `json:"total"`
	At        time.Time               `json:"occurred_at"`
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID   `json:"booking_id"`
	UserID    string      `json:"user_id"`
	CarID     cars.CarID  `json:"car_id"`
	OrderID   string      `json:"order_id"`
	Total     money.Money `json:"total"`
	At        time.Time   `json:"occurred_at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type PaymentFailedRecorded struct {
	BookingID BookingID `json:"booking_id"`
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"occurred_at"`
}

func (e PaymentFailedRecorded) EventName() string     { return "booking.payment_failed" }
func (e PaymentFailedRecorded) AggregateID() string   { return string(e.BookingID) }
func (e PaymentFailedRecorded) OccurredAt() time.Time { return e.At }

type BookingModified struct {
	BookingID     BookingID               `json:"booking_id"`
	Interval      interval.RentalInterval `json:"interval"`
	PreviousTotal money.Money             `json:"previous_total"`
	Total         money.Money             `json:"total"`
	At            time.Time               `json:"occurred_at"`
}

func (e BookingModified) EventName() string     { return "booking.modified" }
func (e BookingModified) AggregateID() string   { return string(e.BookingID) }
func (e BookingModified) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID `json:"booking_id"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id"`
	Reason    string    `json:"reason"`
	Refunded  bool      `json:"refunded"`
	At        time.Time `json:"occurred_at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

func (e BookingCreated) UserRef() string   { return e.UserID }
func (e BookingConfirmed) UserRef() string { return e.UserID }
func (e BookingCancelled) UserRef() string { return e.UserID }
