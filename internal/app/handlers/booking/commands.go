package booking

import (
	"context"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/ledger"
	"carrental/internal/app/middleware"
	"carrental/internal/domain/shared/interval"
	domainuser "carrental/internal/domain/user"
)

const (
	createBookingKey = "booking.create"
	modifyBookingKey = "booking.modify"
	cancelBookingKey = "booking.cancel"
)

type CreateBookingCommand struct {
	Actor           domainuser.Principal
	CarID           string    `validate:"required,max=64"`
	PickupAt        time.Time `validate:"required"`
	ReturnAt        time.Time `validate:"required,gtfield=PickupAt"`
	WithDriver      bool
	Discount        int64  `validate:"gte=0"`
	CouponCode      string `validate:"max=64"`
	PickupLocation  string `validate:"max=255"`
	ReturnLocation  string `validate:"max=255"`
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return scopedKey(c.Actor, c.IdempotencyKeyV) }

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

type ModifyBookingCommand struct {
	Actor          domainuser.Principal
	BookingID      string    `validate:"required"`
	PickupAt       time.Time `validate:"required"`
	ReturnAt       time.Time `validate:"required,gtfield=PickupAt"`
	WithDriver     *bool
	Discount       *int64 `validate:"omitempty,gte=0"`
	PickupLocation string `validate:"max=255"`
	ReturnLocation string `validate:"max=255"`
}

func (c ModifyBookingCommand) Key() string { return modifyBookingKey }

type CancelBookingCommand struct {
	Actor     domainuser.Principal
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CreateBookingHandler struct {
	Ledger *ledger.Ledger
	Now    func() time.Time
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	ri, err := interval.New(cmd.PickupAt, cmd.ReturnAt)
	if err != nil {
		return nil, err
	}
	b, err := h.Ledger.Create(ctx, ledger.CreateInput{
		Actor:          cmd.Actor,
		CarID:          cmd.CarID,
		Interval:       ri,
		WithDriver:     cmd.WithDriver,
		Discount:       cmd.Discount,
		CouponCode:     cmd.CouponCode,
		PickupLocation: cmd.PickupLocation,
		ReturnLocation: cmd.ReturnLocation,
	})
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b, clock(h.Now))
	return &view, nil
}

type ModifyBookingHandler struct {
	Ledger *ledger.Ledger
	Now    func() time.Time
}

func (h *ModifyBookingHandler) Handle(ctx context.Context, cmd ModifyBookingCommand) (*dto.Booking, error) {
	ri, err := interval.New(cmd.PickupAt, cmd.ReturnAt)
	if err != nil {
		return nil, err
	}
	b, err := h.Ledger.Modify(ctx, ledger.ModifyInput{
		BookingID:      cmd.BookingID,
		Actor:          cmd.Actor,
		Interval:       ri,
		WithDriver:     cmd.WithDriver,
		Discount:       cmd.Discount,
		PickupLocation: cmd.PickupLocation,
		ReturnLocation: cmd.ReturnLocation,
	})
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b, clock(h.Now))
	return &view, nil
}

type CancelBookingHandler struct {
	Ledger *ledger.Ledger
	Now    func() time.Time
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	b, err := h.Ledger.Cancel(ctx, ledger.CancelInput{
		BookingID: cmd.BookingID,
		Actor:     cmd.Actor,
		Reason:    cmd.Reason,
	})
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b, clock(h.Now))
	return &view, nil
}

// scopedKey keeps one user's idempotency keys from colliding with another's.
func scopedKey(actor domainuser.Principal, key string) string {
	if key == "" {
		return ""
	}
	return actor.ID + ":" + key
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}

var (
	_ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
	_ commands.Handler[ModifyBookingCommand, *dto.Booking] = (*ModifyBookingHandler)(nil)
	_ commands.Handler[CancelBookingCommand, *dto.Booking] = (*CancelBookingHandler)(nil)
	_ middleware.IdempotentCommand                         = CreateBookingCommand{}
)
