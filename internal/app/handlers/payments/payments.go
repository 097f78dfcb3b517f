package payments

import (
	"context"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/middleware"
	apppayments "carrental/internal/app/payments"
	"carrental/internal/domain/shared/interval"
	domainuser "carrental/internal/domain/user"
)

const (
	confirmPaymentKey = "payment.confirm"
	reportFailureKey  = "payment.report_failure"
)

type BookingDraft struct {
	BookingID      string
	CarID          string `validate:"required_without=BookingID"`
	PickupAt       time.Time
	ReturnAt       time.Time
	WithDriver     bool
	Discount       int64  `validate:"gte=0"`
	CouponCode     string `validate:"max=64"`
	PickupLocation string `validate:"max=255"`
	ReturnLocation string `validate:"max=255"`
	QuotedTotal    *int64
}

type ConfirmPaymentCommand struct {
	Actor     domainuser.Principal
	OrderID   string `validate:"required"`
	PaymentID string `validate:"required"`
	Signature string `validate:"required,hexadecimal"`
	Draft     BookingDraft
}

func (c ConfirmPaymentCommand) Key() string { return confirmPaymentKey }

// IdempotencyKey derives from the gateway payment id, so a retried confirmation replays the first result.
func (c ConfirmPaymentCommand) IdempotencyKey() string {
	if c.PaymentID == "" {
		return ""
	}
	return "payment:" + c.Actor.ID + ":" + c.PaymentID
}

func (c ConfirmPaymentCommand) ResultPrototype() any { return &dto.PaymentOutcome{} }

func (c ConfirmPaymentCommand) PaymentAssertion() (string, string, string) {
	return c.OrderID, c.PaymentID, c.Signature
}

type ReportFailureCommand struct {
	Actor     domainuser.Principal
	BookingID string `validate:"required"`
	OrderID   string `validate:"required"`
	PaymentID string `validate:"required"`
	Signature string `validate:"required,hexadecimal"`
	Reason    string `validate:"max=500"`
}

func (c ReportFailureCommand) Key() string { return reportFailureKey }

func (c ReportFailureCommand) PaymentAssertion() (string, string, string) {
	return c.OrderID, c.PaymentID, c.Signature
}

type ConfirmPaymentHandler struct {
	Reconciler *apppayments.Reconciler
	Now        func() time.Time
}

func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*dto.PaymentOutcome, error) {
	draft := apppayments.Draft{
		BookingID:      cmd.Draft.BookingID,
		CarID:          cmd.Draft.CarID,
		WithDriver:     cmd.Draft.WithDriver,
		Discount:       cmd.Draft.Discount,
		CouponCode:     cmd.Draft.CouponCode,
		PickupLocation: cmd.Draft.PickupLocation,
		ReturnLocation: cmd.Draft.ReturnLocation,
		QuotedTotal:    cmd.Draft.QuotedTotal,
	}
	if draft.BookingID == "" {
		ri, err := interval.New(cmd.Draft.PickupAt, cmd.Draft.ReturnAt)
		if err != nil {
			return nil, err
		}
		draft.Interval = ri
	}
	res, err := h.Reconciler.VerifyAndConfirm(ctx, apppayments.ConfirmInput{
		Actor:     cmd.Actor,
		OrderID:   cmd.OrderID,
		PaymentID: cmd.PaymentID,
		Signature: cmd.Signature,
		Draft:     draft,
	})
	if err != nil {
		return nil, err
	}
	return &dto.PaymentOutcome{
		Booking:     dto.MapBooking(res.Booking, now(h.Now)),
		Transaction: dto.MapTransaction(res.Transaction),
	}, nil
}

type ReportFailureHandler struct {
	Reconciler *apppayments.Reconciler
	Now        func() time.Time
}

func (h *ReportFailureHandler) Handle(ctx context.Context, cmd ReportFailureCommand) (*dto.PaymentOutcome, error) {
	res, err := h.Reconciler.ReportFailure(ctx, apppayments.FailureInput{
		Actor:     cmd.Actor,
		BookingID: cmd.BookingID,
		OrderID:   cmd.OrderID,
		PaymentID: cmd.PaymentID,
		Signature: cmd.Signature,
		Reason:    cmd.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &dto.PaymentOutcome{
		Booking:     dto.MapBooking(res.Booking, now(h.Now)),
		Transaction: dto.MapTransaction(res.Transaction),
	}, nil
}

func Register(cmds *commands.Registry, reconciler *apppayments.Reconciler, clock func() time.Time) {
	commands.Register[ConfirmPaymentCommand, *dto.PaymentOutcome](cmds, confirmPaymentKey, &ConfirmPaymentHandler{Reconciler: reconciler, Now: clock})
	commands.Register[ReportFailureCommand, *dto.PaymentOutcome](cmds, reportFailureKey, &ReportFailureHandler{Reconciler: reconciler, Now: clock})
}

func now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}

var (
	_ middleware.IdempotentCommand = ConfirmPaymentCommand{}
	_ apppayments.Signed           = ConfirmPaymentCommand{}
	_ apppayments.Signed           = ReportFailureCommand{}
)
