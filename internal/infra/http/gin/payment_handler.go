package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	paymentsapp "carrental/internal/app/handlers/payments"
)

type PaymentHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type bookingDraftRequest struct {
	BookingID      string    `json:"booking_id"`
	CarID          string    `json:"car_id"`
	PickupAt       time.Time `json:"pickup_at"`
	ReturnAt       time.Time `json:"return_at"`
	WithDriver     bool      `json:"with_driver"`
	Discount       int64     `json:"discount"`
	CouponCode     string    `json:"coupon_code"`
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
	TotalAmount    *int64    `json:"total_amount"`
}

type verifyPaymentRequest struct {
	OrderID   string              `json:"order_id"`
	PaymentID string              `json:"payment_id"`
	Signature string              `json:"signature"`
	Booking   bookingDraftRequest `json:"booking"`
}

type paymentFailureRequest struct {
	BookingID string `json:"booking_id"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	Reason    string `json:"reason"`
}

func (h PaymentHandler) Verify(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := paymentsapp.ConfirmPaymentCommand{
		Actor:     user,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Draft: paymentsapp.BookingDraft{
			BookingID:      req.Booking.BookingID,
			CarID:          req.Booking.CarID,
			PickupAt:       req.Booking.PickupAt,
			ReturnAt:       req.Booking.ReturnAt,
			WithDriver:     req.Booking.WithDriver,
			Discount:       req.Booking.Discount,
			CouponCode:     req.Booking.CouponCode,
			PickupLocation: req.Booking.PickupLocation,
			ReturnLocation: req.Booking.ReturnLocation,
			QuotedTotal:    req.Booking.TotalAmount,
		},
	}
	result, err := commands.Dispatch[paymentsapp.ConfirmPaymentCommand, *dto.PaymentOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		logFailure(h.Logger, "payment verification failed", err, "user_id", user.ID, "order_id", req.OrderID, "payment_id", req.PaymentID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) Failure(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req paymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := paymentsapp.ReportFailureCommand{
		Actor:     user,
		BookingID: req.BookingID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[paymentsapp.ReportFailureCommand, *dto.PaymentOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		logFailure(h.Logger, "payment failure report rejected", err, "user_id", user.ID, "booking_id", req.BookingID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PaymentHTTP = PaymentHandler{}
