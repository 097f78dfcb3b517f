package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	bookingapp "carrental/internal/app/handlers/booking"
	"carrental/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type previewBookingRequest struct {
	CarID      string    `json:"car_id"`
	PickupAt   time.Time `json:"pickup_at"`
	ReturnAt   time.Time `json:"return_at"`
	WithDriver bool      `json:"with_driver"`
	Discount   int64     `json:"discount"`
}

type createBookingRequest struct {
	CarID          string    `json:"car_id"`
	PickupAt       time.Time `json:"pickup_at"`
	ReturnAt       time.Time `json:"return_at"`
	WithDriver     bool      `json:"with_driver"`
	Discount       int64     `json:"discount"`
	CouponCode     string    `json:"coupon_code"`
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
}

type modifyBookingRequest struct {
	PickupAt       time.Time `json:"pickup_at"`
	ReturnAt       time.Time `json:"return_at"`
	WithDriver     *bool     `json:"with_driver"`
	Discount       *int64    `json:"discount"`
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Preview(c *gin.Context) {
	var req previewBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	query := bookingapp.PreviewBookingQuery{
		CarID:      req.CarID,
		PickupAt:   req.PickupAt,
		ReturnAt:   req.ReturnAt,
		WithDriver: req.WithDriver,
		Discount:   req.Discount,
	}
	result, err := queries.Ask[bookingapp.PreviewBookingQuery, dto.BookingPreview](c.Request.Context(), h.Queries, query)
	if err != nil {
		logFailure(h.Logger, "booking preview failed", err, "car_id", req.CarID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		Actor:           user,
		CarID:           req.CarID,
		PickupAt:        req.PickupAt,
		ReturnAt:        req.ReturnAt,
		WithDriver:      req.WithDriver,
		Discount:        req.Discount,
		CouponCode:      req.CouponCode,
		PickupLocation:  req.PickupLocation,
		ReturnLocation:  req.ReturnLocation,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		logFailure(h.Logger, "booking create failed", err, "user_id", user.ID, "car_id", req.CarID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	query := bookingapp.GetBookingQuery{Viewer: user, BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		logFailure(h.Logger, "booking detail failed", err, "user_id", user.ID, "booking_id", query.BookingID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Modify(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req modifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.ModifyBookingCommand{
		Actor:          user,
		BookingID:      c.Param("id"),
		PickupAt:       req.PickupAt,
		ReturnAt:       req.ReturnAt,
		WithDriver:     req.WithDriver,
		Discount:       req.Discount,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
	}
	result, err := commands.Dispatch[bookingapp.ModifyBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		logFailure(h.Logger, "booking modify failed", err, "user_id", user.ID, "booking_id", cmd.BookingID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{Actor: user, BookingID: c.Param("id"), Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		logFailure(h.Logger, "booking cancel failed", err, "user_id", user.ID, "booking_id", cmd.BookingID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	result, err := queries.Ask[bookingapp.ListUserBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListUserBookingsQuery{Viewer: user})
	if err != nil {
		logFailure(h.Logger, "user bookings query failed", err, "user_id", user.ID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListAdmin(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	result, err := queries.Ask[bookingapp.ListAdminBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListAdminBookingsQuery{Viewer: user})
	if err != nil {
		logFailure(h.Logger, "admin bookings query failed", err, "user_id", user.ID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
