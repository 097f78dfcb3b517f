package booking

import (
	"context"
	"strings"
	"time"

	"carrental/internal/app/apperr"
	"carrental/internal/app/bookingquery"
	"carrental/internal/app/dto"
	"carrental/internal/app/ledger"
	"carrental/internal/app/policies"
	"carrental/internal/app/queries"
	"carrental/internal/domain/shared/interval"
	domainuser "carrental/internal/domain/user"
)

const (
	previewBookingKey    = "booking.preview"
	getBookingKey        = "booking.get"
	listUserBookingsKey  = "booking.list_user"
	listAdminBookingsKey = "booking.list_admin"
)

type PreviewBookingQuery struct {
	CarID      string    `validate:"required,max=64"`
	PickupAt   time.Time `validate:"required"`
	ReturnAt   time.Time `validate:"required,gtfield=PickupAt"`
	WithDriver bool
	Discount   int64 `validate:"gte=0"`
}

func (q PreviewBookingQuery) Key() string { return previewBookingKey }

type GetBookingQuery struct {
	Viewer    domainuser.Principal
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type ListUserBookingsQuery struct {
	Viewer domainuser.Principal
}

func (q ListUserBookingsQuery) Key() string { return listUserBookingsKey }

type ListAdminBookingsQuery struct {
	Viewer domainuser.Principal
}

func (q ListAdminBookingsQuery) Key() string { return listAdminBookingsKey }

// PreviewBookingHandler quotes through the same ledger path Create uses.
type PreviewBookingHandler struct {
	Ledger *ledger.Ledger
	Images policies.ImageResolver
}

func (h *PreviewBookingHandler) Handle(ctx context.Context, q PreviewBookingQuery) (dto.BookingPreview, error) {
	ri, err := interval.New(q.PickupAt, q.ReturnAt)
	if err != nil {
		return dto.BookingPreview{}, err
	}
	quote, err := h.Ledger.Preview(ctx, ledger.QuoteInput{
		CarID:      strings.TrimSpace(q.CarID),
		Interval:   ri,
		WithDriver: q.WithDriver,
		Discount:   q.Discount,
	})
	if err != nil {
		return dto.BookingPreview{}, err
	}
	var image *string
	if h.Images != nil && quote.Car.FrontImage != "" {
		if url, err := h.Images.ImageURL(ctx, quote.Car.FrontImage); err == nil && url != "" {
			image = &url
		}
	}
	return dto.BookingPreview{
		Car:        dto.MapPreviewCar(quote.Car, quote.Breakdown.HourlyRate, image),
		PickupAt:   ri.Pickup,
		ReturnAt:   ri.Return,
		WithDriver: q.WithDriver,
		Price:      dto.MapPriceBreakdown(quote.Breakdown),
	}, nil
}

type GetBookingHandler struct {
	Service *bookingquery.Service
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingDetail, error) {
	return h.Service.Detail(ctx, q.BookingID, q.Viewer)
}

type ListUserBookingsHandler struct {
	Service *bookingquery.Service
}

func (h *ListUserBookingsHandler) Handle(ctx context.Context, q ListUserBookingsQuery) (dto.BookingCollection, error) {
	return h.Service.ListForUser(ctx, q.Viewer.ID)
}

type ListAdminBookingsHandler struct {
	Service *bookingquery.Service
}

func (h *ListAdminBookingsHandler) Handle(ctx context.Context, q ListAdminBookingsQuery) (dto.BookingCollection, error) {
	if !q.Viewer.IsAdmin() {
		return dto.BookingCollection{}, apperr.ErrForbidden
	}
	return h.Service.ListForAdmin(ctx, q.Viewer.ID)
}

var (
	_ queries.Handler[PreviewBookingQuery, dto.BookingPreview]       = (*PreviewBookingHandler)(nil)
	_ queries.Handler[GetBookingQuery, dto.BookingDetail]            = (*GetBookingHandler)(nil)
	_ queries.Handler[ListUserBookingsQuery, dto.BookingCollection]  = (*ListUserBookingsHandler)(nil)
	_ queries.Handler[ListAdminBookingsQuery, dto.BookingCollection] = (*ListAdminBookingsHandler)(nil)
)
