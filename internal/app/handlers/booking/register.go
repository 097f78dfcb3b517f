package booking

import (
	"time"

	"carrental/internal/app/bookingquery"
	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/ledger"
	"carrental/internal/app/policies"
	"carrental/internal/app/queries"
)

type Deps struct {
	Ledger  *ledger.Ledger
	Service *bookingquery.Service
	Images  policies.ImageResolver
	Now     func() time.Time
}

// Register binds the booking handlers to the buses.
func Register(cmds *commands.Registry, qs *queries.Registry, d Deps) {
	commands.Register[CreateBookingCommand, *dto.Booking](cmds, createBookingKey, &CreateBookingHandler{Ledger: d.Ledger, Now: d.Now})
	commands.Register[ModifyBookingCommand, *dto.Booking](cmds, modifyBookingKey, &ModifyBookingHandler{Ledger: d.Ledger, Now: d.Now})
	commands.Register[CancelBookingCommand, *dto.Booking](cmds, cancelBookingKey, &CancelBookingHandler{Ledger: d.Ledger, Now: d.Now})

	queries.Register[PreviewBookingQuery, dto.BookingPreview](qs, previewBookingKey, &PreviewBookingHandler{Ledger: d.Ledger, Images: d.Images})
	queries.Register[GetBookingQuery, dto.BookingDetail](qs, getBookingKey, &GetBookingHandler{Service: d.Service})
	queries.Register[ListUserBookingsQuery, dto.BookingCollection](qs, listUserBookingsKey, &ListUserBookingsHandler{Service: d.Service})
	queries.Register[ListAdminBookingsQuery, dto.BookingCollection](qs, listAdminBookingsKey, &ListAdminBookingsHandler{Service: d.Service})
}
