package bookingquery

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"carrental/internal/app/apperr"
	"carrental/internal/app/dto"
	"carrental/internal/app/policies"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainuser "carrental/internal/domain/user"
)

// Service builds read views. Optional joins (image, user profile) degrade to empty values;
// only a missing booking or car fails the request.
type Service struct {
	Factory uow.UoWFactory
	Images  policies.ImageResolver
	Logger  *slog.Logger
	Now     func() time.Time
}

func (s *Service) Detail(ctx context.Context, bookingID string, viewer domainuser.Principal) (dto.BookingDetail, error) {
	var detail dto.BookingDetail
	err := uow.Run(ctx, s.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
		if err != nil {
			return err
		}
		if !canView(viewer, b) {
			return apperr.ErrForbidden
		}
		car, err := unit.Cars().ByID(ctx, b.CarID)
		if err != nil {
			return err
		}
		detail = dto.BookingDetail{
			Booking: dto.MapBooking(b, s.now()),
			Car:     dto.MapBookingCar(b.CarID, car, s.imageURL(ctx, car)),
			User:    s.user(ctx, unit.Users(), b.UserID),
		}
		return nil
	})
	return detail, err
}

// ListForUser returns the renter's bookings, latest pickup first.
func (s *Service) ListForUser(ctx context.Context, userID string) (dto.BookingCollection, error) {
	if strings.TrimSpace(userID) == "" {
		return dto.BookingCollection{}, domainbooking.ErrUserRequired
	}
	return s.list(ctx, func(ctx context.Context, unit uow.UnitOfWork) ([]*domainbooking.Booking, error) {
		items, err := unit.Bookings().ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Interval.Pickup.After(items[j].Interval.Pickup)
		})
		return items, nil
	})
}

// ListForAdmin returns bookings of cars listed by adminID, newest first.
func (s *Service) ListForAdmin(ctx context.Context, adminID string) (dto.BookingCollection, error) {
	if strings.TrimSpace(adminID) == "" {
		return dto.BookingCollection{}, domainbooking.ErrUserRequired
	}
	return s.list(ctx, func(ctx context.Context, unit uow.UnitOfWork) ([]*domainbooking.Booking, error) {
		items, err := unit.Bookings().ListByOwner(ctx, domaincars.OwnerID(adminID))
		if err != nil {
			return nil, err
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
		return items, nil
	})
}

func (s *Service) list(ctx context.Context, load func(context.Context, uow.UnitOfWork) ([]*domainbooking.Booking, error)) (dto.BookingCollection, error) {
	var out dto.BookingCollection
	err := uow.Run(ctx, s.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		bookings, err := load(ctx, unit)
		if err != nil {
			return err
		}
		now := s.now()
		cache := make(map[domaincars.CarID]dto.BookingCar)
		out.Items = make([]dto.BookingSummary, 0, len(bookings))
		for _, b := range bookings {
			summary, ok := cache[b.CarID]
			if !ok {
				car, err := unit.Cars().ByID(ctx, b.CarID)
				if err != nil && !errors.Is(err, domaincars.ErrCarNotFound) {
					return err
				}
				if err != nil {
					s.logger().Warn("car missing for booking", "booking_id", b.ID, "car_id", b.CarID)
				}
				summary = dto.MapBookingCar(b.CarID, car, s.imageURL(ctx, car))
				cache[b.CarID] = summary
			}
			out.Items = append(out.Items, dto.MapBookingSummary(b, summary, now))
		}
		return nil
	})
	return out, err
}

func (s *Service) imageURL(ctx context.Context, car *domaincars.Car) *string {
	if car == nil || s.Images == nil || strings.TrimSpace(car.FrontImage) == "" {
		return nil
	}
	url, err := s.Images.ImageURL(ctx, car.FrontImage)
	if err != nil || url == "" {
		s.logger().Warn("car image unavailable", "car_id", car.ID, "file", car.FrontImage, "error", err)
		return nil
	}
	return &url
}

func (s *Service) user(ctx context.Context, users domainuser.Directory, userID string) dto.BookingUser {
	profile := domainuser.Profile{ID: domainuser.ID(userID)}
	if users != nil {
		found, err := users.ByID(ctx, domainuser.ID(userID))
		switch {
		case err == nil && found != nil:
			profile = *found
		case err != nil && !errors.Is(err, domainuser.ErrNotFound):
			s.logger().Warn("user profile unavailable", "user_id", userID, "error", err)
		}
	}
	return dto.BookingUser{ID: userID, DisplayName: profile.DisplayName()}
}

func canView(viewer domainuser.Principal, b *domainbooking.Booking) bool {
	if b.OwnedBy(viewer.ID) {
		return true
	}
	return viewer.IsAdmin() && b.ManagedBy(domaincars.OwnerID(viewer.ID))
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
