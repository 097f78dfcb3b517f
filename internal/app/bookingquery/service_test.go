package bookingquery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carrental/internal/app/apperr"
	"carrental/internal/app/bookingquery"
	"carrental/internal/app/dto"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
	domainuser "carrental/internal/domain/user"
	"carrental/internal/infra/storage/memory"
)

type imageFunc func(ctx context.Context, filename string) (string, error)

func (f imageFunc) ImageURL(ctx context.Context, filename string) (string, error) {
	return f(ctx, filename)
}

var (
	renter = domainuser.Principal{ID: "user-1", Role: domainuser.RoleUser}
	admin  = domainuser.Principal{ID: "admin-1", Role: domainuser.RoleAdmin}
	base   = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
)

func listedCar(id string) *domaincars.Car {
	return &domaincars.Car{
		ID:                 domaincars.CarID(id),
		OwnerID:            "admin-1",
		Make:               "Mahindra",
		Model:              "Thar",
		Color:              "red",
		RegistrationNumber: "MH12" + id,
		HourlyRate:         money.Must(500, "INR"),
		SecurityDeposit:    money.Must(500000, "INR"),
		FrontImage:         id + ".jpg",
		Transmission:       "manual",
	}
}

// seed stores a booking directly, so its car does not have to be in the catalog.
func seed(t *testing.T, store *memory.Store, id string, car *domaincars.Car, pickup time.Time, created time.Time) {
	t.Helper()
	ri, err := interval.New(pickup, pickup.Add(4*time.Hour))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		UserID:    renter.ID,
		Car:       car,
		Interval:  ri,
		CreatedAt: created,
	})
	require.NoError(t, err)
	err = uow.Run(context.Background(), memory.Factory{Store: store}, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Save(ctx, b)
	})
	require.NoError(t, err)
}

func newService(store *memory.Store, images imageFunc) *bookingquery.Service {
	svc := &bookingquery.Service{Factory: memory.Factory{Store: store}, Now: func() time.Time { return base }}
	if images != nil {
		svc.Images = images
	}
	return svc
}

func TestDetailJoinsCarImageAndUser(t *testing.T) {
	store := memory.NewStore()
	store.PutCar(listedCar("car-1"))
	store.PutUser(domainuser.Profile{ID: "user-1", Name: "Ravi Kumar"})
	seed(t, store, "bk-1", listedCar("car-1"), base.Add(24*time.Hour), base)

	svc := newService(store, func(_ context.Context, name string) (string, error) { return "https://cdn/" + name, nil })
	detail, err := svc.Detail(context.Background(), "bk-1", renter)
	require.NoError(t, err)
	require.Equal(t, "Mahindra Thar", detail.Car.Name)
	require.Equal(t, "red", detail.Car.Specs.Color)
	require.NotNil(t, detail.Car.ImageURL)
	require.Equal(t, "https://cdn/car-1.jpg", *detail.Car.ImageURL)
	require.Equal(t, int64(500000), detail.Car.SecurityDeposit.Amount)
	require.Equal(t, "Ravi Kumar", detail.User.DisplayName)

	detail, err = svc.Detail(context.Background(), "bk-1", admin)
	require.NoError(t, err)
	require.Equal(t, "bk-1", detail.ID)
}

func TestDetailDegradesOptionalJoins(t *testing.T) {
	store := memory.NewStore()
	store.PutCar(listedCar("car-1"))
	seed(t, store, "bk-1", listedCar("car-1"), base.Add(24*time.Hour), base)

	svc := newService(store, func(context.Context, string) (string, error) { return "", errors.New("bucket offline") })
	detail, err := svc.Detail(context.Background(), "bk-1", renter)
	require.NoError(t, err)
	require.Nil(t, detail.Car.ImageURL)
	require.Equal(t, "user user-1", detail.User.DisplayName)
}

func TestDetailFailures(t *testing.T) {
	store := memory.NewStore()
	store.PutCar(listedCar("car-1"))
	seed(t, store, "bk-1", listedCar("car-1"), base.Add(24*time.Hour), base)
	seed(t, store, "bk-2", listedCar("car-gone"), base.Add(24*time.Hour), base)
	svc := newService(store, nil)
	ctx := context.Background()

	_, err := svc.Detail(ctx, "missing", renter)
	require.ErrorIs(t, err, domainbooking.ErrBookingNotFound)

	_, err = svc.Detail(ctx, "bk-1", domainuser.Principal{ID: "user-2"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Detail(ctx, "bk-1", domainuser.Principal{ID: "admin-2", Role: domainuser.RoleAdmin})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Detail(ctx, "bk-2", renter)
	require.ErrorIs(t, err, domaincars.ErrCarNotFound)
}

func TestListsSortAndTolerateMissingCars(t *testing.T) {
	store := memory.NewStore()
	store.PutCar(listedCar("car-1"))
	seed(t, store, "early", listedCar("car-1"), base.Add(24*time.Hour), base.Add(2*time.Hour))
	seed(t, store, "late", listedCar("car-1"), base.Add(72*time.Hour), base)
	seed(t, store, "orphan", listedCar("car-gone"), base.Add(48*time.Hour), base.Add(time.Hour))
	svc := newService(store, nil)
	ctx := context.Background()

	mine, err := svc.ListForUser(ctx, renter.ID)
	require.NoError(t, err)
	require.Len(t, mine.Items, 3)
	require.Equal(t, []string{"late", "orphan", "early"}, ids(mine.Items))
	require.Empty(t, mine.Items[1].Car.Name)
	require.Equal(t, "car-gone", mine.Items[1].Car.ID)

	managed, err := svc.ListForAdmin(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"early", "orphan", "late"}, ids(managed.Items))
	require.Equal(t, int64(0), managed.Items[0].Total.Amount)

	_, err = svc.ListForUser(ctx, " ")
	require.ErrorIs(t, err, domainbooking.ErrUserRequired)
}

func ids(items []dto.BookingSummary) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
