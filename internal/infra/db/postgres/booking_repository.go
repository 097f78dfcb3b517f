package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	"carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/money"
)

const bookingColumns = `id, user_id, car_id, car_owner_id, pickup_at, return_at, with_driver, currency,
	hours, hourly_rate, base_cost, driver_fee, requested_discount, discount, tax, total,
	coupon_code, pickup_location, return_location, state, payment_status, payment_order_id,
	created_at, updated_at, version`

type BookingRepository struct {
	q        querier
	lock     bool
	readOnly bool
}

// ByID locks the row with FOR UPDATE inside write units so concurrent writers queue.
func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if r.lock {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(r.q.QueryRow(ctx, query, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainbooking.ErrBookingNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

// Save is one conditional upsert: the update only applies while the stored version matches.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if r.readOnly {
		return ErrReadOnlyUnit
	}
	p := b.Price
	next := b.Version + 1
	var stored int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (id) DO UPDATE SET
			pickup_at = EXCLUDED.pickup_at,
			return_at = EXCLUDED.return_at,
			with_driver = EXCLUDED.with_driver,
			currency = EXCLUDED.currency,
			hours = EXCLUDED.hours,
			hourly_rate = EXCLUDED.hourly_rate,
			base_cost = EXCLUDED.base_cost,
			driver_fee = EXCLUDED.driver_fee,
			requested_discount = EXCLUDED.requested_discount,
			discount = EXCLUDED.discount,
			tax = EXCLUDED.tax,
			total = EXCLUDED.total,
			coupon_code = EXCLUDED.coupon_code,
			pickup_location = EXCLUDED.pickup_location,
			return_location = EXCLUDED.return_location,
			state = EXCLUDED.state,
			payment_status = EXCLUDED.payment_status,
			payment_order_id = EXCLUDED.payment_order_id,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
		WHERE bookings.version = $26
		RETURNING version`,
		string(b.ID), b.UserID, string(b.CarID), string(b.CarOwnerID),
		b.Interval.Pickup.UTC(), b.Interval.Return.UTC(), b.WithDriver, p.Total.Currency,
		p.Hours, p.HourlyRate.Amount, p.BaseCost.Amount, p.DriverFee.Amount,
		p.RequestedDiscount.Amount, p.Discount.Amount, p.Tax.Amount, p.Total.Amount,
		b.CouponCode, b.PickupLocation, b.ReturnLocation,
		string(b.State), string(b.PaymentStatus), b.PaymentOrderID,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(), next, b.Version,
	).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainbooking.ErrConcurrentUpdate
	}
	if err != nil {
		return translate(err)
	}
	b.Version = stored
	return nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY pickup_at DESC`, userID)
}

func (r *BookingRepository) ListByOwner(ctx context.Context, owner domaincars.OwnerID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE car_owner_id = $1 ORDER BY created_at DESC`, string(owner))
}

func (r *BookingRepository) list(ctx context.Context, query string, arg string) ([]*domainbooking.Booking, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*domainbooking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, b)
	}
	return out, translate(rows.Err())
}

func scanBooking(row pgx.Row) (*domainbooking.Booking, error) {
	var (
		b                                                          domainbooking.Booking
		id, carID, ownerID, currency, state, paymentStatus         string
		hours, rate, base, driver, requested, discount, tax, total int64
	)
	err := row.Scan(&id, &b.UserID, &carID, &ownerID, &b.Interval.Pickup, &b.Interval.Return, &b.WithDriver, &currency,
		&hours, &rate, &base, &driver, &requested, &discount, &tax, &total,
		&b.CouponCode, &b.PickupLocation, &b.ReturnLocation, &state, &paymentStatus, &b.PaymentOrderID,
		&b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	m := func(v int64) money.Money { return money.Money{Amount: v, Currency: currency} }
	b.ID = domainbooking.BookingID(id)
	b.CarID = domaincars.CarID(carID)
	b.CarOwnerID = domaincars.OwnerID(ownerID)
	b.State = domainbooking.State(state)
	b.PaymentStatus = domainbooking.PaymentStatus(paymentStatus)
	b.Interval.Pickup = b.Interval.Pickup.UTC()
	b.Interval.Return = b.Interval.Return.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	b.Price = pricing.Breakdown{
		Hours:             hours,
		HourlyRate:        m(rate),
		BaseCost:          m(base),
		DriverFee:         m(driver),
		RequestedDiscount: m(requested),
		Discount:          m(discount),
		Tax:               m(tax),
		Total:             m(total),
	}
	return &b, nil
}
