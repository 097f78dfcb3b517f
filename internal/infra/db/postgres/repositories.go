package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	"carrental/internal/domain/shared/money"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
)

type TransactionRepository struct {
	q        querier
	readOnly bool
}

// Insert relies on the partial unique index over paid payment_ref values.
func (r *TransactionRepository) Insert(ctx context.Context, tx *domaintransaction.Transaction) error {
	if r.readOnly {
		return ErrReadOnlyUnit
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO transactions (id, booking_id, user_id, amount, currency, payment_method,
			payment_ref, order_ref, status, reason, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(tx.ID), tx.BookingID, tx.UserID, tx.Amount.Amount, tx.Amount.Currency, tx.PaymentMethod,
		tx.PaymentRef, tx.OrderRef, string(tx.Status), tx.Reason, tx.TransactionDate.UTC())
	if pgCode(err) == codeUniqueViolation {
		return domaintransaction.ErrDuplicatePayment
	}
	return translate(err)
}

func (r *TransactionRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domaintransaction.Transaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, booking_id, user_id, amount, currency, payment_method, payment_ref, order_ref,
			status, reason, transaction_date
		FROM transactions WHERE booking_id = $1 ORDER BY transaction_date`, bookingID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*domaintransaction.Transaction
	for rows.Next() {
		var (
			tx           domaintransaction.Transaction
			id, status   string
			amount       int64
			currency     string
			transactedAt time.Time
		)
		if err := rows.Scan(&id, &tx.BookingID, &tx.UserID, &amount, &currency, &tx.PaymentMethod,
			&tx.PaymentRef, &tx.OrderRef, &status, &tx.Reason, &transactedAt); err != nil {
			return nil, translate(err)
		}
		tx.ID = domaintransaction.ID(id)
		tx.Status = domaintransaction.Status(status)
		tx.Amount = money.Money{Amount: amount, Currency: currency}
		tx.TransactionDate = transactedAt.UTC()
		out = append(out, &tx)
	}
	return out, translate(rows.Err())
}

// CarCatalog reads the cars table. Car CRUD lives elsewhere.
type CarCatalog struct {
	q querier
}

const carColumns = `id, owner_id, make, model, color, registration_number, status, currency,
	price_per_day, hourly_rate, security_deposit, front_image, transmission, fuel_type`

func (c *CarCatalog) ByID(ctx context.Context, id domaincars.CarID) (*domaincars.Car, error) {
	car, err := scanCar(c.q.QueryRow(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domaincars.ErrCarNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return car, nil
}

func (c *CarCatalog) ListByOwner(ctx context.Context, owner domaincars.OwnerID) ([]*domaincars.Car, error) {
	rows, err := c.q.Query(ctx, `SELECT `+carColumns+` FROM cars WHERE owner_id = $1 ORDER BY id`, string(owner))
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*domaincars.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, car)
	}
	return out, translate(rows.Err())
}

func scanCar(row pgx.Row) (*domaincars.Car, error) {
	var (
		car                     domaincars.Car
		id, owner, currency     string
		perDay, hourly, deposit int64
	)
	err := row.Scan(&id, &owner, &car.Make, &car.Model, &car.Color, &car.RegistrationNumber, &car.Status, &currency,
		&perDay, &hourly, &deposit, &car.FrontImage, &car.Transmission, &car.FuelType)
	if err != nil {
		return nil, err
	}
	car.ID = domaincars.CarID(id)
	car.OwnerID = domaincars.OwnerID(owner)
	car.PricePerDay = money.Money{Amount: perDay, Currency: currency}
	car.HourlyRate = money.Money{Amount: hourly, Currency: currency}
	car.SecurityDeposit = money.Money{Amount: deposit, Currency: currency}
	return &car, nil
}

type UserDirectory struct {
	q querier
}

func (d *UserDirectory) ByID(ctx context.Context, id domainuser.ID) (*domainuser.Profile, error) {
	p := domainuser.Profile{ID: id}
	err := d.q.QueryRow(ctx, `SELECT name, email FROM users WHERE id = $1`, string(id)).Scan(&p.Name, &p.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainuser.ErrNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

type NotificationRepository struct {
	q        querier
	readOnly bool
}

func (r *NotificationRepository) Add(ctx context.Context, n domainnotification.Notification) error {
	if r.readOnly {
		return ErrReadOnlyUnit
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Read, n.CreatedAt.UTC())
	return translate(err)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]domainnotification.Notification, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []domainnotification.Notification
	for rows.Next() {
		var (
			n   domainnotification.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.Read, &n.CreatedAt); err != nil {
			return nil, translate(err)
		}
		n.Type = domainnotification.Type(typ)
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	return out, translate(rows.Err())
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	if r.readOnly {
		return ErrReadOnlyUnit
	}
	tag, err := r.q.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domainnotification.ErrNotFound
	}
	return nil
}
