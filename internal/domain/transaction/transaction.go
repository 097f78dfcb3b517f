package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"carrental/internal/domain/shared/money"
)

var (
	ErrDuplicatePayment = errors.New("transaction: payment already recorded")
	ErrBookingRequired  = errors.New("transaction: booking id required")
	ErrNegativeAmount   = errors.New("transaction: amount cannot be negative")
	ErrUnknownStatus    = errors.New("transaction: unknown status")
)

type ID string

type Status string

const (
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// MethodRazorpay is the only gateway the marketplace integrates with.
const MethodRazorpay = "razorpay"

// Transaction is an immutable money movement tied to a booking. Corrections are new rows.
type Transaction struct {
	ID              ID
	BookingID       string
	UserID          string
	Amount          money.Money
	PaymentMethod   string
	PaymentRef      string
	OrderRef        string
	Status          Status
	Reason          string
	TransactionDate time.Time
}

type NewParams struct {
	ID         ID
	BookingID  string
	UserID     string
	Amount     money.Money
	Method     string
	PaymentRef string
	OrderRef   string
	Status     Status
	Reason     string
	At         time.Time
}

func New(p NewParams) (*Transaction, error) {
	if strings.TrimSpace(p.BookingID) == "" {
		return nil, ErrBookingRequired
	}
	if p.Amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	switch p.Status {
	case StatusPaid, StatusFailed, StatusRefunded:
	default:
		return nil, ErrUnknownStatus
	}
	method := p.Method
	if method == "" {
		method = MethodRazorpay
	}
	return &Transaction{
		ID:              p.ID,
		BookingID:       p.BookingID,
		UserID:          p.UserID,
		Amount:          p.Amount,
		PaymentMethod:   method,
		PaymentRef:      p.PaymentRef,
		OrderRef:        p.OrderRef,
		Status:          p.Status,
		Reason:          p.Reason,
		TransactionDate: p.At.UTC(),
	}, nil
}

// Captured is the money still held for a booking: paid rows minus refunded rows.
// Failed rows move no money.
func Captured(txs []*Transaction, currency string) (money.Money, error) {
	held := money.Zero(currency)
	for _, tx := range txs {
		var err error
		switch tx.Status {
		case StatusPaid:
			held, err = held.Add(tx.Amount)
		case StatusRefunded:
			held, err = held.Sub(tx.Amount)
		}
		if err != nil {
			return money.Money{}, err
		}
	}
	return held, nil
}

// Repository is insert-only. Insert fails with ErrDuplicatePayment when a paid row with the
// same PaymentRef already exists.
type Repository interface {
	Insert(ctx context.Context, tx *Transaction) error
	ListByBooking(ctx context.Context, bookingID string) ([]*Transaction, error)
}
