package transaction

import (
	"time"

	"carrental/internal/domain/shared/money"
)

// Recorded is emitted for every inserted transaction row.
type Recorded struct {
	TransactionID ID          `json:"transaction_id"`
	BookingID     string      `json:"booking_id"`
	UserID        string      `json:"user_id"`
	Status        Status      `json:"status"`
	Amount        money.Money `json:"amount"`
	PaymentRef    string      `json:"payment_ref"`
	OrderRef      string      `json:"order_ref"`
	At            time.Time   `json:"occurred_at"`
}

func (e Recorded) EventName() string {
	switch e.Status {
	case StatusPaid:
		return "payment.confirmed"
	case StatusFailed:
		return "payment.failed"
	default:
		return "payment.refunded"
	}
}

func (e Recorded) AggregateID() string   { return e.BookingID }
func (e Recorded) OccurredAt() time.Time { return e.At }

// RecordedEvent describes tx as a domain event.
func RecordedEvent(tx *Transaction) Recorded {
	return Recorded{
		TransactionID: tx.ID,
		BookingID:     tx.BookingID,
		UserID:        tx.UserID,
		Status:        tx.Status,
		Amount:        tx.Amount,
		PaymentRef:    tx.PaymentRef,
		OrderRef:      tx.OrderRef,
		At:            tx.TransactionDate,
	}
}

func (e Recorded) UserRef() string { return e.UserID }
