package dto

import (
	"time"

	domaintransaction "carrental/internal/domain/transaction"
)

type Transaction struct {
	ID              string    `json:"id"`
	BookingID       string    `json:"booking_id"`
	Amount          MoneyDTO  `json:"amount"`
	PaymentMethod   string    `json:"payment_method"`
	PaymentRef      string    `json:"payment_id,omitempty"`
	OrderRef        string    `json:"order_id,omitempty"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	TransactionDate time.Time `json:"transaction_date"`
}

type PaymentOutcome struct {
	Booking     Booking     `json:"booking"`
	Transaction Transaction `json:"transaction"`
}

func MapTransaction(tx *domaintransaction.Transaction) Transaction {
	return Transaction{
		ID:              string(tx.ID),
		BookingID:       tx.BookingID,
		Amount:          MapMoney(tx.Amount),
		PaymentMethod:   tx.PaymentMethod,
		PaymentRef:      tx.PaymentRef,
		OrderRef:        tx.OrderRef,
		Status:          string(tx.Status),
		Reason:          tx.Reason,
		TransactionDate: tx.TransactionDate,
	}
}
