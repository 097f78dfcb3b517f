package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaintransaction "carrental/internal/domain/transaction"
)

type TransactionRepository struct {
	col      *mongo.Collection
	readOnly bool
}

type transactionDocument struct {
	ID              string        `bson:"_id"`
	BookingID       string        `bson:"booking_id"`
	UserID          string        `bson:"user_id"`
	Amount          moneyDocument `bson:"amount"`
	PaymentMethod   string        `bson:"payment_method"`
	PaymentRef      string        `bson:"payment_ref,omitempty"`
	OrderRef        string        `bson:"order_ref,omitempty"`
	Status          string        `bson:"status"`
	Reason          string        `bson:"reason,omitempty"`
	TransactionDate time.Time     `bson:"transaction_date"`
}

// Insert relies on the partial unique index over paid payment_ref values.
func (r *TransactionRepository) Insert(ctx context.Context, tx *domaintransaction.Transaction) error {
	if r.readOnly {
		return ErrReadOnlyUnit
	}
	_, err := r.col.InsertOne(ctx, transactionDocument{
		ID:              string(tx.ID),
		BookingID:       tx.BookingID,
		UserID:          tx.UserID,
		Amount:          newMoneyDocument(tx.Amount),
		PaymentMethod:   tx.PaymentMethod,
		PaymentRef:      tx.PaymentRef,
		OrderRef:        tx.OrderRef,
		Status:          string(tx.Status),
		Reason:          tx.Reason,
		TransactionDate: tx.TransactionDate.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return domaintransaction.ErrDuplicatePayment
	}
	return translate(err)
}

func (r *TransactionRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domaintransaction.Transaction, error) {
	cur, err := r.col.Find(ctx, bson.M{"booking_id": bookingID}, options.Find().SetSort(bson.D{{Key: "transaction_date", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	var docs []transactionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]*domaintransaction.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domaintransaction.Transaction{
			ID:              domaintransaction.ID(d.ID),
			BookingID:       d.BookingID,
			UserID:          d.UserID,
			Amount:          d.Amount.toMoney(),
			PaymentMethod:   d.PaymentMethod,
			PaymentRef:      d.PaymentRef,
			OrderRef:        d.OrderRef,
			Status:          domaintransaction.Status(d.Status),
			Reason:          d.Reason,
			TransactionDate: d.TransactionDate.UTC(),
		})
	}
	return out, nil
}
