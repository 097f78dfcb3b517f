package notification

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification: not found")

type Type string

const (
	TypeAlert   Type = "alert"
	TypePayment Type = "payment"
	TypeBooking Type = "booking"
)

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      Type
	Read      bool
	CreatedAt time.Time
}

// Sink delivers a notification. Callers treat it as fire-and-forget.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Repository is the per-user notification inbox. Add ignores an ID it already stored.
type Repository interface {
	Add(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}
