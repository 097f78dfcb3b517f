package outbox

import (
	"context"
	"time"

	appoutbox "carrental/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// Pending is a committed record claimed for publishing.
type Pending struct {
	appoutbox.EventRecord
	Attempts int
}

// Store is the relay side of the outbox. Each backend stages records inside its unit of work
// and exposes them here once committed.
type Store interface {
	// Claim returns the next due record or nil when there is none.
	Claim(ctx context.Context, workerID string) (*Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

var _ appoutbox.Flusher = (*Worker)(nil)
