package booking

import (
	"errors"
	"time"
)

var ErrCancellationWindowClosed = errors.New("booking: cancellation window closed")

// CancellationPolicy decides who may cancel a booking and until when.
type CancellationPolicy struct {
	// UserCancelAfterConfirm lets the renter cancel a paid booking before pickup.
	UserCancelAfterConfirm bool
}

// Check reports whether the caller may cancel b at now. The renter may cancel an unpaid booking
// any time before return, a confirmed one only before pickup and only if the policy allows it.
// The car's admin may cancel until return.
func (p CancellationPolicy) Check(b *Booking, byAdmin bool, now time.Time) error {
	switch b.StatusAt(now) {
	case StateCancelled:
		return ErrAlreadyCancelled
	case StateCompleted:
		return ErrInvalidState
	}
	if b.Interval.Elapsed(now) {
		return ErrInvalidState
	}
	if byAdmin {
		return nil
	}
	if b.State != StateConfirmed {
		return nil
	}
	if !p.UserCancelAfterConfirm {
		return ErrCancellationWindowClosed
	}
	if b.Interval.Started(now) {
		return ErrCancellationWindowClosed
	}
	return nil
}
