package interval

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("interval: return must be after pickup")

// RentalInterval is the half-open span [Pickup, Return) a car is reserved for.
type RentalInterval struct {
	Pickup time.Time `json:"pickup_at"`
	Return time.Time `json:"return_at"`
}

func New(pickup, ret time.Time) (RentalInterval, error) {
	ri := RentalInterval{Pickup: pickup.UTC(), Return: ret.UTC()}
	if err := ri.Validate(); err != nil {
		return RentalInterval{}, err
	}
	return ri, nil
}

func (ri RentalInterval) Validate() error {
	if ri.Pickup.IsZero() || ri.Return.IsZero() {
		return ErrInvalidInterval
	}
	if !ri.Return.After(ri.Pickup) {
		return ErrInvalidInterval
	}
	return nil
}

// Hours is the billable duration: any started hour is charged, minimum one.
func (ri RentalInterval) Hours() int64 {
	d := ri.Return.Sub(ri.Pickup)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}

// Elapsed reports whether the rental period is fully consumed at now.
func (ri RentalInterval) Elapsed(now time.Time) bool {
	return !now.Before(ri.Return)
}

// Started reports whether pickup time has been reached at now.
func (ri RentalInterval) Started(now time.Time) bool {
	return !now.Before(ri.Pickup)
}
