package cars

import (
	"context"
	"errors"
	"strings"

	"carrental/internal/domain/shared/money"
)

var (
	ErrCarNotFound          = errors.New("cars: car not found")
	ErrPricingNotConfigured = errors.New("cars: pricing not configured")
)

type CarID string

// OwnerID identifies the admin account that lists the car.
type OwnerID string

// Car is the read-only view of a listed vehicle the booking core needs.
type Car struct {
	ID                 CarID
	OwnerID            OwnerID
	Make               string
	Model              string
	Color              string
	RegistrationNumber string
	Status             string
	PricePerDay        money.Money
	// HourlyRate overrides the value derived from PricePerDay when set.
	HourlyRate      money.Money
	SecurityDeposit money.Money
	FrontImage      string
	Transmission    string
	FuelType        string
}

// Name is the display name used in previews and booking summaries.
func (c *Car) Name() string {
	return strings.TrimSpace(strings.TrimSpace(c.Make) + " " + strings.TrimSpace(c.Model))
}

// Rate returns the hourly rental rate: the explicit override, or round-half-up(PricePerDay / 24).
func (c *Car) Rate() (money.Money, error) {
	if c.HourlyRate.Amount > 0 {
		return c.HourlyRate, nil
	}
	if c.PricePerDay.Amount > 0 {
		return money.Money{
			Amount:   money.DivRoundHalfUp(c.PricePerDay.Amount, 24),
			Currency: c.PricePerDay.Currency,
		}, nil
	}
	return money.Money{}, ErrPricingNotConfigured
}

// Catalog is the car/pricing lookup collaborator.
type Catalog interface {
	ByID(ctx context.Context, id CarID) (*Car, error)
	ListByOwner(ctx context.Context, owner OwnerID) ([]*Car, error)
}
