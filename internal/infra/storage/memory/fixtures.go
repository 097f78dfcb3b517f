package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	domaincars "carrental/internal/domain/cars"
	"carrental/internal/domain/shared/money"
	domainuser "carrental/internal/domain/user"
)

// Fixtures is the JSON seed for local runs. Amounts are minor units.
type Fixtures struct {
	Currency string        `json:"currency"`
	Cars     []carFixture  `json:"cars"`
	Users    []userFixture `json:"users"`
}

type carFixture struct {
	ID                 string `json:"id"`
	OwnerID            string `json:"owner_id"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	Color              string `json:"color"`
	RegistrationNumber string `json:"registration_number"`
	PricePerDay        int64  `json:"price_per_day"`
	HourlyRate         int64  `json:"hourly_rate"`
	SecurityDeposit    int64  `json:"security_deposit"`
	FrontImage         string `json:"front_image"`
	Transmission       string `json:"transmission"`
	FuelType           string `json:"fuel_type"`
}

type userFixture struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoadFixtures reads a fixture file. An empty path yields no fixtures.
func LoadFixtures(path string) (Fixtures, error) {
	if strings.TrimSpace(path) == "" {
		return Fixtures{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("memory: read fixtures: %w", err)
	}
	var f Fixtures
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixtures{}, fmt.Errorf("memory: decode fixtures: %w", err)
	}
	return f, nil
}

// Seed loads the fixtures into the store, defaulting the currency.
func (s *Store) Seed(f Fixtures, defaultCurrency string) error {
	currency := f.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	amount := func(v int64) (money.Money, error) { return money.New(v, currency) }
	for _, c := range f.Cars {
		if strings.TrimSpace(c.ID) == "" {
			return errors.New("memory: fixture car without id")
		}
		perDay, err := amount(c.PricePerDay)
		if err != nil {
			return err
		}
		hourly, err := amount(c.HourlyRate)
		if err != nil {
			return err
		}
		deposit, err := amount(c.SecurityDeposit)
		if err != nil {
			return err
		}
		s.PutCar(&domaincars.Car{
			ID:                 domaincars.CarID(c.ID),
			OwnerID:            domaincars.OwnerID(c.OwnerID),
			Make:               c.Make,
			Model:              c.Model,
			Color:              c.Color,
			RegistrationNumber: c.RegistrationNumber,
			Status:             "available",
			PricePerDay:        perDay,
			HourlyRate:         hourly,
			SecurityDeposit:    deposit,
			FrontImage:         c.FrontImage,
			Transmission:       c.Transmission,
			FuelType:           c.FuelType,
		})
	}
	for _, u := range f.Users {
		s.PutUser(domainuser.Profile{ID: domainuser.ID(u.ID), Name: u.Name, Email: u.Email})
	}
	return nil
}
