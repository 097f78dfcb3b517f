package pricing

import (
	"carrental/internal/domain/cars"
	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
)

// DefaultDriverHourlyFee is the per-hour chauffeur charge in minor units.
const DefaultDriverHourlyFee = 4345

// Policy holds the marketplace-wide pricing parameters.
type Policy struct {
	Currency        string
	DriverHourlyFee money.Money
	TaxRate         money.Rate
}

// DefaultPolicy returns INR pricing with a 5% tax.
func DefaultPolicy() Policy {
	return Policy{
		Currency:        money.DefaultCurrency,
		DriverHourlyFee: money.Must(DefaultDriverHourlyFee, money.DefaultCurrency),
		TaxRate:         money.MustRate("0.05"),
	}
}

// Quoter prices a car rental with the current car rate. Preview, create and modify share it.
type Quoter struct {
	Policy Policy
}

func (q Quoter) Quote(car *cars.Car, ri interval.RentalInterval, withDriver bool, discount int64) (Breakdown, error) {
	rate, err := car.Rate()
	if err != nil {
		return Breakdown{}, err
	}
	if rate.Currency == "" {
		rate.Currency = q.currency()
	}
	return ComputeBreakdown(Inputs{
		Interval:        ri,
		HourlyRate:      rate,
		WithDriver:      withDriver,
		DriverHourlyFee: q.Policy.DriverHourlyFee,
		Discount:        money.Money{Amount: discount, Currency: rate.Currency},
		TaxRate:         q.Policy.TaxRate,
	})
}

func (q Quoter) currency() string {
	if q.Policy.Currency != "" {
		return q.Policy.Currency
	}
	return money.DefaultCurrency
}
