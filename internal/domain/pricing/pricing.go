package pricing

import (
	"errors"

	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
)

var (
	ErrInvalidInterval   = errors.New("pricing: return must be after pickup")
	ErrInvalidRate       = errors.New("pricing: hourly rate must be positive")
	ErrNegativeDiscount  = errors.New("pricing: discount cannot be negative")
	ErrNegativeDriverFee = errors.New("pricing: driver fee cannot be negative")
	ErrCurrencyMismatch  = errors.New("pricing: components must share one currency")
)

// Inputs is everything needed to price a rental.
type Inputs struct {
	Interval        interval.RentalInterval
	HourlyRate      money.Money
	WithDriver      bool
	DriverHourlyFee money.Money
	Discount        money.Money
	TaxRate         money.Rate
}

// Breakdown is the decomposition of a rental price. Total = BaseCost + DriverFee - Discount + Tax.
type Breakdown struct {
	Hours             int64
	HourlyRate        money.Money
	BaseCost          money.Money
	DriverFee         money.Money
	RequestedDiscount money.Money
	Discount          money.Money
	Tax               money.Money
	Total             money.Money
}

// ComputeBreakdown prices a rental. It has no side effects and is deterministic.
func ComputeBreakdown(in Inputs) (Breakdown, error) {
	if err := in.Interval.Validate(); err != nil {
		return Breakdown{}, ErrInvalidInterval
	}
	if in.HourlyRate.Amount <= 0 {
		return Breakdown{}, ErrInvalidRate
	}
	currency := in.HourlyRate.Currency
	if currency == "" {
		return Breakdown{}, money.ErrInvalidCurrency
	}
	discount := normalize(in.Discount, currency)
	if discount.IsNegative() {
		return Breakdown{}, ErrNegativeDiscount
	}
	if discount.Currency != currency {
		return Breakdown{}, ErrCurrencyMismatch
	}

	hours := in.Interval.Hours()
	base := in.HourlyRate.Multiply(hours)

	driver := money.Zero(currency)
	if in.WithDriver {
		fee := normalize(in.DriverHourlyFee, currency)
		if fee.IsNegative() {
			return Breakdown{}, ErrNegativeDriverFee
		}
		if fee.Currency != currency {
			return Breakdown{}, ErrCurrencyMismatch
		}
		driver = fee.Multiply(hours)
	}

	gross, err := base.Add(driver)
	if err != nil {
		return Breakdown{}, err
	}
	effective, err := discount.Min(gross)
	if err != nil {
		return Breakdown{}, err
	}
	taxable, err := gross.Sub(effective)
	if err != nil {
		return Breakdown{}, err
	}
	tax := in.TaxRate.Apply(taxable)
	total, err := taxable.Add(tax)
	if err != nil {
		return Breakdown{}, err
	}

	return Breakdown{
		Hours:             hours,
		HourlyRate:        in.HourlyRate,
		BaseCost:          base,
		DriverFee:         driver,
		RequestedDiscount: discount,
		Discount:          effective,
		Tax:               tax,
		Total:             total,
	}, nil
}

// Verify checks the breakdown identity and the non-negative total.
func (b Breakdown) Verify() error {
	sum := b.BaseCost.Amount + b.DriverFee.Amount - b.Discount.Amount + b.Tax.Amount
	if sum != b.Total.Amount || b.Total.Amount < 0 {
		return errors.New("pricing: breakdown does not add up")
	}
	return nil
}

// normalize gives a zero amount the currency of the rate so callers may omit it.
func normalize(m money.Money, currency string) money.Money {
	if m.Amount == 0 && m.Currency == "" {
		return money.Zero(currency)
	}
	if m.Currency == "" {
		m.Currency = currency
	}
	return m
}
