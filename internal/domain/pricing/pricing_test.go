package pricing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carrental/internal/domain/cars"
	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
)

func mustInterval(t *testing.T, pickup, ret string) interval.RentalInterval {
	t.Helper()
	p, err := time.Parse(time.RFC3339, pickup)
	require.NoError(t, err)
	r, err := time.Parse(time.RFC3339, ret)
	require.NoError(t, err)
	ri, err := interval.New(p, r)
	require.NoError(t, err)
	return ri
}

func inr(v int64) money.Money { return money.Must(v, "INR") }

func TestScenarioWithoutDriver(t *testing.T) {
	b, err := ComputeBreakdown(Inputs{
		Interval:   mustInterval(t, "2024-01-01T10:00:00Z", "2024-01-01T13:30:00Z"),
		HourlyRate: inr(100),
		TaxRate:    money.MustRate("0.05"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), b.Hours)
	require.Equal(t, int64(400), b.BaseCost.Amount)
	require.Equal(t, int64(0), b.DriverFee.Amount)
	require.Equal(t, int64(20), b.Tax.Amount)
	require.Equal(t, int64(420), b.Total.Amount)
}

func TestScenarioWithDriverAndDiscount(t *testing.T) {
	b, err := ComputeBreakdown(Inputs{
		Interval:        mustInterval(t, "2024-01-01T10:00:00Z", "2024-01-01T13:30:00Z"),
		HourlyRate:      inr(100),
		WithDriver:      true,
		DriverHourlyFee: inr(4345),
		Discount:        inr(1000),
		TaxRate:         money.MustRate("0.05"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(400), b.BaseCost.Amount)
	require.Equal(t, int64(17380), b.DriverFee.Amount)
	require.Equal(t, int64(1000), b.Discount.Amount)
	require.Equal(t, int64(839), b.Tax.Amount)
	require.Equal(t, int64(17619), b.Total.Amount)
}

func TestDiscountClampedToGross(t *testing.T) {
	b, err := ComputeBreakdown(Inputs{
		Interval:   mustInterval(t, "2024-01-01T10:00:00Z", "2024-01-01T12:00:00Z"),
		HourlyRate: inr(100),
		Discount:   inr(5000),
		TaxRate:    money.MustRate("0.05"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(5000), b.RequestedDiscount.Amount)
	require.Equal(t, int64(200), b.Discount.Amount)
	require.Equal(t, int64(0), b.Tax.Amount)
	require.Equal(t, int64(0), b.Total.Amount)
}

func TestRejectsInvalidInputs(t *testing.T) {
	ri := mustInterval(t, "2024-01-01T10:00:00Z", "2024-01-01T12:00:00Z")

	_, err := ComputeBreakdown(Inputs{Interval: interval.RentalInterval{Pickup: ri.Return, Return: ri.Pickup}, HourlyRate: inr(100)})
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = ComputeBreakdown(Inputs{Interval: ri, HourlyRate: inr(0)})
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = ComputeBreakdown(Inputs{Interval: ri, HourlyRate: inr(-5)})
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = ComputeBreakdown(Inputs{Interval: ri, HourlyRate: inr(100), Discount: inr(-1)})
	require.ErrorIs(t, err, ErrNegativeDiscount)

	_, err = ComputeBreakdown(Inputs{Interval: ri, HourlyRate: inr(100), Discount: money.Must(10, "USD")})
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestBreakdownPropertiesHoldForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 2000; i++ {
		pickup := start.Add(time.Duration(rng.Intn(1000)) * time.Minute)
		ret := pickup.Add(time.Duration(1+rng.Intn(60*24*10)) * time.Minute)
		ri, err := interval.New(pickup, ret)
		require.NoError(t, err)
		in := Inputs{
			Interval:        ri,
			HourlyRate:      inr(int64(1 + rng.Intn(50000))),
			WithDriver:      rng.Intn(2) == 0,
			DriverHourlyFee: inr(int64(rng.Intn(10000))),
			Discount:        inr(int64(rng.Intn(2000000))),
			TaxRate:         money.Rate(rng.Intn(3000)),
		}
		b, err := ComputeBreakdown(in)
		require.NoError(t, err)
		require.NoError(t, b.Verify())
		require.GreaterOrEqual(t, b.Total.Amount, int64(0))
		gross := b.BaseCost.Amount + b.DriverFee.Amount
		require.LessOrEqual(t, b.Discount.Amount, gross)
		if in.Discount.Amount > gross {
			require.Equal(t, gross, b.Discount.Amount)
			require.Equal(t, int64(0), b.Total.Amount)
		}

		again, err := ComputeBreakdown(in)
		require.NoError(t, err)
		require.Equal(t, b, again)
	}
}

func TestQuoterUsesCarRateAndPolicy(t *testing.T) {
	q := Quoter{Policy: DefaultPolicy()}
	car := &cars.Car{ID: "car-1", HourlyRate: inr(100)}
	b, err := q.Quote(car, mustInterval(t, "2024-01-01T10:00:00Z", "2024-01-01T13:30:00Z"), true, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(17619), b.Total.Amount)

	_, err = q.Quote(&cars.Car{ID: "car-2"}, mustInterval(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z"), false, 0)
	require.ErrorIs(t, err, cars.ErrPricingNotConfigured)
}
