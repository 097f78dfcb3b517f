package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BasisPointsScale is the number of basis points in 1.0.
const BasisPointsScale = 10000

var ErrInvalidRate = errors.New("money: invalid rate")

// Rate is a non-negative fraction stored in basis points (0.05 == 500).
type Rate int64

// ParseRate reads a decimal fraction such as "0.05" with at most four decimal places.
func ParseRate(raw string) (Rate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, raw)
	}
	whole, frac, _ := strings.Cut(raw, ".")
	if len(frac) > 4 {
		return 0, fmt.Errorf("%w: %q has more than 4 decimal places", ErrInvalidRate, raw)
	}
	frac += strings.Repeat("0", 4-len(frac))
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, raw)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, raw)
	}
	return Rate(w*BasisPointsScale + f), nil
}

// MustRate parses a rate and panics on failure.
func MustRate(raw string) Rate {
	r, err := ParseRate(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// Apply returns round-half-up(amount * rate) on the minor unit.
func (r Rate) Apply(m Money) Money {
	return Money{Amount: DivRoundHalfUp(m.Amount*int64(r), BasisPointsScale), Currency: m.Currency}
}

func (r Rate) String() string {
	return fmt.Sprintf("%d.%04d", int64(r)/BasisPointsScale, int64(r)%BasisPointsScale)
}
