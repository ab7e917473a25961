// Package commission computes the artist's share of a completed session.
package commission

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRate applies when neither the session nor the artist sets one.
var DefaultRate = decimal.RequireFromString("0.50")

var ErrRateOutOfRange = errors.New("commission rate must be between 0 and 1")

// EffectiveRate picks the session override, then the artist rate, then DefaultRate.
func EffectiveRate(override, artistRate *decimal.Decimal) decimal.Decimal {
	if override != nil {
		return *override
	}
	if artistRate != nil {
		return *artistRate
	}
	return DefaultRate
}

// Amount returns price × rate rounded to cents, half away from zero.
func Amount(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(rate).Round(2)
}

func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: got %s", ErrRateOutOfRange, rate.String())
	}
	return nil
}
