package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnitExp is the number of decimal places of the single supported currency.
const minorUnitExp = 2

// Money is an amount expressed in minor currency units (cents).
// Positive and negative values are both valid: balances are signed.
type Money int64

// ParseMoney converts a decimal string to Money, rounding half-up on the
// third decimal place. Both "12.34" and "12,34" are accepted.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("12,345") -> 1235
//	ParseMoney("7")      -> 700
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal rounds d half away from zero to the minor unit.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(minorUnitExp).Shift(minorUnitExp).IntPart())
}

// Decimal returns m as a decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorUnitExp)
}

// Float returns m in major units for display purposes only.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// String renders m with exactly two decimals, e.g. "-12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(minorUnitExp)
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// DivRoundHalfUp divides m by n, rounding the quotient half-up to the minor
// unit. n must be positive.
func (m Money) DivRoundHalfUp(n int) Money {
	if n <= 0 {
		panic("models: DivRoundHalfUp by non-positive divisor")
	}
	q := int64(m) / int64(n)
	r := int64(m) % int64(n)
	if r < 0 {
		r = -r
	}
	if 2*r >= int64(n) {
		if m < 0 {
			q--
		} else {
			q++
		}
	}
	return Money(q)
}

// MarshalJSON encodes m as a decimal string so no precision is lost in transit.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted decimal strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// Sum adds up amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
