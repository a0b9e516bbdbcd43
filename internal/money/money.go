// Package money holds the fixed-point currency type shared by the ledger and its services.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const scale = 2

var (
	// ErrPrecision is returned for amounts finer than one cent.
	ErrPrecision = errors.New("amount has more than two decimal places")
	// ErrOutOfRange is returned for amounts that do not fit the ledger's int64 cents.
	ErrOutOfRange = errors.New("amount out of range")

	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// Amount is a currency amount expressed in minor units (cents).
type Amount int64

// Zero is the empty amount.
const Zero Amount = 0

// FromDecimal converts a decimal major-unit value into cents without rounding.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Shift(scale)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, ErrPrecision
	}
	if cents.Abs().GreaterThan(maxCents) {
		return 0, ErrOutOfRange
	}
	return Amount(cents.IntPart()), nil
}

// Parse reads a major-unit string such as "25.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ApplyOdds returns stake * odds rounded half away from zero to the nearest cent.
func ApplyOdds(stake Amount, odds decimal.Decimal) (Amount, error) {
	cents := stake.Decimal().Mul(odds).Round(scale).Shift(scale)
	if cents.Abs().GreaterThan(maxCents) {
		return 0, ErrOutOfRange
	}
	return Amount(cents.IntPart()), nil
}

// Sum adds amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// Cents exposes the raw minor-unit value.
func (a Amount) Cents() int64 { return int64(a) }

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -scale)
}

// Positive reports whether the amount is strictly greater than zero.
func (a Amount) Positive() bool { return a > 0 }

func (a Amount) String() string {
	return a.Decimal().StringFixed(scale)
}

// MarshalJSON renders the amount as a bare JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
