// Package money provides fixed-point monetary amounts for the card ledger.
//
// Amounts are held in minor units (two fractional digits) so that repeated
// debit/credit cycles never accumulate binary rounding drift.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of fractional digits an amount may carry.
const MinorUnits = 2

// ErrPrecision is returned when an amount carries more than MinorUnits
// fractional digits or cannot be read as a finite decimal number.
var ErrPrecision = errors.New("amount must be a decimal with at most 2 fractional digits")

// Amount is a monetary value in minor units.
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// FromMinor creates an Amount from minor units.
func FromMinor(minor int64) Amount {
	return Amount(minor)
}

// FromMajor creates an Amount from whole currency units.
func FromMajor(major int64) Amount {
	return Amount(major * 100)
}

// Parse reads a decimal string ("400", "400.5", "400.50") into an Amount.
// More than two fractional digits or anything that is not a finite decimal
// number fails with ErrPrecision.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPrecision, s)
	}
	minor := d.Shift(MinorUnits)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %q", ErrPrecision, s)
	}
	// IntPart truncates to the low 64 bits on overflow, so out-of-range
	// values must be rejected before the conversion.
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q", ErrPrecision, s)
	}
	return Amount(minor.IntPart()), nil
}

// Decimal returns the amount as a decimal in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -MinorUnits)
}

// Minor returns the amount in minor units.
func (a Amount) Minor() int64 {
	return int64(a)
}

// IsPositive reports whether the amount is strictly positive.
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative reports whether the amount is strictly negative.
func (a Amount) IsNegative() bool {
	return a < 0
}

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	return a + other
}

// Sub returns a - other.
func (a Amount) Sub(other Amount) Amount {
	return a - other
}

// GreaterThan reports whether a > other.
func (a Amount) GreaterThan(other Amount) bool {
	return a > other
}

// LessThan reports whether a < other.
func (a Amount) LessThan(other Amount) bool {
	return a < other
}

// String renders the amount with exactly two fractional digits ("400.00").
func (a Amount) String() string {
	return a.Decimal().StringFixed(MinorUnits)
}

// MarshalJSON renders the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare number, e.g. 400.50
		s = string(data)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner over a minor-unit integer column.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = 0
		return nil
	case int64:
		*a = Amount(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into money.Amount", src)
	}
}

// Value implements driver.Valuer as a minor-unit integer.
func (a Amount) Value() (driver.Value, error) {
	return int64(a), nil
}
