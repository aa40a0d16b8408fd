// Package types provides common type aliases and fixed-point value types.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision at API boundaries.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MinorUnits represents a monetary value in minor currency units (cents, paise).
// All stored monetary fields use this representation; decimals exist only at
// the API boundary. Storage: int64 - sufficient for ±92 quadrillion minor units.
type MinorUnits int64

// MinorUnitScale is the number of decimal places a major unit carries.
const MinorUnitScale = 2

// MinorUnitsFromMoney converts a decimal amount to minor units.
// Fails if the amount carries sub-minor-unit precision: 100.005 is not
// representable and must be rejected, never silently rounded.
func MinorUnitsFromMoney(m Money) (MinorUnits, error) {
	shifted := m.Shift(MinorUnitScale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", m.String(), MinorUnitScale)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s overflows minor units", m.String())
	}
	return MinorUnits(shifted.IntPart()), nil
}

// Money converts minor units back to a decimal amount.
func (m MinorUnits) Money() Money {
	return decimal.New(int64(m), -MinorUnitScale)
}

// String returns the decimal representation (e.g. 12345 -> "123.45").
func (m MinorUnits) String() string {
	return m.Money().String()
}

// MarshalJSON encodes MinorUnits as a JSON number in major units.
func (m MinorUnits) MarshalJSON() ([]byte, error) {
	return []byte(m.Money().String()), nil
}

// UnmarshalJSON accepts a JSON number or string in major units.
func (m *MinorUnits) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := MinorUnitsFromMoney(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m MinorUnits) IsZero() bool     { return m == 0 }
func (m MinorUnits) IsPositive() bool { return m > 0 }
func (m MinorUnits) IsNegative() bool { return m < 0 }
func (m MinorUnits) Neg() MinorUnits  { return -m }

func (m MinorUnits) Abs() MinorUnits {
	if m < 0 {
		return -m
	}
	return m
}

// Min returns the smaller of two amounts.
func (m MinorUnits) Min(other MinorUnits) MinorUnits {
	if other < m {
		return other
	}
	return m
}
