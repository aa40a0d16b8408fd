package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a fixed-point stock quantity with 4 decimal places (scale = 1e4).
//
// Rationale:
// - Matches Postgres NUMERIC(15,4) semantics without floating point errors
// - Stored as BIGINT in DB (scaled integer)
// - JSON remains a number with up to 4 decimals
type Quantity int64

const QuantityScale int64 = 10_000

// quantityPlaces is the fractional digit count implied by QuantityScale.
const quantityPlaces = 4

// NewQuantityFromInt64Scaled wraps an already-scaled integer.
func NewQuantityFromInt64Scaled(v int64) Quantity { return Quantity(v) }

// QuantityFromDecimal converts a decimal quantity to fixed-point.
// Fails if the value carries more than 4 decimal places.
func QuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	shifted := d.Shift(quantityPlaces)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("quantity %s has more than %d decimal places", d.String(), quantityPlaces)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("quantity %s overflows fixed-point range", d.String())
	}
	return Quantity(shifted.IntPart()), nil
}

// QuantityFromString parses a decimal string into a fixed-point quantity.
func QuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity: %w", err)
	}
	return QuantityFromDecimal(d)
}

// Decimal converts the quantity back to a decimal value.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -quantityPlaces)
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }
func (q Quantity) Neg() Quantity    { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String returns a decimal string without trailing zeros (e.g. "30", "2.5").
func (q Quantity) String() string {
	return q.Decimal().String()
}

// MarshalJSON encodes Quantity as a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.Decimal().String()), nil
}

// UnmarshalJSON accepts either a JSON number or string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := QuantityFromDecimal(d)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
