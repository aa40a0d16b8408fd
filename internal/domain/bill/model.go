// Package bill provides the bill lifecycle of credit purchases and sales.
//
// A single parameterized implementation covers both sides of the trade:
// Kind selects the stock sign convention and the counterparty role, the rest
// of the logic is identical for payables and receivables.
package bill

import (
	"context"
	"strings"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/entity"
	"tradebook/internal/core/types"
)

// Kind discriminates purchase bills (payable to a supplier) from sale bills
// (receivable from a customer).
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSale     Kind = "sale"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPurchase, KindSale:
		return Kind(s), nil
	default:
		return "", apperror.NewValidation("kind must be purchase or sale").WithDetail("kind", s)
	}
}

// StockSign returns the sign a bill of this kind applies to stock:
// purchases add quantity, sales remove it.
func (k Kind) StockSign() int {
	if k == KindSale {
		return -1
	}
	return 1
}

// CounterpartyRole names the counterparty side for this kind.
func (k Kind) CounterpartyRole() string {
	if k == KindSale {
		return "customer"
	}
	return "supplier"
}

// NumberPrefix is the bill-number prefix for this kind.
func (k Kind) NumberPrefix() string {
	if k == KindSale {
		return "SB"
	}
	return "PB"
}

// PaymentStatus is the derived three-way payment state of a bill.
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

// Bill is one credit trade record: a purchase from a supplier or a sale to a
// customer, carrying the amount owed and the cumulative amount paid.
type Bill struct {
	entity.BaseRecord

	// Number is the human-readable bill number (PB-2026-00001)
	Number string `db:"number" json:"number"`

	// Kind: purchase or sale
	Kind Kind `db:"kind" json:"kind"`

	// Counterparty is the supplier (purchase) or customer (sale) name
	Counterparty string `db:"counterparty" json:"counterparty"`

	// Item references the stock ledger by item name
	Item     string         `db:"item" json:"item"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Unit     string         `db:"unit" json:"unit,omitempty"`

	// Rate is the price per unit in minor currency units
	Rate types.MinorUnits `db:"rate" json:"rate"`

	// Discount applies to sales only
	Discount types.MinorUnits `db:"discount" json:"discount,omitempty"`

	// Date is the business date of the bill
	Date time.Time `db:"date" json:"date"`

	// Total is the amount owed: quantity x rate, minus discount for sales
	Total types.MinorUnits `db:"total" json:"total"`

	// Paid is the cumulative amount paid; 0 <= Paid <= Total
	Paid types.MinorUnits `db:"paid" json:"paid"`

	// Outstanding and Status are derived from Total and Paid.
	// They are stored for querying but recomputed on every write path.
	Outstanding types.MinorUnits `db:"outstanding" json:"outstanding"`
	Status      PaymentStatus    `db:"status" json:"status"`
}

// GrossAmount computes quantity x rate in minor units.
func (b *Bill) GrossAmount() types.MinorUnits {
	return types.MinorUnits(b.Quantity.Int64Scaled() * int64(b.Rate) / types.QuantityScale)
}

// ComputeTotal recomputes Total from quantity, rate and discount.
func (b *Bill) ComputeTotal() {
	b.Total = b.GrossAmount() - b.Discount
}

// StockDelta is the signed effect this bill has on its item's stock.
func (b *Bill) StockDelta() types.Quantity {
	if b.Kind.StockSign() < 0 {
		return b.Quantity.Neg()
	}
	return b.Quantity
}

// Validate implements entity.Validatable.
func (b *Bill) Validate(ctx context.Context) error {
	if _, err := ParseKind(string(b.Kind)); err != nil {
		return err
	}

	if strings.TrimSpace(b.Counterparty) == "" {
		return apperror.NewValidation(b.Kind.CounterpartyRole() + " is required").
			WithDetail("field", "counterparty")
	}

	if strings.TrimSpace(b.Item) == "" {
		return apperror.NewValidation("item is required").
			WithDetail("field", "item")
	}

	if !b.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}

	if !b.Rate.IsPositive() {
		return apperror.NewValidation("rate must be positive").
			WithDetail("field", "rate")
	}

	if b.Discount.IsNegative() {
		return apperror.NewValidation("discount must not be negative").
			WithDetail("field", "discount")
	}

	if b.Kind == KindPurchase && !b.Discount.IsZero() {
		return apperror.NewValidation("discount applies to sale bills only").
			WithDetail("field", "discount")
	}

	if b.GrossAmount() <= b.Discount {
		return apperror.NewValidation("discount must be less than the bill amount").
			WithDetail("field", "discount")
	}

	if b.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

var _ entity.Validatable = (*Bill)(nil)
