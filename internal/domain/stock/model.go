// Package stock provides the per-item stock ledger.
package stock

import (
	"time"

	"tradebook/internal/core/types"
)

// Item is the running quantity counter for one stock item.
// The item name is the unique key. The ledger owns the quantity exclusively:
// every bill mutation routes through the Service, nothing else writes it.
type Item struct {
	// Name is the unique item key
	Name string `db:"name" json:"name"`

	// Quantity is the current on-hand quantity
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Unit of measure (kg, pcs, ...)
	Unit string `db:"unit" json:"unit,omitempty"`

	// LowStockAt is the threshold below which the item is flagged
	LowStockAt types.Quantity `db:"low_stock_at" json:"lowStockAt,omitempty"`

	// UpdatedAt is when the quantity last changed
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsLow reports whether the item is at or below its low-stock threshold.
// Items without a threshold are never low.
func (i Item) IsLow() bool {
	return i.LowStockAt.IsPositive() && i.Quantity <= i.LowStockAt
}
