package stock

import (
	"context"
)

// Repository defines storage operations for stock items.
//
// GetForUpdate must take a row-level lock when the backing store supports it,
// so that concurrent bill mutations on the same item serialize on the row.
type Repository interface {
	// Get returns the item or a NotFound error.
	Get(ctx context.Context, name string) (Item, error)

	// GetForUpdate returns the item with a pessimistic lock.
	// The second return value is false when the item does not exist yet;
	// absence is not an error here because increase creates on demand.
	GetForUpdate(ctx context.Context, name string) (Item, bool, error)

	// Upsert inserts or replaces the item row.
	Upsert(ctx context.Context, item Item) error

	// List returns all items ordered by name.
	List(ctx context.Context) ([]Item, error)

	// ListLowStock returns items at or below their low-stock threshold.
	ListLowStock(ctx context.Context) ([]Item, error)
}
