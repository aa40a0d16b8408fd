package bill

import (
	"context"

	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain"
)

// Repository defines storage operations for bills.
//
// The ForUpdate variants take row-level locks where the store supports them;
// Update enforces optimistic locking on the version column and returns
// ConcurrentModification on a version mismatch.
type Repository interface {
	// Create inserts a new bill.
	Create(ctx context.Context, b *Bill) error

	// GetByID retrieves a bill or NotFound.
	GetByID(ctx context.Context, billID id.ID) (*Bill, error)

	// GetForUpdate retrieves a bill with a pessimistic lock.
	GetForUpdate(ctx context.Context, billID id.ID) (*Bill, error)

	// GetManyForUpdate retrieves and locks the given bills, in a stable
	// (id-sorted) lock order to avoid deadlocks between concurrent payments.
	GetManyForUpdate(ctx context.Context, ids []id.ID) ([]*Bill, error)

	// Update writes a bill with an optimistic version check.
	Update(ctx context.Context, b *Bill) error

	// Delete removes a bill permanently.
	Delete(ctx context.Context, billID id.ID) error

	// ListOutstanding returns bills of one kind with outstanding > 0,
	// oldest first (date ascending, id as tie-break).
	// Counterparty is optional; empty means all counterparties.
	ListOutstanding(ctx context.Context, kind Kind, counterparty string) ([]*Bill, error)

	// LockOutstanding is ListOutstanding with row locks, for payment
	// distribution inside a transaction.
	LockOutstanding(ctx context.Context, kind Kind, counterparty string) ([]*Bill, error)

	// OutstandingTotal sums outstanding amounts for one counterparty.
	OutstandingTotal(ctx context.Context, kind Kind, counterparty string) (types.MinorUnits, error)

	// List retrieves bills of one kind with filtering and pagination,
	// newest first.
	List(ctx context.Context, kind Kind, filter domain.ListFilter) (domain.ListResult[*Bill], error)
}
