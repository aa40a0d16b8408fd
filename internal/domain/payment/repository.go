package payment

import (
	"context"

	"tradebook/internal/core/id"
	"tradebook/internal/domain"
	"tradebook/internal/domain/bill"
)

// Repository defines storage operations for the payment history ledger.
// Records are append-only: after Append the only permitted write is
// MarkReversed, which flips the reversed flag exactly once.
type Repository interface {
	// Append stores a record with its distribution lines.
	Append(ctx context.Context, rec *HistoryRecord) error

	// GetByID retrieves a record with lines, or NotFound.
	GetByID(ctx context.Context, historyID id.ID) (*HistoryRecord, error)

	// GetForUpdate retrieves a record with a pessimistic lock.
	GetForUpdate(ctx context.Context, historyID id.ID) (*HistoryRecord, error)

	// MarkReversed persists the reversed flag with an optimistic version
	// check; returns ConcurrentModification on a version mismatch.
	MarkReversed(ctx context.Context, rec *HistoryRecord) error

	// List retrieves records of one kind, payment date descending.
	// Counterparty filter is taken from the list filter.
	List(ctx context.Context, kind bill.Kind, filter domain.ListFilter) (domain.ListResult[*HistoryRecord], error)
}
