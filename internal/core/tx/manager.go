// Package tx provides transaction management abstractions.
// This package defines interfaces that decouple domain logic from specific
// database implementations, following the Dependency Inversion Principle.
package tx

import (
	"context"

	"tradebook/internal/core/apperror"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
//
// Domain services depend on this interface, not concrete implementations.
// The actual implementations live in infrastructure/storage.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DefaultRetryAttempts bounds automatic retries of conflicting transactions.
const DefaultRetryAttempts = 3

// RunWithRetry executes fn in a transaction and retries it when the failure
// is a concurrent-modification conflict. The transaction is safe to retry
// because nothing was committed. Any other error aborts immediately.
func RunWithRetry(ctx context.Context, m Manager, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = m.RunInTransaction(ctx, fn)
		if err == nil || !apperror.IsConcurrentModification(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
