package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/entity"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/bill"
	"tradebook/internal/domain/payment"
)

func testBill() *bill.Bill {
	b := &bill.Bill{
		BaseRecord:   entity.NewBaseRecord(),
		Number:       "PB-2026-00001",
		Kind:         bill.KindPurchase,
		Counterparty: "Acme Traders",
		Item:         "widget",
		Quantity:     types.Quantity(10 * types.QuantityScale),
		Rate:         1000,
		Date:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Total:        10000,
	}
	b.RefreshBalance()
	return b
}

func TestTransactionRollback(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	b := testBill()
	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := store.Bills().Create(ctx, b); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.Bills().GetByID(ctx, b.ID); !apperror.IsNotFound(err) {
		t.Error("failed transaction must leave no trace")
	}
}

func TestTransactionCommit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	b := testBill()
	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		return store.Bills().Create(ctx, b)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := store.Bills().GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Number != b.Number {
		t.Errorf("stored number = %s, want %s", stored.Number, b.Number)
	}
}

func TestNestedTransactionReusesOuter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	b := testBill()
	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		return store.RunInTransaction(ctx, func(ctx context.Context) error {
			return store.Bills().Create(ctx, b)
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Bills().GetByID(ctx, b.ID); err != nil {
		t.Errorf("bill missing after nested commit: %v", err)
	}
}

func TestBillUpdateOptimisticLocking(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	b := testBill()
	if err := store.Bills().Create(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An update without Touch carries a stale version.
	stale := *b
	if err := store.Bills().Update(ctx, &stale); !apperror.IsConcurrentModification(err) {
		t.Errorf("expected conflict, got %v", err)
	}

	b.Touch()
	if err := store.Bills().Update(ctx, b); err != nil {
		t.Errorf("versioned update failed: %v", err)
	}
}

func TestPaymentRecordIsClonedOnWrite(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	b := testBill()
	rec := &payment.HistoryRecord{
		BaseRecord:   entity.NewBaseRecord(),
		Kind:         bill.KindPurchase,
		Counterparty: "Acme Traders",
		Date:         time.Now().UTC(),
		TotalAmount:  5000,
		Distributions: []payment.Distribution{
			{BillID: b.ID, Amount: 5000, BillNumber: b.Number, BillDate: b.Date, Item: b.Item, BillTotal: b.Total},
		},
	}
	if err := store.Payments().Append(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the caller's slice must not reach the stored record.
	rec.Distributions[0].Amount = 1

	stored, err := store.Payments().GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Distributions[0].Amount != 5000 {
		t.Errorf("stored amount = %d, want 5000", stored.Distributions[0].Amount)
	}
}
