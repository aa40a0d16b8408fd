package payment

import (
	"testing"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/entity"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/bill"
)

func outstandingBill(date time.Time, total, paid types.MinorUnits) *bill.Bill {
	b := &bill.Bill{
		BaseRecord:   entity.NewBaseRecord(),
		Number:       "PB-2026-00001",
		Kind:         bill.KindPurchase,
		Counterparty: "Acme Traders",
		Item:         "widget",
		Date:         date,
		Total:        total,
		Paid:         paid,
	}
	b.RefreshBalance()
	return b
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		t.Fatalf("not an AppError: %v", err)
	}
	return appErr.Code
}

func TestDistributeOldestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b1 := outstandingBill(base, 10000, 0)
	b2 := outstandingBill(base.AddDate(0, 1, 0), 10000, 0)
	b3 := outstandingBill(base.AddDate(0, 2, 0), 10000, 0)

	// Hand the bills over shuffled; allocation must still follow dates.
	dists, distributed := Distribute(25000, []*bill.Bill{b3, b1, b2})

	if distributed != 25000 {
		t.Fatalf("distributed = %d, want 25000", distributed)
	}
	if len(dists) != 3 {
		t.Fatalf("got %d lines, want 3", len(dists))
	}

	want := []struct {
		billID id.ID
		amount types.MinorUnits
	}{
		{b1.ID, 10000},
		{b2.ID, 10000},
		{b3.ID, 5000},
	}
	for i, w := range want {
		if dists[i].BillID != w.billID {
			t.Errorf("line %d allocated to wrong bill", i)
		}
		if dists[i].Amount != w.amount {
			t.Errorf("line %d amount = %d, want %d", i, dists[i].Amount, w.amount)
		}
	}
}

func TestDistributePartiallyPaidBill(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	b := outstandingBill(date, 10000, 4000)

	dists, distributed := Distribute(10000, []*bill.Bill{b})

	// Only the outstanding 60.00 is allocatable.
	if distributed != 6000 {
		t.Errorf("distributed = %d, want 6000", distributed)
	}
	if len(dists) != 1 || dists[0].Amount != 6000 {
		t.Errorf("unexpected lines: %+v", dists)
	}
}

func TestDistributeSkipsSettledBills(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	settled := outstandingBill(base, 10000, 10000)
	open := outstandingBill(base.AddDate(0, 1, 0), 10000, 0)

	dists, distributed := Distribute(5000, []*bill.Bill{settled, open})

	if distributed != 5000 {
		t.Fatalf("distributed = %d, want 5000", distributed)
	}
	if len(dists) != 1 || dists[0].BillID != open.ID {
		t.Fatalf("settled bill must not receive an allocation: %+v", dists)
	}
}

func TestDistributeCapsAtTotalOutstanding(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bills := []*bill.Bill{
		outstandingBill(base, 10000, 0),
		outstandingBill(base.AddDate(0, 1, 0), 10000, 0),
	}

	dists, distributed := Distribute(50000, bills)

	if distributed != 20000 {
		t.Errorf("distributed = %d, want 20000", distributed)
	}
	if len(dists) != 2 {
		t.Errorf("got %d lines, want 2", len(dists))
	}
}

func TestDistributeDateTieBreakIsDeterministic(t *testing.T) {
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a := outstandingBill(date, 10000, 0)
	b := outstandingBill(date, 10000, 0)

	first, _ := Distribute(5000, []*bill.Bill{a, b})
	second, _ := Distribute(5000, []*bill.Bill{b, a})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected a single line from each run")
	}
	if first[0].BillID != second[0].BillID {
		t.Error("tie-break must not depend on input order")
	}
}

func TestDistributeNoBills(t *testing.T) {
	dists, distributed := Distribute(5000, nil)
	if len(dists) != 0 || distributed != 0 {
		t.Errorf("expected no allocation, got %d lines totaling %d", len(dists), distributed)
	}
}

func TestDistributionSnapshotsBill(t *testing.T) {
	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	b := outstandingBill(date, 10000, 0)

	dists, _ := Distribute(10000, []*bill.Bill{b})

	d := dists[0]
	if d.BillNumber != b.Number || !d.BillDate.Equal(b.Date) || d.Item != b.Item || d.BillTotal != b.Total {
		t.Errorf("line must snapshot the bill: %+v", d)
	}
	if d.LineID == (id.ID{}) {
		t.Error("line id must be assigned")
	}
}

func TestValidateExplicit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b1 := outstandingBill(base, 10000, 0)
	b2 := outstandingBill(base.AddDate(0, 1, 0), 10000, 5000)
	byID := map[id.ID]*bill.Bill{b1.ID: b1, b2.ID: b2}

	t.Run("exact distribution", func(t *testing.T) {
		dists, err := validateExplicit(15000, []ExplicitLine{
			{BillID: b1.ID, Amount: types.MustMoney("100.00")},
			{BillID: b2.ID, Amount: types.MustMoney("50.00")},
		}, byID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(dists) != 2 || dists[0].Amount != 10000 || dists[1].Amount != 5000 {
			t.Errorf("unexpected lines: %+v", dists)
		}
	})

	t.Run("one minor unit deviation tolerated", func(t *testing.T) {
		_, err := validateExplicit(10000, []ExplicitLine{
			{BillID: b1.ID, Amount: types.MustMoney("99.99")},
		}, byID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("empty lines", func(t *testing.T) {
		_, err := validateExplicit(10000, nil, byID)
		if got := errCode(t, err); got != apperror.CodeInvalidInput {
			t.Errorf("code = %s, want %s", got, apperror.CodeInvalidInput)
		}
	})

	t.Run("duplicate bill", func(t *testing.T) {
		_, err := validateExplicit(10000, []ExplicitLine{
			{BillID: b1.ID, Amount: types.MustMoney("50.00")},
			{BillID: b1.ID, Amount: types.MustMoney("50.00")},
		}, byID)
		if got := errCode(t, err); got != apperror.CodeInvalidInput {
			t.Errorf("code = %s, want %s", got, apperror.CodeInvalidInput)
		}
	})

	t.Run("sub minor unit amount", func(t *testing.T) {
		_, err := validateExplicit(10000, []ExplicitLine{
			{BillID: b1.ID, Amount: types.MustMoney("100.005")},
		}, byID)
		if got := errCode(t, err); got != apperror.CodeOverpaymentRejected {
			t.Errorf("code = %s, want %s", got, apperror.CodeOverpaymentRejected)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := validateExplicit(10000, []ExplicitLine{
			{BillID: b1.ID, Amount: types.MustMoney("0")},
		}, byID)
		if got := errCode(t, err); got != apperror.CodeInvalidInput {
			t.Errorf("code = %s, want %s", got, apperror.CodeInvalidInput)
		}
	})

	t.Run("unknown bill", func(t *testing.T) {
		_, err := validateExplicit(10000, []ExplicitLine{
			{BillID: id.New(), Amount: types.MustMoney("100.00")},
		}, byID)
		if got := errCode(t, err); got != apperror.CodeNotFound {
			t.Errorf("code = %s, want %s", got, apperror.CodeNotFound)
		}
	})

	t.Run("exceeds outstanding", func(t *testing.T) {
		_, err := validateExplicit(6000, []ExplicitLine{
			{BillID: b2.ID, Amount: types.MustMoney("60.00")},
		}, byID)
		if got := errCode(t, err); got != apperror.CodeOverpaymentRejected {
			t.Errorf("code = %s, want %s", got, apperror.CodeOverpaymentRejected)
		}
	})

	t.Run("sum mismatch beyond tolerance", func(t *testing.T) {
		_, err := validateExplicit(10000, []ExplicitLine{
			{BillID: b1.ID, Amount: types.MustMoney("60.00")},
			{BillID: b2.ID, Amount: types.MustMoney("30.00")},
		}, byID)
		if got := errCode(t, err); got != apperror.CodeOverpaymentRejected {
			t.Errorf("code = %s, want %s", got, apperror.CodeOverpaymentRejected)
		}
	})
}
