package bill

import (
	"context"
	"testing"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/types"
)

func mustQty(t *testing.T, s string) types.Quantity {
	t.Helper()
	q, err := types.QuantityFromString(s)
	if err != nil {
		t.Fatalf("bad quantity %q: %v", s, err)
	}
	return q
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"purchase", "sale"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseKind("transfer"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestKindConventions(t *testing.T) {
	if KindPurchase.StockSign() != 1 || KindSale.StockSign() != -1 {
		t.Error("stock signs must be +1 for purchase, -1 for sale")
	}
	if KindPurchase.CounterpartyRole() != "supplier" || KindSale.CounterpartyRole() != "customer" {
		t.Error("counterparty roles must be supplier/customer")
	}
	if KindPurchase.NumberPrefix() != "PB" || KindSale.NumberPrefix() != "SB" {
		t.Error("number prefixes must be PB/SB")
	}
}

func TestGrossAmount(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		rate     types.MinorUnits
		want     types.MinorUnits
	}{
		{name: "whole quantity", quantity: "30", rate: 1000, want: 30000},
		{name: "fractional quantity", quantity: "2.5", rate: 1000, want: 2500},
		{name: "fine-grained quantity", quantity: "0.0001", rate: 10000, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bill{Quantity: mustQty(t, tt.quantity), Rate: tt.rate}
			if got := b.GrossAmount(); got != tt.want {
				t.Errorf("GrossAmount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeTotal(t *testing.T) {
	b := &Bill{
		Kind:     KindSale,
		Quantity: mustQty(t, "10"),
		Rate:     1000,
		Discount: 500,
	}
	b.ComputeTotal()
	if b.Total != 9500 {
		t.Errorf("Total = %d, want 9500", b.Total)
	}
}

func TestStockDelta(t *testing.T) {
	qty := mustQty(t, "5")

	purchase := &Bill{Kind: KindPurchase, Quantity: qty}
	if purchase.StockDelta() != qty {
		t.Error("purchase delta must be positive")
	}

	sale := &Bill{Kind: KindSale, Quantity: qty}
	if sale.StockDelta() != qty.Neg() {
		t.Error("sale delta must be negative")
	}
}

func TestBillValidate(t *testing.T) {
	valid := func(t *testing.T) *Bill {
		return &Bill{
			Kind:         KindPurchase,
			Counterparty: "Acme Traders",
			Item:         "widget",
			Quantity:     mustQty(t, "10"),
			Rate:         1000,
			Date:         time.Now(),
		}
	}

	tests := []struct {
		name   string
		mutate func(b *Bill)
	}{
		{name: "unknown kind", mutate: func(b *Bill) { b.Kind = "transfer" }},
		{name: "blank counterparty", mutate: func(b *Bill) { b.Counterparty = "  " }},
		{name: "blank item", mutate: func(b *Bill) { b.Item = "" }},
		{name: "zero quantity", mutate: func(b *Bill) { b.Quantity = 0 }},
		{name: "negative quantity", mutate: func(b *Bill) { b.Quantity = -1 }},
		{name: "zero rate", mutate: func(b *Bill) { b.Rate = 0 }},
		{name: "negative discount", mutate: func(b *Bill) { b.Kind = KindSale; b.Discount = -1 }},
		{name: "discount on purchase", mutate: func(b *Bill) { b.Discount = 100 }},
		{name: "discount swallows amount", mutate: func(b *Bill) { b.Kind = KindSale; b.Discount = 10000 }},
		{name: "zero date", mutate: func(b *Bill) { b.Date = time.Time{} }},
	}

	ctx := context.Background()

	if err := valid(t).Validate(ctx); err != nil {
		t.Fatalf("valid bill rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid(t)
			tt.mutate(b)

			err := b.Validate(ctx)
			if err == nil {
				t.Fatal("expected validation error")
			}
			appErr, ok := apperror.AsAppError(err)
			if !ok || appErr.Code != apperror.CodeInvalidInput {
				t.Errorf("expected %s, got %v", apperror.CodeInvalidInput, err)
			}
		})
	}
}
