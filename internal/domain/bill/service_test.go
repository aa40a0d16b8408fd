package bill_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/numerator"
	"tradebook/internal/core/types"
	"tradebook/internal/domain"
	"tradebook/internal/domain/bill"
	"tradebook/internal/domain/stock"
	"tradebook/internal/infrastructure/storage/memory"
)

type fixture struct {
	store *memory.Store
	stock *stock.Service
	bills *bill.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	stockSvc := stock.NewService(store.Stock())
	return &fixture{
		store: store,
		stock: stockSvc,
		bills: bill.NewService(store.Bills(), stockSvc, &numerator.MockGenerator{}, store),
	}
}

func qty(t *testing.T, s string) types.Quantity {
	t.Helper()
	q, err := types.QuantityFromString(s)
	require.NoError(t, err)
	return q
}

func (f *fixture) stockQty(t *testing.T, name string) types.Quantity {
	t.Helper()
	q, err := f.stock.Quantity(context.Background(), name)
	require.NoError(t, err)
	return q
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "not an AppError: %v", err)
	assert.Equal(t, code, appErr.Code)
}

func purchaseInput(t *testing.T, item, quantity, rate string) bill.CreateInput {
	t.Helper()
	return bill.CreateInput{
		Kind:         bill.KindPurchase,
		Counterparty: "Acme Traders",
		Item:         item,
		Quantity:     qty(t, quantity),
		Unit:         "pcs",
		Rate:         types.MustMoney(rate),
		Date:         time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func saleInput(t *testing.T, item, quantity, rate string) bill.CreateInput {
	in := purchaseInput(t, item, quantity, rate)
	in.Kind = bill.KindSale
	in.Counterparty = "Corner Shop"
	return in
}

func TestCreatePurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(b.Number, "PB-"), "number = %s", b.Number)
	assert.Equal(t, types.MinorUnits(30000), b.Total)
	assert.Equal(t, types.MinorUnits(0), b.Paid)
	assert.Equal(t, types.MinorUnits(30000), b.Outstanding)
	assert.Equal(t, bill.StatusUnpaid, b.Status)

	assert.Equal(t, qty(t, "30"), f.stockQty(t, "widget"))
}

func TestCreateSaleConsumesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	b, err := f.bills.Create(ctx, saleInput(t, "widget", "10", "15.00"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(b.Number, "SB-"), "number = %s", b.Number)
	assert.Equal(t, types.MinorUnits(15000), b.Total)
	assert.Equal(t, qty(t, "20"), f.stockQty(t, "widget"))
}

func TestCreateSaleInsufficientStockIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	_, err = f.bills.Create(ctx, saleInput(t, "widget", "100", "15.00"))
	assertCode(t, err, apperror.CodeInsufficientStock)

	// Neither the bill nor any stock effect survives the failure.
	assert.Equal(t, qty(t, "30"), f.stockQty(t, "widget"))
	result, err := f.bills.List(ctx, bill.KindSale, domain.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
}

func TestCreateSaleDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	in := saleInput(t, "widget", "10", "10.00")
	in.Discount = types.MustMoney("5.00")
	b, err := f.bills.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, types.MinorUnits(9500), b.Total)
}

func TestCreateRejectsSubMinorUnitRate(t *testing.T) {
	f := newFixture(t)

	_, err := f.bills.Create(context.Background(), purchaseInput(t, "widget", "30", "10.005"))
	assertCode(t, err, apperror.CodeInvalidInput)
}

func TestCreateRejectsDiscountOnPurchase(t *testing.T) {
	f := newFixture(t)

	in := purchaseInput(t, "widget", "30", "10.00")
	in.Discount = types.MustMoney("1.00")
	_, err := f.bills.Create(context.Background(), in)
	assertCode(t, err, apperror.CodeInvalidInput)
}

func TestUpdateQuantityAdjustsStockByDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	newQty := qty(t, "20")
	updated, err := f.bills.Update(ctx, b.ID, bill.KindPurchase, bill.UpdateInput{Quantity: &newQty})
	require.NoError(t, err)

	assert.Equal(t, newQty, updated.Quantity)
	assert.Equal(t, types.MinorUnits(20000), updated.Total)
	assert.Equal(t, qty(t, "20"), f.stockQty(t, "widget"))
}

func TestUpdateSaleQuantityReturnsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bills.Create(ctx, purchaseInput(t, "paste", "100", "10.00"))
	require.NoError(t, err)
	sale, err := f.bills.Create(ctx, saleInput(t, "paste", "30", "10.00"))
	require.NoError(t, err)
	require.Equal(t, qty(t, "70"), f.stockQty(t, "paste"))

	// Shrinking the sale from 30 to 10 puts 20 back on the shelf.
	newQty := qty(t, "10")
	updated, err := f.bills.Update(ctx, sale.ID, bill.KindSale, bill.UpdateInput{Quantity: &newQty})
	require.NoError(t, err)

	assert.Equal(t, types.MinorUnits(10000), updated.Total)
	assert.Equal(t, qty(t, "90"), f.stockQty(t, "paste"))
}

func TestUpdateSaleQuantityInsufficientStockIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)
	sale, err := f.bills.Create(ctx, saleInput(t, "widget", "20", "15.00"))
	require.NoError(t, err)

	// Stock is 10; growing the sale to 50 needs 30 more.
	newQty := qty(t, "50")
	_, err = f.bills.Update(ctx, sale.ID, bill.KindSale, bill.UpdateInput{Quantity: &newQty})
	assertCode(t, err, apperror.CodeInsufficientStock)

	stored, err := f.bills.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(t, "20"), stored.Quantity)
	assert.Equal(t, qty(t, "10"), f.stockQty(t, "widget"))
}

func TestUpdateItemRenameMovesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	newItem := "gadget"
	_, err = f.bills.Update(ctx, b.ID, bill.KindPurchase, bill.UpdateInput{Item: &newItem})
	require.NoError(t, err)

	assert.True(t, f.stockQty(t, "widget").IsZero())
	assert.Equal(t, qty(t, "30"), f.stockQty(t, "gadget"))
}

func TestUpdateClampsPaidToReducedTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	// Settle the bill in full, then shrink it.
	stored, err := f.store.Bills().GetByID(ctx, b.ID)
	require.NoError(t, err)
	stored.Paid = stored.Total
	stored.RefreshBalance()
	stored.Touch()
	require.NoError(t, f.store.Bills().Update(ctx, stored))

	newQty := qty(t, "20")
	updated, err := f.bills.Update(ctx, b.ID, bill.KindPurchase, bill.UpdateInput{Quantity: &newQty})
	require.NoError(t, err)

	assert.Equal(t, types.MinorUnits(20000), updated.Total)
	assert.Equal(t, types.MinorUnits(20000), updated.Paid)
	assert.Equal(t, types.MinorUnits(0), updated.Outstanding)
	assert.Equal(t, bill.StatusPaid, updated.Status)
}

func TestUpdateKindMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	newQty := qty(t, "10")
	_, err = f.bills.Update(ctx, b.ID, bill.KindSale, bill.UpdateInput{Quantity: &newQty})
	assertCode(t, err, apperror.CodeNotFound)
}

func TestDeletePurchaseReversesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)

	require.NoError(t, f.bills.Delete(ctx, b.ID, bill.KindPurchase))

	assert.True(t, f.stockQty(t, "widget").IsZero())
	_, err = f.bills.GetByID(ctx, b.ID)
	assertCode(t, err, apperror.CodeNotFound)
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)
	sale, err := f.bills.Create(ctx, saleInput(t, "widget", "10", "15.00"))
	require.NoError(t, err)

	require.NoError(t, f.bills.Delete(ctx, sale.ID, bill.KindSale))
	assert.Equal(t, qty(t, "30"), f.stockQty(t, "widget"))
}

func TestDeletePurchaseBlockedWhenStockConsumed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	purchase, err := f.bills.Create(ctx, purchaseInput(t, "widget", "30", "10.00"))
	require.NoError(t, err)
	_, err = f.bills.Create(ctx, saleInput(t, "widget", "30", "15.00"))
	require.NoError(t, err)

	// Deleting the purchase would pull 30 out of an empty ledger.
	err = f.bills.Delete(ctx, purchase.ID, bill.KindPurchase)
	assertCode(t, err, apperror.CodeInsufficientStock)

	stored, err := f.bills.GetByID(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.ID, stored.ID)
}

func TestListOutstanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := purchaseInput(t, "widget", "10", "10.00")
	older.Date = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := purchaseInput(t, "widget", "20", "10.00")
	newer.Date = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Insert newest first to prove ordering is by date, not insertion.
	b2, err := f.bills.Create(ctx, newer)
	require.NoError(t, err)
	b1, err := f.bills.Create(ctx, older)
	require.NoError(t, err)

	bills, err := f.bills.ListOutstanding(ctx, bill.KindPurchase, "Acme Traders")
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, b1.ID, bills[0].ID)
	assert.Equal(t, b2.ID, bills[1].ID)

	total, err := f.bills.OutstandingTotal(ctx, bill.KindPurchase, "Acme Traders")
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(30000), total)
}
