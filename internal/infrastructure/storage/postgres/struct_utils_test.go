package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/core/entity"
	"tradebook/internal/domain/bill"
	"tradebook/internal/domain/payment"
	"tradebook/internal/domain/stock"
)

func TestExtractDBColumns_Bill(t *testing.T) {
	cols := ExtractDBColumns[bill.Bill]()

	// Embedded BaseRecord columns come first.
	require.NotEmpty(t, cols)
	assert.Equal(t, "id", cols[0])
	assert.Contains(t, cols, "version")
	assert.Contains(t, cols, "number")
	assert.Contains(t, cols, "kind")
	assert.Contains(t, cols, "outstanding")
	assert.Contains(t, cols, "status")
}

func TestExtractDBColumns_StockItem(t *testing.T) {
	cols := ExtractDBColumns[stock.Item]()
	assert.Equal(t, []string{"name", "quantity", "unit", "low_stock_at", "updated_at"}, cols)
}

func TestExtractDBColumns_SkipsIgnoredFields(t *testing.T) {
	cols := ExtractDBColumns[payment.HistoryRecord]()

	// Distributions is tagged db:"-" and lives in its own table.
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "distributions")
	assert.Contains(t, cols, "total_amount")
	assert.Contains(t, cols, "reversed")
}

func TestStructToMap(t *testing.T) {
	b := &bill.Bill{
		BaseRecord:   entity.NewBaseRecord(),
		Number:       "PB-2026-00001",
		Kind:         bill.KindPurchase,
		Counterparty: "Acme Traders",
		Item:         "widget",
		Quantity:     300000,
		Rate:         1000,
		Date:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Total:        30000,
	}

	m := StructToMap(b)

	assert.Equal(t, b.ID, m["id"])
	assert.Equal(t, b.Number, m["number"])
	assert.Equal(t, b.Kind, m["kind"])
	assert.Equal(t, b.Total, m["total"])
	assert.NotContains(t, m, "distributions")
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap("hello"))
}

func TestStructToMap_CachedMetadataIsStable(t *testing.T) {
	first := StructToMap(stock.Item{Name: "widget", Quantity: 10})
	second := StructToMap(stock.Item{Name: "gadget", Quantity: 20})

	require.Len(t, second, len(first))
	assert.Equal(t, "gadget", second["name"])
}
