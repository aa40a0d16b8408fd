// Package payment provides payment distribution across outstanding bills and
// the append-only payment history ledger.
package payment

import (
	"time"

	"tradebook/internal/core/entity"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/bill"
)

// Distribution is the portion of one payment applied to one bill.
// It snapshots the bill's date, item and total at the time of payment so the
// audit trail stays intact even if the bill is later edited or deleted.
type Distribution struct {
	LineID    id.ID `db:"line_id" json:"lineId"`
	HistoryID id.ID `db:"history_id" json:"-"`

	BillID id.ID            `db:"bill_id" json:"billId"`
	Amount types.MinorUnits `db:"amount" json:"amount"`

	// Bill snapshot at time of payment
	BillNumber string           `db:"bill_number" json:"billNumber"`
	BillDate   time.Time        `db:"bill_date" json:"billDate"`
	Item       string           `db:"item" json:"item"`
	BillTotal  types.MinorUnits `db:"bill_total" json:"billTotal"`
}

// newDistribution snapshots a bill into a distribution line.
func newDistribution(b *bill.Bill, amount types.MinorUnits) Distribution {
	return Distribution{
		LineID:     id.New(),
		BillID:     b.ID,
		Amount:     amount,
		BillNumber: b.Number,
		BillDate:   b.Date,
		Item:       b.Item,
		BillTotal:  b.Total,
	}
}

// HistoryRecord is one immutable payment transaction: a counterparty paid
// TotalAmount, split across the listed distributions. The sum of the
// distribution amounts always equals TotalAmount and is never recomputed,
// even if later bill edits change those bills' totals. Reversal flips the
// Reversed flag; the record itself is never deleted.
type HistoryRecord struct {
	entity.BaseRecord

	Kind         bill.Kind `db:"kind" json:"kind"`
	Counterparty string    `db:"counterparty" json:"counterparty"`

	// Date is the payment date
	Date time.Time `db:"date" json:"date"`

	// TotalAmount is the amount paid in this transaction
	TotalAmount types.MinorUnits `db:"total_amount" json:"totalAmount"`

	Reversed   bool       `db:"reversed" json:"reversed"`
	ReversedAt *time.Time `db:"reversed_at" json:"reversedAt,omitempty"`

	Distributions []Distribution `db:"-" json:"distributions"`
}

// newHistoryRecord assembles a record and stamps its id into the lines.
func newHistoryRecord(kind bill.Kind, counterparty string, total types.MinorUnits, dists []Distribution) *HistoryRecord {
	rec := &HistoryRecord{
		BaseRecord:    entity.NewBaseRecord(),
		Kind:          kind,
		Counterparty:  counterparty,
		Date:          time.Now().UTC(),
		TotalAmount:   total,
		Distributions: dists,
	}
	for i := range rec.Distributions {
		rec.Distributions[i].HistoryID = rec.ID
	}
	return rec
}
