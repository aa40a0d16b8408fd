package dto

import (
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/bill"
	"tradebook/internal/domain/payment"
)

// --- Request DTOs ---

// PayBulkRequest records a payment auto-allocated oldest-first.
type PayBulkRequest struct {
	Counterparty string      `json:"counterparty" binding:"required"`
	Amount       types.Money `json:"amount" binding:"required"`
}

// PayExplicitRequest records a payment with caller-chosen per-bill amounts.
type PayExplicitRequest struct {
	Counterparty string                `json:"counterparty" binding:"required"`
	Amount       types.Money           `json:"amount" binding:"required"`
	Lines        []ExplicitLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ExplicitLineRequest is one caller-chosen allocation.
type ExplicitLineRequest struct {
	BillID string      `json:"billId" binding:"required"`
	Amount types.Money `json:"amount" binding:"required"`
}

// ToLines converts request lines to domain lines.
func (r *PayExplicitRequest) ToLines() ([]payment.ExplicitLine, error) {
	lines := make([]payment.ExplicitLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		billID, err := id.Parse(line.BillID)
		if err != nil {
			return nil, apperror.NewValidation("invalid bill id").WithDetail("billId", line.BillID)
		}
		lines = append(lines, payment.ExplicitLine{BillID: billID, Amount: line.Amount})
	}
	return lines, nil
}

// --- Response DTOs ---

// DistributionResponse is one applied allocation in a payment.
type DistributionResponse struct {
	LineID     string           `json:"lineId"`
	BillID     string           `json:"billId"`
	Amount     types.MinorUnits `json:"amount"`
	BillNumber string           `json:"billNumber"`
	BillDate   time.Time        `json:"billDate"`
	Item       string           `json:"item"`
	BillTotal  types.MinorUnits `json:"billTotal"`
}

// PaymentResponse represents one payment history record.
type PaymentResponse struct {
	ID            string                 `json:"id"`
	Kind          bill.Kind              `json:"kind"`
	Counterparty  string                 `json:"counterparty"`
	Date          time.Time              `json:"date"`
	TotalAmount   types.MinorUnits       `json:"totalAmount"`
	Reversed      bool                   `json:"reversed"`
	ReversedAt    *time.Time             `json:"reversedAt,omitempty"`
	Distributions []DistributionResponse `json:"distributions"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// FromHistoryRecord converts a domain record to a response DTO.
func FromHistoryRecord(rec *payment.HistoryRecord) *PaymentResponse {
	resp := &PaymentResponse{
		ID:           rec.ID.String(),
		Kind:         rec.Kind,
		Counterparty: rec.Counterparty,
		Date:         rec.Date,
		TotalAmount:  rec.TotalAmount,
		Reversed:     rec.Reversed,
		ReversedAt:   rec.ReversedAt,
		CreatedAt:    rec.CreatedAt,
	}

	resp.Distributions = make([]DistributionResponse, len(rec.Distributions))
	for i, d := range rec.Distributions {
		resp.Distributions[i] = DistributionResponse{
			LineID:     d.LineID.String(),
			BillID:     d.BillID.String(),
			Amount:     d.Amount,
			BillNumber: d.BillNumber,
			BillDate:   d.BillDate,
			Item:       d.Item,
			BillTotal:  d.BillTotal,
		}
	}

	return resp
}

// FromHistoryRecords converts a slice of records.
func FromHistoryRecords(recs []*payment.HistoryRecord) []*PaymentResponse {
	out := make([]*PaymentResponse, len(recs))
	for i, rec := range recs {
		out[i] = FromHistoryRecord(rec)
	}
	return out
}
