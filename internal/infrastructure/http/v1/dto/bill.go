package dto

import (
	"time"

	"tradebook/internal/core/types"
	"tradebook/internal/domain/bill"
)

// --- Request DTOs ---

// CreateBillRequest represents a request to create a bill.
// Rate and discount arrive as decimal numbers; sub-minor-unit precision is
// rejected by the service, never rounded.
type CreateBillRequest struct {
	Counterparty string         `json:"counterparty" binding:"required"`
	Item         string         `json:"item" binding:"required"`
	Quantity     types.Quantity `json:"quantity" binding:"required"`
	Unit         string         `json:"unit,omitempty"`
	Rate         types.Money    `json:"rate" binding:"required"`
	Discount     types.Money    `json:"discount,omitempty"`
	Date         time.Time      `json:"date,omitempty"`
}

// ToInput converts the request to service input.
func (r *CreateBillRequest) ToInput(kind bill.Kind) bill.CreateInput {
	return bill.CreateInput{
		Kind:         kind,
		Counterparty: r.Counterparty,
		Item:         r.Item,
		Quantity:     r.Quantity,
		Unit:         r.Unit,
		Rate:         r.Rate,
		Discount:     r.Discount,
		Date:         r.Date,
	}
}

// UpdateBillRequest represents a partial bill edit; nil keeps current value.
type UpdateBillRequest struct {
	Counterparty *string         `json:"counterparty,omitempty"`
	Item         *string         `json:"item,omitempty"`
	Quantity     *types.Quantity `json:"quantity,omitempty"`
	Unit         *string         `json:"unit,omitempty"`
	Rate         *types.Money    `json:"rate,omitempty"`
	Discount     *types.Money    `json:"discount,omitempty"`
	Date         *time.Time      `json:"date,omitempty"`
}

// ToInput converts the request to service input.
func (r *UpdateBillRequest) ToInput() bill.UpdateInput {
	return bill.UpdateInput{
		Counterparty: r.Counterparty,
		Item:         r.Item,
		Quantity:     r.Quantity,
		Unit:         r.Unit,
		Rate:         r.Rate,
		Discount:     r.Discount,
		Date:         r.Date,
	}
}

// --- Response DTOs ---

// BillResponse represents a bill in API responses.
// Monetary fields serialize as decimal numbers in major units.
type BillResponse struct {
	ID           string             `json:"id"`
	Number       string             `json:"number"`
	Kind         bill.Kind          `json:"kind"`
	Counterparty string             `json:"counterparty"`
	Item         string             `json:"item"`
	Quantity     types.Quantity     `json:"quantity"`
	Unit         string             `json:"unit,omitempty"`
	Rate         types.MinorUnits   `json:"rate"`
	Discount     types.MinorUnits   `json:"discount,omitempty"`
	Date         time.Time          `json:"date"`
	Total        types.MinorUnits   `json:"total"`
	Paid         types.MinorUnits   `json:"paid"`
	Outstanding  types.MinorUnits   `json:"outstanding"`
	Status       bill.PaymentStatus `json:"status"`
	Version      int                `json:"version"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// FromBill converts a domain bill to a response DTO.
func FromBill(b *bill.Bill) *BillResponse {
	return &BillResponse{
		ID:           b.ID.String(),
		Number:       b.Number,
		Kind:         b.Kind,
		Counterparty: b.Counterparty,
		Item:         b.Item,
		Quantity:     b.Quantity,
		Unit:         b.Unit,
		Rate:         b.Rate,
		Discount:     b.Discount,
		Date:         b.Date,
		Total:        b.Total,
		Paid:         b.Paid,
		Outstanding:  b.Outstanding,
		Status:       b.Status,
		Version:      b.Version,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// FromBills converts a slice of bills.
func FromBills(bills []*bill.Bill) []*BillResponse {
	out := make([]*BillResponse, len(bills))
	for i, b := range bills {
		out[i] = FromBill(b)
	}
	return out
}

// OutstandingResponse lists outstanding bills with their total.
type OutstandingResponse struct {
	Bills []*BillResponse  `json:"bills"`
	Total types.MinorUnits `json:"total"`
}
