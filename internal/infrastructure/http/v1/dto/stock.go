package dto

import (
	"time"

	"tradebook/internal/core/types"
	"tradebook/internal/domain/stock"
)

// --- Request DTOs ---

// SetQuantityRequest is an administrative absolute quantity override.
type SetQuantityRequest struct {
	Quantity types.Quantity `json:"quantity"`
	Unit     string         `json:"unit,omitempty"`
}

// SetThresholdRequest updates the low-stock flagging threshold.
type SetThresholdRequest struct {
	Threshold types.Quantity `json:"threshold"`
}

// --- Response DTOs ---

// StockItemResponse represents one stock ledger row.
type StockItemResponse struct {
	Name       string         `json:"name"`
	Quantity   types.Quantity `json:"quantity"`
	Unit       string         `json:"unit,omitempty"`
	LowStockAt types.Quantity `json:"lowStockAt,omitempty"`
	Low        bool           `json:"low"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// FromStockItem converts a domain item to a response DTO.
func FromStockItem(item stock.Item) StockItemResponse {
	return StockItemResponse{
		Name:       item.Name,
		Quantity:   item.Quantity,
		Unit:       item.Unit,
		LowStockAt: item.LowStockAt,
		Low:        item.IsLow(),
		UpdatedAt:  item.UpdatedAt,
	}
}

// FromStockItems converts a slice of items.
func FromStockItems(items []stock.Item) []StockItemResponse {
	out := make([]StockItemResponse, len(items))
	for i, item := range items {
		out[i] = FromStockItem(item)
	}
	return out
}
