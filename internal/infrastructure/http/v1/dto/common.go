// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"tradebook/internal/core/id"
	"tradebook/internal/domain"
)

// --- List ---

// ListRequest contains common list query parameters.
type ListRequest struct {
	Counterparty string `form:"counterparty"`
	Item         string `form:"item"`
	Limit        int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset       int    `form:"offset" binding:"omitempty,min=0"`
}

// Filter converts the request into a domain list filter.
func (r ListRequest) Filter() domain.ListFilter {
	return domain.ListFilter{
		Counterparty: r.Counterparty,
		Item:         r.Item,
		Limit:        r.Limit,
		Offset:       r.Offset,
	}.Normalize()
}

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
