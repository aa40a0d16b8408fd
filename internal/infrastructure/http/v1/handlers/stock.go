package handlers

import (
	"github.com/gin-gonic/gin"

	"tradebook/internal/domain/stock"
	"tradebook/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock ledger.
// Quantities mutate only through bills; the endpoints here read the ledger,
// apply administrative overrides and manage low-stock thresholds.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers stock endpoints on the given group.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/low", h.ListLow)
	rg.GET("/:name", h.Get)
	rg.PUT("/:name/quantity", h.SetQuantity)
	rg.PUT("/:name/threshold", h.SetThreshold)
}

// List handles GET /stock.
func (h *StockHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockItems(items))
}

// ListLow handles GET /stock/low.
func (h *StockHandler) ListLow(c *gin.Context) {
	items, err := h.service.ListLowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockItems(items))
}

// Get handles GET /stock/:name.
func (h *StockHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockItem(item))
}

// SetQuantity handles PUT /stock/:name/quantity, an administrative override.
func (h *StockHandler) SetQuantity(c *gin.Context) {
	var req dto.SetQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	name := c.Param("name")
	if err := h.service.SetAbsolute(c.Request.Context(), name, req.Quantity, req.Unit); err != nil {
		h.Error(c, err)
		return
	}

	item, err := h.service.Get(c.Request.Context(), name)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockItem(item))
}

// SetThreshold handles PUT /stock/:name/threshold.
func (h *StockHandler) SetThreshold(c *gin.Context) {
	var req dto.SetThresholdRequest
	if !h.BindJSON(c, &req) {
		return
	}

	name := c.Param("name")
	if err := h.service.SetLowStockThreshold(c.Request.Context(), name, req.Threshold); err != nil {
		h.Error(c, err)
		return
	}

	item, err := h.service.Get(c.Request.Context(), name)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockItem(item))
}
