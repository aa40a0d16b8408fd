package handlers

import (
	"github.com/gin-gonic/gin"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/domain/bill"
	"tradebook/internal/infrastructure/http/v1/dto"
)

// BillHandler handles HTTP requests for purchase and sale bills.
// The kind path parameter selects the side; one handler serves both.
type BillHandler struct {
	*BaseHandler
	service *bill.Service
}

// NewBillHandler creates a new bill handler.
func NewBillHandler(base *BaseHandler, service *bill.Service) *BillHandler {
	return &BillHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers bill endpoints on the given group.
func (h *BillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/outstanding", h.Outstanding)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// Create handles POST /bills/:kind.
func (h *BillHandler) Create(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	var req dto.CreateBillRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.Create(c.Request.Context(), req.ToInput(kind))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromBill(b))
}

// Get handles GET /bills/:kind/:id.
func (h *BillHandler) Get(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	billID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), billID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if b.Kind != kind {
		h.Error(c, apperror.NewNotFound("bill", billID.String()))
		return
	}

	h.OK(c, dto.FromBill(b))
}

// Update handles PUT /bills/:kind/:id.
func (h *BillHandler) Update(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	billID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateBillRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.Update(c.Request.Context(), billID, kind, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBill(b))
}

// Delete handles DELETE /bills/:kind/:id.
func (h *BillHandler) Delete(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	billID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), billID, kind); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Outstanding handles GET /bills/:kind/outstanding.
// Returns outstanding bills oldest first plus their summed balance.
func (h *BillHandler) Outstanding(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	counterparty := c.Query("counterparty")

	bills, err := h.service.ListOutstanding(ctx, kind, counterparty)
	if err != nil {
		h.Error(c, err)
		return
	}

	total, err := h.service.OutstandingTotal(ctx, kind, counterparty)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.OutstandingResponse{
		Bills: dto.FromBills(bills),
		Total: total,
	})
}

// List handles GET /bills/:kind.
func (h *BillHandler) List(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.service.List(c.Request.Context(), kind, req.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromBills(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}
