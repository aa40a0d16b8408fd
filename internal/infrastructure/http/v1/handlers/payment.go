package handlers

import (
	"github.com/gin-gonic/gin"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/domain/payment"
	"tradebook/internal/infrastructure/http/v1/dto"
)

// PaymentHandler handles HTTP requests for payments and the history ledger.
type PaymentHandler struct {
	*BaseHandler
	service *payment.Service
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(base *BaseHandler, service *payment.Service) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers payment endpoints on the given group.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bulk", h.PayBulk)
	rg.POST("/explicit", h.PayExplicit)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/reverse", h.Reverse)
}

// PayBulk handles POST /payments/:kind/bulk.
// The amount is auto-allocated across outstanding bills, oldest first.
func (h *PaymentHandler) PayBulk(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	var req dto.PayBulkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.PayBulk(c.Request.Context(), kind, req.Counterparty, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromHistoryRecord(rec))
}

// PayExplicit handles POST /payments/:kind/explicit.
// The caller chooses per-bill amounts; the batch is all-or-nothing.
func (h *PaymentHandler) PayExplicit(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	var req dto.PayExplicitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	rec, err := h.service.PayExplicit(c.Request.Context(), kind, req.Counterparty, req.Amount, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromHistoryRecord(rec))
}

// Get handles GET /payments/:kind/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	kind, ok := h.ParseKind(c)
	if !ok {
		return
	}

	historyID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	rec, err := h.service.GetByID(c.Request.Context(), historyID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if rec.Kind != kind {
		h.Error(c, apperror.NewNotFound("payment", historyID.String()))
		return
	}

	h.OK(c, dto.FromHistoryRecord(rec))
}

// Reverse handles POST /payments/:kind/:id/reverse.
func (h *PaymentHandler) Reverse(c *gin.Context) {
	if _, ok := h.ParseKind(c); !ok {
		return
	}

	historyID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Reverse(c.Request.Context(), historyID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "payment reversed")
}

// List handles GET /payments/:kind.
func (h *PaymentHandler) List(c *gin.Context) {
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
		Items:      dto.FromHistoryRecords(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}
