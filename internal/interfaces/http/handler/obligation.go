package handler

import (
	financeapp "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationHandler serves one registry, payables or receivables. The
// router mounts one instance per kind.
type ObligationHandler struct {
	BaseHandler
	kind        finance.ObligationKind
	obligations *financeapp.ObligationService
}

// NewObligationHandler creates a handler bound to kind
func NewObligationHandler(kind finance.ObligationKind, obligations *financeapp.ObligationService) *ObligationHandler {
	return &ObligationHandler{kind: kind, obligations: obligations}
}

// Kind is the registry this handler serves
func (h *ObligationHandler) Kind() finance.ObligationKind {
	return h.kind
}

// CreateObligationBody is the payload of POST /payables and /receivables
type CreateObligationBody struct {
	Code           string          `json:"code" binding:"max=50"`
	CounterpartyID string          `json:"counterparty_id" binding:"required,uuid"`
	ContractID     string          `json:"contract_id" binding:"omitempty,uuid"`
	Description    string          `json:"description" binding:"required,max=500"`
	NominalValue   decimal.Decimal `json:"nominal_value"`
	DueDate        string          `json:"due_date" binding:"required,datetime=2006-01-02"`
	Category       string          `json:"category" binding:"max=100"`
	CostCenter     string          `json:"cost_center" binding:"max=100"`
	Notes          string          `json:"notes" binding:"max=2000"`
}

// UpdateObligationBody is the payload of PUT /payables/:id
type UpdateObligationBody struct {
	Description string `json:"description" binding:"required,max=500"`
	DueDate     string `json:"due_date" binding:"required,datetime=2006-01-02"`
	Category    string `json:"category" binding:"max=100"`
	CostCenter  string `json:"cost_center" binding:"max=100"`
	Notes       string `json:"notes" binding:"max=2000"`
}

// CancelObligationBody is the payload of POST /payables/:id/cancel
type CancelObligationBody struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CorrectStatusBody is the payload of POST /payables/:id/status
type CorrectStatusBody struct {
	Status string `json:"status" binding:"required,oneof=em_aberto parcialmente_pago vencido quitado cancelado"`
}

// Create handles POST /{kind}s
func (h *ObligationHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var body CreateObligationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	due, err := finance.ParseDate("due_date", body.DueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	req := financeapp.CreateObligationRequest{
		Code:           body.Code,
		CounterpartyID: uuid.MustParse(body.CounterpartyID),
		Description:    body.Description,
		NominalValue:   body.NominalValue,
		DueDate:        due,
		Category:       body.Category,
		CostCenter:     body.CostCenter,
		Notes:          body.Notes,
	}
	if body.ContractID != "" {
		contractID := uuid.MustParse(body.ContractID)
		req.ContractID = &contractID
	}
	resp, err := h.obligations.Create(c.Request.Context(), caller, h.kind, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /{kind}s/:id
func (h *ObligationHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.obligations.Get(c.Request.Context(), caller, h.kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /{kind}s
func (h *ObligationHandler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var filter financeapp.ObligationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	items, total, err := h.obligations.List(c.Request.Context(), caller, h.kind, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Update handles PUT /{kind}s/:id
func (h *ObligationHandler) Update(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var body UpdateObligationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	due, err := finance.ParseDate("due_date", body.DueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.obligations.UpdateDetails(c.Request.Context(), caller, h.kind, id, financeapp.UpdateObligationRequest{
		Description: body.Description,
		DueDate:     due,
		Category:    body.Category,
		CostCenter:  body.CostCenter,
		Notes:       body.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /{kind}s/:id/cancel
func (h *ObligationHandler) Cancel(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var body CancelObligationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.obligations.Cancel(c.Request.Context(), caller, h.kind, id, body.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CorrectStatus handles POST /{kind}s/:id/status (admin only)
func (h *ObligationHandler) CorrectStatus(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var body CorrectStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.obligations.CorrectStatus(c.Request.Context(), caller, h.kind, id, finance.ObligationStatus(body.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReclassifyOverdue handles POST /{kind}s/reclassify-overdue
func (h *ObligationHandler) ReclassifyOverdue(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	result, err := h.obligations.ReclassifyOverdue(c.Request.Context(), caller, h.kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Summary handles GET /{kind}s/summary
func (h *ObligationHandler) Summary(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	summary, err := h.obligations.Summary(c.Request.Context(), caller, h.kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
