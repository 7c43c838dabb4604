package handler

import (
	"time"

	financeapp "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreditHandler serves credit lines and their movements
type CreditHandler struct {
	BaseHandler
	credits *financeapp.CreditService
}

// NewCreditHandler creates a new CreditHandler
func NewCreditHandler(credits *financeapp.CreditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// CreateCreditBody is the payload of POST /credits
type CreateCreditBody struct {
	Code         string          `json:"code" binding:"max=50"`
	Description  string          `json:"description" binding:"max=500"`
	NominalValue decimal.Decimal `json:"nominal_value"`
}

// ApplyMovementBody is the payload of POST /credits/:id/movements
type ApplyMovementBody struct {
	Type         string          `json:"type" binding:"required,oneof=inicial deducao estorno ajuste"`
	Value        decimal.Decimal `json:"value"`
	Description  string          `json:"description" binding:"max=500"`
	MovementDate string          `json:"movement_date" binding:"omitempty,datetime=2006-01-02"`
}

// CreditListQuery is bound from the query string of GET /credits
type CreditListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Search   string `form:"search"`
}

// Create handles POST /credits
func (h *CreditHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var body CreateCreditBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.credits.CreateCredit(c.Request.Context(), caller, financeapp.CreateCreditRequest{
		Code:         body.Code,
		Description:  body.Description,
		NominalValue: body.NominalValue,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /credits/:id
func (h *CreditHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.credits.GetCredit(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /credits
func (h *CreditHandler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q CreditListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	items, total, err := h.credits.ListCredits(c.Request.Context(), caller, q.Page, q.PageSize, q.Search)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, q.Page, q.PageSize)
}

// ListMovements handles GET /credits/:id/movements
func (h *CreditHandler) ListMovements(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.credits.ListMovements(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// ApplyMovement handles POST /credits/:id/movements. Without a movement
// date the movement is dated today.
func (h *CreditHandler) ApplyMovement(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var body ApplyMovementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	var date time.Time
	if body.MovementDate != "" {
		d, err := finance.ParseDate("movement_date", body.MovementDate)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		date = d
	}

	result, err := h.credits.ApplyCreditMovement(c.Request.Context(), caller, id, financeapp.ApplyCreditMovementRequest{
		Type:         finance.MovementType(body.Type),
		Value:        body.Value,
		Description:  body.Description,
		MovementDate: date,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
