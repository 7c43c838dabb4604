package handler

import (
	financeapp "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BankAccountHandler serves the bank account ledger
type BankAccountHandler struct {
	BaseHandler
	ledger *financeapp.LedgerService
}

// NewBankAccountHandler creates a new BankAccountHandler
func NewBankAccountHandler(ledger *financeapp.LedgerService) *BankAccountHandler {
	return &BankAccountHandler{ledger: ledger}
}

// CreateBankAccountBody is the payload of POST /bank-accounts
type CreateBankAccountBody struct {
	Name           string          `json:"name" binding:"required,max=100"`
	Type           string          `json:"type" binding:"required,oneof=bank cash savings investment"`
	Code           string          `json:"code" binding:"max=50"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Notes          string          `json:"notes" binding:"max=2000"`
}

// UpdateBankAccountBody is the payload of PUT /bank-accounts/:id
type UpdateBankAccountBody struct {
	Name           string           `json:"name" binding:"required,max=100"`
	Type           string           `json:"type" binding:"required,oneof=bank cash savings investment"`
	Code           string           `json:"code" binding:"max=50"`
	Notes          string           `json:"notes" binding:"max=2000"`
	Status         *string          `json:"status" binding:"omitempty,oneof=active inactive"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
}

// Create handles POST /bank-accounts
func (h *BankAccountHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var body CreateBankAccountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.ledger.CreateBankAccount(c.Request.Context(), caller, financeapp.CreateBankAccountRequest{
		Name:           body.Name,
		Type:           finance.BankAccountType(body.Type),
		Code:           body.Code,
		InitialBalance: body.InitialBalance,
		Notes:          body.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update handles PUT /bank-accounts/:id
func (h *BankAccountHandler) Update(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var body UpdateBankAccountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}

	req := financeapp.UpdateBankAccountRequest{
		Name:           body.Name,
		Type:           finance.BankAccountType(body.Type),
		Code:           body.Code,
		Notes:          body.Notes,
		InitialBalance: body.InitialBalance,
	}
	if body.Status != nil {
		status := finance.BankAccountStatus(*body.Status)
		req.Status = &status
	}
	resp, err := h.ledger.UpdateBankAccount(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get handles GET /bank-accounts/:id
func (h *BankAccountHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ledger.GetBankAccount(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /bank-accounts
func (h *BankAccountHandler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var filter financeapp.BankAccountListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	items, total, err := h.ledger.ListBankAccounts(c.Request.Context(), caller, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Recompute handles POST /bank-accounts/:id/recompute
func (h *BankAccountHandler) Recompute(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.ledger.RecomputeBalance(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Verify handles POST /bank-accounts/verify
func (h *BankAccountHandler) Verify(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	result, err := h.ledger.VerifyBalances(c.Request.Context(), caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
