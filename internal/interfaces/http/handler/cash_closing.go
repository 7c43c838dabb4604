package handler

import (
	"fmt"
	"time"

	financeapp "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashClosingHandler serves daily cash closings
type CashClosingHandler struct {
	BaseHandler
	closings *financeapp.ClosingService
}

// NewCashClosingHandler creates a new CashClosingHandler
func NewCashClosingHandler(closings *financeapp.ClosingService) *CashClosingHandler {
	return &CashClosingHandler{closings: closings}
}

// InformedBalanceBody is the counted balance of one account
type InformedBalanceBody struct {
	BankAccountID   string          `json:"bank_account_id" binding:"required,uuid"`
	InformedBalance decimal.Decimal `json:"informed_balance"`
}

// CloseCashBody is the payload of POST /cash-closings. Every active
// account must appear exactly once in balances.
type CloseCashBody struct {
	ClosingDate string                `json:"closing_date" binding:"required,datetime=2006-01-02"`
	Balances    []InformedBalanceBody `json:"balances" binding:"dive"`
	Notes       string                `json:"notes" binding:"max=2000"`
}

// ClosingRangeQuery is bound from the query string of GET /cash-closings
type ClosingRangeQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// OpenDays handles GET /cash-closings/open-days
func (h *CashClosingHandler) OpenDays(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	days, err := h.closings.OpenDays(c.Request.Context(), caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, days)
}

// Close handles POST /cash-closings
func (h *CashClosingHandler) Close(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var body CloseCashBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	date, err := finance.ParseDate("closing_date", body.ClosingDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	informed := make(map[uuid.UUID]decimal.Decimal, len(body.Balances))
	for i, b := range body.Balances {
		id := uuid.MustParse(b.BankAccountID)
		if _, dup := informed[id]; dup {
			h.HandleError(c, shared.NewValidationError(fmt.Sprintf("balances[%d]", i), "Bank account informed more than once"))
			return
		}
		informed[id] = b.InformedBalance
	}

	resp, err := h.closings.Close(c.Request.Context(), caller, financeapp.CloseCashRequest{
		Date:             date,
		InformedBalances: informed,
		Notes:            body.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /cash-closings/:date
func (h *CashClosingHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	date, err := finance.ParseDate("date", c.Param("date"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp, err := h.closings.GetClosing(c.Request.Context(), caller, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /cash-closings?from=&to=
func (h *CashClosingHandler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q ClosingRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	from, err := optionalDate("from", q.From)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	to, err := optionalDate("to", q.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items, err := h.closings.ListClosings(c.Request.Context(), caller, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

func optionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := finance.ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
