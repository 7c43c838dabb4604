package handler

import (
	financeapp "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashTransactionHandler serves the cash transaction journal
type CashTransactionHandler struct {
	BaseHandler
	journal *financeapp.JournalService
}

// NewCashTransactionHandler creates a new CashTransactionHandler
func NewCashTransactionHandler(journal *financeapp.JournalService) *CashTransactionHandler {
	return &CashTransactionHandler{journal: journal}
}

// RecordCashTransactionBody is the payload of POST /cash-transactions
type RecordCashTransactionBody struct {
	BankAccountID   string          `json:"bank_account_id" binding:"required,uuid"`
	TransactionDate string          `json:"transaction_date" binding:"required,datetime=2006-01-02"`
	Type            string          `json:"type" binding:"required,oneof=entrada saida"`
	Description     string          `json:"description" binding:"required,max=500"`
	Value           decimal.Decimal `json:"value"`
	PaymentMethod   string          `json:"payment_method" binding:"max=50"`
	Notes           string          `json:"notes" binding:"max=2000"`
}

// Record handles POST /cash-transactions
func (h *CashTransactionHandler) Record(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var body RecordCashTransactionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	date, err := finance.ParseDate("transaction_date", body.TransactionDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.journal.RecordCashTransaction(c.Request.Context(), caller, financeapp.RecordCashTransactionRequest{
		BankAccountID:   uuid.MustParse(body.BankAccountID),
		TransactionDate: date,
		Type:            finance.TransactionType(body.Type),
		Description:     body.Description,
		Value:           body.Value,
		PaymentMethod:   body.PaymentMethod,
		Notes:           body.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Delete handles DELETE /cash-transactions/:id
func (h *CashTransactionHandler) Delete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.journal.DeleteCashTransaction(c.Request.Context(), caller, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get handles GET /cash-transactions/:id
func (h *CashTransactionHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.journal.GetCashTransaction(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /cash-transactions. Filtering by a single account adds the
// running total of its day to every row.
func (h *CashTransactionHandler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var filter financeapp.CashTransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	items, total, err := h.journal.ListCashTransactions(c.Request.Context(), caller, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}
