package handler

import (
	financeapp "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementHandler serves batch settlement
type SettlementHandler struct {
	BaseHandler
	settlements *financeapp.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlements *financeapp.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// SettlementLineBody is one payment of a batch
type SettlementLineBody struct {
	Kind         string          `json:"kind" binding:"required,oneof=payable receivable"`
	ObligationID string          `json:"obligation_id" binding:"required,uuid"`
	Value        decimal.Decimal `json:"value"`
}

// SettleBatchBody is the payload of POST /settlements
type SettleBatchBody struct {
	Lines         []SettlementLineBody `json:"lines" binding:"required,min=1,max=500,dive"`
	PaymentDate   string               `json:"payment_date" binding:"required,datetime=2006-01-02"`
	PaymentMethod string               `json:"payment_method" binding:"required,max=50"`
	BankAccountID string               `json:"bank_account_id" binding:"required,uuid"`
	Notes         string               `json:"notes" binding:"max=2000"`
}

// Settle handles POST /settlements. The batch is all or nothing; a failing
// line is reported as "lines[i]" in the error details.
func (h *SettlementHandler) Settle(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var body SettleBatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	paymentDate, err := finance.ParseDate("payment_date", body.PaymentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	lines := make([]financeapp.SettlementLineRequest, len(body.Lines))
	for i, l := range body.Lines {
		lines[i] = financeapp.SettlementLineRequest{
			Kind:         finance.ObligationKind(l.Kind),
			ObligationID: uuid.MustParse(l.ObligationID),
			Value:        l.Value,
		}
	}
	result, err := h.settlements.SettleBatch(c.Request.Context(), caller, financeapp.SettleBatchRequest{
		Lines:         lines,
		PaymentDate:   paymentDate,
		PaymentMethod: body.PaymentMethod,
		BankAccountID: uuid.MustParse(body.BankAccountID),
		Notes:         body.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
