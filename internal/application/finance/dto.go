package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) valueobject.Money {
	return valueobject.FromDecimal(d)
}

// ---------------------------------------------------------------------------
// Bank accounts
// ---------------------------------------------------------------------------

// CreateBankAccountRequest creates a bank account
type CreateBankAccountRequest struct {
	Name           string
	Type           finance.BankAccountType
	Code           string
	InitialBalance decimal.Decimal
	Notes          string
}

// UpdateBankAccountRequest updates a bank account. Nil pointers leave the field alone.
type UpdateBankAccountRequest struct {
	Name           string
	Type           finance.BankAccountType
	Code           string
	Notes          string
	Status         *finance.BankAccountStatus
	InitialBalance *decimal.Decimal
}

// BankAccountListFilter is bound from query parameters
type BankAccountListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
	Status   string `form:"status"`
	Type     string `form:"type"`
}

// BankAccountResponse is the read model of a bank account
type BankAccountResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Code           string            `json:"code,omitempty"`
	InitialBalance valueobject.Money `json:"initial_balance"`
	Balance        valueobject.Money `json:"balance"`
	Status         string            `json:"status"`
	Notes          string            `json:"notes,omitempty"`
	Version        int               `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ToBankAccountResponse maps the aggregate to its read model
func ToBankAccountResponse(a *finance.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Type:           string(a.Type),
		Code:           a.Code,
		InitialBalance: money(a.InitialBalance),
		Balance:        money(a.Balance),
		Status:         string(a.Status),
		Notes:          a.Notes,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// RecomputeResult reports a full balance recompute
type RecomputeResult struct {
	BankAccountID uuid.UUID         `json:"bank_account_id"`
	Name          string            `json:"name"`
	Previous      valueobject.Money `json:"previous_balance"`
	Recomputed    valueobject.Money `json:"recomputed_balance"`
	Drift         valueobject.Money `json:"drift"`
}

// VerifyBalancesResult reports the integrity check over every account
type VerifyBalancesResult struct {
	Checked int               `json:"checked"`
	Drifted []RecomputeResult `json:"drifted"`
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

// RecordCashTransactionRequest records a manual journal entry
type RecordCashTransactionRequest struct {
	BankAccountID   uuid.UUID
	TransactionDate time.Time
	Type            finance.TransactionType
	Description     string
	Value           decimal.Decimal
	PaymentMethod   string
	Notes           string
}

// CashTransactionListFilter is bound from query parameters
type CashTransactionListFilter struct {
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
	BankAccountID string `form:"bank_account_id"`
	Type          string `form:"type"`
	DateFrom      string `form:"date_from"`
	DateTo        string `form:"date_to"`
	ObligationID  string `form:"obligation_id"`
}

// CashTransactionResponse is the read model of a journal entry
type CashTransactionResponse struct {
	ID              uuid.UUID          `json:"id"`
	BankAccountID   uuid.UUID          `json:"bank_account_id"`
	TransactionDate string             `json:"transaction_date"`
	Type            string             `json:"type"`
	Description     string             `json:"description"`
	Value           valueobject.Money  `json:"value"`
	PaymentMethod   string             `json:"payment_method,omitempty"`
	ObligationKind  string             `json:"obligation_kind,omitempty"`
	ObligationID    *uuid.UUID         `json:"obligation_id,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	BalanceAfter    *valueobject.Money `json:"balance_after,omitempty"`
	CreatedBy       *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ToCashTransactionResponse maps a journal entry to its read model
func ToCashTransactionResponse(t *finance.CashTransaction, withRunning bool) CashTransactionResponse {
	resp := CashTransactionResponse{
		ID:              t.ID,
		BankAccountID:   t.BankAccountID,
		TransactionDate: finance.FormatDate(t.TransactionDate),
		Type:            string(t.Type),
		Description:     t.Description,
		Value:           money(t.Value),
		PaymentMethod:   t.PaymentMethod,
		ObligationKind:  string(t.ObligationKind),
		ObligationID:    t.ObligationID,
		Notes:           t.Notes,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
	}
	if withRunning {
		running := money(t.BalanceAfter)
		resp.BalanceAfter = &running
	}
	return resp
}

// ---------------------------------------------------------------------------
// Obligations
// ---------------------------------------------------------------------------

// CreateObligationRequest registers a payable or receivable
type CreateObligationRequest struct {
	Code           string
	CounterpartyID uuid.UUID
	ContractID     *uuid.UUID
	Description    string
	NominalValue   decimal.Decimal
	DueDate        time.Time
	Category       string
	CostCenter     string
	Notes          string
}

// UpdateObligationRequest edits the descriptive fields of an obligation
type UpdateObligationRequest struct {
	Description string
	DueDate     time.Time
	Category    string
	CostCenter  string
	Notes       string
}

// ObligationListFilter is bound from query parameters
type ObligationListFilter struct {
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir"`
	Search         string `form:"search"`
	Status         string `form:"status"` // comma separated
	DueFrom        string `form:"due_from"`
	DueTo          string `form:"due_to"`
	Code           string `form:"code"`
	CounterpartyID string `form:"counterparty_id"`
	MinValue       string `form:"min_value"`
	MaxValue       string `form:"max_value"`
}

// ObligationResponse is the read model of a payable or receivable
type ObligationResponse struct {
	ID             uuid.UUID         `json:"id"`
	Kind           string            `json:"kind"`
	Code           string            `json:"code"`
	CounterpartyID uuid.UUID         `json:"counterparty_id"`
	ContractID     *uuid.UUID        `json:"contract_id,omitempty"`
	Description    string            `json:"description"`
	NominalValue   valueobject.Money `json:"nominal_value"`
	PaidValue      valueobject.Money `json:"paid_value"`
	RemainingValue valueobject.Money `json:"remaining_value"`
	DueDate        string            `json:"due_date"`
	Status         string            `json:"status"`
	DaysOverdue    int               `json:"days_overdue"`
	PaidPercentage string            `json:"paid_percentage"`
	Category       string            `json:"category,omitempty"`
	CostCenter     string            `json:"cost_center,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	SettledAt      *time.Time        `json:"settled_at,omitempty"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
	Version        int               `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ToObligationResponse maps an obligation to its read model as of today
func ToObligationResponse(o *finance.Obligation, today time.Time) ObligationResponse {
	return ObligationResponse{
		ID:             o.ID,
		Kind:           string(o.Kind),
		Code:           o.Code,
		CounterpartyID: o.CounterpartyID,
		ContractID:     o.ContractID,
		Description:    o.Description,
		NominalValue:   money(o.NominalValue),
		PaidValue:      money(o.PaidValue),
		RemainingValue: money(o.RemainingValue),
		DueDate:        finance.FormatDate(o.DueDate),
		Status:         string(o.Status),
		DaysOverdue:    o.DaysOverdue(today),
		PaidPercentage: o.PaidPercentage().StringFixed(2),
		Category:       o.Category,
		CostCenter:     o.CostCenter,
		Notes:          o.Notes,
		SettledAt:      o.SettledAt,
		CancelledAt:    o.CancelledAt,
		CancelReason:   o.CancelReason,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// StatusTotals aggregates obligations of one status
type StatusTotals struct {
	Count     int64             `json:"count"`
	Nominal   valueobject.Money `json:"nominal"`
	Remaining valueobject.Money `json:"remaining"`
}

// ObligationSummary aggregates a registry per status
type ObligationSummary struct {
	Kind             string                  `json:"kind"`
	ByStatus         map[string]StatusTotals `json:"by_status"`
	TotalOutstanding valueobject.Money       `json:"total_outstanding"`
	TotalOverdue     valueobject.Money       `json:"total_overdue"`
}

// ReclassifyResult reports an overdue pass
type ReclassifyResult struct {
	Kind         string `json:"kind"`
	Reclassified int    `json:"reclassified"`
	Date         string `json:"date"`
}

// ---------------------------------------------------------------------------
// Settlement
// ---------------------------------------------------------------------------

// SettlementLineRequest is one payment in a batch
type SettlementLineRequest struct {
	Kind         finance.ObligationKind
	ObligationID uuid.UUID
	Value        decimal.Decimal
}

// SettleBatchRequest settles one or more obligations against one bank account
type SettleBatchRequest struct {
	Lines         []SettlementLineRequest
	PaymentDate   time.Time
	PaymentMethod string
	BankAccountID uuid.UUID
	Notes         string
}

// SettleBatchResult reports a committed batch
type SettleBatchResult struct {
	Processed    int                       `json:"processed"`
	NetAmount    valueobject.Money         `json:"net_amount"`
	BankAccount  BankAccountResponse       `json:"bank_account"`
	Transactions []CashTransactionResponse `json:"transactions"`
	Obligations  []ObligationResponse      `json:"obligations"`
}

// ---------------------------------------------------------------------------
// Credits
// ---------------------------------------------------------------------------

// CreateCreditRequest creates a credit line
type CreateCreditRequest struct {
	Code         string
	Description  string
	NominalValue decimal.Decimal
}

// ApplyCreditMovementRequest moves a credit balance
type ApplyCreditMovementRequest struct {
	Type         finance.MovementType
	Value        decimal.Decimal
	Description  string
	MovementDate time.Time
}

// CreditResponse is the read model of a credit line
type CreditResponse struct {
	ID             uuid.UUID         `json:"id"`
	Code           string            `json:"code"`
	Description    string            `json:"description,omitempty"`
	NominalValue   valueobject.Money `json:"nominal_value"`
	CurrentBalance valueobject.Money `json:"current_balance"`
	Initialized    bool              `json:"initialized"`
	Version        int               `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ToCreditResponse maps a credit to its read model
func ToCreditResponse(c *finance.Credit) CreditResponse {
	return CreditResponse{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		NominalValue:   money(c.NominalValue),
		CurrentBalance: money(c.CurrentBalance),
		Initialized:    c.Initialized,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// CreditMovementResponse is the read model of a movement
type CreditMovementResponse struct {
	ID            uuid.UUID         `json:"id"`
	CreditID      uuid.UUID         `json:"credit_id"`
	MovementType  string            `json:"movement_type"`
	Value         valueobject.Money `json:"value"`
	BalanceBefore valueobject.Money `json:"balance_before"`
	BalanceAfter  valueobject.Money `json:"balance_after"`
	MovementDate  string            `json:"movement_date"`
	Description   string            `json:"description,omitempty"`
	CreatedBy     uuid.UUID         `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ToCreditMovementResponse maps a movement to its read model
func ToCreditMovementResponse(m *finance.CreditMovement) CreditMovementResponse {
	return CreditMovementResponse{
		ID:            m.ID,
		CreditID:      m.CreditID,
		MovementType:  string(m.MovementType),
		Value:         money(m.Value),
		BalanceBefore: money(m.BalanceBefore),
		BalanceAfter:  money(m.BalanceAfter),
		MovementDate:  finance.FormatDate(m.MovementDate),
		Description:   m.Description,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}

// CreditMovementResult is returned after a movement is applied
type CreditMovementResult struct {
	Credit   CreditResponse         `json:"credit"`
	Movement CreditMovementResponse `json:"movement"`
}

// ---------------------------------------------------------------------------
// Cash closing
// ---------------------------------------------------------------------------

// CloseCashRequest closes a calendar day
type CloseCashRequest struct {
	Date             time.Time
	InformedBalances map[uuid.UUID]decimal.Decimal
	Notes            string
}

// CashClosingEntryResponse is one account line of a closing
type CashClosingEntryResponse struct {
	BankAccountID   uuid.UUID         `json:"bank_account_id"`
	BankAccountName string            `json:"bank_account_name"`
	InformedBalance valueobject.Money `json:"informed_balance"`
	ComputedBalance valueobject.Money `json:"computed_balance"`
	Discrepancy     valueobject.Money `json:"discrepancy"`
}

// CashClosingResponse is the read model of a closing
type CashClosingResponse struct {
	ID               uuid.UUID                  `json:"id"`
	ClosingDate      string                     `json:"closing_date"`
	Entries          []CashClosingEntryResponse `json:"entries"`
	TotalDiscrepancy valueobject.Money          `json:"total_discrepancy"`
	Notes            string                     `json:"notes,omitempty"`
	ClosedBy         *uuid.UUID                 `json:"closed_by,omitempty"`
	CreatedAt        time.Time                  `json:"created_at"`
}

// ToCashClosingResponse maps a closing to its read model
func ToCashClosingResponse(c *finance.CashClosing) CashClosingResponse {
	entries := make([]CashClosingEntryResponse, 0, len(c.Entries))
	for _, e := range c.Entries {
		entries = append(entries, CashClosingEntryResponse{
			BankAccountID:   e.BankAccountID,
			BankAccountName: e.BankAccountName,
			InformedBalance: money(e.InformedBalance),
			ComputedBalance: money(e.ComputedBalance),
			Discrepancy:     money(e.Discrepancy),
		})
	}
	return CashClosingResponse{
		ID:               c.ID,
		ClosingDate:      finance.FormatDate(c.ClosingDate),
		Entries:          entries,
		TotalDiscrepancy: money(c.TotalDiscrepancy),
		Notes:            c.Notes,
		ClosedBy:         c.CreatedBy,
		CreatedAt:        c.CreatedAt,
	}
}
