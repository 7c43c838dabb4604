package finance

import (
	"sort"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a cash movement
type TransactionType string

const (
	TransactionEntry TransactionType = "entrada"
	TransactionExit  TransactionType = "saida"
)

// IsValid checks if the type is known
func (t TransactionType) IsValid() bool {
	return t == TransactionEntry || t == TransactionExit
}

// Sign returns +1 for entries and -1 for exits
func (t TransactionType) Sign() decimal.Decimal {
	if t == TransactionExit {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// CashTransaction is a realized movement on a bank account
type CashTransaction struct {
	shared.TenantAggregateRoot
	BankAccountID   uuid.UUID
	TransactionDate time.Time
	Type            TransactionType
	Description     string
	Value           decimal.Decimal
	PaymentMethod   string
	ObligationKind  ObligationKind
	ObligationID    *uuid.UUID
	Notes           string
	// Seq orders same-day transactions of an account by insertion; the
	// repository assigns it inside the inserting transaction
	Seq int64
	// BalanceAfter is the running total within TransactionDate; display only
	BalanceAfter decimal.Decimal
}

// CashTransactionInput carries the fields of a new transaction
type CashTransactionInput struct {
	BankAccountID   uuid.UUID
	TransactionDate time.Time
	Type            TransactionType
	Description     string
	Value           decimal.Decimal
	PaymentMethod   string
	Notes           string
}

// NewCashTransaction validates and creates a journal entry
func NewCashTransaction(tenantID uuid.UUID, in CashTransactionInput) (*CashTransaction, error) {
	if in.BankAccountID == uuid.Nil {
		return nil, shared.NewValidationError("bank_account_id", "Bank account is required")
	}
	if in.TransactionDate.IsZero() {
		return nil, shared.NewValidationError("transaction_date", "Transaction date is required")
	}
	if !in.Type.IsValid() {
		return nil, shared.NewValidationError("type", "Type must be entrada or saida")
	}
	if _, err := valueobject.NewMoney(in.Value); err != nil {
		return nil, shared.NewValidationError("value", err.Error())
	}
	if !in.Value.IsPositive() {
		return nil, shared.NewValidationError("value", "Value must be positive")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, shared.NewValidationError("description", "Description cannot be empty")
	}
	return &CashTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccountID:       in.BankAccountID,
		TransactionDate:     DateOf(in.TransactionDate),
		Type:                in.Type,
		Description:         description,
		Value:               in.Value,
		PaymentMethod:       strings.TrimSpace(in.PaymentMethod),
		Notes:               in.Notes,
	}, nil
}

// NewSettlementTransaction creates the journal entry for one settled obligation
func NewSettlementTransaction(o *Obligation, bankAccountID uuid.UUID, date time.Time, value decimal.Decimal, method, notes string) (*CashTransaction, error) {
	tx, err := NewCashTransaction(o.TenantID, CashTransactionInput{
		BankAccountID:   bankAccountID,
		TransactionDate: date,
		Type:            o.Kind.SettlementType(),
		Description:     settlementDescription(o),
		Value:           value,
		PaymentMethod:   method,
		Notes:           notes,
	})
	if err != nil {
		return nil, err
	}
	id := o.ID
	tx.ObligationKind = o.Kind
	tx.ObligationID = &id
	return tx, nil
}

func settlementDescription(o *Obligation) string {
	verb := "Payment"
	if o.Kind == KindReceivable {
		verb = "Receipt"
	}
	return verb + " " + o.Code + " - " + o.Description
}

// SignedValue returns the value with the sign of its type
func (t *CashTransaction) SignedValue() decimal.Decimal {
	return t.Value.Mul(t.Type.Sign())
}

// IsSettlement reports whether the transaction was posted by a settlement
func (t *CashTransaction) IsSettlement() bool {
	return t.ObligationID != nil
}

// SortJournal orders transactions by date then insertion order
func SortJournal(txs []CashTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].TransactionDate.Equal(txs[j].TransactionDate) {
			return txs[i].TransactionDate.Before(txs[j].TransactionDate)
		}
		return txs[i].Seq < txs[j].Seq
	})
}

// ApplyRunningBalances fills BalanceAfter with the same-day running total
// per account. It is not the account's lifetime balance.
func ApplyRunningBalances(txs []CashTransaction) {
	SortJournal(txs)
	type dayKey struct {
		account uuid.UUID
		date    time.Time
	}
	totals := make(map[dayKey]decimal.Decimal)
	for i := range txs {
		k := dayKey{account: txs[i].BankAccountID, date: txs[i].TransactionDate}
		totals[k] = totals[k].Add(txs[i].SignedValue())
		txs[i].BalanceAfter = totals[k]
	}
}
