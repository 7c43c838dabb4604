package finance

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountType classifies where the money sits
type BankAccountType string

const (
	AccountTypeBank       BankAccountType = "bank"
	AccountTypeCash       BankAccountType = "cash"
	AccountTypeSavings    BankAccountType = "savings"
	AccountTypeInvestment BankAccountType = "investment"
)

// IsValid checks if the type is known
func (t BankAccountType) IsValid() bool {
	switch t {
	case AccountTypeBank, AccountTypeCash, AccountTypeSavings, AccountTypeInvestment:
		return true
	}
	return false
}

// BankAccountStatus is active or inactive; accounts are never deleted
type BankAccountStatus string

const (
	AccountStatusActive   BankAccountStatus = "active"
	AccountStatusInactive BankAccountStatus = "inactive"
)

// IsValid checks if the status is known
func (s BankAccountStatus) IsValid() bool {
	return s == AccountStatusActive || s == AccountStatusInactive
}

// BankAccount holds the authoritative running balance of one account.
// Balance = InitialBalance + Σ entries - Σ exits over live transactions.
type BankAccount struct {
	shared.TenantAggregateRoot
	Name           string
	Type           BankAccountType
	Code           string
	InitialBalance decimal.Decimal
	Balance        decimal.Decimal
	Status         BankAccountStatus
	Notes          string
}

// NewBankAccount creates an active account whose balance starts at the initial balance
func NewBankAccount(tenantID uuid.UUID, name string, accountType BankAccountType, code string, initial decimal.Decimal) (*BankAccount, error) {
	a := &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Status:              AccountStatusActive,
	}
	if err := a.setDetails(name, accountType, code); err != nil {
		return nil, err
	}
	if _, err := valueobject.NewMoney(initial); err != nil {
		return nil, shared.NewValidationError("initial_balance", err.Error())
	}
	a.InitialBalance = initial
	a.Balance = initial
	return a, nil
}

func (a *BankAccount) setDetails(name string, accountType BankAccountType, code string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("name", "Account name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewValidationError("name", "Account name cannot exceed 100 characters")
	}
	if !accountType.IsValid() {
		return shared.NewValidationError("type", "Type must be one of bank, cash, savings, investment")
	}
	code = strings.TrimSpace(code)
	if len(code) > 30 {
		return shared.NewValidationError("code", "Code cannot exceed 30 characters")
	}
	a.Name = name
	a.Type = accountType
	a.Code = code
	return nil
}

// Update changes descriptive fields
func (a *BankAccount) Update(name string, accountType BankAccountType, code, notes string) error {
	if err := a.setDetails(name, accountType, code); err != nil {
		return err
	}
	a.Notes = notes
	a.IncrementVersion()
	return nil
}

// IsActive reports whether the account accepts new transactions
func (a *BankAccount) IsActive() bool {
	return a.Status == AccountStatusActive
}

// EnsureActive returns ACCOUNT_INACTIVE for inactive accounts
func (a *BankAccount) EnsureActive() error {
	if !a.IsActive() {
		return shared.NewDomainErrorf(CodeAccountInactive, "Bank account %s is inactive", a.Name)
	}
	return nil
}

// Deactivate hides the account from new-transaction pickers. A nonzero
// balance does not block deactivation; reporting keeps reading it.
func (a *BankAccount) Deactivate() {
	if a.Status == AccountStatusInactive {
		return
	}
	a.Status = AccountStatusInactive
	a.IncrementVersion()
}

// Activate re-enables the account
func (a *BankAccount) Activate() {
	if a.Status == AccountStatusActive {
		return
	}
	a.Status = AccountStatusActive
	a.IncrementVersion()
}

// ApplyDelta moves the balance by a signed amount
func (a *BankAccount) ApplyDelta(signed decimal.Decimal) {
	a.Balance = a.Balance.Add(signed)
	a.IncrementVersion()
}

// ChangeInitialBalance sets a new opening balance; the caller recomputes afterwards
func (a *BankAccount) ChangeInitialBalance(initial decimal.Decimal) error {
	if _, err := valueobject.NewMoney(initial); err != nil {
		return shared.NewValidationError("initial_balance", err.Error())
	}
	a.InitialBalance = initial
	return nil
}

// ResetBalance stores a freshly recomputed balance and returns the drift
// (recomputed minus previously stored).
func (a *BankAccount) ResetBalance(recomputed decimal.Decimal) decimal.Decimal {
	drift := recomputed.Sub(a.Balance)
	a.Balance = recomputed
	a.IncrementVersion()
	return drift
}

// ComputeBalance is the full-scan definition of an account balance
func ComputeBalance(initial decimal.Decimal, txs []CashTransaction) decimal.Decimal {
	total := initial
	for i := range txs {
		total = total.Add(txs[i].SignedValue())
	}
	return total
}
