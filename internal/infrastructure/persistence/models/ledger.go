package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountModel is the persistence model for the BankAccount aggregate
type BankAccountModel struct {
	TenantAggregateModel
	Name           string                    `gorm:"type:varchar(100);not null"`
	Type           finance.BankAccountType   `gorm:"type:varchar(20);not null"`
	Code           string                    `gorm:"type:varchar(30);index"`
	InitialBalance decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	Balance        decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	Status         finance.BankAccountStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	Notes          string                    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the model to a domain BankAccount
func (m *BankAccountModel) ToDomain() *finance.BankAccount {
	return &finance.BankAccount{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		Type:                m.Type,
		Code:                m.Code,
		InitialBalance:      m.InitialBalance,
		Balance:             m.Balance,
		Status:              m.Status,
		Notes:               m.Notes,
	}
}

// FromDomain populates the model from a domain BankAccount
func (m *BankAccountModel) FromDomain(a *finance.BankAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Name = a.Name
	m.Type = a.Type
	m.Code = a.Code
	m.InitialBalance = a.InitialBalance
	m.Balance = a.Balance
	m.Status = a.Status
	m.Notes = a.Notes
}

// BankAccountModelFromDomain creates a model from a domain BankAccount
func BankAccountModelFromDomain(a *finance.BankAccount) *BankAccountModel {
	m := &BankAccountModel{}
	m.FromDomain(a)
	return m
}

// CashTransactionModel is the persistence model for journal entries
type CashTransactionModel struct {
	TenantAggregateModel
	BankAccountID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	TransactionDate time.Time               `gorm:"type:date;not null;index"`
	Type            finance.TransactionType `gorm:"type:varchar(10);not null"`
	Description     string                  `gorm:"type:varchar(255);not null"`
	Value           decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	PaymentMethod   string                  `gorm:"type:varchar(50)"`
	ObligationKind  finance.ObligationKind  `gorm:"type:varchar(20)"`
	ObligationID    *uuid.UUID              `gorm:"type:uuid;index"`
	Notes           string                  `gorm:"type:text"`
	Seq             int64                   `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (CashTransactionModel) TableName() string {
	return "cash_transactions"
}

// ToDomain converts the model to a domain CashTransaction
func (m *CashTransactionModel) ToDomain() *finance.CashTransaction {
	return &finance.CashTransaction{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		BankAccountID:       m.BankAccountID,
		TransactionDate:     finance.DateOf(m.TransactionDate),
		Type:                m.Type,
		Description:         m.Description,
		Value:               m.Value,
		PaymentMethod:       m.PaymentMethod,
		ObligationKind:      m.ObligationKind,
		ObligationID:        m.ObligationID,
		Notes:               m.Notes,
		Seq:                 m.Seq,
	}
}

// CashTransactionModelFromDomain creates a model from a domain CashTransaction
func CashTransactionModelFromDomain(t *finance.CashTransaction) *CashTransactionModel {
	m := &CashTransactionModel{
		BankAccountID:   t.BankAccountID,
		TransactionDate: finance.DateOf(t.TransactionDate),
		Type:            t.Type,
		Description:     t.Description,
		Value:           t.Value,
		PaymentMethod:   t.PaymentMethod,
		ObligationKind:  t.ObligationKind,
		ObligationID:    t.ObligationID,
		Notes:           t.Notes,
		Seq:             t.Seq,
	}
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	return m
}

// ObligationModel holds the columns shared by payables and receivables.
// Repositories query it with an explicit table; PayableModel and
// ReceivableModel exist so each table gets its own index names.
type ObligationModel struct {
	TenantAggregateModel
	Code           string                   `gorm:"type:varchar(50);not null;index"`
	CounterpartyID uuid.UUID                `gorm:"type:uuid;not null;index"`
	ContractID     *uuid.UUID               `gorm:"type:uuid"`
	Description    string                   `gorm:"type:varchar(255);not null"`
	NominalValue   decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	PaidValue      decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	RemainingValue decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	DueDate        time.Time                `gorm:"type:date;not null;index"`
	Status         finance.ObligationStatus `gorm:"type:varchar(20);not null;index"`
	Category       string                   `gorm:"type:varchar(100)"`
	CostCenter     string                   `gorm:"type:varchar(100)"`
	Notes          string                   `gorm:"type:text"`
	SettledAt      *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
}

// PayableModel maps the accounts_payable table
type PayableModel struct {
	ObligationModel
}

// TableName returns the table name for GORM
func (PayableModel) TableName() string {
	return ObligationTable(finance.KindPayable)
}

// ReceivableModel maps the accounts_receivable table
type ReceivableModel struct {
	ObligationModel
}

// TableName returns the table name for GORM
func (ReceivableModel) TableName() string {
	return ObligationTable(finance.KindReceivable)
}

// ObligationTable returns the table holding one kind of obligation
func ObligationTable(kind finance.ObligationKind) string {
	if kind == finance.KindReceivable {
		return "accounts_receivable"
	}
	return "accounts_payable"
}

// ToDomain converts the model to a domain Obligation of the given kind
func (m *ObligationModel) ToDomain(kind finance.ObligationKind) *finance.Obligation {
	return &finance.Obligation{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Kind:                kind,
		Code:                m.Code,
		CounterpartyID:      m.CounterpartyID,
		ContractID:          m.ContractID,
		Description:         m.Description,
		NominalValue:        m.NominalValue,
		PaidValue:           m.PaidValue,
		RemainingValue:      m.RemainingValue,
		DueDate:             finance.DateOf(m.DueDate),
		Status:              m.Status,
		Category:            m.Category,
		CostCenter:          m.CostCenter,
		Notes:               m.Notes,
		SettledAt:           m.SettledAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// ObligationModelFromDomain creates a model from a domain Obligation
func ObligationModelFromDomain(o *finance.Obligation) *ObligationModel {
	m := &ObligationModel{
		Code:           o.Code,
		CounterpartyID: o.CounterpartyID,
		ContractID:     o.ContractID,
		Description:    o.Description,
		NominalValue:   o.NominalValue,
		PaidValue:      o.PaidValue,
		RemainingValue: o.RemainingValue,
		DueDate:        finance.DateOf(o.DueDate),
		Status:         o.Status,
		Category:       o.Category,
		CostCenter:     o.CostCenter,
		Notes:          o.Notes,
		SettledAt:      o.SettledAt,
		CancelledAt:    o.CancelledAt,
		CancelReason:   o.CancelReason,
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	return m
}

// CreditModel is the persistence model for the Credit aggregate
type CreditModel struct {
	TenantAggregateModel
	Code           string          `gorm:"type:varchar(50);not null;index"`
	Description    string          `gorm:"type:varchar(255)"`
	NominalValue   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Initialized    bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CreditModel) TableName() string {
	return "credits"
}

// ToDomain converts the model to a domain Credit
func (m *CreditModel) ToDomain() *finance.Credit {
	return &finance.Credit{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Code:                m.Code,
		Description:         m.Description,
		NominalValue:        m.NominalValue,
		CurrentBalance:      m.CurrentBalance,
		Initialized:         m.Initialized,
	}
}

// CreditModelFromDomain creates a model from a domain Credit
func CreditModelFromDomain(c *finance.Credit) *CreditModel {
	m := &CreditModel{
		Code:           c.Code,
		Description:    c.Description,
		NominalValue:   c.NominalValue,
		CurrentBalance: c.CurrentBalance,
		Initialized:    c.Initialized,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}

// CreditMovementModel is the append-only movement trail of a credit
type CreditMovementModel struct {
	BaseModel
	TenantID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	CreditID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	MovementType  finance.MovementType `gorm:"type:varchar(20);not null"`
	Value         decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	BalanceBefore decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	BalanceAfter  decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	MovementDate  time.Time            `gorm:"type:date;not null"`
	Description   string               `gorm:"type:varchar(255)"`
	CreatedBy     uuid.UUID            `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (CreditMovementModel) TableName() string {
	return "credit_movements"
}

// ToDomain converts the model to a domain CreditMovement
func (m *CreditMovementModel) ToDomain() *finance.CreditMovement {
	return &finance.CreditMovement{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		CreditID:      m.CreditID,
		MovementType:  m.MovementType,
		Value:         m.Value,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		MovementDate:  finance.DateOf(m.MovementDate),
		Description:   m.Description,
		CreatedBy:     m.CreatedBy,
	}
}

// CreditMovementModelFromDomain creates a model from a domain CreditMovement
func CreditMovementModelFromDomain(mv *finance.CreditMovement) *CreditMovementModel {
	m := &CreditMovementModel{
		TenantID:      mv.TenantID,
		CreditID:      mv.CreditID,
		MovementType:  mv.MovementType,
		Value:         mv.Value,
		BalanceBefore: mv.BalanceBefore,
		BalanceAfter:  mv.BalanceAfter,
		MovementDate:  finance.DateOf(mv.MovementDate),
		Description:   mv.Description,
		CreatedBy:     mv.CreatedBy,
	}
	m.FromDomainBaseEntity(mv.BaseEntity)
	return m
}

// CashClosingModel is the persistence model for a daily closing
type CashClosingModel struct {
	TenantAggregateModel
	ClosingDate      time.Time               `gorm:"type:date;not null;index"`
	TotalDiscrepancy decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Notes            string                  `gorm:"type:text"`
	Entries          []CashClosingEntryModel `gorm:"foreignKey:ClosingID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (CashClosingModel) TableName() string {
	return "cash_closings"
}

// CashClosingEntryModel is one account line of a closing
type CashClosingEntryModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	ClosingID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	BankAccountID   uuid.UUID       `gorm:"type:uuid;not null"`
	BankAccountName string          `gorm:"type:varchar(100);not null"`
	InformedBalance decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ComputedBalance decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Discrepancy     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (CashClosingEntryModel) TableName() string {
	return "cash_closing_entries"
}

// ToDomain converts the model and its entries to a domain CashClosing
func (m *CashClosingModel) ToDomain() *finance.CashClosing {
	c := &finance.CashClosing{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ClosingDate:         finance.DateOf(m.ClosingDate),
		TotalDiscrepancy:    m.TotalDiscrepancy,
		Notes:               m.Notes,
		Entries:             make([]finance.CashClosingEntry, len(m.Entries)),
	}
	for i, e := range m.Entries {
		c.Entries[i] = finance.CashClosingEntry{
			ID:              e.ID,
			BankAccountID:   e.BankAccountID,
			BankAccountName: e.BankAccountName,
			InformedBalance: e.InformedBalance,
			ComputedBalance: e.ComputedBalance,
			Discrepancy:     e.Discrepancy,
		}
	}
	return c
}

// CashClosingModelFromDomain creates a model and its entries from a domain CashClosing
func CashClosingModelFromDomain(c *finance.CashClosing) *CashClosingModel {
	m := &CashClosingModel{
		ClosingDate:      finance.DateOf(c.ClosingDate),
		TotalDiscrepancy: c.TotalDiscrepancy,
		Notes:            c.Notes,
		Entries:          make([]CashClosingEntryModel, len(c.Entries)),
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	for i, e := range c.Entries {
		m.Entries[i] = CashClosingEntryModel{
			ID:              e.ID,
			ClosingID:       c.ID,
			BankAccountID:   e.BankAccountID,
			BankAccountName: e.BankAccountName,
			InformedBalance: e.InformedBalance,
			ComputedBalance: e.ComputedBalance,
			Discrepancy:     e.Discrepancy,
		}
	}
	return m
}

// AllModels lists every model for AutoMigrate in tests and local tooling
func AllModels() []any {
	return []any{
		&BankAccountModel{},
		&CashTransactionModel{},
		&PayableModel{},
		&ReceivableModel{},
		&CreditModel{},
		&CreditMovementModel{},
		&CashClosingModel{},
		&CashClosingEntryModel{},
	}
}
