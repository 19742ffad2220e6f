package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// LedgerEntryModel is the persistence model for manual ledger entries.
// Optional columns are pointers so that inserts can omit them on legacy schemas.
type LedgerEntryModel struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	Date            time.Time       `gorm:"column:date;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Type            string          `gorm:"type:varchar(10);not null"`
	Description     string          `gorm:"type:varchar(500)"`
	CreatedBy       string          `gorm:"column:created_by;type:varchar(100)"`
	DeviceID        *int64          `gorm:"column:device_id;index"`
	CompanyID       *int64          `gorm:"column:company_id"`
	CategoryName    *string         `gorm:"column:category_name;type:varchar(100)"`
	TransactionName *string         `gorm:"column:transaction_name;type:varchar(100)"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "financial_transactions"
}

// FromDomain populates the model from a domain ledger entry
func (m *LedgerEntryModel) FromDomain(e *finance.LedgerEntry) {
	m.ID = e.ID
	m.Date = e.Date
	m.Amount = e.Amount
	m.Type = string(e.Type)
	m.Description = e.Description
	m.CreatedBy = e.CreatedBy
	m.DeviceID = int64Ptr(e.TenantID.Int64())
	m.CompanyID = positivePtr(e.CompanyID.Int64())
	m.CategoryName = stringPtr(e.CategoryName)
	m.TransactionName = stringPtr(e.TransactionName)
}

// ExpenseCategoryModel is the persistence model for expense categories
type ExpenseCategoryModel struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"type:varchar(100);not null"`
	DeviceID    *int64  `gorm:"column:device_id;index"`
	CompanyID   *int64  `gorm:"column:company_id"`
	Description *string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ExpenseCategoryModel) TableName() string {
	return "expense_categories"
}

// FromDomain populates the model from a domain category
func (m *ExpenseCategoryModel) FromDomain(c *finance.ExpenseCategory) {
	m.ID = c.ID
	m.Name = c.Name
	m.DeviceID = int64Ptr(c.TenantID.Int64())
	m.CompanyID = positivePtr(c.CompanyID.Int64())
	m.Description = stringPtr(c.Description)
}

// BudgetModel is the persistence model for budgets.
// Exactly one of DeviceID / CompanyID is set depending on the resolved scope.
type BudgetModel struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Category  string          `gorm:"type:varchar(100);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Period    string          `gorm:"type:varchar(20);not null"`
	DeviceID  *int64          `gorm:"column:device_id;index"`
	CompanyID *int64          `gorm:"column:company_id;index"`
}

// TableName returns the table name for GORM
func (BudgetModel) TableName() string {
	return "budgets"
}

// FromDomain populates the model from a domain budget
func (m *BudgetModel) FromDomain(b *finance.Budget) {
	m.ID = b.ID
	m.Category = b.Category
	m.Amount = b.Amount
	m.Period = string(b.Period)
	m.DeviceID = nil
	m.CompanyID = nil
	switch b.Scope.Kind {
	case finance.ScopeDevice:
		m.DeviceID = int64Ptr(b.Scope.Value())
	case finance.ScopeCompany:
		m.CompanyID = int64Ptr(b.Scope.Value())
	}
}

// PettyCashModel is the persistence model for petty cash movements
type PettyCashModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Date        time.Time       `gorm:"column:date;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Type        string          `gorm:"type:varchar(10);not null"`
	Description string          `gorm:"type:varchar(500)"`
	DeviceID    *int64          `gorm:"column:device_id;index"`
	CompanyID   *int64          `gorm:"column:company_id"`
	CreatedBy   *string         `gorm:"column:created_by;type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PettyCashModel) TableName() string {
	return "petty_cash"
}

// FromDomain populates the model from a domain petty cash entry
func (m *PettyCashModel) FromDomain(e *finance.PettyCashEntry) {
	m.ID = e.ID
	m.Date = e.Date
	m.Amount = e.Amount
	m.Type = string(e.Direction)
	m.Description = e.Description
	m.DeviceID = int64Ptr(e.TenantID.Int64())
	m.CompanyID = positivePtr(e.CompanyID.Int64())
	m.CreatedBy = stringPtr(e.CreatedBy)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func positivePtr(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
