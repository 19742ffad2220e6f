package finance

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EntryType is the direction of a ledger entry
type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// ParseEntryType normalizes a stored type. Legacy rows carry mixed case
// such as "Expense".
func ParseEntryType(raw string) EntryType {
	return EntryType(strings.ToLower(strings.TrimSpace(raw)))
}

// IsValid checks if the entry type is known
func (t EntryType) IsValid() bool {
	return t == EntryIncome || t == EntryExpense
}

// Sign applies the entry direction to a positive amount
func (t EntryType) Sign(amount decimal.Decimal) decimal.Decimal {
	if t == EntryExpense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// LedgerEntry is a manually entered financial record.
// Amount is stored positive; the sign comes from Type.
type LedgerEntry struct {
	ID              int64
	Date            time.Time
	Amount          decimal.Decimal
	Type            EntryType
	Description     string
	CategoryName    string
	TransactionName string
	TenantID        TenantID
	CompanyID       CompanyID
	CreatedBy       string
}

// NewLedgerEntry validates and creates a ledger entry for a tenant
func NewLedgerEntry(
	tenantID TenantID,
	companyID CompanyID,
	createdBy string,
	entryType EntryType,
	amount decimal.Decimal,
	date time.Time,
	description string,
	category string,
) (*LedgerEntry, error) {
	if tenantID <= 0 {
		return nil, NewMissingTenantError(tenantID.Int64())
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Entry type must be income or expense")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Amount must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Date is required")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Description is required")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Description cannot exceed 500 characters")
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Creator is required")
	}

	category = strings.TrimSpace(category)
	return &LedgerEntry{
		Date:            date,
		Amount:          amount.Round(2),
		Type:            entryType,
		Description:     description,
		CategoryName:    category,
		TransactionName: category,
		TenantID:        tenantID,
		CompanyID:       companyID,
		CreatedBy:       createdBy,
	}, nil
}

// SignedAmount returns the amount signed by entry type
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	return e.Type.Sign(e.Amount)
}
