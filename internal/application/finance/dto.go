package finance

import (
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// CreateLedgerEntryRequest represents a request to create a manual ledger entry
type CreateLedgerEntryRequest struct {
	Type        string          `json:"type" binding:"required,entry_type"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Description string          `json:"description" binding:"required,max=500"`
	Category    string          `json:"category" binding:"max=100"`
	CompanyID   int64           `json:"-"` // Set from the request context
	CreatedBy   string          `json:"-"` // Set from the request context
}

// LedgerEntryResponse represents a saved ledger entry in API responses.
// Amount is signed by type.
type LedgerEntryResponse struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	TenantID    int64           `json:"tenant_id"`
	CompanyID   int64           `json:"company_id,omitempty"`
	CreatedBy   string          `json:"created_by"`
}

// ToLedgerEntryResponse converts a domain entry to a response
func ToLedgerEntryResponse(e *finance.LedgerEntry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		ID:          e.ID,
		Date:        e.Date,
		Amount:      e.SignedAmount(),
		Type:        string(e.Type),
		Description: e.Description,
		Category:    finance.ResolveCategory(e.CategoryName, e.TransactionName),
		TenantID:    e.TenantID.Int64(),
		CompanyID:   e.CompanyID.Int64(),
		CreatedBy:   e.CreatedBy,
	}
}

// CreateCategoryRequest represents a request to create an expense category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	CompanyID   int64  `json:"-"`
}

// CreateBudgetRequest represents a request to create a budget
type CreateBudgetRequest struct {
	Category string          `json:"category" binding:"required,max=100"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Period   string          `json:"period" binding:"required,budget_period"`
}

// BudgetResult is a saved budget with any degraded-mode notes about its scope
type BudgetResult struct {
	Budget   *finance.Budget
	Warnings []finance.Warning
}

// CreatePettyCashRequest represents a request to record a petty cash movement
type CreatePettyCashRequest struct {
	Type        string          `json:"type" binding:"required,oneof=in out"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Description string          `json:"description" binding:"max=500"`
	CreatedBy   string          `json:"-"`
}
