package finance

import "context"

// SchemaSession attaches one schema probe to ctx so that every repository
// touched by a single operation shares the same catalog answers.
type SchemaSession interface {
	Begin(ctx context.Context) context.Context
}

// LedgerRepository persists manual ledger entries
type LedgerRepository interface {
	// ListManual returns the tenant's manual entries. Warnings describe any
	// degraded projection (missing optional columns or isolation column).
	ListManual(ctx context.Context, tenantID TenantID) ([]SourceRecord, []Warning, error)

	// ListCategoryLabels returns the distinct category labels used by the tenant
	ListCategoryLabels(ctx context.Context, tenantID TenantID) ([]CategoryLabel, error)

	// Save inserts the entry, sets its ID and returns the device id read back
	// from the stored row.
	Save(ctx context.Context, entry *LedgerEntry) (*int64, error)

	// DeleteOwned removes an entry of the tenant created by ownerID
	DeleteOwned(ctx context.Context, tenantID TenantID, ownerID string, id int64) error
}

// CashFlowRepository reads realized sales and purchases
type CashFlowRepository interface {
	// RequireRealizationColumns fails with a SchemaError when sales or
	// purchases cannot tell realized from unrealized amounts.
	RequireRealizationColumns(ctx context.Context) error

	ListRealizedSales(ctx context.Context, tenantID TenantID) ([]SourceRecord, []Warning, error)
	ListRealizedPurchases(ctx context.Context, tenantID TenantID) ([]SourceRecord, []Warning, error)
}

// COGSRepository reads the line items of realized sales
type COGSRepository interface {
	// ListRealizedLineItems returns the costing rows of the tenant's realized
	// sales. available is false when the line-item table does not exist.
	ListRealizedLineItems(ctx context.Context, tenantID TenantID) (items []LineItemCost, available bool, err error)
}

// CategoryRepository persists expense categories
type CategoryRepository interface {
	// List returns the tenant's stored categories. available is false when the
	// table or its isolation column is missing.
	List(ctx context.Context, tenantID TenantID) (categories []ExpenseCategory, available bool, err error)
	ExistsByName(ctx context.Context, tenantID TenantID, name string) (bool, error)
	Save(ctx context.Context, category *ExpenseCategory) (*int64, error)
}

// BudgetRepository persists budgets and recomputes their spend
type BudgetRepository interface {
	// ScopeColumns reports which isolation columns budgets can be scoped by
	// for a read. It heals the device column only when reads may heal.
	ScopeColumns(ctx context.Context) ScopeColumns
	// EnsureScopeColumns is ScopeColumns for a write and always heals
	EnsureScopeColumns(ctx context.Context) ScopeColumns
	ListWithSpent(ctx context.Context, scope Scope) ([]BudgetSpend, []Warning, error)
	// ListUnattributed returns the company's budgets stored without a device id
	ListUnattributed(ctx context.Context, companyID CompanyID) ([]BudgetSpend, []Warning, error)
	// Save inserts the budget and returns the scope value read back from the stored row
	Save(ctx context.Context, budget *Budget) (*int64, error)
	Delete(ctx context.Context, scope Scope, id int64) error
	DeleteUnattributed(ctx context.Context, companyID CompanyID, id int64) error
}

// PettyCashRepository persists petty cash movements
type PettyCashRepository interface {
	List(ctx context.Context, tenantID TenantID) ([]PettyCashEntry, []Warning, error)
	Save(ctx context.Context, entry *PettyCashEntry) (*int64, error)
}

// IsolationBackfiller lazily attributes legacy sales and purchases to a device
type IsolationBackfiller interface {
	BackfillOwnerRows(ctx context.Context, tenantID TenantID, ownerID string) (int64, error)
}

// TotalsCache caches aggregate totals per tenant and company
type TotalsCache interface {
	Get(ctx context.Context, tenantID TenantID, companyID CompanyID) (*AggregateTotals, bool)
	Set(ctx context.Context, totals *AggregateTotals) error
	Invalidate(ctx context.Context, tenantID TenantID) error
}
