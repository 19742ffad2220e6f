package finance

import (
	"context"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) ListManual(ctx context.Context, tenantID finance.TenantID) ([]finance.SourceRecord, []finance.Warning, error) {
	args := m.Called(ctx, tenantID)
	records, _ := args.Get(0).([]finance.SourceRecord)
	warnings, _ := args.Get(1).([]finance.Warning)
	return records, warnings, args.Error(2)
}

func (m *MockLedgerRepository) ListCategoryLabels(ctx context.Context, tenantID finance.TenantID) ([]finance.CategoryLabel, error) {
	args := m.Called(ctx, tenantID)
	labels, _ := args.Get(0).([]finance.CategoryLabel)
	return labels, args.Error(1)
}

func (m *MockLedgerRepository) Save(ctx context.Context, entry *finance.LedgerEntry) (*int64, error) {
	args := m.Called(ctx, entry)
	persisted, _ := args.Get(0).(*int64)
	return persisted, args.Error(1)
}

func (m *MockLedgerRepository) DeleteOwned(ctx context.Context, tenantID finance.TenantID, ownerID string, id int64) error {
	args := m.Called(ctx, tenantID, ownerID, id)
	return args.Error(0)
}

type MockCashFlowRepository struct {
	mock.Mock
}

func (m *MockCashFlowRepository) RequireRealizationColumns(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCashFlowRepository) ListRealizedSales(ctx context.Context, tenantID finance.TenantID) ([]finance.SourceRecord, []finance.Warning, error) {
	args := m.Called(ctx, tenantID)
	records, _ := args.Get(0).([]finance.SourceRecord)
	warnings, _ := args.Get(1).([]finance.Warning)
	return records, warnings, args.Error(2)
}

func (m *MockCashFlowRepository) ListRealizedPurchases(ctx context.Context, tenantID finance.TenantID) ([]finance.SourceRecord, []finance.Warning, error) {
	args := m.Called(ctx, tenantID)
	records, _ := args.Get(0).([]finance.SourceRecord)
	warnings, _ := args.Get(1).([]finance.Warning)
	return records, warnings, args.Error(2)
}

type MockCOGSRepository struct {
	mock.Mock
}

func (m *MockCOGSRepository) ListRealizedLineItems(ctx context.Context, tenantID finance.TenantID) ([]finance.LineItemCost, bool, error) {
	args := m.Called(ctx, tenantID)
	items, _ := args.Get(0).([]finance.LineItemCost)
	return items, args.Bool(1), args.Error(2)
}

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) List(ctx context.Context, tenantID finance.TenantID) ([]finance.ExpenseCategory, bool, error) {
	args := m.Called(ctx, tenantID)
	categories, _ := args.Get(0).([]finance.ExpenseCategory)
	return categories, args.Bool(1), args.Error(2)
}

func (m *MockCategoryRepository) ExistsByName(ctx context.Context, tenantID finance.TenantID, name string) (bool, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) Save(ctx context.Context, category *finance.ExpenseCategory) (*int64, error) {
	args := m.Called(ctx, category)
	persisted, _ := args.Get(0).(*int64)
	return persisted, args.Error(1)
}

type MockBudgetRepository struct {
	mock.Mock
}

func (m *MockBudgetRepository) ScopeColumns(ctx context.Context) finance.ScopeColumns {
	args := m.Called(ctx)
	return args.Get(0).(finance.ScopeColumns)
}

func (m *MockBudgetRepository) EnsureScopeColumns(ctx context.Context) finance.ScopeColumns {
	args := m.Called(ctx)
	return args.Get(0).(finance.ScopeColumns)
}

func (m *MockBudgetRepository) ListWithSpent(ctx context.Context, scope finance.Scope) ([]finance.BudgetSpend, []finance.Warning, error) {
	args := m.Called(ctx, scope)
	rows, _ := args.Get(0).([]finance.BudgetSpend)
	warnings, _ := args.Get(1).([]finance.Warning)
	return rows, warnings, args.Error(2)
}

func (m *MockBudgetRepository) ListUnattributed(ctx context.Context, companyID finance.CompanyID) ([]finance.BudgetSpend, []finance.Warning, error) {
	args := m.Called(ctx, companyID)
	rows, _ := args.Get(0).([]finance.BudgetSpend)
	warnings, _ := args.Get(1).([]finance.Warning)
	return rows, warnings, args.Error(2)
}

func (m *MockBudgetRepository) Save(ctx context.Context, budget *finance.Budget) (*int64, error) {
	args := m.Called(ctx, budget)
	persisted, _ := args.Get(0).(*int64)
	return persisted, args.Error(1)
}

func (m *MockBudgetRepository) Delete(ctx context.Context, scope finance.Scope, id int64) error {
	args := m.Called(ctx, scope, id)
	return args.Error(0)
}

func (m *MockBudgetRepository) DeleteUnattributed(ctx context.Context, companyID finance.CompanyID, id int64) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

type MockPettyCashRepository struct {
	mock.Mock
}

func (m *MockPettyCashRepository) List(ctx context.Context, tenantID finance.TenantID) ([]finance.PettyCashEntry, []finance.Warning, error) {
	args := m.Called(ctx, tenantID)
	entries, _ := args.Get(0).([]finance.PettyCashEntry)
	warnings, _ := args.Get(1).([]finance.Warning)
	return entries, warnings, args.Error(2)
}

func (m *MockPettyCashRepository) Save(ctx context.Context, entry *finance.PettyCashEntry) (*int64, error) {
	args := m.Called(ctx, entry)
	persisted, _ := args.Get(0).(*int64)
	return persisted, args.Error(1)
}

type MockBackfiller struct {
	mock.Mock
}

func (m *MockBackfiller) BackfillOwnerRows(ctx context.Context, tenantID finance.TenantID, ownerID string) (int64, error) {
	args := m.Called(ctx, tenantID, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockTotalsCache struct {
	mock.Mock
}

func (m *MockTotalsCache) Get(ctx context.Context, tenantID finance.TenantID, companyID finance.CompanyID) (*finance.AggregateTotals, bool) {
	args := m.Called(ctx, tenantID, companyID)
	totals, _ := args.Get(0).(*finance.AggregateTotals)
	return totals, args.Bool(1)
}

func (m *MockTotalsCache) Set(ctx context.Context, totals *finance.AggregateTotals) error {
	args := m.Called(ctx, totals)
	return args.Error(0)
}

func (m *MockTotalsCache) Invalidate(ctx context.Context, tenantID finance.TenantID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// =============================================================================
// Fixture
// =============================================================================

type serviceMocks struct {
	ledger     *MockLedgerRepository
	cashFlow   *MockCashFlowRepository
	cogs       *MockCOGSRepository
	categories *MockCategoryRepository
	budgets    *MockBudgetRepository
	pettyCash  *MockPettyCashRepository
	backfiller *MockBackfiller
}

func newServiceMocks() *serviceMocks {
	return &serviceMocks{
		ledger:     new(MockLedgerRepository),
		cashFlow:   new(MockCashFlowRepository),
		cogs:       new(MockCOGSRepository),
		categories: new(MockCategoryRepository),
		budgets:    new(MockBudgetRepository),
		pettyCash:  new(MockPettyCashRepository),
		backfiller: new(MockBackfiller),
	}
}

func (m *serviceMocks) repositories() Repositories {
	return Repositories{
		Ledger:     m.ledger,
		CashFlow:   m.cashFlow,
		COGS:       m.cogs,
		Categories: m.categories,
		Budgets:    m.budgets,
		PettyCash:  m.pettyCash,
		Backfiller: m.backfiller,
	}
}

func (m *serviceMocks) assertExpectations(t mock.TestingT) {
	m.ledger.AssertExpectations(t)
	m.cashFlow.AssertExpectations(t)
	m.cogs.AssertExpectations(t)
	m.categories.AssertExpectations(t)
	m.budgets.AssertExpectations(t)
	m.pettyCash.AssertExpectations(t)
	m.backfiller.AssertExpectations(t)
}
