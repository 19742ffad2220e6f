package handler

import (
	"context"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/stretchr/testify/mock"
)

// MockFinanceService is a mock implementation of FinanceService
type MockFinanceService struct {
	mock.Mock
}

func (m *MockFinanceService) ListLedger(ctx context.Context, tenantID int64) (*finance.TransactionList, error) {
	args := m.Called(ctx, tenantID)
	list, _ := args.Get(0).(*finance.TransactionList)
	return list, args.Error(1)
}

func (m *MockFinanceService) AddLedgerEntry(ctx context.Context, tenantID int64, req financeapp.CreateLedgerEntryRequest) (*financeapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*financeapp.LedgerEntryResponse)
	return resp, args.Error(1)
}

func (m *MockFinanceService) DeleteLedgerEntry(ctx context.Context, tenantID int64, userID string, id int64) error {
	args := m.Called(ctx, tenantID, userID, id)
	return args.Error(0)
}

func (m *MockFinanceService) GetAggregateTotals(ctx context.Context, companyID, tenantID int64) (*finance.AggregateTotals, error) {
	args := m.Called(ctx, companyID, tenantID)
	totals, _ := args.Get(0).(*finance.AggregateTotals)
	return totals, args.Error(1)
}

func (m *MockFinanceService) ListCategories(ctx context.Context, companyID, tenantID int64) (*finance.CategoryList, error) {
	args := m.Called(ctx, companyID, tenantID)
	list, _ := args.Get(0).(*finance.CategoryList)
	return list, args.Error(1)
}

func (m *MockFinanceService) AddCategory(ctx context.Context, tenantID int64, req financeapp.CreateCategoryRequest) (*finance.ExpenseCategory, error) {
	args := m.Called(ctx, tenantID, req)
	category, _ := args.Get(0).(*finance.ExpenseCategory)
	return category, args.Error(1)
}

func (m *MockFinanceService) ListBudgets(ctx context.Context, companyID, tenantID int64) (*finance.BudgetList, error) {
	args := m.Called(ctx, companyID, tenantID)
	list, _ := args.Get(0).(*finance.BudgetList)
	return list, args.Error(1)
}

func (m *MockFinanceService) AddBudget(ctx context.Context, companyID, tenantID int64, req financeapp.CreateBudgetRequest) (*financeapp.BudgetResult, error) {
	args := m.Called(ctx, companyID, tenantID, req)
	result, _ := args.Get(0).(*financeapp.BudgetResult)
	return result, args.Error(1)
}

func (m *MockFinanceService) DeleteBudget(ctx context.Context, companyID, tenantID, id int64) error {
	args := m.Called(ctx, companyID, tenantID, id)
	return args.Error(0)
}

func (m *MockFinanceService) ListPettyCash(ctx context.Context, companyID, tenantID int64) (*finance.PettyCashLedger, error) {
	args := m.Called(ctx, companyID, tenantID)
	ledger, _ := args.Get(0).(*finance.PettyCashLedger)
	return ledger, args.Error(1)
}

func (m *MockFinanceService) AddPettyCash(ctx context.Context, companyID, tenantID int64, req financeapp.CreatePettyCashRequest) (*finance.PettyCashEntry, error) {
	args := m.Called(ctx, companyID, tenantID, req)
	entry, _ := args.Get(0).(*finance.PettyCashEntry)
	return entry, args.Error(1)
}

var _ FinanceService = (*MockFinanceService)(nil)
var _ FinanceService = (*financeapp.FinanceService)(nil)
