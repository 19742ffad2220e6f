package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	bothColumns   = finance.ScopeColumns{Device: true, Company: true}
	companyColumn = finance.ScopeColumns{Company: true}
)

func validBudgetRequest() CreateBudgetRequest {
	return CreateBudgetRequest{
		Category: "Utilities",
		Amount:   decimal.NewFromInt(100),
		Period:   "monthly",
	}
}

func TestListBudgets_DeviceScope(t *testing.T) {
	m := newServiceMocks()
	scope := finance.DeviceScope(finance.TenantID(testTenant))
	m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
	m.budgets.On("ListWithSpent", mock.Anything, scope).Return([]finance.BudgetSpend{
		{
			Budget: finance.Budget{ID: 1, Category: "Utilities", Amount: decimal.NewFromInt(100), Period: finance.PeriodMonthly, Scope: scope},
			Spent:  decimal.NewFromInt(-120),
		},
		{
			Budget: finance.Budget{ID: 2, Category: "Rent", Amount: decimal.NewFromInt(500), Period: finance.PeriodYearly, Scope: scope},
			Spent:  decimal.Zero,
		},
	}, nil, nil)
	m.budgets.On("ListUnattributed", mock.Anything, finance.CompanyID(9)).Return(nil, nil, nil)

	svc := NewFinanceService(m.repositories(), WithClock(func() time.Time { return fixedNow }))
	list, err := svc.ListBudgets(context.Background(), 9, testTenant)

	require.NoError(t, err)
	assert.Equal(t, scope, list.Scope)
	assert.Empty(t, list.Warnings)
	require.Len(t, list.Budgets, 2)

	over := list.Budgets[0]
	assert.True(t, over.Spent.Equal(decimal.NewFromInt(120)))
	assert.True(t, over.Remaining.Equal(decimal.NewFromInt(-20)))
	assert.True(t, over.Exceeded)
	assert.True(t, over.PercentUsed.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), over.PeriodStart)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), over.PeriodEnd)

	unused := list.Budgets[1]
	assert.False(t, unused.Exceeded)
	assert.True(t, unused.Remaining.Equal(decimal.NewFromInt(500)))
	m.assertExpectations(t)
}

func TestListBudgets_CompanyScopeFallback(t *testing.T) {
	m := newServiceMocks()
	scope := finance.CompanyScope(9)
	m.budgets.On("ScopeColumns", mock.Anything).Return(companyColumn)
	m.budgets.On("ListWithSpent", mock.Anything, scope).Return(nil, []finance.Warning{
		finance.NewWarning(finance.WarningSpentReducedFidelity, "matched by description"),
	}, nil)

	svc := NewFinanceService(m.repositories())
	list, err := svc.ListBudgets(context.Background(), 9, testTenant)

	require.NoError(t, err)
	assert.True(t, list.Scope.Degraded())
	assert.NotNil(t, list.Budgets)
	assert.Equal(t,
		[]finance.WarningCode{finance.WarningCompanyScope, finance.WarningSpentReducedFidelity},
		warningCodes(list.Warnings))
}

func TestListBudgets_UnattributedCompanyBudgets(t *testing.T) {
	device := finance.DeviceScope(finance.TenantID(testTenant))
	company := finance.CompanyScope(9)
	legacy := []finance.BudgetSpend{{
		Budget: finance.Budget{ID: 7, Category: "Marketing", Amount: decimal.NewFromInt(300), Period: finance.PeriodMonthly, Scope: company},
		Spent:  decimal.NewFromInt(40),
	}}

	t.Run("device without budgets falls back to company", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("ListWithSpent", mock.Anything, device).Return(nil, nil, nil)
		m.budgets.On("ListUnattributed", mock.Anything, finance.CompanyID(9)).Return(legacy, nil, nil)

		svc := NewFinanceService(m.repositories())
		list, err := svc.ListBudgets(context.Background(), 9, testTenant)

		require.NoError(t, err)
		assert.Equal(t, company, list.Scope)
		require.Len(t, list.Budgets, 1)
		assert.Equal(t, "Marketing", list.Budgets[0].Budget.Category)
		assert.Equal(t, []finance.WarningCode{finance.WarningCompanyScope}, warningCodes(list.Warnings))
		m.assertExpectations(t)
	})

	t.Run("listed next to the device's own budgets", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("ListWithSpent", mock.Anything, device).Return([]finance.BudgetSpend{{
			Budget: finance.Budget{ID: 2, Category: "Rent", Amount: decimal.NewFromInt(500), Period: finance.PeriodMonthly, Scope: device},
			Spent:  decimal.Zero,
		}}, []finance.Warning{
			finance.NewWarning(finance.WarningSpentReducedFidelity, "single label"),
		}, nil)
		m.budgets.On("ListUnattributed", mock.Anything, finance.CompanyID(9)).Return(legacy, []finance.Warning{
			finance.NewWarning(finance.WarningSpentReducedFidelity, "single label"),
		}, nil)

		svc := NewFinanceService(m.repositories())
		list, err := svc.ListBudgets(context.Background(), 9, testTenant)

		require.NoError(t, err)
		assert.Equal(t, device, list.Scope)
		require.Len(t, list.Budgets, 2)
		assert.Equal(t, "Marketing", list.Budgets[0].Budget.Category)
		assert.Equal(t, company, list.Budgets[0].Budget.Scope)
		assert.Equal(t, "Rent", list.Budgets[1].Budget.Category)
		assert.Equal(t,
			[]finance.WarningCode{finance.WarningSpentReducedFidelity, finance.WarningCompanyScope},
			warningCodes(list.Warnings))
	})

	t.Run("not consulted without a company", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("ListWithSpent", mock.Anything, device).Return(nil, nil, nil)

		svc := NewFinanceService(m.repositories())
		list, err := svc.ListBudgets(context.Background(), 0, testTenant)

		require.NoError(t, err)
		assert.Empty(t, list.Warnings)
		m.budgets.AssertNotCalled(t, "ListUnattributed", mock.Anything, mock.Anything)
	})

	t.Run("lookup failure fails the call", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("ListWithSpent", mock.Anything, device).Return(nil, nil, nil)
		m.budgets.On("ListUnattributed", mock.Anything, finance.CompanyID(9)).Return(nil, nil, errors.New("boom"))

		svc := NewFinanceService(m.repositories())
		_, err := svc.ListBudgets(context.Background(), 9, testTenant)

		assert.EqualError(t, err, "boom")
	})
}

func TestListBudgets_NoScopeIsEmpty(t *testing.T) {
	tests := []struct {
		name      string
		companyID int64
		tenantID  int64
		cols      finance.ScopeColumns
	}{
		{"no identifiers", 0, 0, bothColumns},
		{"device only without device column", 0, testTenant, companyColumn},
		{"no isolation columns", 9, testTenant, finance.ScopeColumns{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newServiceMocks()
			m.budgets.On("ScopeColumns", mock.Anything).Return(tt.cols)

			svc := NewFinanceService(m.repositories())
			list, err := svc.ListBudgets(context.Background(), tt.companyID, tt.tenantID)

			require.NoError(t, err)
			assert.Empty(t, list.Budgets)
			assert.NotNil(t, list.Budgets)
			assert.Equal(t, []finance.WarningCode{finance.WarningNoScope}, warningCodes(list.Warnings))
			m.budgets.AssertNotCalled(t, "ListWithSpent", mock.Anything, mock.Anything)
		})
	}
}

func TestListBudgets_RepositoryError(t *testing.T) {
	m := newServiceMocks()
	m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
	m.budgets.On("ListWithSpent", mock.Anything, mock.Anything).Return(nil, nil, errors.New("boom"))

	svc := NewFinanceService(m.repositories())
	_, err := svc.ListBudgets(context.Background(), 9, testTenant)

	assert.EqualError(t, err, "boom")
}

func TestAddBudget(t *testing.T) {
	t.Run("device scope", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("EnsureScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("Save", mock.Anything, mock.MatchedBy(func(b *finance.Budget) bool {
			return b.Scope == finance.DeviceScope(finance.TenantID(testTenant)) && b.Category == "Utilities"
		})).Return(int64Ptr(testTenant), nil)

		svc := NewFinanceService(m.repositories())
		result, err := svc.AddBudget(context.Background(), 9, testTenant, validBudgetRequest())

		require.NoError(t, err)
		assert.Equal(t, finance.PeriodMonthly, result.Budget.Period)
		assert.Empty(t, result.Warnings)
		m.assertExpectations(t)
	})

	t.Run("company scope when the device column is missing", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("EnsureScopeColumns", mock.Anything).Return(companyColumn)
		m.budgets.On("Save", mock.Anything, mock.Anything).Return(int64Ptr(9), nil)

		svc := NewFinanceService(m.repositories())
		result, err := svc.AddBudget(context.Background(), 9, testTenant, validBudgetRequest())

		require.NoError(t, err)
		assert.True(t, result.Budget.Scope.Degraded())
		assert.Equal(t, []finance.WarningCode{finance.WarningCompanyScope}, warningCodes(result.Warnings))
	})

	t.Run("requires a device id even with a company", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewFinanceService(m.repositories())

		_, err := svc.AddBudget(context.Background(), 9, 0, validBudgetRequest())

		assert.True(t, finance.IsSecurityError(err))
		m.assertExpectations(t)
	})

	t.Run("no isolation column is a schema error", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("EnsureScopeColumns", mock.Anything).Return(finance.ScopeColumns{})

		svc := NewFinanceService(m.repositories())
		_, err := svc.AddBudget(context.Background(), 9, testTenant, validBudgetRequest())

		var schemaErr *finance.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, finance.TableBudgets, schemaErr.Table)
		assert.Equal(t, schema.TableBudgets, schemaErr.Table)
	})

	t.Run("persisted scope mismatch", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("EnsureScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("Save", mock.Anything, mock.Anything).Return(nil, nil)

		svc := NewFinanceService(m.repositories())
		result, err := svc.AddBudget(context.Background(), 9, testTenant, validBudgetRequest())

		assert.Nil(t, result)
		var se *finance.SecurityError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, finance.SecurityPersistenceMismatch, se.Kind)
	})

	t.Run("company scope mismatch names the company", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("EnsureScopeColumns", mock.Anything).Return(companyColumn)
		m.budgets.On("Save", mock.Anything, mock.Anything).Return(int64Ptr(8), nil)

		svc := NewFinanceService(m.repositories())
		_, err := svc.AddBudget(context.Background(), 9, testTenant, validBudgetRequest())

		var se *finance.SecurityError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, int64(9), se.Expected)
		assert.Equal(t, "access denied: persisted company id 8 does not match requested company 9", se.Error())
	})

	t.Run("invalid period", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("EnsureScopeColumns", mock.Anything).Return(bothColumns)
		req := validBudgetRequest()
		req.Period = "daily"

		svc := NewFinanceService(m.repositories())
		_, err := svc.AddBudget(context.Background(), 9, testTenant, req)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_INPUT", de.Code)
	})
}

func TestDeleteBudget(t *testing.T) {
	t.Run("within scope", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("Delete", mock.Anything, finance.DeviceScope(finance.TenantID(testTenant)), int64(3)).Return(nil)

		svc := NewFinanceService(m.repositories())
		err := svc.DeleteBudget(context.Background(), 9, testTenant, 3)

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("company budget without device id", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("Delete", mock.Anything, finance.DeviceScope(finance.TenantID(testTenant)), int64(7)).Return(shared.ErrNotFound)
		m.budgets.On("DeleteUnattributed", mock.Anything, finance.CompanyID(9), int64(7)).Return(nil)

		svc := NewFinanceService(m.repositories())
		err := svc.DeleteBudget(context.Background(), 9, testTenant, 7)

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("unknown id stays not found", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)
		m.budgets.On("Delete", mock.Anything, mock.Anything, int64(7)).Return(shared.ErrNotFound)
		m.budgets.On("DeleteUnattributed", mock.Anything, finance.CompanyID(9), int64(7)).Return(shared.ErrNotFound)

		svc := NewFinanceService(m.repositories())
		err := svc.DeleteBudget(context.Background(), 9, testTenant, 7)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("no scope is denied", func(t *testing.T) {
		m := newServiceMocks()
		m.budgets.On("ScopeColumns", mock.Anything).Return(bothColumns)

		svc := NewFinanceService(m.repositories())
		err := svc.DeleteBudget(context.Background(), 0, 0, 3)

		assert.True(t, finance.IsSecurityError(err))
		m.budgets.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid id", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewFinanceService(m.repositories())

		err := svc.DeleteBudget(context.Background(), 9, testTenant, -1)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_INPUT", de.Code)
	})
}
