package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func categoryNames(list *finance.CategoryList) []string {
	names := make([]string, 0, len(list.Categories))
	for _, c := range list.Categories {
		names = append(names, c.Name)
	}
	return names
}

func TestListCategories_FallbackChain(t *testing.T) {
	tid := finance.TenantID(testTenant)

	t.Run("stored categories win", func(t *testing.T) {
		m := newServiceMocks()
		m.categories.On("List", mock.Anything, tid).Return([]finance.ExpenseCategory{
			{ID: 1, Name: "Rent", TenantID: tid},
		}, true, nil)

		svc := NewFinanceService(m.repositories())
		list, err := svc.ListCategories(context.Background(), 9, testTenant)

		require.NoError(t, err)
		assert.Equal(t, finance.CategorySourceTable, list.Source)
		assert.Equal(t, []string{"Rent"}, categoryNames(list))
		assert.Empty(t, list.Warnings)
		m.ledger.AssertNotCalled(t, "ListCategoryLabels", mock.Anything, mock.Anything)
	})

	t.Run("missing table derives from ledger", func(t *testing.T) {
		m := newServiceMocks()
		m.categories.On("List", mock.Anything, tid).Return(nil, false, nil)
		m.ledger.On("ListCategoryLabels", mock.Anything, tid).Return([]finance.CategoryLabel{
			{CategoryName: "Utilities"},
			{TransactionName: "Rent"},
			{CategoryName: "utilities"},
			{},
		}, nil)

		svc := NewFinanceService(m.repositories())
		list, err := svc.ListCategories(context.Background(), 9, testTenant)

		require.NoError(t, err)
		assert.Equal(t, finance.CategorySourceDerived, list.Source)
		assert.Equal(t, []string{"General", "Rent", "Utilities"}, categoryNames(list))
		assert.Equal(t, []finance.WarningCode{finance.WarningCategoriesDerived}, warningCodes(list.Warnings))
		for _, c := range list.Categories {
			assert.Equal(t, tid, c.TenantID)
			assert.Equal(t, finance.CompanyID(9), c.CompanyID)
		}
	})

	t.Run("empty table and ledger falls back to defaults", func(t *testing.T) {
		m := newServiceMocks()
		m.categories.On("List", mock.Anything, tid).Return([]finance.ExpenseCategory{}, true, nil)
		m.ledger.On("ListCategoryLabels", mock.Anything, tid).Return(nil, nil)

		svc := NewFinanceService(m.repositories(), WithDefaultCategories([]string{"Rent", "Salaries"}))
		list, err := svc.ListCategories(context.Background(), 0, testTenant)

		require.NoError(t, err)
		assert.Equal(t, finance.CategorySourceDefault, list.Source)
		assert.Equal(t, []string{"Rent", "Salaries"}, categoryNames(list))
		assert.Equal(t, []finance.WarningCode{finance.WarningCategoriesDefault}, warningCodes(list.Warnings))
	})

	t.Run("read errors fall through to General", func(t *testing.T) {
		m := newServiceMocks()
		m.categories.On("List", mock.Anything, tid).Return(nil, true, errors.New("boom"))
		m.ledger.On("ListCategoryLabels", mock.Anything, tid).Return(nil, errors.New("boom"))

		svc := NewFinanceService(m.repositories())
		list, err := svc.ListCategories(context.Background(), 0, testTenant)

		require.NoError(t, err)
		assert.Equal(t, finance.CategorySourceDefault, list.Source)
		assert.Equal(t, []string{finance.DefaultCategoryName}, categoryNames(list))
	})

	t.Run("missing tenant", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewFinanceService(m.repositories())

		list, err := svc.ListCategories(context.Background(), 9, 0)

		assert.True(t, finance.IsSecurityError(err))
		assert.Nil(t, list)
		m.assertExpectations(t)
	})
}

func TestAddCategory(t *testing.T) {
	tid := finance.TenantID(testTenant)

	t.Run("success", func(t *testing.T) {
		m := newServiceMocks()
		m.categories.On("ExistsByName", mock.Anything, tid, "Marketing").Return(false, nil)
		m.categories.On("Save", mock.Anything, mock.MatchedBy(func(c *finance.ExpenseCategory) bool {
			return c.TenantID == tid && c.CompanyID == 9
		})).Return(int64Ptr(testTenant), nil)

		svc := NewFinanceService(m.repositories())
		category, err := svc.AddCategory(context.Background(), testTenant,
			CreateCategoryRequest{Name: " Marketing ", CompanyID: 9})

		require.NoError(t, err)
		assert.Equal(t, "Marketing", category.Name)
		m.assertExpectations(t)
	})

	t.Run("duplicate name", func(t *testing.T) {
		m := newServiceMocks()
		m.categories.On("ExistsByName", mock.Anything, tid, "Marketing").Return(true, nil)

		svc := NewFinanceService(m.repositories())
		_, err := svc.AddCategory(context.Background(), testTenant, CreateCategoryRequest{Name: "Marketing"})

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "ALREADY_EXISTS", de.Code)
		m.categories.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("persisted under another device", func(t *testing.T) {
		m := newServiceMocks()
		m.categories.On("ExistsByName", mock.Anything, tid, "Marketing").Return(false, nil)
		m.categories.On("Save", mock.Anything, mock.Anything).Return(int64Ptr(1), nil)

		svc := NewFinanceService(m.repositories())
		_, err := svc.AddCategory(context.Background(), testTenant, CreateCategoryRequest{Name: "Marketing"})

		assert.True(t, finance.IsSecurityError(err))
	})

	t.Run("blank name", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewFinanceService(m.repositories())

		_, err := svc.AddCategory(context.Background(), testTenant, CreateCategoryRequest{Name: "  "})

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_INPUT", de.Code)
	})
}
