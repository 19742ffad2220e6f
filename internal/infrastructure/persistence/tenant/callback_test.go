package tenant

import (
	"context"
	"testing"

	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unisolatedRow struct {
	ID       int64
	SaleDate string
}

func (unisolatedRow) TableName() string { return "sales" }

func TestIsolationGuard(t *testing.T) {
	db := setupGuardedDB(t)
	ctx := context.Background()

	t.Run("rejects unscoped select", func(t *testing.T) {
		var rows []models.BudgetModel
		err := db.WithContext(ctx).Find(&rows).Error
		assert.ErrorIs(t, err, ErrUnscopedQuery)
	})

	t.Run("rejects unscoped delete", func(t *testing.T) {
		err := db.WithContext(ctx).Where("id = ?", 1).Delete(&models.BudgetModel{}).Error
		assert.ErrorIs(t, err, ErrUnscopedQuery)
	})

	t.Run("rejects unscoped update", func(t *testing.T) {
		err := db.WithContext(ctx).Model(&models.BudgetModel{}).Where("id = ?", 1).Update("amount", 1).Error
		assert.ErrorIs(t, err, ErrUnscopedQuery)
	})

	t.Run("OR conditions never count as a scope", func(t *testing.T) {
		var rows []models.BudgetModel
		err := db.WithContext(ctx).Where("device_id = ? OR 1 = 1", 1).Find(&rows).Error
		assert.ErrorIs(t, err, ErrUnscopedQuery)
	})

	t.Run("accepts string conditions on the isolation column", func(t *testing.T) {
		var rows []models.BudgetModel
		require.NoError(t, db.WithContext(ctx).Where("device_id = ? AND category = ?", 1, "Rent").Find(&rows).Error)
		assert.Len(t, rows, 1)
	})

	t.Run("ignores tables that are not isolated", func(t *testing.T) {
		var rows []unisolatedRow
		assert.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	})

	t.Run("raw statements are not inspected", func(t *testing.T) {
		var n int64
		require.NoError(t, db.WithContext(ctx).Raw("SELECT COUNT(*) FROM budgets").Scan(&n).Error)
		assert.Equal(t, int64(4), n)
	})
}

func TestNewIsolationGuard_CustomTables(t *testing.T) {
	g := NewIsolationGuard("sales")
	_, ok := g.tables["sales"]
	assert.True(t, ok)
	_, ok = g.tables["budgets"]
	assert.False(t, ok)
}
