package persistence

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GormBudgetRepository implements finance.BudgetRepository using GORM
type GormBudgetRepository struct {
	store *FinanceStore
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(store *FinanceStore) *GormBudgetRepository {
	return &GormBudgetRepository{store: store}
}

type budgetSpendRow struct {
	ID       int64
	Category string
	Amount   decimal.Decimal
	Period   string
	Spent    decimal.Decimal
}

// ScopeColumns reports which isolation columns budgets can be scoped by on a
// read. The device column is healed only when the store heals on read.
func (r *GormBudgetRepository) ScopeColumns(ctx context.Context) finance.ScopeColumns {
	if !r.store.Inspector.TableExists(ctx, schema.TableBudgets) {
		return finance.ScopeColumns{}
	}
	return finance.ScopeColumns{
		Device:  r.store.readIsolation(ctx, schema.TableBudgets),
		Company: r.store.Inspector.HasColumn(ctx, schema.TableBudgets, finance.CompanyColumn),
	}
}

// EnsureScopeColumns is ScopeColumns for a write: a missing device column is
// always healed first. A failed heal leaves company scope to the caller.
func (r *GormBudgetRepository) EnsureScopeColumns(ctx context.Context) finance.ScopeColumns {
	insp := r.store.Inspector
	if !insp.TableExists(ctx, schema.TableBudgets) {
		return finance.ScopeColumns{}
	}
	device := true
	if err := r.store.writeIsolation(ctx, schema.TableBudgets); err != nil {
		logger.L(ctx).Warn("budgets fall back to company scope", zap.Error(err))
		device = false
	}
	return finance.ScopeColumns{
		Device:  device,
		Company: insp.HasColumn(ctx, schema.TableBudgets, finance.CompanyColumn),
	}
}

// spendVariant picks the ledger join shape for scope. The ledger must carry
// the scope column for any spend to be attributable.
func (r *GormBudgetRepository) spendVariant(ctx context.Context, scope finance.Scope) schema.Variant {
	insp := r.store.Inspector
	if !insp.TableExists(ctx, schema.TableLedger) || !insp.HasColumn(ctx, schema.TableLedger, scope.Column()) {
		return schema.VariantNeither
	}
	return schema.ChooseVariant(
		insp.HasColumn(ctx, schema.TableLedger, "category_name"),
		insp.HasColumn(ctx, schema.TableLedger, "transaction_name"),
	)
}

// ListWithSpent returns the scope's budgets with spend recomputed from
// matching expense ledger entries. Missing join columns degrade the spend
// figure and add a warning; they never fail the call.
func (r *GormBudgetRepository) ListWithSpent(ctx context.Context, scope finance.Scope) ([]finance.BudgetSpend, []finance.Warning, error) {
	variant := r.spendVariant(ctx, scope)
	rows, err := r.scanSpend(ctx, budgetSpendSQL[scope.Kind].For(variant), scope)
	if err != nil {
		return nil, nil, err
	}
	return rows, spendWarnings(variant), nil
}

func spendWarnings(variant schema.Variant) []finance.Warning {
	switch variant {
	case schema.VariantFirstOnly, schema.VariantSecondOnly:
		return []finance.Warning{finance.NewWarning(finance.WarningSpentReducedFidelity,
			"spent is matched on a single ledger label column")}
	case schema.VariantNeither:
		return []finance.Warning{finance.NewWarning(finance.WarningSpentUnavailable,
			"ledger entries cannot be matched to budgets; spent is reported as 0")}
	}
	return nil
}

// ListUnattributed returns the company budgets that carry no device id,
// written before the budgets table had one. Their spend is matched on the
// ledger's company column.
func (r *GormBudgetRepository) ListUnattributed(ctx context.Context, companyID finance.CompanyID) ([]finance.BudgetSpend, []finance.Warning, error) {
	insp := r.store.Inspector
	if !companyID.Valid() ||
		!insp.HasColumn(ctx, schema.TableBudgets, finance.DeviceColumn) ||
		!insp.HasColumn(ctx, schema.TableBudgets, finance.CompanyColumn) {
		return nil, nil, nil
	}
	scope := finance.CompanyScope(companyID)
	variant := r.spendVariant(ctx, scope)
	rows, err := r.scanSpend(ctx, unattributedBudgetSpendSQL.For(variant), scope)
	if err != nil {
		return nil, nil, err
	}
	return rows, spendWarnings(variant), nil
}

func (r *GormBudgetRepository) scanSpend(ctx context.Context, q string, scope finance.Scope) ([]finance.BudgetSpend, error) {
	var rows []budgetSpendRow
	if err := r.store.DB.WithContext(ctx).Raw(q, scope.Value()).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	budgets := make([]finance.BudgetSpend, 0, len(rows))
	for _, row := range rows {
		budgets = append(budgets, finance.BudgetSpend{
			Budget: finance.Budget{
				ID:       row.ID,
				Category: row.Category,
				Amount:   row.Amount,
				Period:   finance.BudgetPeriod(row.Period),
				Scope:    scope,
			},
			Spent: row.Spent,
		})
	}
	return budgets, nil
}

// Save inserts the budget and returns the scope value read back from the stored row
func (r *GormBudgetRepository) Save(ctx context.Context, budget *finance.Budget) (*int64, error) {
	if !r.store.Inspector.HasColumn(ctx, schema.TableBudgets, budget.Scope.Column()) {
		return nil, finance.NewSchemaError(schema.TableBudgets, budget.Scope.Column(), "scope column unavailable")
	}

	var model models.BudgetModel
	model.FromDomain(budget)
	omit := r.store.missingColumns(ctx, schema.TableBudgets, finance.DeviceColumn, finance.CompanyColumn)

	if err := r.store.DB.WithContext(ctx).Omit(omit...).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}
	budget.ID = model.ID

	return r.store.readBackIsolation(ctx, schema.TableBudgets, budget.Scope.Column(), model.ID)
}

// Delete removes a budget of the scope
func (r *GormBudgetRepository) Delete(ctx context.Context, scope finance.Scope, id int64) error {
	res := r.store.DB.WithContext(ctx).
		Scopes(tenant.Scoped(scope)).
		Where("id = ?", id).
		Delete(&models.BudgetModel{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteUnattributed removes a company budget that carries no device id
func (r *GormBudgetRepository) DeleteUnattributed(ctx context.Context, companyID finance.CompanyID, id int64) error {
	if !r.store.Inspector.HasColumn(ctx, schema.TableBudgets, finance.DeviceColumn) {
		return shared.ErrNotFound
	}
	res := r.store.DB.WithContext(ctx).
		Scopes(tenant.Scoped(finance.CompanyScope(companyID))).
		Where("device_id IS NULL AND id = ?", id).
		Delete(&models.BudgetModel{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
