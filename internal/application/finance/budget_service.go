package finance

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ListBudgets returns the budgets of the tenant with their spend recomputed.
// Budgets follow the flexible policy: without a usable device id they fall
// back to company scope, and without that to an empty list with a warning.
// Company budgets stored without a device id are listed next to the device's
// own budgets and flagged COMPANY_SCOPE.
// Missing join columns lower the fidelity of spent but never fail the call.
func (s *FinanceService) ListBudgets(ctx context.Context, companyID, tenantID int64) (*finance.BudgetList, error) {
	ctx, span := s.begin(ctx, OpListBudgets)
	defer span.End()
	start := time.Now()

	cols := s.budgets.ScopeColumns(ctx)
	scope, warnings, err := s.resolveBudgetScope(ctx, companyID, tenantID, cols)
	if errors.Is(err, finance.ErrNoScope) {
		s.annotate(ctx, OpListBudgets, warnings)
		return &finance.BudgetList{Budgets: []finance.BudgetStatus{}, Warnings: warnings}, nil
	}
	if err != nil {
		return nil, s.fail(ctx, span, OpListBudgets, err)
	}

	rows, spendWarnings, err := s.budgets.ListWithSpent(ctx, scope)
	if err != nil {
		return nil, s.fail(ctx, span, OpListBudgets, err)
	}
	warnings = append(warnings, spendWarnings...)

	cid := finance.CompanyID(companyID)
	if !scope.Degraded() && cols.Company && cid.Valid() {
		legacy, legacyWarnings, err := s.budgets.ListUnattributed(ctx, cid)
		if err != nil {
			return nil, s.fail(ctx, span, OpListBudgets, err)
		}
		if len(legacy) > 0 {
			logger.L(ctx).Warn("budgets without device id listed by company",
				zap.Int64("company_id", companyID),
				zap.Int("budgets", len(legacy)),
			)
			warnings = append(warnings, finance.NewWarning(finance.WarningCompanyScope,
				"%d budgets carry no device id and are shared by every device of company %d", len(legacy), cid))
			warnings = appendMissing(warnings, legacyWarnings)
			if len(rows) == 0 {
				scope = finance.CompanyScope(cid)
			}
			rows = append(rows, legacy...)
			sort.SliceStable(rows, func(i, j int) bool {
				if rows[i].Budget.Category != rows[j].Budget.Category {
					return rows[i].Budget.Category < rows[j].Budget.Category
				}
				return rows[i].Budget.ID < rows[j].Budget.ID
			})
		}
	}

	now := s.now()
	statuses := make([]finance.BudgetStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, finance.NewBudgetStatus(row, now))
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrScope, scope.Kind.String(), "budgets", len(statuses))
	s.annotate(ctx, OpListBudgets, warnings)
	s.metrics.RecordAggregation(ctx, OpListBudgets, time.Since(start), false)
	return &finance.BudgetList{Budgets: statuses, Scope: scope, Warnings: warnings}, nil
}

// appendMissing appends the warnings whose code is not reported yet
func appendMissing(warnings, more []finance.Warning) []finance.Warning {
	for _, w := range more {
		if !slices.ContainsFunc(warnings, func(have finance.Warning) bool { return have.Code == w.Code }) {
			warnings = append(warnings, w)
		}
	}
	return warnings
}

// resolveBudgetScope applies the flexible policy to the budgets table.
// ErrNoScope comes with the NO_SCOPE warning; a company scope with COMPANY_SCOPE.
func (s *FinanceService) resolveBudgetScope(ctx context.Context, companyID, tenantID int64, cols finance.ScopeColumns) (finance.Scope, []finance.Warning, error) {
	scope, err := finance.ResolveScope(finance.PolicyFlexible, tenantID, companyID, finance.TableBudgets, cols)
	if errors.Is(err, finance.ErrNoScope) {
		return finance.Scope{}, []finance.Warning{finance.NewWarning(finance.WarningNoScope,
			"budgets cannot be scoped to this device or company; none are shown")}, err
	}
	if err != nil {
		return finance.Scope{}, nil, err
	}
	if scope.Degraded() {
		logger.L(ctx).Warn("budgets scoped by company",
			append(logger.ScopeFields(scope), zap.Bool("device_column", cols.Device))...)
		return scope, []finance.Warning{finance.NewWarning(finance.WarningCompanyScope,
			"budgets are shared by every device of company %d", scope.CompanyID)}, nil
	}
	return scope, nil, nil
}

// AddBudget stores a budget for the tenant. The caller must present a valid
// device id; the budget is scoped to the company only when the budgets table
// cannot carry a device id.
func (s *FinanceService) AddBudget(ctx context.Context, companyID, tenantID int64, req CreateBudgetRequest) (*BudgetResult, error) {
	ctx, span := s.begin(ctx, OpAddBudget)
	defer span.End()

	if _, err := finance.RequireTenant(tenantID); err != nil {
		return nil, s.fail(ctx, span, OpAddBudget, err)
	}
	scope, warnings, err := s.resolveBudgetScope(ctx, companyID, tenantID, s.budgets.EnsureScopeColumns(ctx))
	if errors.Is(err, finance.ErrNoScope) {
		err = finance.NewSchemaError(finance.TableBudgets, finance.DeviceColumn, "no isolation column to scope the budget")
	}
	if err != nil {
		return nil, s.fail(ctx, span, OpAddBudget, err)
	}

	budget, err := finance.NewBudget(scope, req.Category, req.Amount, finance.BudgetPeriod(req.Period))
	if err != nil {
		return nil, s.fail(ctx, span, OpAddBudget, err)
	}

	persisted, err := s.budgets.Save(ctx, budget)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddBudget, err)
	}
	if persisted == nil || *persisted != scope.Value() {
		err := finance.NewScopeMismatchError(scope, persisted)
		logger.L(ctx).Error("budget persisted with wrong scope",
			append(logger.ScopeFields(scope), zap.Int64("budget_id", budget.ID), zap.Error(err))...)
		return nil, s.fail(ctx, span, OpAddBudget, err)
	}

	s.annotate(ctx, OpAddBudget, warnings)
	return &BudgetResult{Budget: budget, Warnings: warnings}, nil
}

// DeleteBudget removes a budget within the resolved scope. A device that
// lists a company budget stored without a device id may delete it too.
func (s *FinanceService) DeleteBudget(ctx context.Context, companyID, tenantID, id int64) error {
	ctx, span := s.begin(ctx, OpDeleteBudget)
	defer span.End()

	if id <= 0 {
		return s.fail(ctx, span, OpDeleteBudget, shared.NewDomainError("INVALID_INPUT", "Budget id must be positive"))
	}
	cols := s.budgets.ScopeColumns(ctx)
	scope, _, err := s.resolveBudgetScope(ctx, companyID, tenantID, cols)
	if errors.Is(err, finance.ErrNoScope) {
		err = finance.NewMissingTenantError(tenantID)
	}
	if err != nil {
		return s.fail(ctx, span, OpDeleteBudget, err)
	}

	err = s.budgets.Delete(ctx, scope, id)
	cid := finance.CompanyID(companyID)
	if errors.Is(err, shared.ErrNotFound) && !scope.Degraded() && cols.Company && cid.Valid() {
		err = s.budgets.DeleteUnattributed(ctx, cid, id)
	}
	if err != nil {
		return s.fail(ctx, span, OpDeleteBudget, err)
	}
	return nil
}
