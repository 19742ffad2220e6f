package finance

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ListCategories returns the tenant's expense categories.
// Stored categories win; when there are none (or the table is missing) they
// are derived from the labels of the tenant's ledger, and when the ledger has
// none either the configured defaults are returned.
func (s *FinanceService) ListCategories(ctx context.Context, companyID, tenantID int64) (*finance.CategoryList, error) {
	ctx, span := s.begin(ctx, OpListCategories)
	defer span.End()

	tid, err := strictTenant(tenantID, finance.TableCategories)
	if err != nil {
		return nil, s.fail(ctx, span, OpListCategories, err)
	}
	cid := finance.CompanyID(companyID)

	stored, available, err := s.categories.List(ctx, tid)
	if err != nil {
		logger.L(ctx).Warn("stored categories unreadable; deriving from ledger", zap.Error(err))
	}
	if err == nil && available && len(stored) > 0 {
		return &finance.CategoryList{Categories: stored, Source: finance.CategorySourceTable}, nil
	}

	list := s.fallbackCategories(ctx, tid, cid)
	s.annotate(ctx, OpListCategories, list.Warnings)
	return list, nil
}

func (s *FinanceService) fallbackCategories(ctx context.Context, tenantID finance.TenantID, companyID finance.CompanyID) *finance.CategoryList {
	labels, err := s.ledger.ListCategoryLabels(ctx, tenantID)
	if err != nil {
		logger.L(ctx).Warn("ledger labels unreadable; using default categories", zap.Error(err))
	}

	list := &finance.CategoryList{
		Categories: finance.DeriveCategories(tenantID, labels),
		Source:     finance.CategorySourceDerived,
	}
	if len(list.Categories) > 0 {
		list.Warnings = []finance.Warning{finance.NewWarning(finance.WarningCategoriesDerived,
			"no stored categories; derived from ledger entries")}
	} else {
		list.Categories = finance.DefaultCategories(tenantID, s.defaultCategories)
		list.Source = finance.CategorySourceDefault
		list.Warnings = []finance.Warning{finance.NewWarning(finance.WarningCategoriesDefault,
			"no stored or derivable categories; showing defaults")}
	}

	if companyID.Valid() {
		for i := range list.Categories {
			list.Categories[i].CompanyID = companyID
		}
	}
	return list
}

// AddCategory stores a new expense category for the tenant. Names are unique
// per tenant, compared case-insensitively.
func (s *FinanceService) AddCategory(ctx context.Context, tenantID int64, req CreateCategoryRequest) (*finance.ExpenseCategory, error) {
	ctx, span := s.begin(ctx, OpAddCategory)
	defer span.End()

	tid, err := strictTenant(tenantID, finance.TableCategories)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddCategory, err)
	}

	category, err := finance.NewExpenseCategory(tid, finance.CompanyID(req.CompanyID), req.Name, req.Description)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddCategory, err)
	}

	exists, err := s.categories.ExistsByName(ctx, tid, category.Name)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddCategory, err)
	}
	if exists {
		return nil, s.fail(ctx, span, OpAddCategory,
			shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Category %q already exists", category.Name)))
	}

	persisted, err := s.categories.Save(ctx, category)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddCategory, err)
	}
	if err := finance.VerifyPersistedTenant(tid, persisted); err != nil {
		logger.L(ctx).Error("category persisted with wrong device id",
			zap.Int64("category_id", category.ID),
			zap.Error(err),
		)
		return nil, s.fail(ctx, span, OpAddCategory, err)
	}

	return category, nil
}
