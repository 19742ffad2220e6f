package persistence

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
)

// GormCategoryRepository implements finance.CategoryRepository using GORM
type GormCategoryRepository struct {
	store *FinanceStore
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(store *FinanceStore) *GormCategoryRepository {
	return &GormCategoryRepository{store: store}
}

type categoryRow struct {
	ID          int64
	Name        string
	Description *string
	TenantID    *int64
	CompanyID   *int64
}

// List returns the tenant's stored categories. available is false when the
// table or its isolation column is missing, in which case the caller derives
// categories from the ledger instead.
func (r *GormCategoryRepository) List(ctx context.Context, tenantID finance.TenantID) ([]finance.ExpenseCategory, bool, error) {
	insp := r.store.Inspector
	if !insp.TableExists(ctx, schema.TableCategories) || !r.store.readIsolation(ctx, schema.TableCategories) {
		return nil, false, nil
	}

	variant := schema.ChooseVariant(
		insp.HasColumn(ctx, schema.TableCategories, "description"),
		insp.HasColumn(ctx, schema.TableCategories, finance.CompanyColumn),
	)
	var rows []categoryRow
	if err := r.store.DB.WithContext(ctx).Raw(categoriesSQL.For(variant), tenantID.Int64()).Scan(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("failed to list expense categories: %w", err)
	}

	categories := make([]finance.ExpenseCategory, 0, len(rows))
	for _, row := range rows {
		c := finance.ExpenseCategory{
			ID:          row.ID,
			Name:        row.Name,
			Description: derefString(row.Description),
			TenantID:    tenantID,
		}
		if row.CompanyID != nil {
			c.CompanyID = finance.CompanyID(*row.CompanyID)
		}
		categories = append(categories, c)
	}
	return categories, true, nil
}

// ExistsByName reports whether the tenant already has a category with name,
// compared case-insensitively
func (r *GormCategoryRepository) ExistsByName(ctx context.Context, tenantID finance.TenantID, name string) (bool, error) {
	insp := r.store.Inspector
	if !insp.TableExists(ctx, schema.TableCategories) || !insp.HasColumn(ctx, schema.TableCategories, finance.DeviceColumn) {
		return false, nil
	}

	var count int64
	err := r.store.DB.WithContext(ctx).
		Model(&models.ExpenseCategoryModel{}).
		Scopes(tenant.Device(tenantID)).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return count > 0, nil
}

// Save inserts the category and returns the device id read back from the stored row
func (r *GormCategoryRepository) Save(ctx context.Context, category *finance.ExpenseCategory) (*int64, error) {
	if !r.store.Inspector.TableExists(ctx, schema.TableCategories) {
		return nil, finance.NewSchemaError(schema.TableCategories, "", "table does not exist")
	}
	if err := r.store.writeIsolation(ctx, schema.TableCategories); err != nil {
		return nil, err
	}

	var model models.ExpenseCategoryModel
	model.FromDomain(category)
	omit := r.store.missingColumns(ctx, schema.TableCategories, finance.CompanyColumn, "description")

	if err := r.store.DB.WithContext(ctx).Omit(omit...).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to save expense category: %w", err)
	}
	category.ID = model.ID

	return r.store.readBackIsolation(ctx, schema.TableCategories, finance.DeviceColumn, model.ID)
}
