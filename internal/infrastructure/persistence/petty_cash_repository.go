package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"github.com/shopspring/decimal"
)

// GormPettyCashRepository implements finance.PettyCashRepository using GORM
type GormPettyCashRepository struct {
	store *FinanceStore
}

// NewGormPettyCashRepository creates a new GormPettyCashRepository
func NewGormPettyCashRepository(store *FinanceStore) *GormPettyCashRepository {
	return &GormPettyCashRepository{store: store}
}

type pettyCashRow struct {
	ID          int64
	Date        time.Time
	Amount      decimal.Decimal
	Type        string
	Description *string
	TenantID    *int64
	CompanyID   *int64
	CreatedBy   *string
}

// List returns the tenant's petty cash movements, newest first
func (r *GormPettyCashRepository) List(ctx context.Context, tenantID finance.TenantID) ([]finance.PettyCashEntry, []finance.Warning, error) {
	insp := r.store.Inspector
	if !insp.TableExists(ctx, schema.TablePettyCash) {
		return nil, nil, nil
	}
	if !r.store.readIsolation(ctx, schema.TablePettyCash) {
		return nil, []finance.Warning{isolationUnavailable(schema.TablePettyCash)}, nil
	}

	variant := schema.ChooseVariant(
		insp.HasColumn(ctx, schema.TablePettyCash, finance.CompanyColumn),
		insp.HasColumn(ctx, schema.TablePettyCash, finance.OwnerColumn),
	)
	var rows []pettyCashRow
	if err := r.store.DB.WithContext(ctx).Raw(pettyCashSQL.For(variant), tenantID.Int64()).Scan(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list petty cash: %w", err)
	}

	entries := make([]finance.PettyCashEntry, 0, len(rows))
	for _, row := range rows {
		e := finance.PettyCashEntry{
			ID:          row.ID,
			Date:        row.Date,
			Amount:      row.Amount,
			Direction:   finance.CashDirection(row.Type),
			Description: derefString(row.Description),
			TenantID:    tenantID,
			CreatedBy:   derefString(row.CreatedBy),
		}
		if row.CompanyID != nil {
			e.CompanyID = finance.CompanyID(*row.CompanyID)
		}
		entries = append(entries, e)
	}
	return entries, nil, nil
}

// Save inserts the movement and returns the device id read back from the stored row
func (r *GormPettyCashRepository) Save(ctx context.Context, entry *finance.PettyCashEntry) (*int64, error) {
	if !r.store.Inspector.TableExists(ctx, schema.TablePettyCash) {
		return nil, finance.NewSchemaError(schema.TablePettyCash, "", "table does not exist")
	}
	if err := r.store.writeIsolation(ctx, schema.TablePettyCash); err != nil {
		return nil, err
	}

	var model models.PettyCashModel
	model.FromDomain(entry)
	omit := r.store.missingColumns(ctx, schema.TablePettyCash, finance.CompanyColumn, finance.OwnerColumn)

	if err := r.store.DB.WithContext(ctx).Omit(omit...).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to save petty cash entry: %w", err)
	}
	entry.ID = model.ID

	return r.store.readBackIsolation(ctx, schema.TablePettyCash, finance.DeviceColumn, model.ID)
}
