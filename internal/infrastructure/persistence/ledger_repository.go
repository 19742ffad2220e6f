package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerRepository implements finance.LedgerRepository using GORM
type GormLedgerRepository struct {
	store *FinanceStore
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(store *FinanceStore) *GormLedgerRepository {
	return &GormLedgerRepository{store: store}
}

type ledgerRow struct {
	ID              int64
	Date            time.Time
	Amount          decimal.Decimal
	Type            string
	Description     *string
	CategoryName    *string
	TransactionName *string
	TenantID        *int64
}

func (r ledgerRow) toSource() finance.SourceRecord {
	return finance.SourceRecord{
		ID:              r.ID,
		Date:            r.Date,
		Amount:          r.Amount,
		Type:            finance.ParseEntryType(r.Type),
		Description:     derefString(r.Description),
		CategoryName:    derefString(r.CategoryName),
		TransactionName: derefString(r.TransactionName),
		TenantID:        r.TenantID,
	}
}

func (r *GormLedgerRepository) labelVariant(ctx context.Context) schema.Variant {
	insp := r.store.Inspector
	return schema.ChooseVariant(
		insp.HasColumn(ctx, schema.TableLedger, "category_name"),
		insp.HasColumn(ctx, schema.TableLedger, "transaction_name"),
	)
}

// ListManual returns the tenant's manual ledger entries, newest first
func (r *GormLedgerRepository) ListManual(ctx context.Context, tenantID finance.TenantID) ([]finance.SourceRecord, []finance.Warning, error) {
	if !r.store.Inspector.TableExists(ctx, schema.TableLedger) {
		return nil, nil, nil
	}
	if !r.store.readIsolation(ctx, schema.TableLedger) {
		return nil, []finance.Warning{isolationUnavailable(schema.TableLedger)}, nil
	}

	var rows []ledgerRow
	q := manualLedgerSQL.For(r.labelVariant(ctx))
	if err := r.store.DB.WithContext(ctx).Raw(q, tenantID.Int64()).Scan(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	records := make([]finance.SourceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toSource())
	}
	return records, nil, nil
}

// ListCategoryLabels returns the distinct category labels used in the tenant's ledger
func (r *GormLedgerRepository) ListCategoryLabels(ctx context.Context, tenantID finance.TenantID) ([]finance.CategoryLabel, error) {
	if !r.store.Inspector.TableExists(ctx, schema.TableLedger) || !r.store.readIsolation(ctx, schema.TableLedger) {
		return nil, nil
	}

	var rows []struct {
		CategoryName    *string
		TransactionName *string
	}
	q := categoryLabelsSQL.For(r.labelVariant(ctx))
	if err := r.store.DB.WithContext(ctx).Raw(q, tenantID.Int64()).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list category labels: %w", err)
	}

	labels := make([]finance.CategoryLabel, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, finance.CategoryLabel{
			CategoryName:    derefString(row.CategoryName),
			TransactionName: derefString(row.TransactionName),
		})
	}
	return labels, nil
}

// Save inserts the entry and returns the device id read back from the stored row
func (r *GormLedgerRepository) Save(ctx context.Context, entry *finance.LedgerEntry) (*int64, error) {
	if err := r.store.writeIsolation(ctx, schema.TableLedger); err != nil {
		return nil, err
	}

	var model models.LedgerEntryModel
	model.FromDomain(entry)
	omit := r.store.missingColumns(ctx, schema.TableLedger, finance.CompanyColumn, "category_name", "transaction_name")

	if err := r.store.DB.WithContext(ctx).Omit(omit...).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to save ledger entry: %w", err)
	}
	entry.ID = model.ID

	return r.store.readBackIsolation(ctx, schema.TableLedger, finance.DeviceColumn, model.ID)
}

// DeleteOwned removes an entry of the tenant created by ownerID.
// Entries of other devices are reported as not found; entries of other
// creators on the same device as forbidden.
func (r *GormLedgerRepository) DeleteOwned(ctx context.Context, tenantID finance.TenantID, ownerID string, id int64) error {
	if !r.store.Inspector.HasColumn(ctx, schema.TableLedger, finance.DeviceColumn) {
		return finance.NewSchemaError(schema.TableLedger, finance.DeviceColumn, "isolation column unavailable")
	}

	db := r.store.DB.WithContext(ctx)
	var existing models.LedgerEntryModel
	err := db.Scopes(tenant.Device(tenantID)).
		Select("id", finance.OwnerColumn).
		Where("id = ?", id).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load ledger entry: %w", err)
	}
	if existing.CreatedBy != ownerID {
		return shared.ErrForbidden
	}

	res := db.Scopes(tenant.Owned(tenantID, ownerID)).Where("id = ?", id).Delete(&models.LedgerEntryModel{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
