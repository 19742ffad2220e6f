package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Labels given to realized cash flow rows so that the category fallback
// chain resolves them to a meaningful name.
const (
	SalesTransactionName     = "Sales"
	PurchasesTransactionName = "Purchases"
)

// GormCashFlowRepository implements finance.CashFlowRepository over the
// externally owned sales and purchases tables. It never writes to them
// except through the healer.
type GormCashFlowRepository struct {
	store *FinanceStore
}

// NewGormCashFlowRepository creates a new GormCashFlowRepository
func NewGormCashFlowRepository(store *FinanceStore) *GormCashFlowRepository {
	return &GormCashFlowRepository{store: store}
}

type cashFlowRow struct {
	ID       int64
	Date     time.Time
	Amount   decimal.Decimal
	TenantID *int64
}

// RequireRealizationColumns fails when sales or purchases cannot tell
// realized from unrealized amounts. Missing tables are not an error: they
// simply contribute nothing.
func (r *GormCashFlowRepository) RequireRealizationColumns(ctx context.Context) error {
	for _, table := range []string{schema.TableSales, schema.TablePurchases} {
		if !r.store.Inspector.TableExists(ctx, table) {
			continue
		}
		if !r.store.Inspector.HasColumn(ctx, table, "received_amount") {
			return finance.NewSchemaError(table, "received_amount", "realization column is required to compute realized totals")
		}
	}
	return nil
}

// ListRealizedSales returns the tenant's realized, non-cancelled sales as income
func (r *GormCashFlowRepository) ListRealizedSales(ctx context.Context, tenantID finance.TenantID) ([]finance.SourceRecord, []finance.Warning, error) {
	return r.listRealized(ctx, schema.TableSales, realizedSalesSQL, tenantID, finance.EntryIncome, SalesTransactionName)
}

// ListRealizedPurchases returns the tenant's realized, non-cancelled purchases as expenses
func (r *GormCashFlowRepository) ListRealizedPurchases(ctx context.Context, tenantID finance.TenantID) ([]finance.SourceRecord, []finance.Warning, error) {
	return r.listRealized(ctx, schema.TablePurchases, realizedPurchasesSQL, tenantID, finance.EntryExpense, PurchasesTransactionName)
}

func (r *GormCashFlowRepository) listRealized(
	ctx context.Context,
	table string,
	family schema.Family,
	tenantID finance.TenantID,
	entryType finance.EntryType,
	label string,
) ([]finance.SourceRecord, []finance.Warning, error) {
	insp := r.store.Inspector
	if !insp.TableExists(ctx, table) {
		return nil, nil, nil
	}
	if !r.store.readIsolation(ctx, table) {
		return nil, []finance.Warning{isolationUnavailable(table)}, nil
	}

	variant := schema.ChooseVariant(
		insp.HasColumn(ctx, table, "status"),
		insp.HasColumn(ctx, table, "payment_status"),
	)
	if variant == schema.VariantNeither {
		logger.L(ctx).Debug("no cancellation columns; every received amount counts as realized",
			zap.String("table", table))
	}

	var rows []cashFlowRow
	if err := r.store.DB.WithContext(ctx).Raw(family.For(variant), tenantID.Int64()).Scan(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list realized %s: %w", table, err)
	}

	records := make([]finance.SourceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, finance.SourceRecord{
			ID:              row.ID,
			Date:            row.Date,
			Amount:          row.Amount,
			Type:            entryType,
			Description:     fmt.Sprintf("%s #%d", label, row.ID),
			TransactionName: label,
			TenantID:        row.TenantID,
		})
	}
	return records, nil, nil
}
