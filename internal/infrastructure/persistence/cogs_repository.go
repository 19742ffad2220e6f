package persistence

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"github.com/shopspring/decimal"
)

// GormCOGSRepository implements finance.COGSRepository
type GormCOGSRepository struct {
	store *FinanceStore
}

// NewGormCOGSRepository creates a new GormCOGSRepository
func NewGormCOGSRepository(store *FinanceStore) *GormCOGSRepository {
	return &GormCOGSRepository{store: store}
}

type lineItemRow struct {
	Quantity       decimal.Decimal
	CostPrice      decimal.NullDecimal
	WholesalePrice decimal.NullDecimal
}

// ListRealizedLineItems returns the costing rows of the tenant's realized,
// non-cancelled sales. available is false when sale line items (or the sales
// they hang off) cannot be read at all.
func (r *GormCOGSRepository) ListRealizedLineItems(ctx context.Context, tenantID finance.TenantID) ([]finance.LineItemCost, bool, error) {
	insp := r.store.Inspector
	if !insp.TableExists(ctx, schema.TableSaleItems) || !insp.TableExists(ctx, schema.TableSales) {
		return nil, false, nil
	}
	if !r.store.readIsolation(ctx, schema.TableSales) {
		return nil, false, nil
	}

	saleVariant := schema.ChooseVariant(
		insp.HasColumn(ctx, schema.TableSales, "status"),
		insp.HasColumn(ctx, schema.TableSales, "payment_status"),
	)
	costVariant := schema.ChooseVariant(
		insp.HasColumn(ctx, schema.TableSaleItems, "cost_price"),
		insp.HasColumn(ctx, schema.TableSaleItems, "wholesale_price"),
	)

	var rows []lineItemRow
	q := cogsLineItemsSQL.For(saleVariant, costVariant)
	if err := r.store.DB.WithContext(ctx).Raw(q, tenantID.Int64()).Scan(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("failed to list sale line items: %w", err)
	}

	items := make([]finance.LineItemCost, 0, len(rows))
	for _, row := range rows {
		items = append(items, finance.LineItemCost{
			Quantity:       row.Quantity,
			CostPrice:      row.CostPrice,
			WholesalePrice: row.WholesalePrice,
		})
	}
	return items, true, nil
}
