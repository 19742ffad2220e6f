package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrTableNotAllowed is returned when healing is requested for a table outside the allow-list
var ErrTableNotAllowed = errors.New("schema: table not allowed for healing")

// pgDuplicateColumn is the SQLSTATE PostgreSQL reports for ADD COLUMN on an existing column
const pgDuplicateColumn = "42701"

// healableTables may receive a device_id column at runtime. Table names are
// never taken from callers verbatim into DDL; they must match this list.
var healableTables = map[string]struct{}{
	TableBudgets:    {},
	TableLedger:     {},
	TableCategories: {},
	TableSales:      {},
	TablePurchases:  {},
	TablePettyCash:  {},
}

// backfillTables hold externally owned rows that can be attributed to a
// device through their creator.
var backfillTables = []string{TableSales, TablePurchases}

// HealHook is notified after every heal attempt
type HealHook func(ctx context.Context, table string, healed bool, err error)

// Healer adds missing isolation columns and backfills legacy rows
type Healer struct {
	db        *gorm.DB
	inspector *Inspector
	hooks     []HealHook
}

// NewHealer creates a new Healer
func NewHealer(db *gorm.DB, inspector *Inspector, hooks ...HealHook) *Healer {
	return &Healer{db: db, inspector: inspector, hooks: hooks}
}

// EnsureIsolationColumn makes sure table carries a nullable integer device_id
// column. It reports whether the column exists afterwards.
// Repeated and concurrent calls are safe: PostgreSQL uses ADD COLUMN IF NOT
// EXISTS and SQLite treats "duplicate column" as success.
func (h *Healer) EnsureIsolationColumn(ctx context.Context, table string) (bool, error) {
	if _, ok := healableTables[table]; !ok {
		return false, fmt.Errorf("%w: %q", ErrTableNotAllowed, table)
	}
	if h.inspector.HasColumn(ctx, table, finance.DeviceColumn) {
		return true, nil
	}
	if !h.inspector.TableExists(ctx, table) {
		return false, finance.NewSchemaError(table, "", "table does not exist")
	}

	err := h.addDeviceColumn(ctx, table)
	h.inspector.Forget(ctx, table, finance.DeviceColumn)
	h.notify(ctx, table, err == nil, err)
	if err != nil {
		logger.L(ctx).Warn("failed to add isolation column",
			zap.String("table", table),
			zap.Error(err),
		)
		return false, fmt.Errorf("failed to add %s.%s: %w", table, finance.DeviceColumn, err)
	}

	logger.L(ctx).Info("isolation column added",
		zap.String("table", table),
		zap.String("column", finance.DeviceColumn),
	)
	h.addDeviceIndex(ctx, table)
	return true, nil
}

func (h *Healer) addDeviceColumn(ctx context.Context, table string) error {
	ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s INTEGER", table, finance.DeviceColumn)
	if h.inspector.Dialect() == "sqlite" {
		ddl = fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s INTEGER", table, finance.DeviceColumn)
	}
	err := h.db.WithContext(ctx).Exec(ddl).Error
	if err != nil && IsDuplicateColumn(err) {
		return nil
	}
	return err
}

func (h *Healer) addDeviceIndex(ctx context.Context, table string) {
	ddl := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
		table, finance.DeviceColumn, table, finance.DeviceColumn)
	if err := h.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		logger.L(ctx).Warn("failed to index isolation column",
			zap.String("table", table),
			zap.Error(err),
		)
	}
}

// BackfillIsolationColumn attributes rows of table that have no device id to
// tenantID when they were created by ownerID. Only sales and purchases can be
// backfilled. It returns the number of rows attributed.
func (h *Healer) BackfillIsolationColumn(ctx context.Context, table string, tenantID finance.TenantID, ownerID string) (int64, error) {
	if !isBackfillTable(table) {
		return 0, fmt.Errorf("%w: %q", ErrTableNotAllowed, table)
	}
	if tenantID <= 0 {
		return 0, finance.NewMissingTenantError(tenantID.Int64())
	}
	if strings.TrimSpace(ownerID) == "" || !h.inspector.HasColumn(ctx, table, finance.OwnerColumn) {
		return 0, nil
	}
	ok, err := h.EnsureIsolationColumn(ctx, table)
	if err != nil || !ok {
		return 0, err
	}

	res := h.db.WithContext(ctx).Exec(
		fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s IS NULL AND %s = ?",
			table, finance.DeviceColumn, finance.DeviceColumn, finance.OwnerColumn),
		tenantID.Int64(), ownerID,
	)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to backfill %s: %w", table, res.Error)
	}
	if res.RowsAffected > 0 {
		logger.L(ctx).Info("isolation column backfilled",
			zap.String("table", table),
			zap.Int64("rows", res.RowsAffected),
		)
	}
	return res.RowsAffected, nil
}

// BackfillOwnerRows backfills both sales and purchases for one creator.
// A failure on one table does not stop the other.
func (h *Healer) BackfillOwnerRows(ctx context.Context, tenantID finance.TenantID, ownerID string) (int64, error) {
	var total int64
	var errs []error
	for _, table := range backfillTables {
		n, err := h.BackfillIsolationColumn(ctx, table, tenantID, ownerID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

func (h *Healer) notify(ctx context.Context, table string, healed bool, err error) {
	for _, hook := range h.hooks {
		hook(ctx, table, healed, err)
	}
}

func isBackfillTable(table string) bool {
	for _, t := range backfillTables {
		if t == table {
			return true
		}
	}
	return false
}

// IsDuplicateColumn reports whether err is the error a concurrent or repeated
// ADD COLUMN raises
func IsDuplicateColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateColumn
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}
