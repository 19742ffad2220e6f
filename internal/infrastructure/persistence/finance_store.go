package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FinanceStore bundles what every financial repository needs: the database,
// the schema inspector and the healer.
type FinanceStore struct {
	DB        *gorm.DB
	Inspector *schema.Inspector
	Healer    *schema.Healer
	// HealOnRead lets reads add a missing device_id column before degrading
	HealOnRead bool
}

// NewFinanceStore creates a new FinanceStore
func NewFinanceStore(db *gorm.DB, inspector *schema.Inspector, healer *schema.Healer, healOnRead bool) *FinanceStore {
	return &FinanceStore{
		DB:         db,
		Inspector:  inspector,
		Healer:     healer,
		HealOnRead: healOnRead,
	}
}

// Begin implements finance.SchemaSession
func (s *FinanceStore) Begin(ctx context.Context) context.Context {
	return s.Inspector.Begin(ctx)
}

// readIsolation reports whether table can be filtered by device id, healing
// the column first when HealOnRead is set. Heal failures are logged and the
// caller degrades.
func (s *FinanceStore) readIsolation(ctx context.Context, table string) bool {
	if s.Inspector.HasColumn(ctx, table, finance.DeviceColumn) {
		return true
	}
	if !s.HealOnRead || !s.Inspector.TableExists(ctx, table) {
		return false
	}
	ok, err := s.Healer.EnsureIsolationColumn(ctx, table)
	if err != nil {
		logger.L(ctx).Warn("read proceeds without isolation column",
			zap.String("table", table),
			zap.Error(err),
		)
		return false
	}
	return ok
}

// writeIsolation makes sure table has a device_id column before a write.
// Writes never proceed without one.
func (s *FinanceStore) writeIsolation(ctx context.Context, table string) error {
	if s.Inspector.HasColumn(ctx, table, finance.DeviceColumn) {
		return nil
	}
	ok, err := s.Healer.EnsureIsolationColumn(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return finance.NewSchemaError(table, finance.DeviceColumn, "isolation column unavailable")
	}
	return nil
}

// missingColumns returns the subset of columns absent from table
func (s *FinanceStore) missingColumns(ctx context.Context, table string, columns ...string) []string {
	var missing []string
	for _, c := range columns {
		if !s.Inspector.HasColumn(ctx, table, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// readBackIsolation re-reads the isolation column of a freshly written row.
// It returns nil when the stored value is NULL.
func (s *FinanceStore) readBackIsolation(ctx context.Context, table, column string, id int64) (*int64, error) {
	q, ok := isolationReadBackSQL[table][column]
	if !ok {
		return nil, fmt.Errorf("no read-back query for %s.%s", table, column)
	}
	var v sql.NullInt64
	if err := s.DB.WithContext(ctx).Raw(q, id).Row().Scan(&v); err != nil {
		return nil, fmt.Errorf("failed to read back %s.%s: %w", table, column, err)
	}
	if !v.Valid {
		return nil, nil
	}
	return &v.Int64, nil
}

func isolationUnavailable(table string) finance.Warning {
	return finance.NewWarning(finance.WarningIsolationUnavailable,
		"%s has no %s column; its rows cannot be attributed to a device and were skipped", table, finance.DeviceColumn)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
