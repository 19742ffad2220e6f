// Package schema answers "does this table / column exist" for the financial
// tables, heals missing isolation columns, and picks precompiled query
// variants from the answers.
//
// Catalog answers are memoized per logical operation through a Probe carried
// in the context:
//
//	ctx = inspector.Begin(ctx)
//	if inspector.HasColumn(ctx, "sales", "status") { ... }
//
// Any catalog failure is answered with false and logged at debug level, so
// callers always degrade instead of failing on an unreadable catalog.
package schema

import (
	"context"
	"sync"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Financial tables known to the inspector
const (
	TableLedger     = finance.TableLedger
	TableSales      = finance.TableSales
	TablePurchases  = finance.TablePurchases
	TableSaleItems  = finance.TableSaleItems
	TableCategories = finance.TableCategories
	TableBudgets    = finance.TableBudgets
	TablePettyCash  = finance.TablePettyCash
)

// optionalColumns is the closed set of columns that may be absent on a
// partially migrated database. Queries adapt to these and only these.
var optionalColumns = map[string][]string{
	TableLedger:     {"device_id", "company_id", "category_name", "transaction_name"},
	TableSales:      {"device_id", "status", "payment_status", "created_by"},
	TablePurchases:  {"device_id", "status", "payment_status", "created_by"},
	TableSaleItems:  {"cost_price", "wholesale_price"},
	TableCategories: {"device_id", "company_id", "description"},
	TableBudgets:    {"device_id", "company_id"},
	TablePettyCash:  {"device_id", "company_id", "created_by"},
}

// IsOptionalColumn reports whether column is a registered optional column of table
func IsOptionalColumn(table, column string) bool {
	for _, c := range optionalColumns[table] {
		if c == column {
			return true
		}
	}
	return false
}

// OptionalColumns returns the registered optional columns of table
func OptionalColumns(table string) []string {
	cols := optionalColumns[table]
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

const (
	pgTableExistsSQL = `SELECT COUNT(*) FROM information_schema.tables
WHERE table_schema = CURRENT_SCHEMA() AND table_name = ?`
	pgColumnExistsSQL = `SELECT COUNT(*) FROM information_schema.columns
WHERE table_schema = CURRENT_SCHEMA() AND table_name = ? AND column_name = ?`
	sqliteTableExistsSQL  = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	sqliteColumnExistsSQL = `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
)

type probeKey struct{}

// Inspector queries the database catalog
type Inspector struct {
	db *gorm.DB
}

// NewInspector creates a new Inspector
func NewInspector(db *gorm.DB) *Inspector {
	return &Inspector{db: db}
}

// Dialect returns the name of the underlying SQL dialect ("postgres", "sqlite")
func (i *Inspector) Dialect() string {
	return i.db.Dialector.Name()
}

// Begin attaches a fresh Probe to ctx unless one is already present.
// All inspector calls made with the returned context share its answers.
func (i *Inspector) Begin(ctx context.Context) context.Context {
	if _, ok := ctx.Value(probeKey{}).(*Probe); ok {
		return ctx
	}
	return context.WithValue(ctx, probeKey{}, newProbe(i))
}

// probe returns the operation's Probe, or a throwaway one when the caller
// did not call Begin (no memoization across calls in that case).
func (i *Inspector) probe(ctx context.Context) *Probe {
	if p, ok := ctx.Value(probeKey{}).(*Probe); ok {
		return p
	}
	return newProbe(i)
}

// TableExists reports whether table exists
func (i *Inspector) TableExists(ctx context.Context, table string) bool {
	return i.probe(ctx).tableExists(ctx, table)
}

// HasColumn reports whether table has column. A missing table has no columns.
func (i *Inspector) HasColumn(ctx context.Context, table, column string) bool {
	if !IsOptionalColumn(table, column) {
		logger.L(ctx).Debug("schema probe for unregistered column",
			zap.String("table", table),
			zap.String("column", column),
		)
	}
	return i.probe(ctx).hasColumn(ctx, table, column)
}

// Forget drops a memoized answer so it is re-read from the catalog
func (i *Inspector) Forget(ctx context.Context, table, column string) {
	i.probe(ctx).forget(table, column)
}

func (i *Inspector) queryTableExists(ctx context.Context, table string) bool {
	q := pgTableExistsSQL
	if i.Dialect() == "sqlite" {
		q = sqliteTableExistsSQL
	}
	return i.count(ctx, q, table)
}

func (i *Inspector) queryColumnExists(ctx context.Context, table, column string) bool {
	q := pgColumnExistsSQL
	if i.Dialect() == "sqlite" {
		q = sqliteColumnExistsSQL
	}
	return i.count(ctx, q, table, column)
}

func (i *Inspector) count(ctx context.Context, query string, args ...any) bool {
	var n int64
	if err := i.db.WithContext(ctx).Raw(query, args...).Scan(&n).Error; err != nil {
		logger.L(ctx).Debug("schema catalog query failed",
			zap.Any("args", args),
			zap.Error(err),
		)
		return false
	}
	return n > 0
}

// Probe memoizes catalog answers for one logical operation.
// It is safe for concurrent use by the branches of that operation.
type Probe struct {
	inspector *Inspector
	mu        sync.Mutex
	tables    map[string]bool
	columns   map[string]bool
}

func newProbe(i *Inspector) *Probe {
	return &Probe{
		inspector: i,
		tables:    make(map[string]bool),
		columns:   make(map[string]bool),
	}
}

func (p *Probe) tableExists(ctx context.Context, table string) bool {
	p.mu.Lock()
	v, ok := p.tables[table]
	p.mu.Unlock()
	if ok {
		return v
	}

	v = p.inspector.queryTableExists(ctx, table)

	p.mu.Lock()
	p.tables[table] = v
	p.mu.Unlock()
	return v
}

func (p *Probe) hasColumn(ctx context.Context, table, column string) bool {
	key := table + "." + column
	p.mu.Lock()
	v, ok := p.columns[key]
	p.mu.Unlock()
	if ok {
		return v
	}

	v = p.tableExists(ctx, table) && p.inspector.queryColumnExists(ctx, table, column)

	p.mu.Lock()
	p.columns[key] = v
	p.mu.Unlock()
	return v
}

func (p *Probe) forget(table, column string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if column == "" {
		delete(p.tables, table)
		return
	}
	delete(p.columns, table+"."+column)
}
