package tenant

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IsolatedTables are the financial tables every builder query must scope
var IsolatedTables = []string{
	"financial_transactions",
	"expense_categories",
	"budgets",
	"petty_cash",
}

// IsolationGuard provides GORM callback hooks that refuse unscoped access
// to isolated tables. Raw SQL is not inspected; raw statements are built
// from precompiled query families that always bind the scope column.
type IsolationGuard struct {
	tables  map[string]struct{}
	columns []string
}

// NewIsolationGuard creates a guard for the given tables.
// With no tables, IsolatedTables is used.
func NewIsolationGuard(tables ...string) *IsolationGuard {
	if len(tables) == 0 {
		tables = IsolatedTables
	}
	g := &IsolationGuard{
		tables:  make(map[string]struct{}, len(tables)),
		columns: []string{finance.DeviceColumn, finance.CompanyColumn},
	}
	for _, t := range tables {
		g.tables[t] = struct{}{}
	}
	return g
}

// RegisterCallbacks registers the guard with GORM
func (g *IsolationGuard) RegisterCallbacks(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("isolation:before_query", g.check); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("isolation:before_update", g.check); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("isolation:before_delete", g.check); err != nil {
		return err
	}
	// Create is not guarded: inserts set device_id explicitly and are verified after the write
	return nil
}

// EnableIsolationGuard registers the default guard on db
func EnableIsolationGuard(db *gorm.DB) error {
	return NewIsolationGuard().RegisterCallbacks(db)
}

func (g *IsolationGuard) check(db *gorm.DB) {
	// A statement already poisoned by a scope keeps its own error
	if db.Error != nil || db.Statement == nil || db.Statement.SQL.Len() > 0 {
		return
	}
	table := db.Statement.Table
	if _, ok := g.tables[table]; !ok {
		return
	}
	if g.hasIsolationCondition(db) {
		return
	}

	ctx := db.Statement.Context
	if ctx != nil {
		logger.L(ctx).Error("unscoped query on isolated table rejected", zap.String("table", table))
	}
	_ = db.AddError(ErrUnscopedQuery)
}

func (g *IsolationGuard) hasIsolationCondition(db *gorm.DB) bool {
	whereClause, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := whereClause.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if g.exprContainsIsolation(expr) {
			return true
		}
	}
	return false
}

func (g *IsolationGuard) exprContainsIsolation(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return g.isIsolationColumn(e.Column)
	case clause.IN:
		return g.isIsolationColumn(e.Column)
	case clause.Expr:
		return g.sqlMentionsIsolation(e.SQL)
	case clause.NamedExpr:
		return g.sqlMentionsIsolation(e.SQL)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if g.exprContainsIsolation(cond) {
				return true
			}
		}
	}
	// OR conditions can widen the result set and never count as a scope
	return false
}

func (g *IsolationGuard) isIsolationColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return g.isColumnName(c.Name)
	case string:
		return g.isColumnName(c)
	}
	return false
}

func (g *IsolationGuard) isColumnName(name string) bool {
	for _, c := range g.columns {
		if name == c {
			return true
		}
	}
	return false
}

func (g *IsolationGuard) sqlMentionsIsolation(sql string) bool {
	if strings.Contains(strings.ToUpper(sql), " OR ") {
		return false
	}
	for _, c := range g.columns {
		if strings.Contains(sql, c+" =") || strings.Contains(sql, c+" IN") {
			return true
		}
	}
	return false
}
