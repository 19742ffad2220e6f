package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory SQLite database.
// A single connection is used so every query sees the same memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

type columnDef struct {
	name     string
	ddl      string
	optional bool
}

var financeTables = []struct {
	name    string
	columns []columnDef
}{
	{"financial_transactions", []columnDef{
		{"id", "INTEGER PRIMARY KEY AUTOINCREMENT", false},
		{"date", "DATETIME NOT NULL", false},
		{"amount", "NUMERIC NOT NULL", false},
		{"type", "TEXT NOT NULL", false},
		{"description", "TEXT", false},
		{"created_by", "TEXT", false},
		{"device_id", "INTEGER", true},
		{"company_id", "INTEGER", true},
		{"category_name", "TEXT", true},
		{"transaction_name", "TEXT", true},
	}},
	{"sales", []columnDef{
		{"id", "INTEGER PRIMARY KEY AUTOINCREMENT", false},
		{"sale_date", "DATETIME NOT NULL", false},
		{"received_amount", "NUMERIC NOT NULL DEFAULT 0", false},
		{"device_id", "INTEGER", true},
		{"status", "TEXT", true},
		{"payment_status", "TEXT", true},
		{"created_by", "TEXT", true},
	}},
	{"purchases", []columnDef{
		{"id", "INTEGER PRIMARY KEY AUTOINCREMENT", false},
		{"purchase_date", "DATETIME NOT NULL", false},
		{"received_amount", "NUMERIC NOT NULL DEFAULT 0", false},
		{"device_id", "INTEGER", true},
		{"status", "TEXT", true},
		{"payment_status", "TEXT", true},
		{"created_by", "TEXT", true},
	}},
	{"sale_items", []columnDef{
		{"id", "INTEGER PRIMARY KEY AUTOINCREMENT", false},
		{"sale_id", "INTEGER NOT NULL", false},
		{"quantity", "NUMERIC NOT NULL", false},
		{"cost_price", "NUMERIC", true},
		{"wholesale_price", "NUMERIC", true},
	}},
	{"expense_categories", []columnDef{
		{"id", "INTEGER PRIMARY KEY AUTOINCREMENT", false},
		{"name", "TEXT NOT NULL", false},
		{"device_id", "INTEGER", true},
		{"company_id", "INTEGER", true},
		{"description", "TEXT", true},
	}},
	{"budgets", []columnDef{
		{"id", "INTEGER PRIMARY KEY AUTOINCREMENT", false},
		{"category", "TEXT NOT NULL", false},
		{"amount", "NUMERIC NOT NULL", false},
		{"period", "TEXT NOT NULL", false},
		{"device_id", "INTEGER", true},
		{"company_id", "INTEGER", true},
	}},
	{"petty_cash", []columnDef{
		{"id", "INTEGER PRIMARY KEY AUTOINCREMENT", false},
		{"date", "DATETIME NOT NULL", false},
		{"amount", "NUMERIC NOT NULL", false},
		{"type", "TEXT NOT NULL", false},
		{"description", "TEXT", false},
		{"device_id", "INTEGER", true},
		{"company_id", "INTEGER", true},
		{"created_by", "TEXT", true},
	}},
}

// SchemaOptions shapes a legacy finance schema
type SchemaOptions struct {
	// SkipTables are not created at all
	SkipTables []string
	// OmitColumns maps a table to optional columns left out of it
	OmitColumns map[string][]string
}

// FullSchema creates every finance table with every optional column
func FullSchema() SchemaOptions {
	return SchemaOptions{}
}

// CreateFinanceSchema creates the finance tables shaped by opts
func CreateFinanceSchema(t *testing.T, db *gorm.DB, opts SchemaOptions) {
	t.Helper()

	for _, table := range financeTables {
		if contains(opts.SkipTables, table.name) {
			continue
		}
		omit := opts.OmitColumns[table.name]
		defs := make([]string, 0, len(table.columns))
		for _, c := range table.columns {
			if c.optional && contains(omit, c.name) {
				continue
			}
			defs = append(defs, c.name+" "+c.ddl)
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table.name, strings.Join(defs, ", "))
		require.NoError(t, db.Exec(ddl).Error, ddl)
	}
}

// Insert inserts one row into table and returns its id
func Insert(t *testing.T, db *gorm.DB, table string, values map[string]any) int64 {
	t.Helper()

	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	marks := make([]string, 0, len(values))
	for k, v := range values {
		cols = append(cols, k)
		args = append(args, v)
		marks = append(marks, "?")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	require.NoError(t, db.Exec(stmt, args...).Error, stmt)

	var id int64
	require.NoError(t, db.Raw("SELECT last_insert_rowid()").Scan(&id).Error)
	return id
}

// Dec parses a decimal literal for fixtures
func Dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// Day returns midnight UTC of the given date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
