// Package testutil holds the fixtures shared by the finance tests: SQLite
// databases with full or legacy finance schemas, a sqlmock-backed Postgres
// for catalog queries, and helpers that call the finance API as a shop.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a Postgres-dialect GORM handle over sqlmock. Inspector and healer
// tests use it for catalog and DDL statements SQLite cannot stand in for.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a mock Postgres connection. The caller closes it.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: sqlDB}
}

// Close closes the mock database connection.
func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// ExpectTable answers one information_schema table lookup for table
func (m *MockDB) ExpectTable(table string, exists bool) {
	m.Mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.tables`).
		WithArgs(table).
		WillReturnRows(catalogCount(exists))
}

// ExpectColumn answers one information_schema column lookup
func (m *MockDB) ExpectColumn(table, column string, exists bool) {
	m.Mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.columns`).
		WithArgs(table, column).
		WillReturnRows(catalogCount(exists))
}

func catalogCount(exists bool) *sqlmock.Rows {
	n := 0
	if exists {
		n = 1
	}
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}
