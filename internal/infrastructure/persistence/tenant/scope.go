// Package tenant provides device-level isolation scoping for GORM.
//
// Builder queries against the financial tables are filtered by the resolved
// finance.Scope:
//
//	db.Scopes(tenant.Scoped(finance.DeviceScope(42))).Delete(&models.BudgetModel{}, id)
//
// The isolation guard (see callback.go) rejects any builder query on an
// isolated table that carries no device_id / company_id condition.
package tenant

import (
	"errors"

	"github.com/erp/backoffice/internal/domain/finance"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnscopedQuery is returned when a query on an isolated table has no isolation condition
var ErrUnscopedQuery = errors.New("query on isolated table has no device or company condition")

// ErrInvalidScope is returned when a scope carries no usable isolation value
var ErrInvalidScope = errors.New("isolation scope has no valid value")

// Scoped filters a query by the isolation column of scope.
// An empty scope poisons the statement instead of silently widening it.
func Scoped(scope finance.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.Value() <= 0 {
			_ = db.AddError(ErrInvalidScope)
			return db
		}
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: scope.Column()},
			Value:  scope.Value(),
		})
	}
}

// Device filters a query by device id
func Device(tenantID finance.TenantID) func(db *gorm.DB) *gorm.DB {
	return Scoped(finance.DeviceScope(tenantID))
}

// Owned filters a query by device id and creator
func Owned(tenantID finance.TenantID, ownerID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(Device(tenantID)).Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: finance.OwnerColumn},
			Value:  ownerID,
		})
	}
}
