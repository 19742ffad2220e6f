package finance

import (
	"fmt"
	"strconv"
)

// Isolation and ownership column names shared by every financial table.
const (
	DeviceColumn  = "device_id"
	CompanyColumn = "company_id"
	OwnerColumn   = "created_by"
)

// Financial tables named in scope resolution and schema errors
const (
	TableLedger     = "financial_transactions"
	TableSales      = "sales"
	TablePurchases  = "purchases"
	TableSaleItems  = "sale_items"
	TableCategories = "expense_categories"
	TableBudgets    = "budgets"
	TablePettyCash  = "petty_cash"
)

// TenantID identifies the device (store terminal) that owns financial data.
// Only positive values are valid.
type TenantID int64

// Int64 returns the raw identifier
func (t TenantID) Int64() int64 {
	return int64(t)
}

// String implements fmt.Stringer
func (t TenantID) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// CompanyID identifies the company a device belongs to
type CompanyID int64

// Int64 returns the raw identifier
func (c CompanyID) Int64() int64 {
	return int64(c)
}

// Valid reports whether the company id can be used for scoping
func (c CompanyID) Valid() bool {
	return c > 0
}

// RequireTenant validates a raw device identifier.
// Zero (the absent value) and negative ids are rejected with a MissingTenant
// security error; callers must surface it as access denied.
func RequireTenant(id int64) (TenantID, error) {
	if id <= 0 {
		return 0, NewMissingTenantError(id)
	}
	return TenantID(id), nil
}

// VerifyPersistedTenant checks that a row written for expected really carries
// that device id. actual is nil when the stored value was NULL.
func VerifyPersistedTenant(expected TenantID, actual *int64) error {
	if actual == nil || *actual != expected.Int64() {
		return NewPersistenceMismatchError(expected, actual)
	}
	return nil
}

// Policy names how an entity reacts to a missing or unusable tenant id
type Policy int

const (
	// PolicyStrict rejects the request outright (ledger, categories, petty cash)
	PolicyStrict Policy = iota
	// PolicyFlexible falls back to company scoping, then to an empty result (budgets)
	PolicyFlexible
)

// String implements fmt.Stringer
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyFlexible:
		return "flexible"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ScopeKind is the isolation level a query is filtered by
type ScopeKind int

const (
	ScopeDevice ScopeKind = iota + 1
	ScopeCompany
)

// String implements fmt.Stringer
func (k ScopeKind) String() string {
	switch k {
	case ScopeDevice:
		return "device"
	case ScopeCompany:
		return "company"
	default:
		return "none"
	}
}

// Scope is the resolved isolation key for one operation
type Scope struct {
	Kind      ScopeKind `json:"kind"`
	TenantID  TenantID  `json:"tenant_id,omitempty"`
	CompanyID CompanyID `json:"company_id,omitempty"`
}

// DeviceScope returns a device-level scope
func DeviceScope(tenantID TenantID) Scope {
	return Scope{Kind: ScopeDevice, TenantID: tenantID}
}

// CompanyScope returns a company-level scope
func CompanyScope(companyID CompanyID) Scope {
	return Scope{Kind: ScopeCompany, CompanyID: companyID}
}

// Column returns the isolation column the scope filters on
func (s Scope) Column() string {
	if s.Kind == ScopeCompany {
		return CompanyColumn
	}
	return DeviceColumn
}

// Value returns the value bound to Column
func (s Scope) Value() int64 {
	if s.Kind == ScopeCompany {
		return s.CompanyID.Int64()
	}
	return s.TenantID.Int64()
}

// Degraded reports whether the scope is coarser than device level
func (s Scope) Degraded() bool {
	return s.Kind == ScopeCompany
}

// ScopeColumns reports which isolation columns a table currently has
type ScopeColumns struct {
	Device  bool
	Company bool
}

// ResolveScope applies policy to the raw identifiers of a request.
//
// Strict: the tenant id must be valid and the table must carry device_id,
// otherwise a SecurityError or SchemaError is returned.
// Flexible: a valid tenant id with a device column wins; otherwise a valid
// company id with a company column gives a degraded company scope; otherwise
// ErrNoScope tells the caller to answer with an empty result.
func ResolveScope(policy Policy, tenantID, companyID int64, table string, cols ScopeColumns) (Scope, error) {
	if policy == PolicyStrict {
		tid, err := RequireTenant(tenantID)
		if err != nil {
			return Scope{}, err
		}
		if !cols.Device {
			return Scope{}, NewSchemaError(table, DeviceColumn, "isolation column unavailable")
		}
		return DeviceScope(tid), nil
	}

	if tenantID > 0 && cols.Device {
		return DeviceScope(TenantID(tenantID)), nil
	}
	if CompanyID(companyID).Valid() && cols.Company {
		return CompanyScope(CompanyID(companyID)), nil
	}
	return Scope{}, ErrNoScope
}

// StrictScope is the gate of every strict operation. The repository of table
// owns the device column: its reads degrade without one and its writes heal
// it or fail, so the gate vouches for the tenant id alone.
func StrictScope(tenantID int64, table string) (Scope, error) {
	return ResolveScope(PolicyStrict, tenantID, 0, table, ScopeColumns{Device: true})
}
