package finance

import (
	"errors"
	"fmt"
)

// SecurityErrorKind distinguishes the two ways tenant isolation can be violated
type SecurityErrorKind string

const (
	// SecurityMissingTenant means the request carried no valid device id
	SecurityMissingTenant SecurityErrorKind = "MISSING_TENANT"
	// SecurityPersistenceMismatch means a written row does not carry the requested device id
	SecurityPersistenceMismatch SecurityErrorKind = "PERSISTENCE_MISMATCH"
)

// SecurityError is returned whenever tenant isolation cannot be guaranteed.
// It must reach the caller as an access-denied state, never as a generic failure.
type SecurityError struct {
	Kind     SecurityErrorKind
	Message  string
	Expected int64
	Actual   *int64
}

// Error implements the error interface
func (e *SecurityError) Error() string {
	return e.Message
}

// NewMissingTenantError creates a MissingTenant security error
func NewMissingTenantError(got int64) *SecurityError {
	return &SecurityError{
		Kind:     SecurityMissingTenant,
		Message:  "access denied: a valid device id is required",
		Expected: 0,
		Actual:   &got,
	}
}

// NewPersistenceMismatchError creates a PersistenceMismatch security error
func NewPersistenceMismatchError(expected TenantID, actual *int64) *SecurityError {
	got := "NULL"
	if actual != nil {
		got = fmt.Sprintf("%d", *actual)
	}
	return &SecurityError{
		Kind:     SecurityPersistenceMismatch,
		Message:  fmt.Sprintf("access denied: persisted device id %s does not match requested device %d", got, expected),
		Expected: expected.Int64(),
		Actual:   actual,
	}
}

// NewScopeMismatchError creates a PersistenceMismatch security error naming
// the isolation level of scope
func NewScopeMismatchError(scope Scope, actual *int64) *SecurityError {
	if scope.Kind != ScopeCompany {
		return NewPersistenceMismatchError(scope.TenantID, actual)
	}
	got := "NULL"
	if actual != nil {
		got = fmt.Sprintf("%d", *actual)
	}
	return &SecurityError{
		Kind:     SecurityPersistenceMismatch,
		Message:  fmt.Sprintf("access denied: persisted company id %s does not match requested company %d", got, scope.CompanyID),
		Expected: scope.Value(),
		Actual:   actual,
	}
}

// IsSecurityError reports whether err is or wraps a SecurityError
func IsSecurityError(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}

// SchemaError is returned when a required table or column is absent and the
// operation refuses to guess a number it cannot compute correctly.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("schema: table %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("schema: %s.%s: %s", e.Table, e.Column, e.Reason)
}

// NewSchemaError creates a SchemaError
func NewSchemaError(table, column, reason string) *SchemaError {
	return &SchemaError{Table: table, Column: column, Reason: reason}
}

// IsSchemaError reports whether err is or wraps a SchemaError
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ErrNoScope is returned by ResolveScope under the flexible policy when
// neither device nor company scoping is possible.
var ErrNoScope = errors.New("no isolation scope available")

// WarningCode identifies a degraded-mode condition
type WarningCode string

const (
	WarningCompanyScope          WarningCode = "COMPANY_SCOPE"
	WarningNoScope               WarningCode = "NO_SCOPE"
	WarningSpentUnavailable      WarningCode = "SPENT_UNAVAILABLE"
	WarningSpentReducedFidelity  WarningCode = "SPENT_REDUCED_FIDELITY"
	WarningIsolationUnavailable  WarningCode = "ISOLATION_UNAVAILABLE"
	WarningCategoriesDerived     WarningCode = "CATEGORIES_DERIVED"
	WarningCategoriesDefault     WarningCode = "CATEGORIES_DEFAULT"
	WarningCOGSUnavailable       WarningCode = "COGS_SOURCE_UNAVAILABLE"
	WarningSourceFailed          WarningCode = "SOURCE_FAILED"
	WarningCrossTenantRowDropped WarningCode = "CROSS_TENANT_ROW_DROPPED"
)

// Warning annotates a result computed in degraded mode. It is never an error.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// NewWarning creates a Warning
func NewWarning(code WarningCode, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}
