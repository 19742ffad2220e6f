package finance

import (
	"sort"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"golang.org/x/text/cases"
)

// CategorySource tells where a category list came from
type CategorySource string

const (
	CategorySourceTable   CategorySource = "table"
	CategorySourceDerived CategorySource = "derived"
	CategorySourceDefault CategorySource = "default"
)

// ExpenseCategory is a tenant-scoped label for ledger entries
type ExpenseCategory struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TenantID    TenantID  `json:"tenant_id"`
	CompanyID   CompanyID `json:"company_id,omitempty"`
}

// NewExpenseCategory validates and creates a category
func NewExpenseCategory(tenantID TenantID, companyID CompanyID, name, description string) (*ExpenseCategory, error) {
	if tenantID <= 0 {
		return nil, NewMissingTenantError(tenantID.Int64())
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Category name is required")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Category name cannot exceed 100 characters")
	}
	return &ExpenseCategory{
		Name:        name,
		Description: strings.TrimSpace(description),
		TenantID:    tenantID,
		CompanyID:   companyID,
	}, nil
}

// CategoryLabel is one distinct (category_name, transaction_name) pair from the ledger
type CategoryLabel struct {
	CategoryName    string
	TransactionName string
}

// CategoryList is the result of listing categories
type CategoryList struct {
	Categories []ExpenseCategory `json:"categories"`
	Source     CategorySource    `json:"source"`
	Warnings   []Warning         `json:"warnings,omitempty"`
}

// DeriveCategories builds a category list from ledger labels, resolving each
// through the category fallback chain. Names equal under case folding are
// merged, keeping the first spelling seen. The result is sorted by name.
func DeriveCategories(tenantID TenantID, labels []CategoryLabel) []ExpenseCategory {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, ResolveCategory(l.CategoryName, l.TransactionName))
	}
	return categoriesFromNames(tenantID, names)
}

// DefaultCategories turns the configured default names into categories
func DefaultCategories(tenantID TenantID, names []string) []ExpenseCategory {
	return categoriesFromNames(tenantID, names)
}

func categoriesFromNames(tenantID TenantID, names []string) []ExpenseCategory {
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(names))
	out := make([]ExpenseCategory, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := fold.String(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ExpenseCategory{Name: n, TenantID: tenantID})
	}
	sort.Slice(out, func(i, j int) bool {
		return fold.String(out[i].Name) < fold.String(out[j].Name)
	})
	return out
}
