package persistence

import (
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/persistence/schema"
)

// Every query below is compiled once at package init into a closed set of
// variants. Nothing is assembled per request except the choice of variant.
//
// Each isolated query binds the scope value as its first and only argument.

const cancelledStatus = "Cancelled"

// realizedFilter is the realization gate for a sales/purchases alias.
// A missing status column carries no cancellation signal; a NULL status is
// treated as not cancelled.
func realizedFilter(alias string, v schema.Variant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.received_amount > 0", alias)
	if v.First() {
		fmt.Fprintf(&b, " AND COALESCE(%s.status, '') <> '%s'", alias, cancelledStatus)
	}
	if v.Second() {
		fmt.Fprintf(&b, " AND COALESCE(%s.payment_status, '') <> '%s'", alias, cancelledStatus)
	}
	return b.String()
}

func realizedCashFlow(table, dateColumn string) schema.Family {
	return schema.NewFamily(func(v schema.Variant) string {
		return fmt.Sprintf(`SELECT t.id AS id, t.%[2]s AS date, t.received_amount AS amount, t.device_id AS tenant_id
FROM %[1]s t
WHERE t.device_id = ? AND %[3]s
ORDER BY t.%[2]s DESC, t.id DESC`, table, dateColumn, realizedFilter("t", v))
	})
}

var (
	// realizedSalesSQL: variant over (status, payment_status)
	realizedSalesSQL = realizedCashFlow(schema.TableSales, "sale_date")
	// realizedPurchasesSQL: variant over (status, payment_status)
	realizedPurchasesSQL = realizedCashFlow(schema.TablePurchases, "purchase_date")

	// cogsLineItemsSQL: first variant over sale (status, payment_status),
	// second over line item (cost_price, wholesale_price)
	cogsLineItemsSQL = schema.NewFamily2(func(sale, cost schema.Variant) string {
		return fmt.Sprintf(`SELECT si.quantity AS quantity, %s AS cost_price, %s AS wholesale_price
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
WHERE s.device_id = ? AND %s`,
			schema.Column("si", "cost_price", cost.First()),
			schema.Column("si", "wholesale_price", cost.Second()),
			realizedFilter("s", sale))
	})

	// manualLedgerSQL: variant over (category_name, transaction_name)
	manualLedgerSQL = schema.NewFamily(func(v schema.Variant) string {
		return fmt.Sprintf(`SELECT id, date, amount, type, description, %s AS category_name, %s AS transaction_name, device_id AS tenant_id
FROM financial_transactions
WHERE device_id = ?
ORDER BY date DESC, id DESC`,
			schema.Column("", "category_name", v.First()),
			schema.Column("", "transaction_name", v.Second()))
	})

	// categoryLabelsSQL: variant over (category_name, transaction_name)
	categoryLabelsSQL = schema.NewFamily(func(v schema.Variant) string {
		return fmt.Sprintf(`SELECT DISTINCT %s AS category_name, %s AS transaction_name
FROM financial_transactions
WHERE device_id = ?`,
			schema.Column("", "category_name", v.First()),
			schema.Column("", "transaction_name", v.Second()))
	})

	// categoriesSQL: variant over (description, company_id)
	categoriesSQL = schema.NewFamily(func(v schema.Variant) string {
		return fmt.Sprintf(`SELECT id, name, %s AS description, device_id AS tenant_id, %s AS company_id
FROM expense_categories
WHERE device_id = ?
ORDER BY name, id`,
			schema.Column("", "description", v.First()),
			schema.Column("", "company_id", v.Second()))
	})

	// pettyCashSQL: variant over (company_id, created_by)
	pettyCashSQL = schema.NewFamily(func(v schema.Variant) string {
		return fmt.Sprintf(`SELECT id, date, amount, type, description, device_id AS tenant_id, %s AS company_id, %s AS created_by
FROM petty_cash
WHERE device_id = ?
ORDER BY date DESC, id DESC`,
			schema.Column("", "company_id", v.First()),
			schema.Column("", "created_by", v.Second()))
	})

	// budgetSpendSQL: per scope kind, variant over the ledger join columns
	// (category_name, transaction_name). The LEFT JOIN keeps zero-spend budgets.
	budgetSpendSQL = map[finance.ScopeKind]schema.Family{
		finance.ScopeDevice:  budgetSpend(finance.DeviceColumn, ""),
		finance.ScopeCompany: budgetSpend(finance.CompanyColumn, ""),
	}

	// unattributedBudgetSpendSQL: company budgets written before budgets
	// carried a device id, same variants as budgetSpendSQL
	unattributedBudgetSpendSQL = budgetSpend(finance.CompanyColumn, "b.device_id IS NULL")
)

// budgetSpend matches ledger expenses to budgets by label. Ledger types are
// compared case-insensitively since legacy rows carry "Expense".
func budgetSpend(scopeColumn, filter string) schema.Family {
	where := fmt.Sprintf("b.%s = ?", scopeColumn)
	if filter != "" {
		where += " AND " + filter
	}
	return schema.NewFamily(func(v schema.Variant) string {
		if v == schema.VariantNeither {
			return fmt.Sprintf(`SELECT b.id AS id, b.category AS category, b.amount AS amount, b.period AS period, 0 AS spent
FROM budgets b
WHERE %s
ORDER BY b.category, b.id`, where)
		}

		var match []string
		if v.First() {
			match = append(match, "ft.category_name = b.category")
		}
		if v.Second() {
			match = append(match, "ft.transaction_name = b.category")
		}
		return fmt.Sprintf(`SELECT b.id AS id, b.category AS category, b.amount AS amount, b.period AS period, COALESCE(SUM(ft.amount), 0) AS spent
FROM budgets b
LEFT JOIN financial_transactions ft
  ON ft.%[1]s = b.%[1]s AND LOWER(ft.type) = 'expense' AND (%[2]s)
WHERE %[3]s
GROUP BY b.id, b.category, b.amount, b.period
ORDER BY b.category, b.id`, scopeColumn, strings.Join(match, " OR "), where)
	})
}

// isolationReadBackSQL re-reads the isolation value of a freshly written row
var isolationReadBackSQL = map[string]map[string]string{}

func init() {
	for _, table := range []string{schema.TableLedger, schema.TableCategories, schema.TableBudgets, schema.TablePettyCash} {
		isolationReadBackSQL[table] = map[string]string{
			finance.DeviceColumn:  fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", finance.DeviceColumn, table),
			finance.CompanyColumn: fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", finance.CompanyColumn, table),
		}
	}
}
