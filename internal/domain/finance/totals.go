package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregateTotals are the headline figures of one tenant's finances.
// Only realized sales and purchases contribute.
type AggregateTotals struct {
	TenantID         TenantID        `json:"tenant_id"`
	CompanyID        CompanyID       `json:"company_id,omitempty"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	ManualIncome     decimal.Decimal `json:"manual_income"`
	ManualExpenses   decimal.Decimal `json:"manual_expenses"`
	SalesIncome      decimal.Decimal `json:"sales_income"`
	PurchaseExpenses decimal.Decimal `json:"purchase_expenses"`
	COGS             COGS            `json:"cogs"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	TransactionCount int             `json:"transaction_count"`
	Partial          bool            `json:"partial"`
	FailedSources    []Provenance    `json:"failed_sources,omitempty"`
	Warnings         []Warning       `json:"warnings,omitempty"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// SummarizeTotals derives aggregate totals from a tenant's transaction stream and COGS.
// Gross profit is sales income less COGS; net profit is total income less total expenses.
func SummarizeTotals(companyID CompanyID, list TransactionList, cogs COGS, now time.Time) AggregateTotals {
	manualIncome, manualExpense, salesIncome, purchaseExpense := list.Totals()
	totalIncome := manualIncome.Add(salesIncome)
	totalExpenses := manualExpense.Add(purchaseExpense)

	warnings := append([]Warning(nil), list.Warnings...)
	if !cogs.Available {
		warnings = append(warnings, NewWarning(WarningCOGSUnavailable, "sale line items are unavailable; COGS reported as 0"))
	}

	return AggregateTotals{
		TenantID:         list.TenantID,
		CompanyID:        companyID,
		TotalIncome:      totalIncome,
		TotalExpenses:    totalExpenses,
		ManualIncome:     manualIncome,
		ManualExpenses:   manualExpense,
		SalesIncome:      salesIncome,
		PurchaseExpenses: purchaseExpense,
		COGS:             cogs,
		GrossProfit:      salesIncome.Sub(cogs.Amount),
		NetProfit:        totalIncome.Sub(totalExpenses),
		TransactionCount: len(list.Transactions),
		Partial:          list.Partial,
		FailedSources:    list.FailedSources,
		Warnings:         warnings,
		GeneratedAt:      now,
	}
}
