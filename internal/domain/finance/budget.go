package finance

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BudgetPeriod is the recurrence of a budget envelope
type BudgetPeriod string

const (
	PeriodWeekly    BudgetPeriod = "weekly"
	PeriodMonthly   BudgetPeriod = "monthly"
	PeriodQuarterly BudgetPeriod = "quarterly"
	PeriodYearly    BudgetPeriod = "yearly"
)

// IsValid checks if the period is known
func (p BudgetPeriod) IsValid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// Window returns the [start, end) range of the period containing now.
// Weeks start on Monday.
func (p BudgetPeriod) Window(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	switch p {
	case PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 7)
	case PeriodQuarterly:
		startMonth := time.Month((int(m)-1)/3*3 + 1)
		start := time.Date(y, startMonth, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 3, 0)
	case PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	}
}

// Budget is a spending envelope for one category, scoped to a device or,
// in degraded mode, to a company. Spent is never stored.
type Budget struct {
	ID       int64           `json:"id"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Period   BudgetPeriod    `json:"period"`
	Scope    Scope           `json:"scope"`
}

// NewBudget validates and creates a budget for a resolved scope
func NewBudget(scope Scope, category string, amount decimal.Decimal, period BudgetPeriod) (*Budget, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Budget category is required")
	}
	if len(category) > 100 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Budget category cannot exceed 100 characters")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Budget amount must be positive")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Budget period must be weekly, monthly, quarterly or yearly")
	}
	if scope.Value() <= 0 {
		return nil, ErrNoScope
	}
	return &Budget{
		Category: category,
		Amount:   amount.Round(2),
		Period:   period,
		Scope:    scope,
	}, nil
}

// BudgetSpend is a budget row joined with its recomputed spend
type BudgetSpend struct {
	Budget Budget
	Spent  decimal.Decimal
}

// BudgetStatus is the consumption view of one budget. Spent and the figures
// derived from it cover every matching expense regardless of date.
// PeriodStart and PeriodEnd only label the current period for display and
// never filter the spend.
type BudgetStatus struct {
	Budget
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	Exceeded    bool            `json:"exceeded"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
}

// NewBudgetStatus derives the consumption figures of a budget
func NewBudgetStatus(row BudgetSpend, now time.Time) BudgetStatus {
	spent := row.Spent.Abs()
	remaining := row.Budget.Amount.Sub(spent)
	percent := decimal.Zero
	if row.Budget.Amount.IsPositive() {
		percent = spent.Div(row.Budget.Amount).Mul(decimal.NewFromInt(100)).Round(2)
	}
	start, end := row.Budget.Period.Window(now)
	return BudgetStatus{
		Budget:      row.Budget,
		Spent:       spent,
		Remaining:   remaining,
		PercentUsed: percent,
		Exceeded:    spent.GreaterThan(row.Budget.Amount),
		PeriodStart: start,
		PeriodEnd:   end,
	}
}

// BudgetList is the result of listing budgets
type BudgetList struct {
	Budgets  []BudgetStatus `json:"budgets"`
	Scope    Scope          `json:"scope"`
	Warnings []Warning      `json:"warnings,omitempty"`
}
