package finance

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetPeriod(t *testing.T) {
	t.Run("IsValid accepts the four periods", func(t *testing.T) {
		for _, p := range []BudgetPeriod{PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly} {
			assert.True(t, p.IsValid(), "%s", p)
		}
		assert.False(t, BudgetPeriod("daily").IsValid())
	})

	// Wednesday
	now := time.Date(2026, time.August, 19, 15, 30, 0, 0, time.UTC)

	t.Run("weekly window starts on Monday", func(t *testing.T) {
		start, end := PeriodWeekly.Window(now)
		assert.Equal(t, time.Date(2026, time.August, 17, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("monthly window", func(t *testing.T) {
		start, end := PeriodMonthly.Window(now)
		assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("quarterly window", func(t *testing.T) {
		start, end := PeriodQuarterly.Window(now)
		assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("yearly window", func(t *testing.T) {
		start, end := PeriodYearly.Window(now)
		assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("sunday belongs to the week that started the previous Monday", func(t *testing.T) {
		sunday := time.Date(2026, time.August, 23, 10, 0, 0, 0, time.UTC)
		start, _ := PeriodWeekly.Window(sunday)
		assert.Equal(t, time.Date(2026, time.August, 17, 0, 0, 0, 0, time.UTC), start)
	})
}

func TestNewBudget(t *testing.T) {
	scope := DeviceScope(42)

	t.Run("creates a valid budget", func(t *testing.T) {
		b, err := NewBudget(scope, "  Rent ", decimal.NewFromInt(1000), PeriodMonthly)
		require.NoError(t, err)
		assert.Equal(t, "Rent", b.Category)
		assert.Equal(t, scope, b.Scope)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		cases := []struct {
			category string
			amount   decimal.Decimal
			period   BudgetPeriod
		}{
			{"", decimal.NewFromInt(1), PeriodMonthly},
			{"Rent", decimal.Zero, PeriodMonthly},
			{"Rent", decimal.NewFromInt(-1), PeriodMonthly},
			{"Rent", decimal.NewFromInt(1), BudgetPeriod("daily")},
		}
		for _, c := range cases {
			_, err := NewBudget(scope, c.category, c.amount, c.period)
			var de *shared.DomainError
			assert.ErrorAs(t, err, &de)
		}
	})

	t.Run("rejects an empty scope", func(t *testing.T) {
		_, err := NewBudget(Scope{}, "Rent", decimal.NewFromInt(1), PeriodMonthly)
		assert.ErrorIs(t, err, ErrNoScope)
	})
}

func TestNewBudgetStatus(t *testing.T) {
	now := time.Date(2026, time.August, 19, 0, 0, 0, 0, time.UTC)
	budget := Budget{ID: 1, Category: "Rent", Amount: decimal.NewFromInt(200), Period: PeriodMonthly, Scope: DeviceScope(42)}

	t.Run("computes remaining and percent used", func(t *testing.T) {
		status := NewBudgetStatus(BudgetSpend{Budget: budget, Spent: decimal.NewFromInt(50)}, now)
		assert.True(t, decimal.NewFromInt(150).Equal(status.Remaining))
		assert.True(t, decimal.NewFromInt(25).Equal(status.PercentUsed))
		assert.False(t, status.Exceeded)
		assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), status.PeriodStart)
	})

	t.Run("negative spend from signed sums is treated as absolute", func(t *testing.T) {
		status := NewBudgetStatus(BudgetSpend{Budget: budget, Spent: decimal.NewFromInt(-250)}, now)
		assert.True(t, decimal.NewFromInt(250).Equal(status.Spent))
		assert.True(t, status.Exceeded)
		assert.True(t, decimal.NewFromInt(-50).Equal(status.Remaining))
	})

	t.Run("zero spend", func(t *testing.T) {
		status := NewBudgetStatus(BudgetSpend{Budget: budget, Spent: decimal.Zero}, now)
		assert.True(t, status.Spent.IsZero())
		assert.True(t, status.PercentUsed.IsZero())
	})
}
