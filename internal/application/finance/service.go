package finance

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used for spans, metrics and logs
const (
	OpListLedger        = "list_ledger"
	OpAddLedgerEntry    = "add_ledger_entry"
	OpDeleteLedgerEntry = "delete_ledger_entry"
	OpAggregateTotals   = "aggregate_totals"
	OpListCategories    = "list_categories"
	OpAddCategory       = "add_category"
	OpListBudgets       = "list_budgets"
	OpAddBudget         = "add_budget"
	OpDeleteBudget      = "delete_budget"
	OpListPettyCash     = "list_petty_cash"
	OpAddPettyCash      = "add_petty_cash"
)

const spanService = "finance"

// Repositories groups the persistence ports the finance service depends on
type Repositories struct {
	// Session is optional; without it every schema probe hits the catalog
	Session    finance.SchemaSession
	Ledger     finance.LedgerRepository
	CashFlow   finance.CashFlowRepository
	COGS       finance.COGSRepository
	Categories finance.CategoryRepository
	Budgets    finance.BudgetRepository
	PettyCash  finance.PettyCashRepository
	Backfiller finance.IsolationBackfiller
}

// FinanceService is the entry point of the finance engine. Every operation
// gates the caller's device id before touching data.
type FinanceService struct {
	session    finance.SchemaSession
	ledger     finance.LedgerRepository
	cashFlow   finance.CashFlowRepository
	cogs       finance.COGSRepository
	categories finance.CategoryRepository
	budgets    finance.BudgetRepository
	pettyCash  finance.PettyCashRepository
	backfiller finance.IsolationBackfiller

	cache             finance.TotalsCache
	metrics           *telemetry.FinanceMetrics
	defaultCategories []string
	aggTimeout        time.Duration
	now               func() time.Time

	aggregator *LedgerAggregator
}

// FinanceServiceOption is a functional option for configuring FinanceService
type FinanceServiceOption func(*FinanceService)

// WithTotalsCache enables caching of aggregate totals. A nil cache disables it.
func WithTotalsCache(cache finance.TotalsCache) FinanceServiceOption {
	return func(s *FinanceService) {
		s.cache = cache
	}
}

// WithMetrics records finance metrics
func WithMetrics(m *telemetry.FinanceMetrics) FinanceServiceOption {
	return func(s *FinanceService) {
		s.metrics = m
	}
}

// WithDefaultCategories sets the category names offered when a tenant has
// neither stored nor derivable categories
func WithDefaultCategories(names []string) FinanceServiceOption {
	return func(s *FinanceService) {
		s.defaultCategories = append([]string(nil), names...)
	}
}

// WithAggregationTimeout bounds the concurrent ledger fetches
func WithAggregationTimeout(d time.Duration) FinanceServiceOption {
	return func(s *FinanceService) {
		s.aggTimeout = d
	}
}

// WithClock overrides the time source used for budget windows and totals
func WithClock(now func() time.Time) FinanceServiceOption {
	return func(s *FinanceService) {
		s.now = now
	}
}

// NewFinanceService creates a new FinanceService
func NewFinanceService(repos Repositories, opts ...FinanceServiceOption) *FinanceService {
	s := &FinanceService{
		session:           repos.Session,
		ledger:            repos.Ledger,
		cashFlow:          repos.CashFlow,
		cogs:              repos.COGS,
		categories:        repos.Categories,
		budgets:           repos.Budgets,
		pettyCash:         repos.PettyCash,
		backfiller:        repos.Backfiller,
		defaultCategories: []string{finance.DefaultCategoryName},
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.aggregator = NewLedgerAggregator(s.ledger, s.cashFlow,
		WithAggregatorMetrics(s.metrics),
		WithAggregatorTimeout(s.aggTimeout),
	)
	return s
}

// strictTenant gates an operation on table under the strict policy
func strictTenant(tenantID int64, table string) (finance.TenantID, error) {
	scope, err := finance.StrictScope(tenantID, table)
	if err != nil {
		return 0, err
	}
	return scope.TenantID, nil
}

// begin opens the span of an operation and attaches a fresh schema probe to
// ctx so that all repositories of the operation share catalog answers
func (s *FinanceService) begin(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, op)
	if s.session != nil {
		ctx = s.session.Begin(ctx)
	}
	return ctx, span
}

// fail records err on the span. Security errors are also counted and logged.
func (s *FinanceService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	telemetry.RecordError(span, err)
	if finance.IsSecurityError(err) {
		s.metrics.RecordSecurityRejection(ctx, op)
		logger.L(ctx).Warn("finance request rejected",
			zap.String("operation", op),
			zap.Error(err),
		)
	}
	return err
}

// annotate logs and counts degraded-mode warnings. They never fail an operation.
func (s *FinanceService) annotate(ctx context.Context, op string, warnings []finance.Warning) {
	for _, w := range warnings {
		s.metrics.RecordWarning(ctx, string(w.Code))
		logger.L(ctx).Warn("degraded mode", logger.WarningFields(op, w)...)
	}
}

// invalidateTotals drops cached totals after a write. Failures are logged;
// the entry expires with its TTL anyway.
func (s *FinanceService) invalidateTotals(ctx context.Context, tenantID finance.TenantID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		logger.L(ctx).Warn("failed to invalidate cached totals", zap.Error(err))
	}
}
