package finance

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GetAggregateTotals returns the tenant's headline figures: realized income
// and expenses, COGS, gross and net profit. The transaction stream and COGS
// are computed concurrently. Complete results are cached per tenant and
// company until a write invalidates them or the TTL expires.
func (s *FinanceService) GetAggregateTotals(ctx context.Context, companyID, tenantID int64) (*finance.AggregateTotals, error) {
	ctx, span := s.begin(ctx, OpAggregateTotals)
	defer span.End()
	start := time.Now()

	tid, err := strictTenant(tenantID, finance.TableLedger)
	if err != nil {
		return nil, s.fail(ctx, span, OpAggregateTotals, err)
	}
	cid := finance.CompanyID(companyID)

	if cached, ok := s.cachedTotals(ctx, tid, cid); ok {
		telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, true)
		return cached, nil
	}

	var (
		list    finance.TransactionList
		cogs    finance.COGS
		cogsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.aggregator.Aggregate(gctx, tid)
		return err
	})
	g.Go(func() error {
		cogs, cogsErr = s.computeCOGS(gctx, tid)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, span, OpAggregateTotals, err)
	}

	totals := finance.SummarizeTotals(cid, list, cogs, s.now())
	if cogsErr != nil {
		totals.Partial = true
		totals.Warnings = append(totals.Warnings, finance.NewWarning(finance.WarningSourceFailed,
			"sale line items could not be loaded; COGS is incomplete"))
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tid.Int64(),
		telemetry.SpanAttrCompanyID, cid.Int64(),
		telemetry.SpanAttrPartial, totals.Partial,
		telemetry.SpanAttrCacheHit, false,
	)
	s.annotate(ctx, OpAggregateTotals, totals.Warnings)
	s.metrics.RecordAggregation(ctx, OpAggregateTotals, time.Since(start), totals.Partial)

	// Partial figures are not cached: the next request retries the failed source
	if s.cache != nil && !totals.Partial {
		if err := s.cache.Set(ctx, &totals); err != nil {
			logger.L(ctx).Warn("failed to cache totals", zap.Error(err))
		}
	}
	return &totals, nil
}

func (s *FinanceService) cachedTotals(ctx context.Context, tenantID finance.TenantID, companyID finance.CompanyID) (*finance.AggregateTotals, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok := s.cache.Get(ctx, tenantID, companyID)
	hit := ok && cached != nil && cached.TenantID == tenantID
	s.metrics.RecordCacheLookup(ctx, hit)
	return cached, hit
}

// computeCOGS sums the costs of the tenant's realized line items. A read
// failure is returned alongside an unavailable COGS so totals can still be
// reported.
func (s *FinanceService) computeCOGS(ctx context.Context, tenantID finance.TenantID) (finance.COGS, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "compute_cogs")
	defer span.End()

	items, available, err := s.cogs.ListRealizedLineItems(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordSourceFailure(ctx, "cogs")
		logger.L(ctx).Error("COGS source failed; reporting it as unavailable", zap.Error(err))
		return finance.UnavailableCOGS(), err
	}
	if !available {
		return finance.UnavailableCOGS(), nil
	}

	cogs := finance.ComputeCOGS(items)
	if cogs.Uncosted > 0 {
		logger.L(ctx).Debug("line items without a usable cost counted at zero",
			zap.Int("uncosted", cogs.Uncosted),
			zap.Int("line_items", cogs.LineItems),
		)
	}
	return cogs, nil
}
