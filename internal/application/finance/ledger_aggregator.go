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

// sourceFetch reads one ledger source for a tenant
type sourceFetch func(ctx context.Context, tenantID finance.TenantID) ([]finance.SourceRecord, []finance.Warning, error)

type sourceResult struct {
	provenance finance.Provenance
	records    []finance.SourceRecord
	warnings   []finance.Warning
	err        error
}

// LedgerAggregator merges manual entries, realized sales and realized
// purchases into one normalized transaction stream.
type LedgerAggregator struct {
	ledger   finance.LedgerRepository
	cashFlow finance.CashFlowRepository
	metrics  *telemetry.FinanceMetrics
	timeout  time.Duration
}

// LedgerAggregatorOption is a functional option for configuring LedgerAggregator
type LedgerAggregatorOption func(*LedgerAggregator)

// WithAggregatorMetrics counts failed sources
func WithAggregatorMetrics(m *telemetry.FinanceMetrics) LedgerAggregatorOption {
	return func(a *LedgerAggregator) {
		a.metrics = m
	}
}

// WithAggregatorTimeout bounds the concurrent fetches. Zero means the
// caller's deadline only.
func WithAggregatorTimeout(d time.Duration) LedgerAggregatorOption {
	return func(a *LedgerAggregator) {
		a.timeout = d
	}
}

// NewLedgerAggregator creates a new LedgerAggregator
func NewLedgerAggregator(ledger finance.LedgerRepository, cashFlow finance.CashFlowRepository, opts ...LedgerAggregatorOption) *LedgerAggregator {
	a := &LedgerAggregator{ledger: ledger, cashFlow: cashFlow}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns the tenant's merged ledger, newest first.
//
// A missing realization column fails the call with a SchemaError. Any other
// source failure only empties that source: the result is marked partial and
// names the failed provenance. Manual rows not attributable to tenantID are
// dropped and logged.
func (a *LedgerAggregator) Aggregate(ctx context.Context, tenantID finance.TenantID) (finance.TransactionList, error) {
	if err := a.cashFlow.RequireRealizationColumns(ctx); err != nil {
		return finance.TransactionList{}, err
	}

	fetchCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	sources := []struct {
		provenance finance.Provenance
		fetch      sourceFetch
	}{
		{finance.ProvenanceManual, a.ledger.ListManual},
		{finance.ProvenanceSale, a.cashFlow.ListRealizedSales},
		{finance.ProvenancePurchase, a.cashFlow.ListRealizedPurchases},
	}

	results := make([]sourceResult, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			bctx, span := telemetry.StartServiceSpan(fetchCtx, spanService, "fetch_"+string(src.provenance),
				telemetry.WithAttribute(telemetry.SpanAttrSource, string(src.provenance)),
				telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID.Int64()),
			)
			defer span.End()

			records, warnings, err := src.fetch(bctx, tenantID)
			if err != nil {
				telemetry.RecordError(span, err)
			}
			results[i] = sourceResult{
				provenance: src.provenance,
				records:    records,
				warnings:   warnings,
				err:        err,
			}
			// Branch errors stay in results so one source cannot cancel the others
			return nil
		})
	}
	_ = g.Wait()

	return a.merge(ctx, tenantID, results), nil
}

func (a *LedgerAggregator) merge(ctx context.Context, tenantID finance.TenantID, results []sourceResult) finance.TransactionList {
	list := finance.TransactionList{
		TenantID:     tenantID,
		Transactions: make([]finance.Transaction, 0),
	}

	dropped := 0
	for _, r := range results {
		list.Warnings = append(list.Warnings, r.warnings...)

		if r.err != nil {
			logger.L(ctx).Error("ledger source failed; continuing without it",
				zap.String("source", string(r.provenance)),
				zap.Error(r.err),
			)
			a.metrics.RecordSourceFailure(ctx, string(r.provenance))
			list.Partial = true
			list.FailedSources = append(list.FailedSources, r.provenance)
			list.Warnings = append(list.Warnings, finance.NewWarning(finance.WarningSourceFailed,
				"%s records could not be loaded and are missing from this result", r.provenance))
			continue
		}

		for _, rec := range r.records {
			// Sales and purchases are trusted as filtered by their query
			if r.provenance == finance.ProvenanceManual && !rec.BelongsTo(tenantID) {
				dropped++
				logger.L(ctx).Error("dropping ledger entry of another device",
					zap.Int64("entry_id", rec.ID),
					zap.Any("entry_device_id", rec.TenantID),
				)
				continue
			}
			list.Transactions = append(list.Transactions, finance.Normalize(r.provenance, rec))
		}
	}

	if dropped > 0 {
		list.Warnings = append(list.Warnings, finance.NewWarning(finance.WarningCrossTenantRowDropped,
			"%d ledger entries not attributable to this device were dropped", dropped))
	}

	finance.SortByDateDesc(list.Transactions)
	return list
}
