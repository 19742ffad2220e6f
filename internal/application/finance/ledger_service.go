package finance

import (
	"context"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ListLedger returns the tenant's merged ledger of manual entries, realized
// sales and realized purchases, newest first
func (s *FinanceService) ListLedger(ctx context.Context, tenantID int64) (*finance.TransactionList, error) {
	ctx, span := s.begin(ctx, OpListLedger)
	defer span.End()
	start := time.Now()

	tid, err := strictTenant(tenantID, finance.TableLedger)
	if err != nil {
		return nil, s.fail(ctx, span, OpListLedger, err)
	}

	list, err := s.aggregator.Aggregate(ctx, tid)
	if err != nil {
		return nil, s.fail(ctx, span, OpListLedger, err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tid.Int64(),
		telemetry.SpanAttrPartial, list.Partial,
		"transactions", len(list.Transactions),
	)
	s.annotate(ctx, OpListLedger, list.Warnings)
	s.metrics.RecordAggregation(ctx, OpListLedger, time.Since(start), list.Partial)
	return &list, nil
}

// AddLedgerEntry records a manual entry for the tenant. The entry is read
// back after insertion; a stored device id other than tenantID fails the
// operation with a PersistenceMismatch security error even though a row was
// written. A successful save lazily attributes the creator's legacy sales and
// purchases to the tenant.
func (s *FinanceService) AddLedgerEntry(ctx context.Context, tenantID int64, req CreateLedgerEntryRequest) (*LedgerEntryResponse, error) {
	ctx, span := s.begin(ctx, OpAddLedgerEntry)
	defer span.End()

	tid, err := strictTenant(tenantID, finance.TableLedger)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddLedgerEntry, err)
	}

	entry, err := finance.NewLedgerEntry(
		tid,
		finance.CompanyID(req.CompanyID),
		req.CreatedBy,
		finance.EntryType(req.Type),
		req.Amount,
		req.Date,
		req.Description,
		req.Category,
	)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddLedgerEntry, err)
	}

	persisted, err := s.ledger.Save(ctx, entry)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddLedgerEntry, err)
	}
	if err := finance.VerifyPersistedTenant(tid, persisted); err != nil {
		logger.L(ctx).Error("ledger entry persisted with wrong device id",
			zap.Int64("entry_id", entry.ID),
			zap.Error(err),
		)
		return nil, s.fail(ctx, span, OpAddLedgerEntry, err)
	}

	s.backfillOwner(ctx, tid, req.CreatedBy)
	s.invalidateTotals(ctx, tid)

	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tid.Int64(), "entry_id", entry.ID)
	return ToLedgerEntryResponse(entry), nil
}

// backfillOwner attributes the creator's unattributed sales and purchases to
// the tenant. It never fails the write that triggered it.
func (s *FinanceService) backfillOwner(ctx context.Context, tenantID finance.TenantID, ownerID string) {
	if s.backfiller == nil || strings.TrimSpace(ownerID) == "" {
		return
	}
	n, err := s.backfiller.BackfillOwnerRows(ctx, tenantID, ownerID)
	if err != nil {
		logger.L(ctx).Warn("lazy isolation backfill failed", zap.Error(err))
	}
	if n > 0 {
		s.invalidateTotals(ctx, tenantID)
	}
}

// DeleteLedgerEntry removes a manual entry. Only its creator, on the same
// device, may delete it.
func (s *FinanceService) DeleteLedgerEntry(ctx context.Context, tenantID int64, userID string, id int64) error {
	ctx, span := s.begin(ctx, OpDeleteLedgerEntry)
	defer span.End()

	tid, err := strictTenant(tenantID, finance.TableLedger)
	if err != nil {
		return s.fail(ctx, span, OpDeleteLedgerEntry, err)
	}
	if strings.TrimSpace(userID) == "" {
		return s.fail(ctx, span, OpDeleteLedgerEntry, shared.NewDomainError("FORBIDDEN", "Only the creator of an entry can delete it"))
	}
	if id <= 0 {
		return s.fail(ctx, span, OpDeleteLedgerEntry, shared.NewDomainError("INVALID_INPUT", "Entry id must be positive"))
	}

	if err := s.ledger.DeleteOwned(ctx, tid, userID, id); err != nil {
		return s.fail(ctx, span, OpDeleteLedgerEntry, err)
	}

	s.invalidateTotals(ctx, tid)
	return nil
}
