package finance

import (
	"context"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ListPettyCash returns the tenant's cash box movements with the running balance
func (s *FinanceService) ListPettyCash(ctx context.Context, companyID, tenantID int64) (*finance.PettyCashLedger, error) {
	ctx, span := s.begin(ctx, OpListPettyCash)
	defer span.End()

	tid, err := strictTenant(tenantID, finance.TablePettyCash)
	if err != nil {
		return nil, s.fail(ctx, span, OpListPettyCash, err)
	}

	entries, warnings, err := s.pettyCash.List(ctx, tid)
	if err != nil {
		return nil, s.fail(ctx, span, OpListPettyCash, err)
	}
	if cid := finance.CompanyID(companyID); cid.Valid() {
		for i := range entries {
			if entries[i].CompanyID == 0 {
				entries[i].CompanyID = cid
			}
		}
	}

	ledger := finance.SummarizePettyCash(entries)
	ledger.Warnings = warnings
	s.annotate(ctx, OpListPettyCash, warnings)
	return &ledger, nil
}

// AddPettyCash records a cash box movement for the tenant
func (s *FinanceService) AddPettyCash(ctx context.Context, companyID, tenantID int64, req CreatePettyCashRequest) (*finance.PettyCashEntry, error) {
	ctx, span := s.begin(ctx, OpAddPettyCash)
	defer span.End()

	tid, err := strictTenant(tenantID, finance.TablePettyCash)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddPettyCash, err)
	}

	entry, err := finance.NewPettyCashEntry(
		tid,
		finance.CompanyID(companyID),
		req.CreatedBy,
		finance.CashDirection(req.Type),
		req.Amount,
		req.Date,
		req.Description,
	)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddPettyCash, err)
	}

	persisted, err := s.pettyCash.Save(ctx, entry)
	if err != nil {
		return nil, s.fail(ctx, span, OpAddPettyCash, err)
	}
	if err := finance.VerifyPersistedTenant(tid, persisted); err != nil {
		logger.L(ctx).Error("petty cash entry persisted with wrong device id",
			zap.Int64("entry_id", entry.ID),
			zap.Error(err),
		)
		return nil, s.fail(ctx, span, OpAddPettyCash, err)
	}

	s.invalidateTotals(ctx, tid)
	return entry, nil
}
