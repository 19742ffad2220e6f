package finance

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CashDirection is the direction of a petty cash movement
type CashDirection string

const (
	CashIn  CashDirection = "in"
	CashOut CashDirection = "out"
)

// IsValid checks if the direction is known
func (d CashDirection) IsValid() bool {
	return d == CashIn || d == CashOut
}

// PettyCashEntry is a movement of the store's cash box
type PettyCashEntry struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   CashDirection   `json:"type"`
	Description string          `json:"description"`
	TenantID    TenantID        `json:"tenant_id"`
	CompanyID   CompanyID       `json:"company_id,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
}

// NewPettyCashEntry validates and creates a petty cash movement
func NewPettyCashEntry(
	tenantID TenantID,
	companyID CompanyID,
	createdBy string,
	direction CashDirection,
	amount decimal.Decimal,
	date time.Time,
	description string,
) (*PettyCashEntry, error) {
	if tenantID <= 0 {
		return nil, NewMissingTenantError(tenantID.Int64())
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Petty cash type must be in or out")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Amount must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Date is required")
	}
	return &PettyCashEntry{
		Date:        date,
		Amount:      amount.Round(2),
		Direction:   direction,
		Description: strings.TrimSpace(description),
		TenantID:    tenantID,
		CompanyID:   companyID,
		CreatedBy:   createdBy,
	}, nil
}

// PettyCashLedger is the list of movements with its running balance
type PettyCashLedger struct {
	Entries  []PettyCashEntry `json:"entries"`
	TotalIn  decimal.Decimal  `json:"total_in"`
	TotalOut decimal.Decimal  `json:"total_out"`
	Balance  decimal.Decimal  `json:"balance"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// SummarizePettyCash computes totals and balance over entries
func SummarizePettyCash(entries []PettyCashEntry) PettyCashLedger {
	in, out := decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Direction == CashIn {
			in = in.Add(e.Amount)
		} else {
			out = out.Add(e.Amount)
		}
	}
	if entries == nil {
		entries = []PettyCashEntry{}
	}
	return PettyCashLedger{
		Entries:  entries,
		TotalIn:  in,
		TotalOut: out,
		Balance:  in.Sub(out),
	}
}
