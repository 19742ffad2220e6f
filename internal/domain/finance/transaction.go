package finance

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategoryName is the last step of the category fallback chain
const DefaultCategoryName = "General"

// Provenance tags which source a normalized transaction came from
type Provenance string

const (
	ProvenanceManual   Provenance = "manual"
	ProvenanceSale     Provenance = "sale"
	ProvenancePurchase Provenance = "purchase"
)

// SourceRecord is a raw row from one of the ledger sources before normalization.
// Amount is the unsigned stored amount.
type SourceRecord struct {
	ID              int64
	Date            time.Time
	Amount          decimal.Decimal
	Type            EntryType
	Description     string
	CategoryName    string
	TransactionName string
	TenantID        *int64
}

// Transaction is the normalized shape every source is merged into
type Transaction struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        EntryType       `json:"type"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Provenance  Provenance      `json:"provenance"`
}

// ResolveCategory walks category_name, then transaction_name, then "General"
func ResolveCategory(categoryName, transactionName string) string {
	if c := strings.TrimSpace(categoryName); c != "" {
		return c
	}
	if t := strings.TrimSpace(transactionName); t != "" {
		return t
	}
	return DefaultCategoryName
}

// BelongsTo reports whether the record is attributable to tenantID
func (r SourceRecord) BelongsTo(tenantID TenantID) bool {
	return r.TenantID != nil && *r.TenantID == tenantID.Int64()
}

// Normalize converts a source record into a Transaction tagged with provenance
func Normalize(provenance Provenance, r SourceRecord) Transaction {
	return Transaction{
		ID:          r.ID,
		Date:        r.Date,
		Amount:      r.Type.Sign(r.Amount),
		Type:        r.Type,
		Description: r.Description,
		Category:    ResolveCategory(r.CategoryName, r.TransactionName),
		Provenance:  provenance,
	}
}

// SortByDateDesc orders transactions newest first. Ties keep a deterministic
// order: higher id first, then provenance name.
func SortByDateDesc(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		if txs[i].ID != txs[j].ID {
			return txs[i].ID > txs[j].ID
		}
		return txs[i].Provenance < txs[j].Provenance
	})
}

// TransactionList is the merged, normalized ledger of one tenant.
// Partial is set when at least one source failed and was replaced by an empty list.
type TransactionList struct {
	TenantID      TenantID      `json:"tenant_id"`
	Transactions  []Transaction `json:"transactions"`
	Partial       bool          `json:"partial"`
	FailedSources []Provenance  `json:"failed_sources,omitempty"`
	Warnings      []Warning     `json:"warnings,omitempty"`
}

// Totals sums the list by provenance and direction. Manual entries follow
// the same direction as EntryType.Sign.
func (l TransactionList) Totals() (manualIncome, manualExpense, salesIncome, purchaseExpense decimal.Decimal) {
	manualIncome, manualExpense = decimal.Zero, decimal.Zero
	salesIncome, purchaseExpense = decimal.Zero, decimal.Zero
	for _, tx := range l.Transactions {
		abs := tx.Amount.Abs()
		switch tx.Provenance {
		case ProvenanceSale:
			salesIncome = salesIncome.Add(abs)
		case ProvenancePurchase:
			purchaseExpense = purchaseExpense.Add(abs)
		default:
			if tx.Type == EntryExpense {
				manualExpense = manualExpense.Add(abs)
			} else {
				manualIncome = manualIncome.Add(abs)
			}
		}
	}
	return manualIncome, manualExpense, salesIncome, purchaseExpense
}
