package finance

import "github.com/shopspring/decimal"

// LineItemCost is the costing view of one sale line item
type LineItemCost struct {
	Quantity       decimal.Decimal
	CostPrice      decimal.NullDecimal
	WholesalePrice decimal.NullDecimal
}

// UnitCost picks the unit cost with strict precedence: cost_price if present
// and positive, else wholesale_price if present and positive, else zero.
// There is no further fallback; under-costing is preferred to an invented number.
func UnitCost(costPrice, wholesalePrice decimal.NullDecimal) decimal.Decimal {
	if costPrice.Valid && costPrice.Decimal.IsPositive() {
		return costPrice.Decimal
	}
	if wholesalePrice.Valid && wholesalePrice.Decimal.IsPositive() {
		return wholesalePrice.Decimal
	}
	return decimal.Zero
}

// Contribution returns quantity × unit cost
func (l LineItemCost) Contribution() decimal.Decimal {
	return l.Quantity.Mul(UnitCost(l.CostPrice, l.WholesalePrice))
}

// COGS is the cost of goods sold for one tenant.
// Available is false when the line-item source does not exist, which is
// distinct from a genuine zero.
type COGS struct {
	Amount    decimal.Decimal `json:"amount"`
	Available bool            `json:"available"`
	LineItems int             `json:"line_items"`
	Uncosted  int             `json:"uncosted_line_items"`
}

// UnavailableCOGS is reported when no line-item data source exists
func UnavailableCOGS() COGS {
	return COGS{Amount: decimal.Zero, Available: false}
}

// ComputeCOGS sums the contributions of realized line items
func ComputeCOGS(items []LineItemCost) COGS {
	total := decimal.Zero
	uncosted := 0
	for _, item := range items {
		if UnitCost(item.CostPrice, item.WholesalePrice).IsZero() {
			uncosted++
			continue
		}
		total = total.Add(item.Contribution())
	}
	return COGS{
		Amount:    total.Round(2),
		Available: true,
		LineItems: len(items),
		Uncosted:  uncosted,
	}
}
