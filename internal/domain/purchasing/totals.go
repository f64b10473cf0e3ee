package purchasing

import "github.com/shopspring/decimal"

var (
	// VATRate is the fixed value-added tax rate applied to every imported order
	VATRate = decimal.RequireFromString("0.07")
	// VATRatePercent is VATRate as stored on the order header
	VATRatePercent = decimal.NewFromInt(7)
)

// Totals holds the money figures of a purchase order header
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	VAT      decimal.Decimal `json:"vat"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals sums the line totals and applies VATRate.
// No rounding is applied; the store column scale decides the persisted precision.
func ComputeTotals(lineTotals ...decimal.Decimal) Totals {
	subtotal := decimal.Sum(decimal.Zero, lineTotals...)
	vat := subtotal.Mul(VATRate)
	return Totals{
		Subtotal: subtotal,
		VAT:      vat,
		Total:    subtotal.Add(vat),
	}
}
