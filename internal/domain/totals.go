package domain

import "github.com/shopspring/decimal"

// TotalsSnapshot is derived from a Cart and the tax/discount inputs. It is
// recomputed on every change and never stored on its own.
type TotalsSnapshot struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Format renders an amount the way the till displays it.
func Format(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}
