package domain

import "github.com/shopspring/decimal"

// LineItem is one product entry in the cart. LineSubtotal always equals
// UnitPrice * Quantity; only the ledger writes it.
type LineItem struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	LineSubtotal decimal.Decimal `json:"subtotal"`
}

// Cart is the ordered collection of line items for the current sale.
type Cart []LineItem

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) IsEmpty() bool {
	return len(c) == 0
}
