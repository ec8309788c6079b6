package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode"`
	Price         decimal.Decimal `json:"price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity int             `json:"stock_quantity"`
	Category      string          `json:"category"`
}

// LowStock reports whether the product should be flagged on the inventory screen.
func (p Product) LowStock() bool {
	return p.StockQuantity < LowStockThreshold
}

const LowStockThreshold = 5
