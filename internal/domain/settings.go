package domain

import "github.com/shopspring/decimal"

const (
	DefaultShopName       = "My Shop"
	DefaultCurrencySymbol = "$"
)

type ShopSettings struct {
	ShopName       string          `json:"shop_name"`
	Address        string          `json:"address,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	CurrencySymbol string          `json:"currency_symbol"`
	DefaultTaxRate decimal.Decimal `json:"default_tax_rate"`
}

// DefaultShopSettings is used whenever the settings service cannot be reached.
func DefaultShopSettings() ShopSettings {
	return ShopSettings{
		ShopName:       DefaultShopName,
		CurrencySymbol: DefaultCurrencySymbol,
		DefaultTaxRate: decimal.Zero,
	}
}
