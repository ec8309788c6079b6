package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

// GetSettings returns the shop settings, or the defaults when none are stored.
func (s *Store) GetSettings(ctx context.Context) (domain.ShopSettings, error) {
	query := `
		SELECT shop_name, address, phone, currency_symbol, default_tax_rate
		FROM settings
		WHERE id = 1
	`

	var st domain.ShopSettings
	err := s.db.QueryRowContext(ctx, query).Scan(
		&st.ShopName,
		&st.Address,
		&st.Phone,
		&st.CurrencySymbol,
		&st.DefaultTaxRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultShopSettings(), nil
	}
	if err != nil {
		return domain.ShopSettings{}, fmt.Errorf("query settings: %w", err)
	}
	return st, nil
}

func (s *Store) SaveSettings(ctx context.Context, st domain.ShopSettings) error {
	query := `
		INSERT INTO settings (id, shop_name, address, phone, currency_symbol, default_tax_rate)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			shop_name = excluded.shop_name,
			address = excluded.address,
			phone = excluded.phone,
			currency_symbol = excluded.currency_symbol,
			default_tax_rate = excluded.default_tax_rate
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ShopName,
		st.Address,
		st.Phone,
		st.CurrencySymbol,
		st.DefaultTaxRate,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
