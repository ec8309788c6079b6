package client

import (
	"context"
	"fmt"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

type SettingsService struct {
	c *Client
}

func NewSettingsService(c *Client) *SettingsService {
	return &SettingsService{c: c}
}

// Get wraps every failure in domain.ErrLookupFailure; callers fall back to
// domain.DefaultShopSettings.
func (s *SettingsService) Get(ctx context.Context) (domain.ShopSettings, error) {
	resp, err := s.c.get(ctx, "/api/settings")
	if err != nil {
		return domain.ShopSettings{}, fmt.Errorf("%w: settings: %w", domain.ErrLookupFailure, err)
	}
	if !resp.ok() {
		return domain.ShopSettings{}, fmt.Errorf("%w: settings: status %d", domain.ErrLookupFailure, resp.status)
	}

	settings := domain.DefaultShopSettings()
	if err := resp.decode(&settings); err != nil {
		return domain.ShopSettings{}, fmt.Errorf("%w: settings: %w", domain.ErrLookupFailure, err)
	}
	if settings.ShopName == "" {
		settings.ShopName = domain.DefaultShopName
	}
	if settings.CurrencySymbol == "" {
		settings.CurrencySymbol = domain.DefaultCurrencySymbol
	}
	return settings, nil
}
