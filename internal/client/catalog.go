package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

type CatalogService struct {
	c *Client
}

func NewCatalogService(c *Client) *CatalogService {
	return &CatalogService{c: c}
}

// ByCode looks up a product by its exact barcode.
func (s *CatalogService) ByCode(ctx context.Context, code string) (domain.Product, error) {
	resp, err := s.c.get(ctx, "/api/product/"+url.PathEscape(code))
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: product %q: %w", domain.ErrLookupFailure, code, err)
	}
	switch {
	case resp.status == http.StatusNotFound:
		return domain.Product{}, domain.ErrProductNotFound
	case !resp.ok():
		return domain.Product{}, fmt.Errorf("%w: product %q: status %d", domain.ErrLookupFailure, code, resp.status)
	}

	var p domain.Product
	if err := resp.decode(&p); err != nil {
		return domain.Product{}, fmt.Errorf("%w: product %q: %w", domain.ErrLookupFailure, code, err)
	}
	return p, nil
}

// Search returns products whose name or barcode matches query.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	resp, err := s.c.get(ctx, "/api/products?q="+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", domain.ErrLookupFailure, query, err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%w: search %q: status %d", domain.ErrLookupFailure, query, resp.status)
	}

	var products []domain.Product
	if err := resp.decode(&products); err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", domain.ErrLookupFailure, query, err)
	}
	return products, nil
}
