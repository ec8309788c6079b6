package cache

import (
	"context"
	"errors"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

// ProductCache holds products keyed by barcode.
type ProductCache interface {
	Get(ctx context.Context, barcode string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, barcode string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop is used when no redis is configured; every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.Product, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, *domain.Product) error           { return nil }
func (Nop) Delete(context.Context, string) error                 { return nil }
