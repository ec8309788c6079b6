// Package catalog serves products to the till, caching barcode lookups.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/cache"
	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidProduct = errors.New("invalid product")

type Repository interface {
	ProductByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	ProductByID(ctx context.Context, id int64) (domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type Service struct {
	repo   Repository
	cache  cache.ProductCache
	logger *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, c cache.ProductCache, logger *zap.Logger) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{repo: repo, cache: c, logger: logger}
}

// ByBarcode returns domain.ErrProductNotFound when no product has the code.
func (s *Service) ByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}

	v, err, _ := s.sfg.Do(barcode, func() (any, error) {
		p, err := s.cache.Get(ctx, barcode)
		if err == nil {
			return *p, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.String("barcode", barcode), zap.Error(err))
		}

		product, err := s.repo.ProductByBarcode(ctx, barcode)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.Set(context.Background(), &product); err != nil {
				s.logger.Warn("cache set error", zap.String("barcode", barcode), zap.Error(err))
			}
		}()
		return product, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product), nil
}

func (s *Service) ByID(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.ProductByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if strings.TrimSpace(query) == "" {
		return s.repo.ListProducts(ctx)
	}
	return s.repo.SearchProducts(ctx, query)
}

func (s *Service) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validate(&p); err != nil {
		return domain.Product{}, err
	}
	return s.repo.CreateProduct(ctx, p)
}

func (s *Service) Update(ctx context.Context, p domain.Product) error {
	if err := validate(&p); err != nil {
		return err
	}
	old, err := s.repo.ProductByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.Invalidate(old.Barcode, p.Barcode)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	old, err := s.repo.ProductByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.Invalidate(old.Barcode)
	return nil
}

// Invalidate drops cached entries, e.g. after a sale changed stock levels.
func (s *Service) Invalidate(barcodes ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, b := range barcodes {
		if err := s.cache.Delete(ctx, b); err != nil {
			s.logger.Warn("cache invalidate error", zap.String("barcode", b), zap.Error(err))
		}
	}
}

// InvalidateProducts drops the cache entries of the given products.
func (s *Service) InvalidateProducts(ctx context.Context, ids ...int64) {
	barcodes := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := s.repo.ProductByID(ctx, id)
		if err != nil {
			s.logger.Warn("invalidate: product lookup failed", zap.Int64("product_id", id), zap.Error(err))
			continue
		}
		barcodes = append(barcodes, p.Barcode)
	}
	s.Invalidate(barcodes...)
}

func validate(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Barcode = strings.TrimSpace(p.Barcode)
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case p.CostPrice.IsNegative():
		return fmt.Errorf("%w: cost price must not be negative", ErrInvalidProduct)
	case !domain.AmountInRange(p.Price) || !domain.AmountInRange(p.CostPrice):
		return fmt.Errorf("%w: price is out of range", ErrInvalidProduct)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}
