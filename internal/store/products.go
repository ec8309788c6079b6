package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

const productColumns = `id, name, barcode, price, cost_price, stock_quantity, category`

// searchLimit caps name searches from the till.
const searchLimit = 50

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p       domain.Product
		barcode sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&barcode,
		&p.Price,
		&p.CostPrice,
		&p.StockQuantity,
		&p.Category,
	)
	p.Barcode = barcode.String
	return p, err
}

func (s *Store) ProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE barcode = $1`
	return s.queryProduct(ctx, query, barcode)
}

func (s *Store) ProductByID(ctx context.Context, id int64) (domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return s.queryProduct(ctx, query, id)
}

func (s *Store) queryProduct(ctx context.Context, query string, arg any) (domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// SearchProducts matches query against names (case-insensitive substring)
// and barcodes (prefix).
func (s *Store) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	sqlQuery := `
		SELECT ` + productColumns + `
		FROM products
		WHERE LOWER(name) LIKE $1 OR barcode LIKE $2
		ORDER BY name, id
		LIMIT $3
	`
	return s.queryProducts(ctx, sqlQuery, "%"+q+"%", q+"%", searchLimit)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	return s.queryProducts(ctx, query)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

// CreateProduct inserts p and returns it with its new id.
func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	query := `
		INSERT INTO products (name, barcode, price, cost_price, stock_quantity, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		p.Name,
		nullString(p.Barcode),
		p.Price,
		p.CostPrice,
		p.StockQuantity,
		p.Category,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, ErrDuplicateBarcode
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, barcode = $2, price = $3, cost_price = $4, stock_quantity = $5, category = $6
		WHERE id = $7
	`
	res, err := s.db.ExecContext(ctx, query,
		p.Name,
		nullString(p.Barcode),
		p.Price,
		p.CostPrice,
		p.StockQuantity,
		p.Category,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBarcode
		}
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
